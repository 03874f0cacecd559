package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/querymodel"
)

func appliedMain(t *testing.T) (*MainSourceNode, *ClauseGenerationContext, *querymodel.QueryModel) {
	t.Helper()
	main := mainNode(t)
	ctx := NewClauseGenerationContext()
	m, err := main.Apply(nil, ctx)
	require.NoError(t, err)
	return main, ctx, m
}

func TestJoinNode_ItemFromInnerKeyParameter(t *testing.T) {
	join := addressJoin(t, mainNode(t))
	assert.Equal(t, "a", join.ItemName())
	assert.Equal(t, addressType, join.ItemType())
	assert.Equal(t, "a", join.AssociatedIdentifier())
}

func TestJoinNode_SkeletonProtocol(t *testing.T) {
	main, ctx, _ := appliedMain(t)
	join := addressJoin(t, main)

	clause, err := join.CreateSkeleton(ctx)
	require.NoError(t, err)
	assert.True(t, clause.IsSkeleton())
	assert.Equal(t, "[s].AddressID", clause.OuterKeySelector.String())

	src, err := ctx.QuerySource(join)
	require.NoError(t, err)
	assert.Same(t, clause, src)

	require.NoError(t, join.ResolveAndAttach(clause, ctx))
	assert.False(t, clause.IsSkeleton())
	assert.Equal(t, "join Address a in Addresses on [s].AddressID equals [a].ID", clause.String())

	// The inner key refers to the clause itself.
	ref := clause.InnerKeySelector.(*expr.Member).Expr.(*expr.QuerySourceReference)
	assert.Same(t, clause, ref.Source)

	err = join.ResolveAndAttach(clause, ctx)
	assert.ErrorIs(t, err, querymodel.ErrInnerKeyAttached)
}

func TestJoinNode_InnerKeyBeforeRegistration(t *testing.T) {
	main, ctx, _ := appliedMain(t)
	join := addressJoin(t, main)

	_, err := join.ResolvedInnerKeySelector(ctx)
	assert.ErrorIs(t, err, ErrUnmappedNode)

	// A skeleton built outside the protocol is never registered.
	clause, err := querymodel.NewJoinClauseSkeleton("a", addressType, addresses, students)
	require.NoError(t, err)
	err = join.ResolveAndAttach(clause, ctx)
	assert.ErrorIs(t, err, ErrUnmappedNode)
	assert.True(t, clause.IsSkeleton())

	// The failed attempts leave nothing cached.
	registered, err := join.CreateJoinClause(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[a].ID", registered.InnerKeySelector.String())
}

func TestJoinNode_AttachForeignClause(t *testing.T) {
	main, ctx, _ := appliedMain(t)
	join := addressJoin(t, main)

	_, err := join.CreateSkeleton(ctx)
	require.NoError(t, err)

	foreign, err := querymodel.NewJoinClauseSkeleton("a", addressType, addresses, students)
	require.NoError(t, err)
	err = join.ResolveAndAttach(foreign, ctx)
	require.Error(t, err)
	assert.True(t, IsResolutionError(err))
	assert.True(t, foreign.IsSkeleton())
}

func TestJoinNode_ResolvedResultSelectorCached(t *testing.T) {
	main, ctx, m := appliedMain(t)
	join := addressJoin(t, main)

	_, err := join.Apply(m, ctx)
	require.NoError(t, err)

	first, err := join.ResolvedResultSelector(ctx)
	require.NoError(t, err)
	second, err := join.ResolvedResultSelector(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, m.SelectClause.Selector)
	assert.Equal(t, "new (s = [s], a = [a])", first.String())
}

func TestBuild_Join(t *testing.T) {
	join := addressJoin(t, mainNode(t))
	where, err := NewWhereNode(join, lambda1("x", expr.Type{}, func(x *expr.Parameter) expr.Expression {
		return expr.NewBinary(expr.OpEqual,
			member(member(x, "a", addressType), "City", expr.StringType),
			expr.NewConstant(irString("Seattle")))
	}))
	require.NoError(t, err)
	sel, err := NewSelectNode(where, lambda1("x", expr.Type{}, func(x *expr.Parameter) expr.Expression {
		return member(member(x, "s", studentType), "Name", expr.StringType)
	}))
	require.NoError(t, err)

	m, err := Build(sel)
	require.NoError(t, err)
	assert.Equal(t,
		`from Student s in Students `+
			`join Address a in Addresses on [s].AddressID equals [a].ID `+
			`where ([a].City == "Seattle") `+
			`select [s].Name`,
		m.String())
}

func TestBuild_GroupJoin(t *testing.T) {
	gj, err := NewGroupJoinNode(mainNode(t), orders,
		lambda1("s", studentType, func(s *expr.Parameter) expr.Expression {
			return member(s, "ID", expr.IntType)
		}),
		lambda1("o", orderType, func(o *expr.Parameter) expr.Expression {
			return member(o, "StudentID", expr.IntType)
		}),
		lambda2("s", studentType, "orders", expr.SequenceOf(orderType), func(s, g *expr.Parameter) expr.Expression {
			return record(s, g)
		}))
	require.NoError(t, err)
	assert.Equal(t, "orders", gj.ItemName())
	assert.Equal(t, "seq<Order>", gj.ItemType().String())

	sel, err := NewSelectNode(gj, lambda1("x", expr.Type{}, func(x *expr.Parameter) expr.Expression {
		return expr.NewCall(member(x, "orders", gj.ItemType()), "Count", expr.IntType)
	}))
	require.NoError(t, err)

	m, err := Build(sel)
	require.NoError(t, err)
	assert.Equal(t,
		`from Student s in Students `+
			`join Order o in Orders on [s].ID equals [o].StudentID into seq<Order> orders `+
			`select [orders].Count()`,
		m.String())

	clause := m.BodyClauses[0].(*querymodel.GroupJoinClause)
	innerRef := clause.JoinClause.InnerKeySelector.(*expr.Member).Expr.(*expr.QuerySourceReference)
	assert.Same(t, clause.JoinClause, innerRef.Source)
	selRef := m.SelectClause.Selector.(*expr.Call).Object.(*expr.QuerySourceReference)
	assert.Same(t, clause, selRef.Source)
}

func TestBuild_SelectMany(t *testing.T) {
	courses := lambda1("s", studentType, func(s *expr.Parameter) expr.Expression {
		return member(s, "Courses", expr.SequenceOf(courseType))
	})

	t.Run("with result selector", func(t *testing.T) {
		sm, err := NewSelectManyNode(mainNode(t), courses,
			lambda2("s", studentType, "c", courseType, func(s, c *expr.Parameter) expr.Expression {
				return record(s, c)
			}))
		require.NoError(t, err)
		sel, err := NewSelectNode(sm, lambda1("x", expr.Type{}, func(x *expr.Parameter) expr.Expression {
			return member(member(x, "c", courseType), "Title", expr.StringType)
		}))
		require.NoError(t, err)

		m, err := Build(sel)
		require.NoError(t, err)
		assert.Equal(t,
			"from Student s in Students from Course c in [s].Courses select [c].Title",
			m.String())
	})

	t.Run("without result selector", func(t *testing.T) {
		sm, err := NewSelectManyNode(mainNode(t), courses, nil)
		require.NoError(t, err)
		assert.Equal(t, "item", sm.ItemName())

		m, err := Build(sm)
		require.NoError(t, err)
		assert.Equal(t,
			"from Student s in Students from Course item in [s].Courses select [item]",
			m.String())
	})
}
