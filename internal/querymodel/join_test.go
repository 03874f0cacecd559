package querymodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
)

func TestJoinClause_String(t *testing.T) {
	s := expr.NewParameter("s", studentType)
	a := expr.NewParameter("a", addressType)

	join, err := NewJoinClause("a", addressType,
		expr.NewSource("Addresses", addressType),
		expr.NewMember(s, "AddressID", expr.IntType),
		expr.NewMember(a, "ID", expr.IntType))
	require.NoError(t, err)

	assert.Equal(t, "join Address a in Addresses on s.AddressID equals a.ID", join.String())
	assert.False(t, join.IsSkeleton())
}

func TestJoinClause_SkeletonProtocol(t *testing.T) {
	s := expr.NewParameter("s", studentType)

	join, err := NewJoinClauseSkeleton("a", addressType,
		expr.NewSource("Addresses", addressType),
		expr.NewMember(s, "AddressID", expr.IntType))
	require.NoError(t, err)
	assert.True(t, join.IsSkeleton())
	assert.Contains(t, join.String(), "equals <placeholder>")

	// The inner key refers to the clause itself.
	innerKey := expr.NewMember(expr.NewReference(join), "ID", expr.IntType)
	require.NoError(t, join.AttachInnerKeySelector(innerKey))
	assert.Same(t, innerKey, join.InnerKeySelector)
	assert.Equal(t, "join Address a in Addresses on s.AddressID equals [a].ID", join.String())

	err = join.AttachInnerKeySelector(innerKey)
	assert.ErrorIs(t, err, ErrInnerKeyAttached)
	assert.Same(t, innerKey, join.InnerKeySelector)
}

func TestJoinClause_AttachRejectsMissingKey(t *testing.T) {
	newSkeleton := func() *JoinClause {
		join, err := NewJoinClauseSkeleton("a", addressType,
			expr.NewSource("Addresses", addressType),
			expr.NewParameter("s", studentType))
		require.NoError(t, err)
		return join
	}

	tests := []struct {
		name string
		key  expr.Expression
	}{
		{"nil", nil},
		{"placeholder", expr.NewPlaceholder()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			join := newSkeleton()
			err := join.AttachInnerKeySelector(tt.key)

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, "innerKeySelector", argErr.Argument)
			assert.True(t, join.IsSkeleton())
		})
	}
}

func TestNewJoinClauseSkeleton_Arguments(t *testing.T) {
	src := expr.NewSource("Addresses", addressType)
	key := expr.NewParameter("s", studentType)

	tests := []struct {
		name     string
		itemName string
		inner    expr.Expression
		outerKey expr.Expression
		wantArg  string
	}{
		{"missing item name", "", src, key, "itemName"},
		{"missing inner sequence", "a", nil, key, "innerSequence"},
		{"missing outer key", "a", src, nil, "outerKeySelector"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			join, err := NewJoinClauseSkeleton(tt.itemName, addressType, tt.inner, tt.outerKey)
			assert.Nil(t, join)

			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tt.wantArg, argErr.Argument)
		})
	}
}

func TestJoinClause_TransformExpressionsOrder(t *testing.T) {
	s := expr.NewParameter("s", studentType)
	a := expr.NewParameter("a", addressType)
	join, err := NewJoinClause("a", addressType, expr.NewSource("Addresses", addressType), s, a)
	require.NoError(t, err)

	var order []string
	join.TransformExpressions(func(e expr.Expression) expr.Expression {
		order = append(order, e.String())
		return e
	})
	assert.Equal(t, []string{"Addresses", "s", "a"}, order)
}

func TestGroupJoinClause_String(t *testing.T) {
	s := expr.NewParameter("s", studentType)
	a := expr.NewParameter("a", addressType)
	join, err := NewJoinClause("a", addressType,
		expr.NewSource("Addresses", addressType),
		expr.NewMember(s, "AddressID", expr.IntType),
		expr.NewMember(a, "ID", expr.IntType))
	require.NoError(t, err)

	gj, err := NewGroupJoinClause("addrs", expr.SequenceOf(addressType), join)
	require.NoError(t, err)
	assert.Equal(t,
		"join Address a in Addresses on s.AddressID equals a.ID into seq<Address> addrs",
		gj.String())

	var count int
	gj.TransformExpressions(func(e expr.Expression) expr.Expression {
		count++
		return e
	})
	assert.Equal(t, 3, count)
}
