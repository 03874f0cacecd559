package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/ir"
)

func TestRewrite_IdentityPreservesNodes(t *testing.T) {
	s := NewParameter("s", studentType)
	e := NewBinary(OpAnd,
		NewBinary(OpEqual, NewMember(s, "ID", IntType), NewConstant(ir.IRInt(1))),
		NewCall(s, "IsActive", BoolType),
	)

	out := Rewrite(e, func(node Expression) Expression { return node })

	assert.Same(t, e, out)
}

func TestRewrite_RebuildsOnlyChangedPath(t *testing.T) {
	s := NewParameter("s", studentType)
	left := NewBinary(OpEqual, NewMember(s, "ID", IntType), NewConstant(ir.IRInt(1)))
	right := NewBinary(OpEqual, NewConstant(ir.IRInt(2)), NewConstant(ir.IRInt(2)))
	e := NewBinary(OpOr, left, right)

	ref := NewReference(&fakeSource{name: "s", typ: studentType})
	out := Replace(e, s, ref)

	require.NotSame(t, e, out)
	bin := out.(*Binary)
	assert.NotSame(t, left, bin.Left)
	assert.Same(t, right, bin.Right, "untouched subtree must be shared")
	assert.Equal(t, "(([s].ID == 1) || (2 == 2))", out.String())
	assert.Equal(t, "((s.ID == 1) || (2 == 2))", e.String(), "input must not be mutated")
}

func TestReplace_MatchesByIdentityOnly(t *testing.T) {
	s1 := NewParameter("s", studentType)
	s2 := NewParameter("s", studentType)
	e := NewBinary(OpEqual, NewMember(s1, "ID", IntType), NewMember(s2, "ID", IntType))

	ref := NewReference(&fakeSource{name: "x", typ: studentType})
	out := Replace(e, s1, ref)

	assert.Equal(t, "([x].ID == s.ID)", out.String())
}

func TestReplace_InsideLambdaBodyKeepsParams(t *testing.T) {
	s := NewParameter("s", studentType)
	g := NewParameter("g", studentType)
	lambda := NewLambda(NewMember(s, "ID", IntType), g)
	e := NewCall(g, "Any", BoolType, lambda)

	ref := NewReference(&fakeSource{name: "outer", typ: studentType})
	out := Replace(e, s, ref).(*Call)

	inner := out.Args[0].(*Lambda)
	assert.Same(t, g, inner.Params[0])
	assert.Equal(t, "g.Any(g => [outer].ID)", out.String())
}

func TestInspectAndContains(t *testing.T) {
	s := NewParameter("s", studentType)
	e := NewNew(Type{}, []string{"A", "B"}, []Expression{
		NewMember(s, "ID", IntType),
		NewPlaceholder(),
	})

	var visited []string
	Inspect(e, func(node Expression) bool {
		visited = append(visited, node.String())
		return true
	})
	assert.Equal(t, []string{"new (A = s.ID, B = <placeholder>)", "s.ID", "s", "<placeholder>"}, visited)

	assert.True(t, Contains(e, func(node Expression) bool {
		_, ok := node.(*Placeholder)
		return ok
	}))
	assert.False(t, Contains(e, func(node Expression) bool {
		_, ok := node.(*Constant)
		return ok
	}))
}

func TestRemoveTransparentIdentifiers(t *testing.T) {
	sRef := NewReference(&fakeSource{name: "s", typ: studentType})
	aRef := NewReference(&fakeSource{name: "a", typ: addressType})
	row := NewNew(Type{}, []string{"s", "a"}, []Expression{sRef, aRef})

	e := NewBinary(OpEqual,
		NewMember(NewMember(row, "a", addressType), "City", StringType),
		NewConstant(ir.IRString("Oslo")),
	)

	out := RemoveTransparentIdentifiers(e)

	assert.Equal(t, `([a].City == "Oslo")`, out.String())
	member := out.(*Binary).Left.(*Member)
	assert.Same(t, aRef, member.Expr)
}

func TestRemoveTransparentIdentifiers_UnknownMemberKept(t *testing.T) {
	sRef := NewReference(&fakeSource{name: "s", typ: studentType})
	row := NewNew(Type{}, []string{"s"}, []Expression{sRef})
	e := NewMember(row, "missing", IntType)

	assert.Same(t, e, RemoveTransparentIdentifiers(e))
}
