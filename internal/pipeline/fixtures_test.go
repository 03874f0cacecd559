package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/ir"
)

var (
	studentType = expr.Named("Student")
	addressType = expr.Named("Address")
	orderType   = expr.Named("Order")
	courseType  = expr.Named("Course")

	students  = expr.NewSource("Students", studentType)
	addresses = expr.NewSource("Addresses", addressType)
	orders    = expr.NewSource("Orders", orderType)
)

func param(name string, t expr.Type) *expr.Parameter { return expr.NewParameter(name, t) }

func member(e expr.Expression, name string, t expr.Type) *expr.Member {
	return expr.NewMember(e, name, t)
}

func intConst(n int64) *expr.Constant { return expr.NewConstant(ir.IRInt(n)) }

func lambda1(name string, t expr.Type, body func(p *expr.Parameter) expr.Expression) *expr.Lambda {
	p := param(name, t)
	return expr.NewLambda(body(p), p)
}

func lambda2(a string, at expr.Type, b string, bt expr.Type, body func(a, b *expr.Parameter) expr.Expression) *expr.Lambda {
	pa, pb := param(a, at), param(b, bt)
	return expr.NewLambda(body(pa, pb), pa, pb)
}

// record builds new (name1 = e1, name2 = e2, ...) from parameters.
func record(params ...*expr.Parameter) *expr.New {
	names := make([]string, len(params))
	args := make([]expr.Expression, len(params))
	for i, p := range params {
		names[i], args[i] = p.Name, p
	}
	return expr.NewNew(expr.Type{}, names, args)
}

func mainNode(t *testing.T) *MainSourceNode {
	t.Helper()
	n, err := NewMainSourceNode("s", students)
	require.NoError(t, err)
	return n
}

// addressJoin is Join(Addresses, s => s.AddressID, a => a.ID, (s, a) => new (s = s, a = a)).
func addressJoin(t *testing.T, src Node) *JoinNode {
	t.Helper()
	n, err := NewJoinNode(src, addresses,
		lambda1("s", studentType, func(s *expr.Parameter) expr.Expression {
			return member(s, "AddressID", expr.IntType)
		}),
		lambda1("a", addressType, func(a *expr.Parameter) expr.Expression {
			return member(a, "ID", expr.IntType)
		}),
		lambda2("s", studentType, "a", addressType, func(s, a *expr.Parameter) expr.Expression {
			return record(s, a)
		}))
	require.NoError(t, err)
	return n
}

func ageOver(t *testing.T, src Node, age int64) *WhereNode {
	t.Helper()
	n, err := NewWhereNode(src, lambda1("s", studentType, func(s *expr.Parameter) expr.Expression {
		return expr.NewBinary(expr.OpGreater, member(s, "Age", expr.IntType), intConst(age))
	}))
	require.NoError(t, err)
	return n
}

func selectName(t *testing.T, src Node) *SelectNode {
	t.Helper()
	n, err := NewSelectNode(src, lambda1("x", studentType, func(x *expr.Parameter) expr.Expression {
		return member(x, "Name", expr.StringType)
	}))
	require.NoError(t, err)
	return n
}

func irString(s string) ir.IRString { return ir.IRString(s) }
