package pipeline

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/querymodel"
)

// resultOperatorBase is shared by the nodes that add a result operator.
//
// Result operators do not change the row shape, so resolution passes
// through to the source. After a later clause node wraps the model, the
// context maps the result operator node to the wrapping from clause, and
// resolution binds to that clause instead.
type resultOperatorBase struct {
	nodeBase
}

func (b *resultOperatorBase) resultOperator() {}

// AssociatedIdentifier returns the source's identifier.
func (b *resultOperatorBase) AssociatedIdentifier() string { return b.source.AssociatedIdentifier() }

func (b *resultOperatorBase) resolve(self Node, input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	if ctx.Contains(self) {
		ref, err := referenceTo(self, ctx)
		if err != nil {
			return nil, err
		}
		return substitute(e, input, ref), nil
	}
	return b.source.Resolve(input, e, ctx)
}

func newResultOperatorBase(name string, source Node) (resultOperatorBase, error) {
	if err := checkSource(name, source); err != nil {
		return resultOperatorBase{}, err
	}
	return resultOperatorBase{nodeBase: nodeBase{source: source}}, nil
}

// DistinctNode removes duplicate rows.
type DistinctNode struct{ resultOperatorBase }

// NewDistinctNode creates a distinct node.
func NewDistinctNode(source Node) (*DistinctNode, error) {
	base, err := newResultOperatorBase("Distinct", source)
	if err != nil {
		return nil, err
	}
	return &DistinctNode{base}, nil
}

// Resolve passes through to the source unless the model was wrapped.
func (n *DistinctNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolve(n, input, e, ctx)
}

// Apply appends a Distinct result operator.
func (n *DistinctNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	m.AddResultOperator(&querymodel.Distinct{})
	return m, nil
}

func (n *DistinctNode) String() string { return "Distinct()" }

// TakeNode limits the result to a number of rows.
type TakeNode struct {
	resultOperatorBase
	count expr.Expression
}

// NewTakeNode creates a take node. count must be an integer expression.
func NewTakeNode(source Node, count expr.Expression) (*TakeNode, error) {
	base, err := newResultOperatorBase("Take", source)
	if err != nil {
		return nil, err
	}
	if err := checkCount("Take", count); err != nil {
		return nil, err
	}
	return &TakeNode{resultOperatorBase: base, count: count}, nil
}

// Resolve passes through to the source unless the model was wrapped.
func (n *TakeNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolve(n, input, e, ctx)
}

// Apply appends a Take result operator.
func (n *TakeNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	op, err := querymodel.NewTake(n.count)
	if err != nil {
		return nil, err
	}
	m.AddResultOperator(op)
	return m, nil
}

func (n *TakeNode) String() string { return fmt.Sprintf("Take(%s)", n.count) }

// SkipNode drops a number of leading rows.
type SkipNode struct {
	resultOperatorBase
	count expr.Expression
}

// NewSkipNode creates a skip node. count must be an integer expression.
func NewSkipNode(source Node, count expr.Expression) (*SkipNode, error) {
	base, err := newResultOperatorBase("Skip", source)
	if err != nil {
		return nil, err
	}
	if err := checkCount("Skip", count); err != nil {
		return nil, err
	}
	return &SkipNode{resultOperatorBase: base, count: count}, nil
}

// Resolve passes through to the source unless the model was wrapped.
func (n *SkipNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolve(n, input, e, ctx)
}

// Apply appends a Skip result operator.
func (n *SkipNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	op, err := querymodel.NewSkip(n.count)
	if err != nil {
		return nil, err
	}
	m.AddResultOperator(op)
	return m, nil
}

func (n *SkipNode) String() string { return fmt.Sprintf("Skip(%s)", n.count) }

// CountNode aggregates the result into its row count.
type CountNode struct{ resultOperatorBase }

// NewCountNode creates a count node.
func NewCountNode(source Node) (*CountNode, error) {
	base, err := newResultOperatorBase("Count", source)
	if err != nil {
		return nil, err
	}
	return &CountNode{base}, nil
}

// Resolve passes through to the source unless the model was wrapped.
func (n *CountNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolve(n, input, e, ctx)
}

// Apply appends a Count result operator.
func (n *CountNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	m.AddResultOperator(&querymodel.Count{})
	return m, nil
}

func (n *CountNode) String() string { return "Count()" }

// FirstNode selects the first row.
type FirstNode struct{ resultOperatorBase }

// NewFirstNode creates a first node.
func NewFirstNode(source Node) (*FirstNode, error) {
	base, err := newResultOperatorBase("First", source)
	if err != nil {
		return nil, err
	}
	return &FirstNode{base}, nil
}

// Resolve passes through to the source unless the model was wrapped.
func (n *FirstNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolve(n, input, e, ctx)
}

// Apply appends a First result operator.
func (n *FirstNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	m.AddResultOperator(&querymodel.First{})
	return m, nil
}

func (n *FirstNode) String() string { return "First()" }

func checkCount(node string, count expr.Expression) error {
	if count == nil {
		return &ValidationError{Node: node, Argument: "count", Message: "is required"}
	}
	if t := count.Type(); !t.Equal(expr.IntType) {
		return &ValidationError{Node: node, Argument: "count", Message: fmt.Sprintf("must be int, got %s", t)}
	}
	return nil
}
