package querymodel

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
)

// ResultOperator modifies the result of a query model after its projection
// (distinct, limit, offset, aggregation, element selection). Result
// operators are applied in order.
type ResultOperator interface {
	fmt.Stringer

	// Accept dispatches to Visitor.VisitResultOperator.
	Accept(v Visitor, m *QueryModel, index int) error

	// TransformExpressions applies fn to the operator's own expressions.
	TransformExpressions(fn Transform)

	// Clone copies the operator.
	Clone(ctx *CloneContext) ResultOperator

	// OutputType returns the result type given the type flowing into the
	// operator.
	OutputType(input expr.Type) expr.Type

	// IsScalar reports whether the operator produces a single value rather
	// than a sequence.
	IsScalar() bool
}

// Distinct removes duplicate rows.
type Distinct struct{}

func (op *Distinct) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitResultOperator(op, m, index)
}
func (op *Distinct) TransformExpressions(fn Transform) {}
func (op *Distinct) Clone(ctx *CloneContext) ResultOperator { return &Distinct{} }
func (op *Distinct) OutputType(input expr.Type) expr.Type { return input }
func (op *Distinct) IsScalar() bool { return false }
func (op *Distinct) String() string { return "Distinct()" }

// Take limits the result to Count rows.
type Take struct {
	Count expr.Expression
}

// NewTake creates a Take operator.
func NewTake(count expr.Expression) (*Take, error) {
	if err := requireArg(count != nil, "count"); err != nil {
		return nil, err
	}
	return &Take{Count: count}, nil
}

func (op *Take) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitResultOperator(op, m, index)
}
func (op *Take) TransformExpressions(fn Transform) { op.Count = fn(op.Count) }
func (op *Take) Clone(ctx *CloneContext) ResultOperator { return &Take{Count: op.Count} }
func (op *Take) OutputType(input expr.Type) expr.Type { return input }
func (op *Take) IsScalar() bool { return false }
func (op *Take) String() string { return "Take(" + op.Count.String() + ")" }

// Skip drops the first Count rows.
type Skip struct {
	Count expr.Expression
}

// NewSkip creates a Skip operator.
func NewSkip(count expr.Expression) (*Skip, error) {
	if err := requireArg(count != nil, "count"); err != nil {
		return nil, err
	}
	return &Skip{Count: count}, nil
}

func (op *Skip) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitResultOperator(op, m, index)
}
func (op *Skip) TransformExpressions(fn Transform) { op.Count = fn(op.Count) }
func (op *Skip) Clone(ctx *CloneContext) ResultOperator { return &Skip{Count: op.Count} }
func (op *Skip) OutputType(input expr.Type) expr.Type { return input }
func (op *Skip) IsScalar() bool { return false }
func (op *Skip) String() string { return "Skip(" + op.Count.String() + ")" }

// Count aggregates the result into its row count.
type Count struct{}

func (op *Count) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitResultOperator(op, m, index)
}
func (op *Count) TransformExpressions(fn Transform) {}
func (op *Count) Clone(ctx *CloneContext) ResultOperator { return &Count{} }
func (op *Count) OutputType(input expr.Type) expr.Type { return expr.IntType }
func (op *Count) IsScalar() bool { return true }
func (op *Count) String() string { return "Count()" }

// First selects the first row of the result.
type First struct{}

func (op *First) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitResultOperator(op, m, index)
}
func (op *First) TransformExpressions(fn Transform) {}
func (op *First) Clone(ctx *CloneContext) ResultOperator { return &First{} }
func (op *First) OutputType(input expr.Type) expr.Type {
	if elem, ok := input.ElementType(); ok {
		return elem
	}
	return input
}
func (op *First) IsScalar() bool { return true }
func (op *First) String() string { return "First()" }
