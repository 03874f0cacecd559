package querymodel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
)

// QueryModel is the structured intermediate representation of a query: an
// origin clause, an ordered body, a terminal projection and optional result
// operators.
//
// Body clause order is semantically significant: later clauses observe the
// row shape produced by earlier ones. Builders only append.
type QueryModel struct {
	MainFromClause  *MainFromClause
	BodyClauses     []BodyClause
	SelectClause    *SelectClause
	ResultOperators []ResultOperator
}

// NewQueryModel creates a model with an empty body.
func NewQueryModel(main *MainFromClause, sel *SelectClause) (*QueryModel, error) {
	if err := requireArg(main != nil, "mainFromClause"); err != nil {
		return nil, err
	}
	if err := requireArg(sel != nil, "selectClause"); err != nil {
		return nil, err
	}
	return &QueryModel{MainFromClause: main, SelectClause: sel}, nil
}

// AddBodyClause appends a clause to the body.
func (m *QueryModel) AddBodyClause(c BodyClause) {
	m.BodyClauses = append(m.BodyClauses, c)
}

// AddResultOperator appends a result operator.
func (m *QueryModel) AddResultOperator(op ResultOperator) {
	m.ResultOperators = append(m.ResultOperators, op)
}

// OutputType is the type of the model's result: a sequence of the selector
// type, transformed by each result operator in turn.
func (m *QueryModel) OutputType() expr.Type {
	t := expr.SequenceOf(m.SelectClause.Selector.Type())
	for _, op := range m.ResultOperators {
		t = op.OutputType(t)
	}
	return t
}

// IsScalar reports whether the model produces a single value.
func (m *QueryModel) IsScalar() bool {
	for _, op := range m.ResultOperators {
		if op.IsScalar() {
			return true
		}
	}
	return false
}

// QuerySources returns the query sources owned by the model, in model order.
// The nested join of a group join precedes the group join itself.
func (m *QueryModel) QuerySources() []expr.QuerySource {
	sources := []expr.QuerySource{m.MainFromClause}
	for _, clause := range m.BodyClauses {
		switch c := clause.(type) {
		case *AdditionalFromClause:
			sources = append(sources, c)
		case *JoinClause:
			sources = append(sources, c)
		case *GroupJoinClause:
			sources = append(sources, c.JoinClause, c)
		}
	}
	return sources
}

// TransformExpressions applies fn to every expression of the model: main
// from clause, body clauses in order, select clause, result operators.
// Subqueries are not entered.
func (m *QueryModel) TransformExpressions(fn Transform) {
	m.MainFromClause.TransformExpressions(fn)
	for _, c := range m.BodyClauses {
		c.TransformExpressions(fn)
	}
	m.SelectClause.TransformExpressions(fn)
	for _, op := range m.ResultOperators {
		op.TransformExpressions(fn)
	}
}

// Clone deep-copies the model. Every reference inside the copy points at
// the copy's own query sources.
func (m *QueryModel) Clone() *QueryModel {
	return m.CloneWithMapping(NewQuerySourceMapping())
}

// CloneWithMapping deep-copies the model, adding original → [clone] entries
// to mapping. Pre-populated entries rewire references to sources outside
// the model (for example the outer model of a subquery).
func (m *QueryModel) CloneWithMapping(mapping *QuerySourceMapping) *QueryModel {
	ctx := NewCloneContext(mapping)

	clone := &QueryModel{MainFromClause: m.MainFromClause.Clone(ctx)}
	for _, c := range m.BodyClauses {
		clone.BodyClauses = append(clone.BodyClauses, c.Clone(ctx))
	}
	clone.SelectClause = m.SelectClause.Clone(ctx)
	for _, op := range m.ResultOperators {
		clone.ResultOperators = append(clone.ResultOperators, op.Clone(ctx))
	}

	clone.TransformExpressions(func(e expr.Expression) expr.Expression {
		return adjustAfterCloning(e, ctx)
	})
	return clone
}

// Validate checks the structural integrity of a finished model:
//   - no placeholder survives (every join skeleton got its inner key)
//   - every reference points at a source owned by this model or an
//     enclosing one
//   - no reference is stale (its source changed item type after resolution)
//
// All problems are reported together; errors.Is matches ErrDanglingPlaceholder,
// ErrForeignReference and ErrStaleReference.
func (m *QueryModel) Validate() error {
	return m.validate(nil)
}

func (m *QueryModel) validate(outer map[expr.QuerySource]bool) error {
	scope := make(map[expr.QuerySource]bool, len(outer)+len(m.BodyClauses)+1)
	for src := range outer {
		scope[src] = true
	}
	for _, src := range m.QuerySources() {
		scope[src] = true
	}

	var errs []error
	m.forEachExpression(func(owner string, e expr.Expression) {
		expr.Inspect(e, func(node expr.Expression) bool {
			switch n := node.(type) {
			case *expr.Placeholder:
				errs = append(errs, fmt.Errorf("%s: %w", owner, ErrDanglingPlaceholder))
			case *expr.QuerySourceReference:
				if !scope[n.Source] {
					errs = append(errs, fmt.Errorf("%s: [%s]: %w", owner, n.Source.ItemName(), ErrForeignReference))
				} else if n.IsStale() {
					errs = append(errs, fmt.Errorf("%s: [%s] resolved as %s, now %s: %w",
						owner, n.Source.ItemName(), n.RefType, n.Source.ItemType(), ErrStaleReference))
				}
			case *SubQuery:
				if err := n.Model.validate(scope); err != nil {
					errs = append(errs, fmt.Errorf("%s: subquery: %w", owner, err))
				}
			}
			return true
		})
	})
	return errors.Join(errs...)
}

// forEachExpression calls fn with every top-level expression of the model,
// labeled by its owning clause.
func (m *QueryModel) forEachExpression(fn func(owner string, e expr.Expression)) {
	visit := func(owner string) Transform {
		return func(e expr.Expression) expr.Expression {
			fn(owner, e)
			return e
		}
	}
	m.MainFromClause.TransformExpressions(visit("main from clause"))
	for i, c := range m.BodyClauses {
		c.TransformExpressions(visit(fmt.Sprintf("body clause %d", i)))
	}
	m.SelectClause.TransformExpressions(visit("select clause"))
	for i, op := range m.ResultOperators {
		op.TransformExpressions(visit(fmt.Sprintf("result operator %d", i)))
	}
}

func (m *QueryModel) String() string {
	var sb strings.Builder
	sb.WriteString(m.MainFromClause.String())
	for _, c := range m.BodyClauses {
		sb.WriteByte(' ')
		sb.WriteString(c.String())
	}
	sb.WriteByte(' ')
	sb.WriteString(m.SelectClause.String())
	for _, op := range m.ResultOperators {
		sb.WriteString(" => ")
		sb.WriteString(op.String())
	}
	return sb.String()
}
