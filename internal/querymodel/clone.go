package querymodel

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
)

// QuerySourceMapping maps query sources (by identity) to the expressions
// that should replace references to them.
type QuerySourceMapping struct {
	entries map[expr.QuerySource]expr.Expression
}

// NewQuerySourceMapping creates an empty mapping.
func NewQuerySourceMapping() *QuerySourceMapping {
	return &QuerySourceMapping{entries: make(map[expr.QuerySource]expr.Expression)}
}

// AddMapping maps src to e. Mapping the same source twice is an error.
func (m *QuerySourceMapping) AddMapping(src expr.QuerySource, e expr.Expression) error {
	if _, ok := m.entries[src]; ok {
		return fmt.Errorf("%s: %w", src.ItemName(), ErrMappingExists)
	}
	m.entries[src] = e
	return nil
}

// ReplaceMapping changes the expression mapped to an already mapped src.
func (m *QuerySourceMapping) ReplaceMapping(src expr.QuerySource, e expr.Expression) error {
	if _, ok := m.entries[src]; !ok {
		return fmt.Errorf("%s: %w", src.ItemName(), ErrMappingMissing)
	}
	m.entries[src] = e
	return nil
}

// ContainsMapping reports whether src is mapped.
func (m *QuerySourceMapping) ContainsMapping(src expr.QuerySource) bool {
	_, ok := m.entries[src]
	return ok
}

// GetExpression returns the expression mapped to src.
func (m *QuerySourceMapping) GetExpression(src expr.QuerySource) (expr.Expression, bool) {
	e, ok := m.entries[src]
	return e, ok
}

// Len returns the number of mapped sources.
func (m *QuerySourceMapping) Len() int {
	return len(m.entries)
}

// CloneContext carries the rewiring table through a deep copy.
//
// Every query source clause registers original → [clone] while cloning, so
// references held by clauses cloned later in the same pass (and by the
// select clause and result operators) can be pointed at the copy.
type CloneContext struct {
	Mapping *QuerySourceMapping
}

// NewCloneContext creates a clone context over mapping.
func NewCloneContext(mapping *QuerySourceMapping) *CloneContext {
	return &CloneContext{Mapping: mapping}
}

func (ctx *CloneContext) register(original, clone expr.QuerySource) {
	ctx.Mapping.entries[original] = expr.NewReference(clone)
}

// ReplaceReferences rewrites every query source reference in e whose source
// is mapped. With strict set, an unmapped reference is an error.
func ReplaceReferences(e expr.Expression, mapping *QuerySourceMapping, strict bool) (expr.Expression, error) {
	var unmapped expr.QuerySource
	out := expr.Rewrite(e, func(node expr.Expression) expr.Expression {
		ref, ok := node.(*expr.QuerySourceReference)
		if !ok {
			return node
		}
		if replacement, ok := mapping.GetExpression(ref.Source); ok {
			return replacement
		}
		if strict && unmapped == nil {
			unmapped = ref.Source
		}
		return node
	})
	if unmapped != nil {
		return nil, fmt.Errorf("%s: %w", unmapped.ItemName(), ErrMappingMissing)
	}
	return out, nil
}

// adjustAfterCloning rewires references to cloned sources and deep-copies
// subqueries with the same context, so a subquery referring to an outer
// source ends up referring to the outer clone.
//
// A reference rewired to another source keeps the item type it was created
// with, so a stale reference stays stale in the clone.
func adjustAfterCloning(e expr.Expression, ctx *CloneContext) expr.Expression {
	return expr.Rewrite(e, func(node expr.Expression) expr.Expression {
		switch n := node.(type) {
		case *expr.QuerySourceReference:
			replacement, ok := ctx.Mapping.GetExpression(n.Source)
			if !ok {
				return node
			}
			if ref, ok := replacement.(*expr.QuerySourceReference); ok {
				return &expr.QuerySourceReference{Source: ref.Source, RefType: n.RefType}
			}
			return replacement
		case *SubQuery:
			return &SubQuery{Model: n.Model.CloneWithMapping(ctx.Mapping)}
		}
		return node
	})
}
