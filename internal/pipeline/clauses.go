package pipeline

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/querymodel"
)

// WhereNode filters the rows of its source: Where(s => predicate).
type WhereNode struct {
	nodeBase
	predicate *expr.Lambda
	resolved  resolutionSlot
}

// NewWhereNode creates a where node. predicate takes one parameter.
func NewWhereNode(source Node, predicate *expr.Lambda) (*WhereNode, error) {
	if err := checkSource("Where", source); err != nil {
		return nil, err
	}
	if err := checkLambda("Where", "predicate", predicate, 1); err != nil {
		return nil, err
	}
	return &WhereNode{nodeBase: nodeBase{source: source}, predicate: predicate}, nil
}

// AssociatedIdentifier returns the source's identifier; filtering keeps the
// row shape.
func (n *WhereNode) AssociatedIdentifier() string { return n.source.AssociatedIdentifier() }

// ResolvedPredicate returns the predicate with its parameter bound to the
// source row. The result is cached.
func (n *WhereNode) ResolvedPredicate(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolved.get(ctx, n, func() (expr.Expression, error) {
		return resolveThrough(n.source, n.predicate, ctx)
	})
}

// Resolve passes through to the source.
func (n *WhereNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.source.Resolve(input, e, ctx)
}

// Apply appends a where clause.
func (n *WhereNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	pred, err := n.ResolvedPredicate(ctx)
	if err != nil {
		return nil, err
	}
	clause, err := querymodel.NewWhereClause(pred)
	if err != nil {
		return nil, err
	}
	m.AddBodyClause(clause)
	return m, nil
}

func (n *WhereNode) String() string { return fmt.Sprintf("Where(%s)", n.predicate) }

// SelectNode projects each row of its source: Select(s => selector).
type SelectNode struct {
	nodeBase
	selector *expr.Lambda
	resolved resolutionSlot
}

// NewSelectNode creates a select node. selector takes one parameter.
func NewSelectNode(source Node, selector *expr.Lambda) (*SelectNode, error) {
	if err := checkSource("Select", source); err != nil {
		return nil, err
	}
	if err := checkLambda("Select", "selector", selector, 1); err != nil {
		return nil, err
	}
	return &SelectNode{nodeBase: nodeBase{source: source}, selector: selector}, nil
}

// AssociatedIdentifier returns the selector's parameter name.
func (n *SelectNode) AssociatedIdentifier() string { return n.selector.Params[0].Name }

// ResolvedSelector returns the selector bound to the source row. The result
// is cached.
func (n *SelectNode) ResolvedSelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolved.get(ctx, n, func() (expr.Expression, error) {
		return resolveThrough(n.source, n.selector, ctx)
	})
}

// Resolve substitutes the resolved selector for input: downstream nodes see
// the projected value as their row.
func (n *SelectNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	sel, err := n.ResolvedSelector(ctx)
	if err != nil {
		return nil, err
	}
	return substitute(e, input, sel), nil
}

// Apply replaces the model's projection.
func (n *SelectNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	sel, err := n.ResolvedSelector(ctx)
	if err != nil {
		return nil, err
	}
	m.SelectClause.Selector = sel
	return m, nil
}

func (n *SelectNode) String() string { return fmt.Sprintf("Select(%s)", n.selector) }

// OrderByNode sorts the rows of its source by a key.
type OrderByNode struct {
	nodeBase
	keySelector *expr.Lambda
	direction   querymodel.OrderingDirection
	resolved    resolutionSlot
}

// NewOrderByNode creates an order-by node. keySelector takes one parameter.
func NewOrderByNode(source Node, keySelector *expr.Lambda, dir querymodel.OrderingDirection) (*OrderByNode, error) {
	if err := checkSource("OrderBy", source); err != nil {
		return nil, err
	}
	if err := checkLambda("OrderBy", "keySelector", keySelector, 1); err != nil {
		return nil, err
	}
	return &OrderByNode{nodeBase: nodeBase{source: source}, keySelector: keySelector, direction: dir}, nil
}

// AssociatedIdentifier returns the source's identifier.
func (n *OrderByNode) AssociatedIdentifier() string { return n.source.AssociatedIdentifier() }

// ResolvedKeySelector returns the key bound to the source row. The result is
// cached.
func (n *OrderByNode) ResolvedKeySelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolved.get(ctx, n, func() (expr.Expression, error) {
		return resolveThrough(n.source, n.keySelector, ctx)
	})
}

// Resolve passes through to the source.
func (n *OrderByNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.source.Resolve(input, e, ctx)
}

// Apply appends a new order-by clause. A later order-by starts a new sort;
// it does not extend an earlier clause.
func (n *OrderByNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	key, err := n.ResolvedKeySelector(ctx)
	if err != nil {
		return nil, err
	}
	clause, err := querymodel.NewOrderByClause(key, n.direction)
	if err != nil {
		return nil, err
	}
	m.AddBodyClause(clause)
	return m, nil
}

func (n *OrderByNode) String() string {
	return fmt.Sprintf("OrderBy(%s, %s)", n.keySelector, n.direction)
}

// ThenByNode adds a tie-breaking key to the order-by clause its source
// created.
type ThenByNode struct {
	nodeBase
	keySelector *expr.Lambda
	direction   querymodel.OrderingDirection
	resolved    resolutionSlot
}

// NewThenByNode creates a then-by node. The source must be an order-by or
// then-by node; anything else is a ValidationError wrapping
// ErrThenByWithoutOrderBy.
func NewThenByNode(source Node, keySelector *expr.Lambda, dir querymodel.OrderingDirection) (*ThenByNode, error) {
	if err := checkSource("ThenBy", source); err != nil {
		return nil, err
	}
	switch source.(type) {
	case *OrderByNode, *ThenByNode:
	default:
		return nil, &ValidationError{
			Node:     "ThenBy",
			Argument: "source",
			Message:  fmt.Sprintf("got %s", source),
			Err:      ErrThenByWithoutOrderBy,
		}
	}
	if err := checkLambda("ThenBy", "keySelector", keySelector, 1); err != nil {
		return nil, err
	}
	return &ThenByNode{nodeBase: nodeBase{source: source}, keySelector: keySelector, direction: dir}, nil
}

// AssociatedIdentifier returns the source's identifier.
func (n *ThenByNode) AssociatedIdentifier() string { return n.source.AssociatedIdentifier() }

// ResolvedKeySelector returns the key bound to the source row. The result is
// cached.
func (n *ThenByNode) ResolvedKeySelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.resolved.get(ctx, n, func() (expr.Expression, error) {
		return resolveThrough(n.source, n.keySelector, ctx)
	})
}

// Resolve passes through to the source.
func (n *ThenByNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.source.Resolve(input, e, ctx)
}

// Apply adds an ordering to the last body clause, which must be the
// order-by clause created by the preceding node.
func (n *ThenByNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	var orderBy *querymodel.OrderByClause
	if len(m.BodyClauses) > 0 {
		orderBy, _ = m.BodyClauses[len(m.BodyClauses)-1].(*querymodel.OrderByClause)
	}
	if orderBy == nil {
		return nil, fmt.Errorf("%s: %w", n, ErrThenByWithoutOrderBy)
	}

	key, err := n.ResolvedKeySelector(ctx)
	if err != nil {
		return nil, err
	}
	if err := orderBy.AddOrdering(key, n.direction); err != nil {
		return nil, err
	}
	return m, nil
}

func (n *ThenByNode) String() string {
	return fmt.Sprintf("ThenBy(%s, %s)", n.keySelector, n.direction)
}
