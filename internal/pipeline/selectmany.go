package pipeline

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/querymodel"
)

// SelectManyNode flattens a collection per row of its source:
//
//	SelectMany(s => collection, (s, c) => result)
//
// It produces an additional from clause over the resolved collection. The
// clause takes its item name from the result selector's second parameter.
// Without a result selector the node behaves as if given (s, item) => item.
type SelectManyNode struct {
	nodeBase
	collectionSelector *expr.Lambda
	resultSelector     *expr.Lambda
	itemType           expr.Type

	collection resolutionSlot
	result     resolutionSlot
}

// NewSelectManyNode creates a select-many node. collection takes one
// parameter and must yield a sequence; result takes two or is nil.
func NewSelectManyNode(source Node, collection, result *expr.Lambda) (*SelectManyNode, error) {
	if err := checkSource("SelectMany", source); err != nil {
		return nil, err
	}
	if err := checkLambda("SelectMany", "collectionSelector", collection, 1); err != nil {
		return nil, err
	}
	elem, err := checkSequence("SelectMany", "collectionSelector", collection.Body)
	if err != nil {
		return nil, err
	}

	if result == nil {
		item := expr.NewParameter("item", elem)
		outer := expr.NewParameter(collection.Params[0].Name, collection.Params[0].ParamType)
		result = expr.NewLambda(item, outer, item)
	} else if err := checkLambda("SelectMany", "resultSelector", result, 2); err != nil {
		return nil, err
	}

	return &SelectManyNode{
		nodeBase:           nodeBase{source: source},
		collectionSelector: collection,
		resultSelector:     result,
		itemType:           elem,
	}, nil
}

// ItemName returns the additional from clause's item name.
func (n *SelectManyNode) ItemName() string { return n.resultSelector.Params[1].Name }

// ItemType returns the collection's element type.
func (n *SelectManyNode) ItemType() expr.Type { return n.itemType }

// AssociatedIdentifier returns the additional from clause's item name.
func (n *SelectManyNode) AssociatedIdentifier() string { return n.ItemName() }

// ResolvedCollectionSelector returns the collection bound to the source row.
// The result is cached.
func (n *SelectManyNode) ResolvedCollectionSelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.collection.get(ctx, n, func() (expr.Expression, error) {
		return resolveThrough(n.source, n.collectionSelector, ctx)
	})
}

// ResolvedResultSelector returns the result selector with the collection
// item bound to this node's clause. The result is cached.
func (n *SelectManyNode) ResolvedResultSelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.result.get(ctx, n, func() (expr.Expression, error) {
		return resolveTwoSource(n, n.source, n.resultSelector, ctx)
	})
}

// Resolve substitutes the resolved result selector for input.
func (n *SelectManyNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	result, err := n.ResolvedResultSelector(ctx)
	if err != nil {
		return nil, err
	}
	return substitute(e, input, result), nil
}

// Apply appends the additional from clause and projects the result selector.
func (n *SelectManyNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	coll, err := n.ResolvedCollectionSelector(ctx)
	if err != nil {
		return nil, err
	}
	clause, err := querymodel.NewAdditionalFromClause(n.ItemName(), n.itemType, coll)
	if err != nil {
		return nil, err
	}
	if err := ctx.AddMapping(n, clause); err != nil {
		return nil, err
	}
	m.AddBodyClause(clause)

	result, err := n.ResolvedResultSelector(ctx)
	if err != nil {
		return nil, err
	}
	m.SelectClause.Selector = result
	return m, nil
}

func (n *SelectManyNode) String() string {
	return fmt.Sprintf("SelectMany(%s, %s)", n.collectionSelector, n.resultSelector)
}
