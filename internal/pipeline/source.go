package pipeline

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/querymodel"
)

// MainSourceNode is the origin of a node chain: a named root sequence such
// as Students. It produces the model's main from clause.
type MainSourceNode struct {
	identifier string
	itemType   expr.Type
	source     expr.Expression
}

// NewMainSourceNode creates the origin node. source must have a sequence
// type; its element type becomes the item type.
func NewMainSourceNode(identifier string, source expr.Expression) (*MainSourceNode, error) {
	if identifier == "" {
		return nil, &ValidationError{Node: "MainSource", Argument: "identifier", Message: "is required"}
	}
	item, err := checkSequence("MainSource", "source", source)
	if err != nil {
		return nil, err
	}
	return &MainSourceNode{identifier: identifier, itemType: item, source: source}, nil
}

// Source returns nil: a main source is always the origin.
func (n *MainSourceNode) Source() Node { return nil }

// AssociatedIdentifier returns the item name of the main from clause.
func (n *MainSourceNode) AssociatedIdentifier() string { return n.identifier }

// ItemType returns the element type of the source sequence.
func (n *MainSourceNode) ItemType() expr.Type { return n.itemType }

// Resolve replaces input with a reference to the main from clause.
func (n *MainSourceNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	ref, err := referenceTo(n, ctx)
	if err != nil {
		return nil, err
	}
	return substitute(e, input, ref), nil
}

// Apply creates a new model selecting the main from clause's item.
func (n *MainSourceNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	if m != nil {
		return nil, fmt.Errorf("%s: %w", n, ErrMissingOrigin)
	}
	main, err := querymodel.NewMainFromClause(n.identifier, n.itemType, n.source)
	if err != nil {
		return nil, err
	}
	if err := ctx.AddMapping(n, main); err != nil {
		return nil, err
	}
	sel, err := querymodel.NewSelectClause(expr.NewReference(main))
	if err != nil {
		return nil, err
	}
	return querymodel.NewQueryModel(main, sel)
}

func (n *MainSourceNode) String() string {
	return fmt.Sprintf("MainSource(%s in %s)", n.identifier, n.source)
}
