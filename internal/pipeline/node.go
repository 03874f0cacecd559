package pipeline

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/querymodel"
)

// Node is one stage of a query pipeline.
//
// A node holds its source node (nil only for the chain origin) and the raw
// lambdas of its operator call. During a build the Builder calls Apply on
// every node from origin to sink; Apply resolves the node's lambdas and
// contributes clauses to the shared model.
type Node interface {
	fmt.Stringer

	// Source returns the preceding stage, or nil at the origin.
	Source() Node

	// AssociatedIdentifier names the item this node produces. It is used to
	// name the from clause that wraps the model after a result operator.
	AssociatedIdentifier() string

	// Resolve rewrites e, a lambda body over input, so that input denotes
	// the row flowing out of this node. Most nodes delegate to their source;
	// nodes that reshape the row substitute their resolved result selector.
	Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error)

	// Apply contributes this node's clauses to m and returns the model to
	// hand to the next node. The origin receives a nil model.
	Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error)
}

// resultOperatorNode marks nodes that add a result operator. A clause node
// following one of them wraps the model into a subquery first.
type resultOperatorNode interface {
	Node
	resultOperator()
}

func isResultOperatorNode(n Node) bool {
	_, ok := n.(resultOperatorNode)
	return ok
}

type nodeBase struct {
	source Node
}

// Source returns the preceding stage.
func (b *nodeBase) Source() Node { return b.source }

// slotState tracks a resolution slot through its lifecycle.
type slotState int

const (
	slotEmpty slotState = iota
	slotComputing
	slotDone
)

// resolutionSlot memoizes one resolved expression of a node.
//
// The value is computed at most once per build and returned identically on
// repeat access. Reading a slot while it is computing reports
// ErrReentrantResolution instead of recursing. A slot filled under another
// ClauseGenerationContext is recomputed.
type resolutionSlot struct {
	state slotState
	ctx   *ClauseGenerationContext
	value expr.Expression
}

func (r *resolutionSlot) get(ctx *ClauseGenerationContext, node Node, compute func() (expr.Expression, error)) (expr.Expression, error) {
	if r.state == slotComputing {
		return nil, &ResolutionError{Node: node.String(), Err: ErrReentrantResolution}
	}
	if r.state == slotDone && r.ctx == ctx {
		return r.value, nil
	}

	r.state, r.ctx, r.value = slotComputing, ctx, nil
	v, err := compute()
	if err != nil {
		r.state, r.ctx = slotEmpty, nil
		return nil, err
	}
	r.state, r.value = slotDone, v
	return v, nil
}

// resolveThrough resolves the body of a one-parameter lambda against the row
// produced by src.
func resolveThrough(src Node, l *expr.Lambda, ctx *ClauseGenerationContext) (expr.Expression, error) {
	e, err := src.Resolve(l.Params[0], l.Body, ctx)
	if err != nil {
		return nil, err
	}
	return expr.RemoveTransparentIdentifiers(e), nil
}

// substitute replaces input in e with replacement and folds transparent
// identifiers that the substitution exposes.
func substitute(e expr.Expression, input *expr.Parameter, replacement expr.Expression) expr.Expression {
	return expr.RemoveTransparentIdentifiers(expr.Replace(e, input, replacement))
}

// referenceTo returns a fresh reference to the source n produced.
func referenceTo(n Node, ctx *ClauseGenerationContext) (expr.Expression, error) {
	src, err := ctx.QuerySource(n)
	if err != nil {
		return nil, err
	}
	return expr.NewReference(src), nil
}

func checkSource(node string, src Node) error {
	if src == nil {
		return &ValidationError{Node: node, Argument: "source", Message: "is required"}
	}
	return nil
}

func checkLambda(node, arg string, l *expr.Lambda, arity int) error {
	if l == nil {
		return &ValidationError{Node: node, Argument: arg, Message: "is required"}
	}
	if l.Arity() != arity {
		return &ValidationError{
			Node:     node,
			Argument: arg,
			Message:  fmt.Sprintf("lambda must take exactly %d parameter(s), got %d", arity, l.Arity()),
		}
	}
	return nil
}

func checkSequence(node, arg string, e expr.Expression) (expr.Type, error) {
	if e == nil {
		return expr.Type{}, &ValidationError{Node: node, Argument: arg, Message: "is required"}
	}
	elem, ok := e.Type().ElementType()
	if !ok {
		return expr.Type{}, &ValidationError{
			Node:     node,
			Argument: arg,
			Message:  fmt.Sprintf("must be a sequence, got %s", e.Type()),
		}
	}
	return elem, nil
}
