package pipeline

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/querymodel"
)

// JoinNode correlates the rows of its source with an inner sequence on
// equal keys:
//
//	Join(inner, s => outerKey, a => innerKey, (s, a) => result)
//
// The join clause takes its item name and type from the inner key
// selector's parameter. Because the inner key refers to the clause itself,
// the clause is built in two explicit steps: CreateSkeleton registers a
// clause with a placeholder inner key, ResolveAndAttach resolves the inner
// key against it and attaches the result.
type JoinNode struct {
	nodeBase
	innerSequence    expr.Expression
	outerKeySelector *expr.Lambda
	innerKeySelector *expr.Lambda
	resultSelector   *expr.Lambda

	outerKey resolutionSlot
	innerKey resolutionSlot
	result   resolutionSlot
}

// NewJoinNode creates a join node. Key selectors take one parameter, the
// result selector takes two (outer row, inner item). inner must be a
// sequence whose element type matches the inner key selector's parameter.
func NewJoinNode(source Node, inner expr.Expression, outerKey, innerKey, result *expr.Lambda) (*JoinNode, error) {
	if err := checkJoin("Join", source, inner, outerKey, innerKey); err != nil {
		return nil, err
	}
	if err := checkLambda("Join", "resultSelector", result, 2); err != nil {
		return nil, err
	}
	return &JoinNode{
		nodeBase:         nodeBase{source: source},
		innerSequence:    inner,
		outerKeySelector: outerKey,
		innerKeySelector: innerKey,
		resultSelector:   result,
	}, nil
}

func checkJoin(node string, source Node, inner expr.Expression, outerKey, innerKey *expr.Lambda) error {
	if err := checkSource(node, source); err != nil {
		return err
	}
	elem, err := checkSequence(node, "innerSequence", inner)
	if err != nil {
		return err
	}
	if err := checkLambda(node, "outerKeySelector", outerKey, 1); err != nil {
		return err
	}
	if err := checkLambda(node, "innerKeySelector", innerKey, 1); err != nil {
		return err
	}
	if pt := innerKey.Params[0].ParamType; !pt.IsZero() && !pt.Equal(elem) {
		return &ValidationError{
			Node:     node,
			Argument: "innerKeySelector",
			Message:  fmt.Sprintf("parameter %s has type %s, inner sequence yields %s", innerKey.Params[0].Name, pt, elem),
		}
	}
	return nil
}

// ItemName returns the join clause's item name.
func (n *JoinNode) ItemName() string { return n.innerKeySelector.Params[0].Name }

// ItemType returns the join clause's item type.
func (n *JoinNode) ItemType() expr.Type {
	if t := n.innerKeySelector.Params[0].ParamType; !t.IsZero() {
		return t
	}
	elem, _ := n.innerSequence.Type().ElementType()
	return elem
}

// AssociatedIdentifier returns the join clause's item name.
func (n *JoinNode) AssociatedIdentifier() string { return n.ItemName() }

// ResolvedOuterKeySelector returns the outer key bound to the source row.
// The result is cached.
func (n *JoinNode) ResolvedOuterKeySelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.outerKey.get(ctx, n, func() (expr.Expression, error) {
		return resolveThrough(n.source, n.outerKeySelector, ctx)
	})
}

// ResolvedInnerKeySelector returns the inner key bound to this node's join
// clause. The clause must already be registered in ctx (see CreateSkeleton);
// otherwise the result is a ResolutionError wrapping ErrUnmappedNode.
func (n *JoinNode) ResolvedInnerKeySelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.innerKey.get(ctx, n, func() (expr.Expression, error) {
		ref, err := referenceTo(n, ctx)
		if err != nil {
			return nil, err
		}
		return substitute(n.innerKeySelector.Body, n.innerKeySelector.Params[0], ref), nil
	})
}

// ResolvedResultSelector returns the result selector with the inner item
// bound to this node's clause and the outer row bound through the source.
// The result is cached.
func (n *JoinNode) ResolvedResultSelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.result.get(ctx, n, func() (expr.Expression, error) {
		return resolveTwoSource(n, n.source, n.resultSelector, ctx)
	})
}

// resolveTwoSource resolves a (outer, inner) => body selector: inner is bound
// to the query source self produced, outer through src.
func resolveTwoSource(self, src Node, l *expr.Lambda, ctx *ClauseGenerationContext) (expr.Expression, error) {
	ref, err := referenceTo(self, ctx)
	if err != nil {
		return nil, err
	}
	body := expr.Replace(l.Body, l.Params[1], ref)
	e, err := src.Resolve(l.Params[0], body, ctx)
	if err != nil {
		return nil, err
	}
	return expr.RemoveTransparentIdentifiers(e), nil
}

// CreateSkeleton builds the join clause with a placeholder inner key and
// registers it in ctx as this node's query source.
func (n *JoinNode) CreateSkeleton(ctx *ClauseGenerationContext) (*querymodel.JoinClause, error) {
	outer, err := n.ResolvedOuterKeySelector(ctx)
	if err != nil {
		return nil, err
	}
	clause, err := querymodel.NewJoinClauseSkeleton(n.ItemName(), n.ItemType(), n.innerSequence, outer)
	if err != nil {
		return nil, err
	}
	if err := ctx.AddMapping(n, clause); err != nil {
		return nil, err
	}
	return clause, nil
}

// ResolveAndAttach resolves the inner key selector against clause and
// attaches it. clause must be the skeleton registered for this node.
func (n *JoinNode) ResolveAndAttach(clause *querymodel.JoinClause, ctx *ClauseGenerationContext) error {
	src, err := ctx.QuerySource(n)
	if err != nil {
		return err
	}
	if src != expr.QuerySource(clause) {
		return &ResolutionError{Node: n.String(), Message: fmt.Sprintf("clause %s is not registered for this node", clause.ItemName())}
	}
	inner, err := n.ResolvedInnerKeySelector(ctx)
	if err != nil {
		return err
	}
	return clause.AttachInnerKeySelector(inner)
}

// CreateJoinClause runs CreateSkeleton then ResolveAndAttach.
func (n *JoinNode) CreateJoinClause(ctx *ClauseGenerationContext) (*querymodel.JoinClause, error) {
	clause, err := n.CreateSkeleton(ctx)
	if err != nil {
		return nil, err
	}
	if err := n.ResolveAndAttach(clause, ctx); err != nil {
		return nil, err
	}
	return clause, nil
}

// Resolve substitutes the resolved result selector for input: after a join
// the row is whatever the result selector built.
func (n *JoinNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	result, err := n.ResolvedResultSelector(ctx)
	if err != nil {
		return nil, err
	}
	return substitute(e, input, result), nil
}

// Apply appends the join clause and projects the result selector.
func (n *JoinNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	clause, err := n.CreateJoinClause(ctx)
	if err != nil {
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

func (n *JoinNode) String() string {
	return fmt.Sprintf("Join(%s, %s, %s, %s)", n.innerSequence, n.outerKeySelector, n.innerKeySelector, n.resultSelector)
}

// GroupJoinNode correlates each row of its source with the group of
// matching inner items:
//
//	GroupJoin(inner, s => outerKey, o => innerKey, (s, g) => result)
//
// It owns a JoinNode for the nested join clause; the group clause takes its
// item name from the result selector's second parameter.
type GroupJoinNode struct {
	nodeBase
	join           *JoinNode
	resultSelector *expr.Lambda
	result         resolutionSlot
}

// NewGroupJoinNode creates a group join node. Arity rules match NewJoinNode.
func NewGroupJoinNode(source Node, inner expr.Expression, outerKey, innerKey, result *expr.Lambda) (*GroupJoinNode, error) {
	if err := checkJoin("GroupJoin", source, inner, outerKey, innerKey); err != nil {
		return nil, err
	}
	if err := checkLambda("GroupJoin", "resultSelector", result, 2); err != nil {
		return nil, err
	}

	// The nested join is never applied on its own; its result selector only
	// has to satisfy the join's arity rule.
	item := innerKey.Params[0]
	outer := expr.NewParameter(outerKey.Params[0].Name, outerKey.Params[0].ParamType)
	join, err := NewJoinNode(source, inner, outerKey, innerKey, expr.NewLambda(item, outer, item))
	if err != nil {
		return nil, err
	}
	return &GroupJoinNode{nodeBase: nodeBase{source: source}, join: join, resultSelector: result}, nil
}

// JoinNode returns the node producing the nested join clause.
func (n *GroupJoinNode) JoinNode() *JoinNode { return n.join }

// ItemName returns the group's item name.
func (n *GroupJoinNode) ItemName() string { return n.resultSelector.Params[1].Name }

// ItemType returns the group's item type: a sequence of the joined items.
func (n *GroupJoinNode) ItemType() expr.Type { return expr.SequenceOf(n.join.ItemType()) }

// AssociatedIdentifier returns the group's item name.
func (n *GroupJoinNode) AssociatedIdentifier() string { return n.ItemName() }

// ResolvedResultSelector returns the result selector with the group bound to
// this node's clause and the outer row bound through the source. The result
// is cached.
func (n *GroupJoinNode) ResolvedResultSelector(ctx *ClauseGenerationContext) (expr.Expression, error) {
	return n.result.get(ctx, n, func() (expr.Expression, error) {
		return resolveTwoSource(n, n.source, n.resultSelector, ctx)
	})
}

// Resolve substitutes the resolved result selector for input.
func (n *GroupJoinNode) Resolve(input *expr.Parameter, e expr.Expression, ctx *ClauseGenerationContext) (expr.Expression, error) {
	result, err := n.ResolvedResultSelector(ctx)
	if err != nil {
		return nil, err
	}
	return substitute(e, input, result), nil
}

// Apply builds the nested join, wraps it in a group join clause, appends
// that and projects the result selector.
func (n *GroupJoinNode) Apply(m *querymodel.QueryModel, ctx *ClauseGenerationContext) (*querymodel.QueryModel, error) {
	join, err := n.join.CreateJoinClause(ctx)
	if err != nil {
		return nil, err
	}
	clause, err := querymodel.NewGroupJoinClause(n.ItemName(), n.ItemType(), join)
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

func (n *GroupJoinNode) String() string {
	j := n.join
	return fmt.Sprintf("GroupJoin(%s, %s, %s, %s)", j.innerSequence, j.outerKeySelector, j.innerKeySelector, n.resultSelector)
}
