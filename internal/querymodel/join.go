package querymodel

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
)

// JoinClause is an inner equi-join of the current rows with InnerSequence.
//
// The inner key selector usually refers to the clause itself ("this clause's
// item"), so it cannot be resolved before the clause exists. Builders use the
// two-step protocol:
//
//	clause, _ := NewJoinClauseSkeleton(name, typ, inner, outerKey) // placeholder inner key
//	// register clause as a back-reference target, resolve the inner key...
//	err := clause.AttachInnerKeySelector(resolvedInnerKey)
//
// A skeleton that never gets its inner key attached is rejected by
// QueryModel.Validate.
type JoinClause struct {
	itemName         string
	itemType         expr.Type
	InnerSequence    expr.Expression
	OuterKeySelector expr.Expression
	InnerKeySelector expr.Expression
}

// NewJoinClause creates a fully specified join clause.
func NewJoinClause(itemName string, itemType expr.Type, inner, outerKey, innerKey expr.Expression) (*JoinClause, error) {
	c, err := NewJoinClauseSkeleton(itemName, itemType, inner, outerKey)
	if err != nil {
		return nil, err
	}
	if err := c.AttachInnerKeySelector(innerKey); err != nil {
		return nil, err
	}
	return c, nil
}

// NewJoinClauseSkeleton creates a join clause whose inner key selector is a
// placeholder, to be replaced through AttachInnerKeySelector.
func NewJoinClauseSkeleton(itemName string, itemType expr.Type, inner, outerKey expr.Expression) (*JoinClause, error) {
	if err := requireArg(itemName != "", "itemName"); err != nil {
		return nil, err
	}
	if err := requireArg(inner != nil, "innerSequence"); err != nil {
		return nil, err
	}
	if err := requireArg(outerKey != nil, "outerKeySelector"); err != nil {
		return nil, err
	}
	return &JoinClause{
		itemName:         itemName,
		itemType:         itemType,
		InnerSequence:    inner,
		OuterKeySelector: outerKey,
		InnerKeySelector: expr.NewPlaceholder(),
	}, nil
}

// IsSkeleton reports whether the inner key selector is still a placeholder.
func (c *JoinClause) IsSkeleton() bool {
	_, ok := c.InnerKeySelector.(*expr.Placeholder)
	return ok
}

// AttachInnerKeySelector replaces the placeholder inner key selector.
// It fails if the clause is not a skeleton or if innerKey is itself missing
// or a placeholder.
func (c *JoinClause) AttachInnerKeySelector(innerKey expr.Expression) error {
	if !c.IsSkeleton() {
		return fmt.Errorf("join %s: %w", c.itemName, ErrInnerKeyAttached)
	}
	if err := requireArg(innerKey != nil, "innerKeySelector"); err != nil {
		return err
	}
	if _, ok := innerKey.(*expr.Placeholder); ok {
		return &ArgumentError{Argument: "innerKeySelector", Message: "cannot attach a placeholder"}
	}
	c.InnerKeySelector = innerKey
	return nil
}

// ItemName returns the descriptive item name.
func (c *JoinClause) ItemName() string { return c.itemName }

// ItemType returns the authoritative item type.
func (c *JoinClause) ItemType() expr.Type { return c.itemType }

// SetItemType changes the item type. References created before the change
// keep the old type; QueryModel.Validate reports them as stale.
func (c *JoinClause) SetItemType(t expr.Type) { c.itemType = t }

// Accept dispatches to Visitor.VisitJoinClause.
func (c *JoinClause) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitJoinClause(c, m, index)
}

// AcceptInGroupJoin dispatches to Visitor.VisitGroupJoinJoinClause for a
// join nested inside gj.
func (c *JoinClause) AcceptInGroupJoin(v Visitor, m *QueryModel, gj *GroupJoinClause) error {
	return v.VisitGroupJoinJoinClause(c, m, gj)
}

// TransformExpressions rewrites the inner sequence, the outer key selector
// and the inner key selector, in that order.
func (c *JoinClause) TransformExpressions(fn Transform) {
	c.InnerSequence = fn(c.InnerSequence)
	c.OuterKeySelector = fn(c.OuterKeySelector)
	c.InnerKeySelector = fn(c.InnerKeySelector)
}

// Clone copies the clause and maps it in ctx.
func (c *JoinClause) Clone(ctx *CloneContext) BodyClause {
	return c.cloneJoin(ctx)
}

func (c *JoinClause) cloneJoin(ctx *CloneContext) *JoinClause {
	clone := &JoinClause{
		itemName:         c.itemName,
		itemType:         c.itemType,
		InnerSequence:    c.InnerSequence,
		OuterKeySelector: c.OuterKeySelector,
		InnerKeySelector: c.InnerKeySelector,
	}
	ctx.register(c, clone)
	return clone
}

func (c *JoinClause) String() string {
	return fmt.Sprintf("join %s %s in %s on %s equals %s",
		c.itemType, c.itemName, c.InnerSequence, c.OuterKeySelector, c.InnerKeySelector)
}

// GroupJoinClause correlates each row with the group of inner items matched
// by its nested JoinClause. Its item is that group.
type GroupJoinClause struct {
	itemName   string
	itemType   expr.Type
	JoinClause *JoinClause
}

// NewGroupJoinClause creates a group join around join.
func NewGroupJoinClause(itemName string, itemType expr.Type, join *JoinClause) (*GroupJoinClause, error) {
	if err := requireArg(itemName != "", "itemName"); err != nil {
		return nil, err
	}
	if err := requireArg(join != nil, "joinClause"); err != nil {
		return nil, err
	}
	return &GroupJoinClause{itemName: itemName, itemType: itemType, JoinClause: join}, nil
}

// ItemName returns the descriptive item name.
func (c *GroupJoinClause) ItemName() string { return c.itemName }

// ItemType returns the authoritative item type.
func (c *GroupJoinClause) ItemType() expr.Type { return c.itemType }

// SetItemType changes the item type. References created before the change
// keep the old type; QueryModel.Validate reports them as stale.
func (c *GroupJoinClause) SetItemType(t expr.Type) { c.itemType = t }

// Accept dispatches to Visitor.VisitGroupJoinClause. The nested join is not
// visited; Walk does that through JoinClause.AcceptInGroupJoin.
func (c *GroupJoinClause) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitGroupJoinClause(c, m, index)
}

// TransformExpressions recurses into the nested join clause.
func (c *GroupJoinClause) TransformExpressions(fn Transform) {
	c.JoinClause.TransformExpressions(fn)
}

// Clone copies the clause and its nested join, mapping both in ctx.
func (c *GroupJoinClause) Clone(ctx *CloneContext) BodyClause {
	clone := &GroupJoinClause{
		itemName:   c.itemName,
		itemType:   c.itemType,
		JoinClause: c.JoinClause.cloneJoin(ctx),
	}
	ctx.register(c, clone)
	return clone
}

func (c *GroupJoinClause) String() string {
	return fmt.Sprintf("%s into %s %s", c.JoinClause, c.itemType, c.itemName)
}
