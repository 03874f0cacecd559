package querymodel

import (
	"fmt"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
)

// Transform is a pure rewrite applied to every expression a clause owns.
type Transform func(expr.Expression) expr.Expression

// BodyClause is a clause in the ordered body of a query model.
//
// This is a closed set: AdditionalFromClause, JoinClause, GroupJoinClause,
// WhereClause and OrderByClause. Backends consume body clauses through
// Accept, which calls back into the kind-specific Visitor method with the
// clause's position in the body.
type BodyClause interface {
	fmt.Stringer

	// Accept dispatches to the Visitor method matching the clause kind.
	Accept(v Visitor, m *QueryModel, index int) error

	// TransformExpressions applies fn to every expression the clause owns
	// directly and writes the results back in place.
	TransformExpressions(fn Transform)

	// Clone builds a structurally identical clause sharing the same
	// expressions. Query source clauses register original → [clone] in ctx
	// before returning.
	Clone(ctx *CloneContext) BodyClause
}

// fromClause holds the query source state shared by the from-clause kinds.
type fromClause struct {
	itemName       string
	itemType       expr.Type
	FromExpression expr.Expression
}

func newFromClause(itemName string, itemType expr.Type, from expr.Expression) (fromClause, error) {
	if err := requireArg(itemName != "", "itemName"); err != nil {
		return fromClause{}, err
	}
	if err := requireArg(from != nil, "fromExpression"); err != nil {
		return fromClause{}, err
	}
	return fromClause{itemName: itemName, itemType: itemType, FromExpression: from}, nil
}

// ItemName returns the descriptive item name.
func (c *fromClause) ItemName() string { return c.itemName }

// ItemType returns the authoritative item type.
func (c *fromClause) ItemType() expr.Type { return c.itemType }

// SetItemType changes the item type. References created before the change
// keep the old type; QueryModel.Validate reports them as stale.
func (c *fromClause) SetItemType(t expr.Type) { c.itemType = t }

func (c *fromClause) transform(fn Transform) {
	c.FromExpression = fn(c.FromExpression)
}

func (c *fromClause) format() string {
	return fmt.Sprintf("from %s %s in %s", c.itemType, c.itemName, c.FromExpression)
}

// MainFromClause is the origin clause of a query model.
type MainFromClause struct {
	fromClause
}

// NewMainFromClause creates the origin clause.
func NewMainFromClause(itemName string, itemType expr.Type, from expr.Expression) (*MainFromClause, error) {
	fc, err := newFromClause(itemName, itemType, from)
	if err != nil {
		return nil, err
	}
	return &MainFromClause{fromClause: fc}, nil
}

// Accept dispatches to Visitor.VisitMainFromClause.
func (c *MainFromClause) Accept(v Visitor, m *QueryModel) error {
	return v.VisitMainFromClause(c, m)
}

// TransformExpressions rewrites the from expression.
func (c *MainFromClause) TransformExpressions(fn Transform) { c.transform(fn) }

// Clone copies the clause and maps it in ctx.
func (c *MainFromClause) Clone(ctx *CloneContext) *MainFromClause {
	clone := &MainFromClause{fromClause: c.fromClause}
	ctx.register(c, clone)
	return clone
}

func (c *MainFromClause) String() string { return c.format() }

// AdditionalFromClause introduces a further sequence (a cross product or a
// flattened collection).
type AdditionalFromClause struct {
	fromClause
}

// NewAdditionalFromClause creates an additional from clause.
func NewAdditionalFromClause(itemName string, itemType expr.Type, from expr.Expression) (*AdditionalFromClause, error) {
	fc, err := newFromClause(itemName, itemType, from)
	if err != nil {
		return nil, err
	}
	return &AdditionalFromClause{fromClause: fc}, nil
}

// Accept dispatches to Visitor.VisitAdditionalFromClause.
func (c *AdditionalFromClause) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitAdditionalFromClause(c, m, index)
}

// TransformExpressions rewrites the from expression.
func (c *AdditionalFromClause) TransformExpressions(fn Transform) { c.transform(fn) }

// Clone copies the clause and maps it in ctx.
func (c *AdditionalFromClause) Clone(ctx *CloneContext) BodyClause {
	clone := &AdditionalFromClause{fromClause: c.fromClause}
	ctx.register(c, clone)
	return clone
}

func (c *AdditionalFromClause) String() string { return c.format() }

// WhereClause filters the rows flowing through the body.
type WhereClause struct {
	Predicate expr.Expression
}

// NewWhereClause creates a where clause.
func NewWhereClause(predicate expr.Expression) (*WhereClause, error) {
	if err := requireArg(predicate != nil, "predicate"); err != nil {
		return nil, err
	}
	return &WhereClause{Predicate: predicate}, nil
}

// Accept dispatches to Visitor.VisitWhereClause.
func (c *WhereClause) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitWhereClause(c, m, index)
}

// TransformExpressions rewrites the predicate.
func (c *WhereClause) TransformExpressions(fn Transform) {
	c.Predicate = fn(c.Predicate)
}

// Clone copies the clause.
func (c *WhereClause) Clone(ctx *CloneContext) BodyClause {
	return &WhereClause{Predicate: c.Predicate}
}

func (c *WhereClause) String() string { return "where " + c.Predicate.String() }

// OrderingDirection is the sort direction of an Ordering.
type OrderingDirection int

const (
	Ascending OrderingDirection = iota
	Descending
)

func (d OrderingDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Ordering is one sort key of an order-by clause.
type Ordering struct {
	Expression expr.Expression
	Direction  OrderingDirection
}

// Accept dispatches to Visitor.VisitOrdering.
func (o *Ordering) Accept(v Visitor, m *QueryModel, c *OrderByClause, index int) error {
	return v.VisitOrdering(o, m, c, index)
}

func (o *Ordering) String() string {
	return o.Expression.String() + " " + o.Direction.String()
}

// OrderByClause sorts the rows flowing through the body. Later orderings
// break ties of earlier ones.
type OrderByClause struct {
	Orderings []*Ordering
}

// NewOrderByClause creates an order-by clause with a first ordering.
func NewOrderByClause(key expr.Expression, dir OrderingDirection) (*OrderByClause, error) {
	if err := requireArg(key != nil, "keySelector"); err != nil {
		return nil, err
	}
	return &OrderByClause{Orderings: []*Ordering{{Expression: key, Direction: dir}}}, nil
}

// AddOrdering appends a tie-breaking ordering.
func (c *OrderByClause) AddOrdering(key expr.Expression, dir OrderingDirection) error {
	if err := requireArg(key != nil, "keySelector"); err != nil {
		return err
	}
	c.Orderings = append(c.Orderings, &Ordering{Expression: key, Direction: dir})
	return nil
}

// Accept dispatches to Visitor.VisitOrderByClause.
func (c *OrderByClause) Accept(v Visitor, m *QueryModel, index int) error {
	return v.VisitOrderByClause(c, m, index)
}

// TransformExpressions rewrites every ordering key in order.
func (c *OrderByClause) TransformExpressions(fn Transform) {
	for _, o := range c.Orderings {
		o.Expression = fn(o.Expression)
	}
}

// Clone copies the clause and its orderings.
func (c *OrderByClause) Clone(ctx *CloneContext) BodyClause {
	clone := &OrderByClause{Orderings: make([]*Ordering, len(c.Orderings))}
	for i, o := range c.Orderings {
		clone.Orderings[i] = &Ordering{Expression: o.Expression, Direction: o.Direction}
	}
	return clone
}

func (c *OrderByClause) String() string {
	parts := make([]string, len(c.Orderings))
	for i, o := range c.Orderings {
		parts[i] = o.String()
	}
	return "orderby " + strings.Join(parts, ", ")
}

// SelectClause is the terminal projection of a query model.
type SelectClause struct {
	Selector expr.Expression
}

// NewSelectClause creates a select clause.
func NewSelectClause(selector expr.Expression) (*SelectClause, error) {
	if err := requireArg(selector != nil, "selector"); err != nil {
		return nil, err
	}
	return &SelectClause{Selector: selector}, nil
}

// Accept dispatches to Visitor.VisitSelectClause.
func (c *SelectClause) Accept(v Visitor, m *QueryModel) error {
	return v.VisitSelectClause(c, m)
}

// TransformExpressions rewrites the selector.
func (c *SelectClause) TransformExpressions(fn Transform) {
	c.Selector = fn(c.Selector)
}

// Clone copies the clause.
func (c *SelectClause) Clone(ctx *CloneContext) *SelectClause {
	return &SelectClause{Selector: c.Selector}
}

func (c *SelectClause) String() string { return "select " + c.Selector.String() }
