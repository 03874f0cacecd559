package querymodel

// Visitor is the double-dispatch protocol backends use to consume a query
// model. Each clause's Accept calls the method matching its kind, passing
// itself, the owning model and its position.
//
// A join nested inside a group join is delivered to VisitGroupJoinJoinClause
// with the owning group join instead of a body index.
//
// Returning an error stops the traversal driven by Walk.
type Visitor interface {
	VisitMainFromClause(c *MainFromClause, m *QueryModel) error
	VisitAdditionalFromClause(c *AdditionalFromClause, m *QueryModel, index int) error
	VisitJoinClause(c *JoinClause, m *QueryModel, index int) error
	VisitGroupJoinClause(c *GroupJoinClause, m *QueryModel, index int) error
	VisitGroupJoinJoinClause(c *JoinClause, m *QueryModel, gj *GroupJoinClause) error
	VisitWhereClause(c *WhereClause, m *QueryModel, index int) error
	VisitOrderByClause(c *OrderByClause, m *QueryModel, index int) error
	VisitOrdering(o *Ordering, m *QueryModel, c *OrderByClause, index int) error
	VisitSelectClause(c *SelectClause, m *QueryModel) error
	VisitResultOperator(op ResultOperator, m *QueryModel, index int) error
}

// BaseVisitor implements every Visitor method as a no-op. Embed it and
// override the methods of interest.
type BaseVisitor struct{}

func (BaseVisitor) VisitMainFromClause(*MainFromClause, *QueryModel) error { return nil }
func (BaseVisitor) VisitAdditionalFromClause(*AdditionalFromClause, *QueryModel, int) error {
	return nil
}
func (BaseVisitor) VisitJoinClause(*JoinClause, *QueryModel, int) error { return nil }
func (BaseVisitor) VisitGroupJoinClause(*GroupJoinClause, *QueryModel, int) error { return nil }
func (BaseVisitor) VisitGroupJoinJoinClause(*JoinClause, *QueryModel, *GroupJoinClause) error {
	return nil
}
func (BaseVisitor) VisitWhereClause(*WhereClause, *QueryModel, int) error { return nil }
func (BaseVisitor) VisitOrderByClause(*OrderByClause, *QueryModel, int) error { return nil }
func (BaseVisitor) VisitOrdering(*Ordering, *QueryModel, *OrderByClause, int) error {
	return nil
}
func (BaseVisitor) VisitSelectClause(*SelectClause, *QueryModel) error { return nil }
func (BaseVisitor) VisitResultOperator(ResultOperator, *QueryModel, int) error { return nil }

// Walk drives v over m in model order: the main from clause, each body
// clause (followed by the nested join of a group join, or the orderings of an
// order-by clause), the select clause, then each result operator.
//
// Subqueries are not entered; visitors that care call Walk on
// SubQuery.Model themselves.
func Walk(v Visitor, m *QueryModel) error {
	if err := m.MainFromClause.Accept(v, m); err != nil {
		return err
	}

	for i, clause := range m.BodyClauses {
		if err := clause.Accept(v, m, i); err != nil {
			return err
		}
		switch c := clause.(type) {
		case *GroupJoinClause:
			if err := c.JoinClause.AcceptInGroupJoin(v, m, c); err != nil {
				return err
			}
		case *OrderByClause:
			for j, o := range c.Orderings {
				if err := o.Accept(v, m, c, j); err != nil {
					return err
				}
			}
		}
	}

	if err := m.SelectClause.Accept(v, m); err != nil {
		return err
	}

	for i, op := range m.ResultOperators {
		if err := op.Accept(v, m, i); err != nil {
			return err
		}
	}
	return nil
}
