package querymodel

import "github.com/roach88/querymodel/internal/expr"

// SubQuery embeds a complete query model as an expression. It appears when a
// pipeline continues after a result operator: the finished model is wrapped
// and becomes the from expression of a new outer model.
//
// The nested model's expressions are not children of the SubQuery; generic
// rewrites stop at its boundary and cloning copies the nested model
// explicitly.
type SubQuery struct {
	Model *QueryModel
}

// NewSubQuery wraps m.
func NewSubQuery(m *QueryModel) *SubQuery {
	return &SubQuery{Model: m}
}

func (s *SubQuery) Type() expr.Type { return s.Model.OutputType() }
func (s *SubQuery) String() string { return "{" + s.Model.String() + "}" }
func (s *SubQuery) Children() []expr.Expression { return nil }
func (s *SubQuery) WithChildren(children []expr.Expression) expr.Expression { return s }
