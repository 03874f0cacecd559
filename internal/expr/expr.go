package expr

import (
	"fmt"
	"strings"

	"github.com/roach88/querymodel/internal/ir"
)

// Expression is a node of the abstract expression graph carried by pipeline
// lambdas and query model clauses.
//
// All implementations are pointer types, so expressions are compared by
// identity. Children and WithChildren let generic rewrites (see Rewrite)
// rebuild a node without knowing its kind; WithChildren returns the receiver
// unchanged when every child is pointer-identical to the current one.
type Expression interface {
	fmt.Stringer
	Type() Type
	Children() []Expression
	WithChildren(children []Expression) Expression
}

// QuerySource is implemented by the clauses that introduce a named, typed
// data item into scope. The item name is descriptive only; the item type is
// authoritative.
type QuerySource interface {
	ItemName() string
	ItemType() Type
}

// Parameter is a lambda parameter occurrence.
type Parameter struct {
	Name      string
	ParamType Type
}

// NewParameter creates a parameter.
func NewParameter(name string, t Type) *Parameter {
	return &Parameter{Name: name, ParamType: t}
}

func (p *Parameter) Type() Type { return p.ParamType }
func (p *Parameter) String() string { return p.Name }
func (p *Parameter) Children() []Expression { return nil }
func (p *Parameter) WithChildren(children []Expression) Expression { return p }

// Lambda is a function literal: parameters plus a body.
// The parameters are declarations, not children; rewrites only see the body.
type Lambda struct {
	Params []*Parameter
	Body   Expression
}

// NewLambda creates a lambda with the given body and parameters.
func NewLambda(body Expression, params ...*Parameter) *Lambda {
	return &Lambda{Params: params, Body: body}
}

// Arity returns the number of declared parameters.
func (l *Lambda) Arity() int {
	return len(l.Params)
}

func (l *Lambda) Type() Type { return l.Body.Type() }
func (l *Lambda) Children() []Expression { return []Expression{l.Body} }

func (l *Lambda) WithChildren(children []Expression) Expression {
	if children[0] == l.Body {
		return l
	}
	return &Lambda{Params: l.Params, Body: children[0]}
}

func (l *Lambda) String() string {
	if len(l.Params) == 1 {
		return l.Params[0].Name + " => " + l.Body.String()
	}
	names := make([]string, len(l.Params))
	for i, p := range l.Params {
		names[i] = p.Name
	}
	return "(" + strings.Join(names, ", ") + ") => " + l.Body.String()
}

// Member accesses a named member of the value produced by Expr.
type Member struct {
	Expr       Expression
	Name       string
	MemberType Type
}

// NewMember creates a member access.
func NewMember(e Expression, name string, t Type) *Member {
	return &Member{Expr: e, Name: name, MemberType: t}
}

func (m *Member) Type() Type { return m.MemberType }
func (m *Member) String() string { return m.Expr.String() + "." + m.Name }
func (m *Member) Children() []Expression { return []Expression{m.Expr} }

func (m *Member) WithChildren(children []Expression) Expression {
	if children[0] == m.Expr {
		return m
	}
	return &Member{Expr: children[0], Name: m.Name, MemberType: m.MemberType}
}

// Constant is a literal value.
type Constant struct {
	Value     ir.IRValue
	ConstType Type
}

// NewConstant creates a constant, inferring its type from the value.
func NewConstant(v ir.IRValue) *Constant {
	return &Constant{Value: v, ConstType: constantType(v)}
}

func constantType(v ir.IRValue) Type {
	switch v.(type) {
	case ir.IRString:
		return StringType
	case ir.IRInt:
		return IntType
	case ir.IRBool:
		return BoolType
	case ir.IRArray:
		return SequenceOf(Type{})
	default:
		return NullType
	}
}

func (c *Constant) Type() Type { return c.ConstType }
func (c *Constant) String() string { return ir.Format(c.Value) }
func (c *Constant) Children() []Expression { return nil }
func (c *Constant) WithChildren(children []Expression) Expression { return c }

// BinaryOp is a binary operator.
type BinaryOp string

// Binary operators.
const (
	OpEqual        BinaryOp = "=="
	OpNotEqual     BinaryOp = "!="
	OpLess         BinaryOp = "<"
	OpLessEqual    BinaryOp = "<="
	OpGreater      BinaryOp = ">"
	OpGreaterEqual BinaryOp = ">="
	OpAnd          BinaryOp = "&&"
	OpOr           BinaryOp = "||"
	OpAdd          BinaryOp = "+"
	OpSubtract     BinaryOp = "-"
	OpMultiply     BinaryOp = "*"
	OpDivide       BinaryOp = "/"
)

// ValidBinaryOps lists the supported binary operators.
var ValidBinaryOps = map[BinaryOp]bool{
	OpEqual: true, OpNotEqual: true, OpLess: true, OpLessEqual: true,
	OpGreater: true, OpGreaterEqual: true, OpAnd: true, OpOr: true,
	OpAdd: true, OpSubtract: true, OpMultiply: true, OpDivide: true,
}

// IsBoolean reports whether the operator yields a boolean.
func (op BinaryOp) IsBoolean() bool {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return false
	default:
		return true
	}
}

// Binary applies a binary operator.
type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// NewBinary creates a binary expression.
func NewBinary(op BinaryOp, left, right Expression) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}

func (b *Binary) Type() Type {
	if b.Op.IsBoolean() {
		return BoolType
	}
	return b.Left.Type()
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

func (b *Binary) Children() []Expression { return []Expression{b.Left, b.Right} }

func (b *Binary) WithChildren(children []Expression) Expression {
	if children[0] == b.Left && children[1] == b.Right {
		return b
	}
	return &Binary{Op: b.Op, Left: children[0], Right: children[1]}
}

// UnaryOp is a unary operator.
type UnaryOp string

// Unary operators.
const (
	OpNot    UnaryOp = "!"
	OpNegate UnaryOp = "-"
)

// Unary applies a unary operator.
type Unary struct {
	Op      UnaryOp
	Operand Expression
}

// NewUnary creates a unary expression.
func NewUnary(op UnaryOp, operand Expression) *Unary {
	return &Unary{Op: op, Operand: operand}
}

func (u *Unary) Type() Type {
	if u.Op == OpNot {
		return BoolType
	}
	return u.Operand.Type()
}

func (u *Unary) String() string { return string(u.Op) + u.Operand.String() }
func (u *Unary) Children() []Expression { return []Expression{u.Operand} }

func (u *Unary) WithChildren(children []Expression) Expression {
	if children[0] == u.Operand {
		return u
	}
	return &Unary{Op: u.Op, Operand: children[0]}
}

// New constructs a record from ordered, named member values.
// Projections such as (s, a) => new { s, a } are represented this way.
type New struct {
	NewType Type
	Members []string
	Args    []Expression
}

// NewNew creates a record construction. Members and args must align.
func NewNew(t Type, members []string, args []Expression) *New {
	return &New{NewType: t, Members: members, Args: args}
}

// Arg returns the value bound to the named member.
func (n *New) Arg(member string) (Expression, bool) {
	for i, m := range n.Members {
		if m == member {
			return n.Args[i], true
		}
	}
	return nil, false
}

func (n *New) Type() Type { return n.NewType }
func (n *New) Children() []Expression { return n.Args }

func (n *New) WithChildren(children []Expression) Expression {
	if sameExpressions(n.Args, children) {
		return n
	}
	return &New{NewType: n.NewType, Members: n.Members, Args: children}
}

func (n *New) String() string {
	parts := make([]string, len(n.Args))
	for i, arg := range n.Args {
		parts[i] = n.Members[i] + " = " + arg.String()
	}
	name := "new "
	if !n.NewType.IsZero() {
		name += n.NewType.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// Call invokes a method on Object (nil for free functions).
type Call struct {
	Object   Expression
	Method   string
	Args     []Expression
	CallType Type
}

// NewCall creates a method call.
func NewCall(object Expression, method string, t Type, args ...Expression) *Call {
	return &Call{Object: object, Method: method, Args: args, CallType: t}
}

func (c *Call) Type() Type { return c.CallType }

func (c *Call) Children() []Expression {
	if c.Object == nil {
		return c.Args
	}
	return append([]Expression{c.Object}, c.Args...)
}

func (c *Call) WithChildren(children []Expression) Expression {
	if sameExpressions(c.Children(), children) {
		return c
	}
	if c.Object == nil {
		return &Call{Method: c.Method, Args: children, CallType: c.CallType}
	}
	return &Call{Object: children[0], Method: c.Method, Args: children[1:], CallType: c.CallType}
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	call := c.Method + "(" + strings.Join(args, ", ") + ")"
	if c.Object == nil {
		return call
	}
	return c.Object.String() + "." + call
}

// Source is a named root sequence such as a table or collection.
type Source struct {
	Name       string
	SourceType Type
}

// NewSource creates a named root sequence of items of type item.
func NewSource(name string, item Type) *Source {
	return &Source{Name: name, SourceType: SequenceOf(item)}
}

func (s *Source) Type() Type { return s.SourceType }
func (s *Source) String() string { return s.Name }
func (s *Source) Children() []Expression { return nil }
func (s *Source) WithChildren(children []Expression) Expression { return s }

// QuerySourceReference stands for "the value produced by query source X".
// It is never independently evaluable and is only created by resolution.
//
// The referenced item type is captured when the reference is created;
// IsStale reports whether the source's item type has since changed.
type QuerySourceReference struct {
	Source  QuerySource
	RefType Type
}

// NewReference creates a reference to src.
func NewReference(src QuerySource) *QuerySourceReference {
	return &QuerySourceReference{Source: src, RefType: src.ItemType()}
}

// IsStale reports whether the referenced source changed its item type after
// this reference was created.
func (r *QuerySourceReference) IsStale() bool {
	return !r.RefType.Equal(r.Source.ItemType())
}

func (r *QuerySourceReference) Type() Type { return r.RefType }
func (r *QuerySourceReference) String() string { return "[" + r.Source.ItemName() + "]" }
func (r *QuerySourceReference) Children() []Expression { return nil }
func (r *QuerySourceReference) WithChildren(children []Expression) Expression { return r }

// Placeholder marks an expression slot whose real value is attached later.
// A model that still contains a placeholder after building is malformed.
type Placeholder struct{}

// NewPlaceholder creates a placeholder.
func NewPlaceholder() *Placeholder {
	return &Placeholder{}
}

func (p *Placeholder) Type() Type { return Type{} }
func (p *Placeholder) String() string { return "<placeholder>" }
func (p *Placeholder) Children() []Expression { return nil }
func (p *Placeholder) WithChildren(children []Expression) Expression { return p }

func sameExpressions(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
