package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/ir"
)

// Expressions are written structurally; there is no textual syntax:
//
//	$s.Address.City                          parameter path
//	"Seattle", 18, true, null                constants
//	{const: "$literal"}                      constant that would read as a path
//	{op: "==", left: ..., right: ...}        binary operator
//	{op: "!", operand: ...}                  unary operator
//	{new: [$s, {name: c, value: ...}]}       record (optional type: T)
//	{call: Count, on: $g}                    method call (args: [...])
//	{source: Orders}                         root source

// binding is a lambda parameter in scope.
type binding struct {
	param *expr.Parameter
	shape shape
}

type scope map[string]binding

// method describes a callable method.
type method struct {
	arity    int
	result   expr.Type
	receiver func(shape) bool
}

func isSequence(sh shape) bool { return sh.typ.IsSequence() }

func isStringOrSequence(sh shape) bool {
	return sh.typ.IsSequence() || sh.typ.Equal(expr.StringType)
}

func isString(sh shape) bool { return sh.typ.Equal(expr.StringType) }

var methods = map[string]method{
	"Count":      {arity: 0, result: expr.IntType, receiver: isSequence},
	"Any":        {arity: 0, result: expr.BoolType, receiver: isSequence},
	"Contains":   {arity: 1, result: expr.BoolType, receiver: isStringOrSequence},
	"StartsWith": {arity: 1, result: expr.BoolType, receiver: isString},
}

// lambda decodes {params: [a, b], body: ...}. Parameters are typed from
// shapes in order; extra parameters are left untyped so the node
// constructor can report the arity mismatch.
func (c *compiler) lambda(field string, v any, shapes ...shape) (*expr.Lambda, shape, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, shape{}, errorf(field, "lambda must be a map with params and body, got %T", v)
	}
	if err := onlyKeys(field, m, "params", "body"); err != nil {
		return nil, shape{}, err
	}

	rawParams, ok := m["params"].([]any)
	if !ok {
		return nil, shape{}, errorf(field+".params", "must be a list of names")
	}
	sc := make(scope, len(rawParams))
	params := make([]*expr.Parameter, len(rawParams))
	for i, raw := range rawParams {
		name, ok := raw.(string)
		if !ok || !identifierPattern.MatchString(name) {
			return nil, shape{}, errorf(fmt.Sprintf("%s.params[%d]", field, i), "invalid parameter name %v", raw)
		}
		if _, dup := sc[name]; dup {
			return nil, shape{}, errorf(fmt.Sprintf("%s.params[%d]", field, i), "duplicate parameter %q", name)
		}
		var sh shape
		if i < len(shapes) {
			sh = shapes[i]
		}
		params[i] = expr.NewParameter(name, sh.typ)
		sc[name] = binding{param: params[i], shape: sh}
	}

	body, sh, err := c.expression(field+".body", m["body"], sc)
	if err != nil {
		return nil, shape{}, err
	}
	return expr.NewLambda(body, params...), sh, nil
}

// expression decodes one expression.
func (c *compiler) expression(field string, v any, sc scope) (expr.Expression, shape, error) {
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, "$") {
			return c.path(field, val, sc)
		}
		return constant(field, val)
	case map[string]any:
		return c.composite(field, val, sc)
	default:
		return constant(field, val)
	}
}

func constant(field string, v any) (expr.Expression, shape, error) {
	value, err := ir.FromGo(v)
	if err != nil {
		return nil, shape{}, errorf(field, "%v", err)
	}
	e := expr.NewConstant(value)
	return e, typed(e.Type()), nil
}

// path decodes $param.Member.Member.
func (c *compiler) path(field, p string, sc scope) (expr.Expression, shape, error) {
	segments := strings.Split(strings.TrimPrefix(p, "$"), ".")
	b, ok := sc[segments[0]]
	if !ok {
		return nil, shape{}, errorf(field, "unknown parameter %q in %s", segments[0], p)
	}

	var e expr.Expression = b.param
	sh := b.shape
	for _, name := range segments[1:] {
		if !identifierPattern.MatchString(name) {
			return nil, shape{}, errorf(field, "invalid member %q in %s", name, p)
		}
		next, err := c.schema.member(sh, name)
		if err != nil {
			return nil, shape{}, errorf(field, "%s: %v", p, err)
		}
		e = expr.NewMember(e, name, next.typ)
		sh = next
	}
	return e, sh, nil
}

func (c *compiler) composite(field string, m map[string]any, sc scope) (expr.Expression, shape, error) {
	switch {
	case has(m, "const"):
		if err := onlyKeys(field, m, "const"); err != nil {
			return nil, shape{}, err
		}
		return constant(field+".const", m["const"])
	case has(m, "op"):
		return c.operator(field, m, sc)
	case has(m, "new"):
		return c.record(field, m, sc)
	case has(m, "call"):
		return c.call(field, m, sc)
	case has(m, "source"):
		if err := onlyKeys(field, m, "source"); err != nil {
			return nil, shape{}, err
		}
		name, _ := m["source"].(string)
		src, err := c.source(field+".source", name)
		if err != nil {
			return nil, shape{}, err
		}
		return src, typed(src.Type()), nil
	default:
		return nil, shape{}, errorf(field, "unknown expression form with keys %v", keys(m))
	}
}

func (c *compiler) operator(field string, m map[string]any, sc scope) (expr.Expression, shape, error) {
	op, _ := m["op"].(string)

	if has(m, "operand") {
		if err := onlyKeys(field, m, "op", "operand"); err != nil {
			return nil, shape{}, err
		}
		operand, _, err := c.expression(field+".operand", m["operand"], sc)
		if err != nil {
			return nil, shape{}, err
		}
		switch expr.UnaryOp(op) {
		case expr.OpNot, expr.OpNegate:
		default:
			return nil, shape{}, errorf(field+".op", "unknown unary operator %q", op)
		}
		e := expr.NewUnary(expr.UnaryOp(op), operand)
		return e, typed(e.Type()), nil
	}

	if err := onlyKeys(field, m, "op", "left", "right"); err != nil {
		return nil, shape{}, err
	}
	if !expr.ValidBinaryOps[expr.BinaryOp(op)] {
		return nil, shape{}, errorf(field+".op", "unknown binary operator %q", op)
	}
	left, _, err := c.expression(field+".left", m["left"], sc)
	if err != nil {
		return nil, shape{}, err
	}
	right, _, err := c.expression(field+".right", m["right"], sc)
	if err != nil {
		return nil, shape{}, err
	}
	e := expr.NewBinary(expr.BinaryOp(op), left, right)
	return e, typed(e.Type()), nil
}

// record decodes {new: [...], type: T}. Entries are $path shorthands (the
// member is named after the last path segment) or {name, value} maps.
func (c *compiler) record(field string, m map[string]any, sc scope) (expr.Expression, shape, error) {
	if err := onlyKeys(field, m, "new", "type"); err != nil {
		return nil, shape{}, err
	}
	entries, ok := m["new"].([]any)
	if !ok {
		return nil, shape{}, errorf(field+".new", "must be a list of members")
	}

	sh := shape{fields: make(map[string]shape, len(entries))}
	names := make([]string, 0, len(entries))
	args := make([]expr.Expression, 0, len(entries))
	for i, entry := range entries {
		entryField := fmt.Sprintf("%s.new[%d]", field, i)

		var name string
		var value any
		switch e := entry.(type) {
		case string:
			if !strings.HasPrefix(e, "$") {
				return nil, shape{}, errorf(entryField, "shorthand member must be a $path, got %q", e)
			}
			name, value = e[strings.LastIndex(e, ".")+1:], e
			name = strings.TrimPrefix(name, "$")
		case map[string]any:
			if err := onlyKeys(entryField, e, "name", "value"); err != nil {
				return nil, shape{}, err
			}
			name, _ = e["name"].(string)
			value = e["value"]
		default:
			return nil, shape{}, errorf(entryField, "member must be a $path or {name, value}, got %T", entry)
		}
		if !identifierPattern.MatchString(name) {
			return nil, shape{}, errorf(entryField, "invalid member name %q", name)
		}
		if slices.Contains(names, name) {
			return nil, shape{}, errorf(entryField, "duplicate member %q", name)
		}

		arg, argShape, err := c.expression(entryField, value, sc)
		if err != nil {
			return nil, shape{}, err
		}
		names = append(names, name)
		args = append(args, arg)
		sh.fields[name] = argShape
		sh.order = append(sh.order, name)
	}

	var t expr.Type
	if typeName, ok := m["type"].(string); ok {
		parsed, err := ParseType(typeName)
		if err != nil {
			return nil, shape{}, errorf(field+".type", "%v", err)
		}
		if !c.schema.declared(parsed) {
			return nil, shape{}, errorf(field+".type", "undeclared type %s", parsed)
		}
		t = parsed
		sh = typed(t)
	}
	return expr.NewNew(t, names, args), sh, nil
}

func (c *compiler) call(field string, m map[string]any, sc scope) (expr.Expression, shape, error) {
	if err := onlyKeys(field, m, "call", "on", "args"); err != nil {
		return nil, shape{}, err
	}
	name, _ := m["call"].(string)
	meth, ok := methods[name]
	if !ok {
		return nil, shape{}, errorf(field+".call", "unknown method %q (known: %s)", name, strings.Join(slices.Sorted(maps.Keys(methods)), ", "))
	}

	object, objShape, err := c.expression(field+".on", m["on"], sc)
	if err != nil {
		return nil, shape{}, err
	}
	if !meth.receiver(objShape) {
		return nil, shape{}, errorf(field+".on", "%s cannot be called on %s", name, objShape.typ)
	}

	rawArgs, _ := m["args"].([]any)
	if len(rawArgs) != meth.arity {
		return nil, shape{}, errorf(field+".args", "%s takes %d argument(s), got %d", name, meth.arity, len(rawArgs))
	}
	args := make([]expr.Expression, len(rawArgs))
	for i, raw := range rawArgs {
		args[i], _, err = c.expression(fmt.Sprintf("%s.args[%d]", field, i), raw, sc)
		if err != nil {
			return nil, shape{}, err
		}
	}
	return expr.NewCall(object, name, meth.result, args...), typed(meth.result), nil
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func onlyKeys(field string, m map[string]any, allowed ...string) error {
	for _, k := range keys(m) {
		if !slices.Contains(allowed, k) {
			return errorf(field, "unexpected key %q (allowed: %s)", k, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func keys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
