package compiler

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/pipeline"
	"github.com/roach88/querymodel/internal/querymodel"
)

type compiler struct {
	schema *schema
}

// stageFunc compiles one stage onto src, whose rows have shape row. It
// returns the new node and the shape of the rows flowing out of it.
type stageFunc func(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error)

// operators maps stage keys to node constructors. "from" is handled
// separately: it must be the first stage and only the first.
var operators = map[string]stageFunc{
	"where":       compileWhere,
	"select":      compileSelect,
	"orderby":     compileOrderBy(false, querymodel.Ascending),
	"orderbydesc": compileOrderBy(false, querymodel.Descending),
	"thenby":      compileOrderBy(true, querymodel.Ascending),
	"thenbydesc":  compileOrderBy(true, querymodel.Descending),
	"selectmany":  compileSelectMany,
	"join":        compileJoin,
	"groupjoin":   compileGroupJoin,
	"distinct":    compileResultOperator(pipeline.NewDistinctNode),
	"count":       compileResultOperator(pipeline.NewCountNode),
	"first":       compileResultOperator(pipeline.NewFirstNode),
	"take":        compileCount(pipeline.NewTakeNode),
	"skip":        compileCount(pipeline.NewSkipNode),
}

// Operators returns the supported stage keys, sorted, "from" first.
func Operators() []string {
	return append([]string{"from"}, slices.Sorted(maps.Keys(operators))...)
}

// Compile builds the node chain described by doc and returns its sink.
//
// The document is validated first (see Validate); the first problem found
// is returned as an error. Node constructor failures are reported as a
// CompileError naming the stage and wrapping the pipeline error.
func Compile(doc *Document) (pipeline.Node, error) {
	if errs := Validate(doc); len(errs) > 0 {
		return nil, errs[0]
	}
	sch, err := newSchema(doc)
	if err != nil {
		return nil, err
	}
	c := &compiler{schema: sch}

	var node pipeline.Node
	var row shape
	for i, stage := range doc.Pipeline {
		op, arg := stageOperator(stage)
		field := fmt.Sprintf("pipeline[%d].%s", i, op)

		if i == 0 {
			node, row, err = c.from(field, arg)
		} else {
			node, row, err = operators[op](c, field, arg, node, row)
		}
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// stageOperator returns the single key of a stage and its argument.
func stageOperator(stage map[string]any) (string, any) {
	for op, arg := range stage {
		return op, arg
	}
	return "", nil
}

// nodeError wraps a node constructor error.
func nodeError(field string, err error) error {
	if err == nil {
		return nil
	}
	return &CompileError{Field: field, Message: err.Error(), Err: err}
}

func (c *compiler) source(field, name string) (*expr.Source, error) {
	item, ok := c.schema.sources[name]
	if !ok {
		return nil, errorf(field, "unknown source %q", name)
	}
	return expr.NewSource(name, item), nil
}

func (c *compiler) from(field string, arg any) (pipeline.Node, shape, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return nil, shape{}, errorf(field, "must be a map with name and source")
	}
	if err := onlyKeys(field, m, "name", "source"); err != nil {
		return nil, shape{}, err
	}
	name, _ := m["name"].(string)
	sourceName, _ := m["source"].(string)

	src, err := c.source(field+".source", sourceName)
	if err != nil {
		return nil, shape{}, err
	}
	node, err := pipeline.NewMainSourceNode(name, src)
	if err != nil {
		return nil, shape{}, nodeError(field, err)
	}
	return node, typed(node.ItemType()), nil
}

func compileWhere(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error) {
	pred, _, err := c.lambda(field, arg, row)
	if err != nil {
		return nil, shape{}, err
	}
	node, err := pipeline.NewWhereNode(src, pred)
	return node, row, nodeError(field, err)
}

func compileSelect(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error) {
	sel, out, err := c.lambda(field, arg, row)
	if err != nil {
		return nil, shape{}, err
	}
	node, err := pipeline.NewSelectNode(src, sel)
	return node, out, nodeError(field, err)
}

func compileOrderBy(thenBy bool, dir querymodel.OrderingDirection) stageFunc {
	return func(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error) {
		key, _, err := c.lambda(field, arg, row)
		if err != nil {
			return nil, shape{}, err
		}
		var node pipeline.Node
		if thenBy {
			node, err = pipeline.NewThenByNode(src, key, dir)
		} else {
			node, err = pipeline.NewOrderByNode(src, key, dir)
		}
		if err != nil {
			return nil, shape{}, nodeError(field, err)
		}
		return node, row, nil
	}
}

func compileSelectMany(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error) {
	m, ok := arg.(map[string]any)
	if !ok {
		return nil, shape{}, errorf(field, "must be a map with collection and optional result")
	}
	if err := onlyKeys(field, m, "collection", "result"); err != nil {
		return nil, shape{}, err
	}

	coll, collShape, err := c.lambda(field+".collection", m["collection"], row)
	if err != nil {
		return nil, shape{}, err
	}
	elem, ok := collShape.typ.ElementType()
	if !ok {
		return nil, shape{}, errorf(field+".collection", "must yield a sequence, got %s", collShape.typ)
	}

	var result *expr.Lambda
	out := typed(elem)
	if raw, ok := m["result"]; ok {
		result, out, err = c.lambda(field+".result", raw, row, typed(elem))
		if err != nil {
			return nil, shape{}, err
		}
	}

	node, err := pipeline.NewSelectManyNode(src, coll, result)
	if err != nil {
		return nil, shape{}, nodeError(field, err)
	}
	return node, out, nil
}

// joinArgs decodes the arguments shared by join and groupjoin. The result
// selector's second parameter has shape second(inner item).
func (c *compiler) joinArgs(field string, arg any, row shape, second func(expr.Type) shape) (inner *expr.Source, outerKey, innerKey, result *expr.Lambda, out shape, err error) {
	m, ok := arg.(map[string]any)
	if !ok {
		err = errorf(field, "must be a map with inner, outer_key, inner_key and result")
		return
	}
	if err = onlyKeys(field, m, "inner", "outer_key", "inner_key", "result"); err != nil {
		return
	}

	name, _ := m["inner"].(string)
	if inner, err = c.source(field+".inner", name); err != nil {
		return
	}
	item, _ := inner.Type().ElementType()

	if outerKey, _, err = c.lambda(field+".outer_key", m["outer_key"], row); err != nil {
		return
	}
	if innerKey, _, err = c.lambda(field+".inner_key", m["inner_key"], typed(item)); err != nil {
		return
	}
	result, out, err = c.lambda(field+".result", m["result"], row, second(item))
	return
}

func compileJoin(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error) {
	inner, outerKey, innerKey, result, out, err := c.joinArgs(field, arg, row, typed)
	if err != nil {
		return nil, shape{}, err
	}
	node, err := pipeline.NewJoinNode(src, inner, outerKey, innerKey, result)
	if err != nil {
		return nil, shape{}, nodeError(field, err)
	}
	return node, out, nil
}

func compileGroupJoin(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error) {
	group := func(item expr.Type) shape { return typed(expr.SequenceOf(item)) }
	inner, outerKey, innerKey, result, out, err := c.joinArgs(field, arg, row, group)
	if err != nil {
		return nil, shape{}, err
	}
	node, err := pipeline.NewGroupJoinNode(src, inner, outerKey, innerKey, result)
	if err != nil {
		return nil, shape{}, nodeError(field, err)
	}
	return node, out, nil
}

func compileResultOperator[N pipeline.Node](ctor func(pipeline.Node) (N, error)) stageFunc {
	return func(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error) {
		if arg != nil && arg != true {
			return nil, shape{}, errorf(field, "takes no argument, got %v", arg)
		}
		node, err := ctor(src)
		if err != nil {
			return nil, shape{}, nodeError(field, err)
		}
		return node, row, nil
	}
}

func compileCount[N pipeline.Node](ctor func(pipeline.Node, expr.Expression) (N, error)) stageFunc {
	return func(c *compiler, field string, arg any, src pipeline.Node, row shape) (pipeline.Node, shape, error) {
		count, _, err := c.expression(field, arg, scope{})
		if err != nil {
			return nil, shape{}, err
		}
		node, err := ctor(src, count)
		if err != nil {
			return nil, shape{}, nodeError(field, err)
		}
		return node, row, nil
	}
}
