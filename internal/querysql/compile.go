package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/ir"
	"github.com/roach88/querymodel/internal/querymodel"
)

// Compiler compiles query models to parameterized SQL for SQLite.
//
// Root sources become tables named after the source; item names become
// table aliases. Constants are always bound as ? parameters, never
// interpolated.
type Compiler struct {
	// StableOrder appends "alias".rowid ASC for every base table to the
	// ORDER BY of non-aggregate, non-distinct queries, so the order of a
	// query over base tables is deterministic across query plans.
	//
	// A subquery in FROM has no rowid and gets no tiebreak. Its own ORDER
	// BY fixes which rows a LIMIT or OFFSET keeps, but SQLite does not
	// promise to scan a derived table in that order, so the outer query's
	// row order is only fixed by an ordering of its own.
	StableOrder bool
}

// NewCompiler creates a Compiler with StableOrder enabled.
func NewCompiler() *Compiler {
	return &Compiler{StableOrder: true}
}

// Compile renders m as a single SELECT statement and its parameters, in
// placeholder order.
func (c *Compiler) Compile(m *querymodel.QueryModel) (string, []any, error) {
	if m == nil {
		return "", nil, fmt.Errorf("cannot compile nil query model")
	}
	f, err := c.compileModel(m)
	if err != nil {
		return "", nil, err
	}
	return f.sql, f.args, nil
}

func (c *Compiler) compileModel(m *querymodel.QueryModel) (fragment, error) {
	mc := &modelCompiler{
		compiler: c,
		stmt:     &selectStmt{},
		aliases:  make(map[expr.QuerySource]string),
		used:     make(map[string]bool),
		scalar:   make(map[expr.QuerySource]bool),
	}
	if err := querymodel.Walk(mc, m); err != nil {
		return fragment{}, err
	}
	return mc.stmt.render(), nil
}

// fragment is a piece of SQL with the arguments for its placeholders.
type fragment struct {
	sql  string
	args []any
}

func joinFragments(parts []fragment, sep string) fragment {
	var f fragment
	for i, p := range parts {
		if i > 0 {
			f.sql += sep
		}
		f.sql += p.sql
		f.args = append(f.args, p.args...)
	}
	return f
}

// selectStmt accumulates the parts of one SELECT.
type selectStmt struct {
	distinct bool
	columns  fragment
	from     fragment
	joins    []fragment
	where    []fragment
	orderBy  []fragment
	tiebreak []string
	limit    *fragment
	offset   *fragment
}

func (s *selectStmt) render() fragment {
	parts := []fragment{{sql: "SELECT "}}
	if s.distinct {
		parts = append(parts, fragment{sql: "DISTINCT "})
	}
	parts = append(parts, s.columns, fragment{sql: " FROM "}, s.from)
	for _, j := range s.joins {
		parts = append(parts, fragment{sql: " "}, j)
	}
	if len(s.where) > 0 {
		parts = append(parts, fragment{sql: " WHERE "}, joinFragments(s.where, " AND "))
	}

	order := s.orderBy
	if !s.distinct {
		for _, key := range s.tiebreak {
			order = append(order, fragment{sql: key + " ASC"})
		}
	}
	if len(order) > 0 {
		parts = append(parts, fragment{sql: " ORDER BY "}, joinFragments(order, ", "))
	}

	switch {
	case s.limit != nil:
		parts = append(parts, fragment{sql: " LIMIT "}, *s.limit)
	case s.offset != nil:
		// SQLite only accepts OFFSET after LIMIT.
		parts = append(parts, fragment{sql: " LIMIT -1"})
	}
	if s.offset != nil {
		parts = append(parts, fragment{sql: " OFFSET "}, *s.offset)
	}
	return joinFragments(parts, "")
}

// modelCompiler drives one query model through the visitor protocol.
type modelCompiler struct {
	compiler *Compiler
	stmt     *selectStmt
	aliases  map[expr.QuerySource]string
	used     map[string]bool

	// scalar marks sources whose rows are a single "value" column (a
	// subquery projecting a scalar).
	scalar map[expr.QuerySource]bool

	// pending collects the orderings of the order-by clause being visited.
	pending []fragment
}

// alias allocates a unique table alias for an item name.
func (mc *modelCompiler) alias(name string) string {
	candidate := name
	for i := 2; mc.used[candidate]; i++ {
		candidate = name + "_" + strconv.Itoa(i)
	}
	mc.used[candidate] = true
	return candidate
}

// table renders a root source as a base table with an alias, registering
// the rowid tiebreak.
func (mc *modelCompiler) table(src expr.QuerySource, e expr.Expression, clause string) (fragment, error) {
	table, ok := e.(*expr.Source)
	if !ok {
		return fragment{}, unsupported("%s over %s", clause, e)
	}
	alias := mc.alias(src.ItemName())
	mc.aliases[src] = alias
	if mc.compiler.StableOrder {
		mc.stmt.tiebreak = append(mc.stmt.tiebreak, quote(alias)+".rowid")
	}
	return fragment{sql: quote(table.Name) + " AS " + quote(alias)}, nil
}

func (mc *modelCompiler) VisitMainFromClause(c *querymodel.MainFromClause, m *querymodel.QueryModel) error {
	sub, ok := c.FromExpression.(*querymodel.SubQuery)
	if !ok {
		from, err := mc.table(c, c.FromExpression, "main from clause")
		if err != nil {
			return err
		}
		mc.stmt.from = from
		return nil
	}

	inner, err := mc.compiler.compileModel(sub.Model)
	if err != nil {
		return fmt.Errorf("subquery: %w", err)
	}
	alias := mc.alias(c.ItemName())
	mc.aliases[c] = alias
	mc.scalar[c] = projectsValue(sub.Model.SelectClause.Selector)
	mc.stmt.from = fragment{sql: "(" + inner.sql + ") AS " + quote(alias), args: inner.args}
	return nil
}

func (mc *modelCompiler) VisitAdditionalFromClause(c *querymodel.AdditionalFromClause, m *querymodel.QueryModel, index int) error {
	from, err := mc.table(c, c.FromExpression, "additional from clause")
	if err != nil {
		return err
	}
	mc.stmt.joins = append(mc.stmt.joins, fragment{sql: "CROSS JOIN " + from.sql})
	return nil
}

func (mc *modelCompiler) VisitJoinClause(c *querymodel.JoinClause, m *querymodel.QueryModel, index int) error {
	from, err := mc.table(c, c.InnerSequence, "join")
	if err != nil {
		return err
	}
	outer, err := mc.expression(c.OuterKeySelector)
	if err != nil {
		return fmt.Errorf("join %s outer key: %w", c.ItemName(), err)
	}
	inner, err := mc.expression(c.InnerKeySelector)
	if err != nil {
		return fmt.Errorf("join %s inner key: %w", c.ItemName(), err)
	}
	mc.stmt.joins = append(mc.stmt.joins, joinFragments([]fragment{
		{sql: "JOIN " + from.sql + " ON "}, outer, {sql: " = "}, inner,
	}, ""))
	return nil
}

func (mc *modelCompiler) VisitGroupJoinClause(c *querymodel.GroupJoinClause, m *querymodel.QueryModel, index int) error {
	return unsupported("group join %s", c.ItemName())
}

func (mc *modelCompiler) VisitGroupJoinJoinClause(c *querymodel.JoinClause, m *querymodel.QueryModel, gj *querymodel.GroupJoinClause) error {
	return unsupported("group join %s", gj.ItemName())
}

func (mc *modelCompiler) VisitWhereClause(c *querymodel.WhereClause, m *querymodel.QueryModel, index int) error {
	pred, err := mc.expression(c.Predicate)
	if err != nil {
		return fmt.Errorf("where: %w", err)
	}
	mc.stmt.where = append(mc.stmt.where, pred)
	return nil
}

func (mc *modelCompiler) VisitOrderByClause(c *querymodel.OrderByClause, m *querymodel.QueryModel, index int) error {
	mc.pending = mc.pending[:0]
	return nil
}

// VisitOrdering collects the orderings of one clause. A later order-by
// clause re-sorts the rows, so its keys take precedence over earlier ones.
func (mc *modelCompiler) VisitOrdering(o *querymodel.Ordering, m *querymodel.QueryModel, c *querymodel.OrderByClause, index int) error {
	key, err := mc.expression(o.Expression)
	if err != nil {
		return fmt.Errorf("orderby: %w", err)
	}
	dir := " ASC"
	if o.Direction == querymodel.Descending {
		dir = " DESC"
	}
	mc.pending = append(mc.pending, fragment{sql: key.sql + dir, args: key.args})

	if index == len(c.Orderings)-1 {
		mc.stmt.orderBy = append(append([]fragment{}, mc.pending...), mc.stmt.orderBy...)
	}
	return nil
}

func (mc *modelCompiler) VisitSelectClause(c *querymodel.SelectClause, m *querymodel.QueryModel) error {
	cols, err := mc.projection(c.Selector)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}
	mc.stmt.columns = cols
	return nil
}

func (mc *modelCompiler) VisitResultOperator(op querymodel.ResultOperator, m *querymodel.QueryModel, index int) error {
	s := mc.stmt
	switch o := op.(type) {
	case *querymodel.Distinct:
		if s.limit != nil || s.offset != nil {
			mc.wrap()
		}
		mc.stmt.distinct = true

	case *querymodel.Take:
		count, err := mc.expression(o.Count)
		if err != nil {
			return fmt.Errorf("take: %w", err)
		}
		if s.limit != nil {
			mc.wrap()
		}
		mc.stmt.limit = &count

	case *querymodel.Skip:
		count, err := mc.expression(o.Count)
		if err != nil {
			return fmt.Errorf("skip: %w", err)
		}
		if s.limit != nil || s.offset != nil {
			mc.wrap()
		}
		mc.stmt.offset = &count

	case *querymodel.First:
		if s.limit != nil {
			mc.wrap()
		}
		mc.stmt.limit = &fragment{sql: "1"}

	case *querymodel.Count:
		if s.distinct || s.limit != nil || s.offset != nil {
			mc.wrap()
		}
		mc.stmt.columns = fragment{sql: "COUNT(*) AS " + quote("value")}
		mc.stmt.orderBy = nil
		mc.stmt.tiebreak = nil

	default:
		return unsupported("result operator %s", op)
	}
	return nil
}

// wrap turns the statement built so far into a derived table, so the next
// result operator applies to its rows.
func (mc *modelCompiler) wrap() {
	inner := mc.stmt.render()
	alias := mc.alias("t")
	mc.stmt = &selectStmt{
		columns: fragment{sql: "*"},
		from:    fragment{sql: "(" + inner.sql + ") AS " + quote(alias), args: inner.args},
	}
}

// projection renders the select list. A row reference selects every column
// of the row, a record selects one column per member and anything else
// selects a single "value" column.
func (mc *modelCompiler) projection(e expr.Expression) (fragment, error) {
	switch n := e.(type) {
	case *expr.QuerySourceReference:
		alias, err := mc.aliasOf(n)
		if err != nil {
			return fragment{}, err
		}
		if mc.scalar[n.Source] {
			return fragment{sql: quote(alias) + "." + quote("value") + " AS " + quote("value")}, nil
		}
		return fragment{sql: quote(alias) + ".*"}, nil

	case *expr.New:
		cols := make([]fragment, len(n.Args))
		for i, arg := range n.Args {
			col, err := mc.expression(arg)
			if err != nil {
				return fragment{}, fmt.Errorf("member %s: %w", n.Members[i], err)
			}
			col.sql += " AS " + quote(n.Members[i])
			cols[i] = col
		}
		return joinFragments(cols, ", "), nil

	default:
		col, err := mc.expression(e)
		if err != nil {
			return fragment{}, err
		}
		col.sql += " AS " + quote("value")
		return col, nil
	}
}

// projectsValue reports whether a selector projects a single "value" column.
func projectsValue(e expr.Expression) bool {
	switch e.(type) {
	case *expr.QuerySourceReference, *expr.New:
		return false
	}
	return true
}

func (mc *modelCompiler) aliasOf(ref *expr.QuerySourceReference) (string, error) {
	alias, ok := mc.aliases[ref.Source]
	if !ok {
		return "", unsupported("reference %s to a source outside this query", ref)
	}
	return alias, nil
}

var binaryOps = map[expr.BinaryOp]string{
	expr.OpEqual:        "=",
	expr.OpNotEqual:     "<>",
	expr.OpLess:         "<",
	expr.OpLessEqual:    "<=",
	expr.OpGreater:      ">",
	expr.OpGreaterEqual: ">=",
	expr.OpAnd:          "AND",
	expr.OpOr:           "OR",
	expr.OpAdd:          "+",
	expr.OpSubtract:     "-",
	expr.OpMultiply:     "*",
	expr.OpDivide:       "/",
}

// expression renders a scalar expression.
func (mc *modelCompiler) expression(e expr.Expression) (fragment, error) {
	switch n := e.(type) {
	case *expr.Constant:
		v, err := ir.ToParam(n.Value)
		if err != nil {
			return fragment{}, unsupported("constant %s", n)
		}
		return fragment{sql: "?", args: []any{v}}, nil

	case *expr.QuerySourceReference:
		alias, err := mc.aliasOf(n)
		if err != nil {
			return fragment{}, err
		}
		if !mc.scalar[n.Source] {
			return fragment{}, unsupported("whole-row reference %s", n)
		}
		return fragment{sql: quote(alias) + "." + quote("value")}, nil

	case *expr.Member:
		ref, ok := n.Expr.(*expr.QuerySourceReference)
		if !ok {
			return fragment{}, unsupported("member access %s", n)
		}
		alias, err := mc.aliasOf(ref)
		if err != nil {
			return fragment{}, err
		}
		return fragment{sql: quote(alias) + "." + quote(n.Name)}, nil

	case *expr.Binary:
		return mc.binary(n)

	case *expr.Unary:
		operand, err := mc.expression(n.Operand)
		if err != nil {
			return fragment{}, err
		}
		op := "-"
		if n.Op == expr.OpNot {
			op = "NOT "
		}
		return fragment{sql: "(" + op + operand.sql + ")", args: operand.args}, nil

	case *expr.Call:
		return mc.call(n)

	default:
		return fragment{}, unsupported("expression %s", e)
	}
}

func (mc *modelCompiler) binary(b *expr.Binary) (fragment, error) {
	if isNull(b.Right) || isNull(b.Left) {
		other := b.Left
		if isNull(b.Left) {
			other = b.Right
		}
		var test string
		switch b.Op {
		case expr.OpEqual:
			test = " IS NULL"
		case expr.OpNotEqual:
			test = " IS NOT NULL"
		default:
			return fragment{}, unsupported("null operand in %s", b)
		}
		f, err := mc.expression(other)
		if err != nil {
			return fragment{}, err
		}
		return fragment{sql: "(" + f.sql + test + ")", args: f.args}, nil
	}

	left, err := mc.expression(b.Left)
	if err != nil {
		return fragment{}, err
	}
	right, err := mc.expression(b.Right)
	if err != nil {
		return fragment{}, err
	}
	op := binaryOps[b.Op]
	if b.Op == expr.OpAdd && b.Left.Type().Equal(expr.StringType) {
		op = "||"
	}
	return joinFragments([]fragment{{sql: "("}, left, {sql: " " + op + " "}, right, {sql: ")"}}, ""), nil
}

func isNull(e expr.Expression) bool {
	c, ok := e.(*expr.Constant)
	if !ok {
		return false
	}
	_, null := c.Value.(ir.IRNull)
	return null
}

// call renders the string and list predicates:
//
//	s.StartsWith(x)     instr(s, x) = 1
//	s.Contains(x)       instr(s, x) > 0
//	[1, 2].Contains(x)  x IN (?, ?)
func (mc *modelCompiler) call(c *expr.Call) (fragment, error) {
	if c.Object == nil || len(c.Args) != 1 {
		return fragment{}, unsupported("call %s", c)
	}

	if list, ok := c.Object.(*expr.Constant); ok && c.Method == "Contains" {
		values, ok := list.Value.(ir.IRArray)
		if !ok {
			return fragment{}, unsupported("call %s", c)
		}
		item, err := mc.expression(c.Args[0])
		if err != nil {
			return fragment{}, err
		}
		elems := make([]fragment, len(values))
		for i, v := range values {
			p, err := ir.ToParam(v)
			if err != nil {
				return fragment{}, unsupported("list element %s", ir.Format(v))
			}
			elems[i] = fragment{sql: "?", args: []any{p}}
		}
		return joinFragments([]fragment{{sql: "("}, item, {sql: " IN ("}, joinFragments(elems, ", "), {sql: "))"}}, ""), nil
	}

	if !c.Object.Type().Equal(expr.StringType) {
		return fragment{}, unsupported("call %s", c)
	}
	var test string
	switch c.Method {
	case "StartsWith":
		test = " = 1"
	case "Contains":
		test = " > 0"
	default:
		return fragment{}, unsupported("call %s", c)
	}
	s, err := mc.expression(c.Object)
	if err != nil {
		return fragment{}, err
	}
	x, err := mc.expression(c.Args[0])
	if err != nil {
		return fragment{}, err
	}
	return joinFragments([]fragment{{sql: "(instr("}, s, {sql: ", "}, x, {sql: ")" + test + ")"}}, ""), nil
}

// quote renders an NFC-normalized, double-quoted SQLite identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(norm.NFC.String(name), `"`, `""`) + `"`
}
