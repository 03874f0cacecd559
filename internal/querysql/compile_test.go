package querysql

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/compiler"
	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/pipeline"
	"github.com/roach88/querymodel/internal/querymodel"
)

const schemaYAML = `
types:
  Student: {ID: int, Name: string, Age: int, AddressID: int, Courses: seq<Course>}
  Address: {ID: int, City: string}
  Order:   {ID: int, StudentID: int}
  Course:  {ID: int, Title: string}
sources:
  Students: Student
  Addresses: Address
  Orders: Order
`

func buildModel(t *testing.T, pipelineYAML string) *querymodel.QueryModel {
	t.Helper()
	doc, err := compiler.LoadYAML(strings.NewReader(schemaYAML + pipelineYAML))
	require.NoError(t, err)
	sink, err := compiler.Compile(doc)
	require.NoError(t, err)
	m, err := pipeline.Build(sink)
	require.NoError(t, err)
	return m
}

// snapshot renders SQL and arguments for golden comparison.
func snapshot(t *testing.T, sql string, args []any) []byte {
	t.Helper()
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	require.NoError(t, err)
	return []byte(fmt.Sprintf("%s\n%s\n", sql, encoded))
}

func TestCompile_Golden(t *testing.T) {
	tests := []struct {
		name     string
		pipeline string
	}{
		{
			name: "where_select",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - where: {params: [s], body: {op: ">", left: $s.Age, right: 18}}
  - select: {params: [s], body: $s.Name}
`,
		},
		{
			name: "join",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - join:
      inner: Addresses
      outer_key: {params: [s], body: $s.AddressID}
      inner_key: {params: [a], body: $a.ID}
      result: {params: [s, a], body: {new: [$s, $a]}}
  - where: {params: [x], body: {op: "==", left: $x.a.City, right: Seattle}}
  - select: {params: [x], body: {new: [$x.s.Name, $x.a.City]}}
`,
		},
		{
			name: "ordering",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - orderbydesc: {params: [s], body: $s.Age}
  - thenby: {params: [s], body: $s.Name}
  - orderby: {params: [s], body: $s.ID}
`,
		},
		{
			name: "skip_take",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - skip: 2
  - take: 3
`,
		},
		{
			name: "take_skip",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - take: 5
  - skip: 2
`,
		},
		{
			name: "count",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - where: {params: [s], body: {call: StartsWith, on: $s.Name, args: [A]}}
  - count:
`,
		},
		{
			name: "distinct_count",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - select: {params: [s], body: $s.Age}
  - distinct:
  - count:
`,
		},
		{
			name: "subquery",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - orderbydesc: {params: [s], body: $s.Age}
  - take: 3
  - where: {params: [s], body: {op: ">", left: $s.Age, right: 18}}
  - select: {params: [s], body: $s.Name}
`,
		},
		{
			name: "cross_join",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - selectmany:
      collection: {params: [s], body: {source: Addresses}}
      result: {params: [s, a], body: {new: [$s.Name, $a.City]}}
`,
		},
		{
			name: "predicates",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - where:
      params: [s]
      body:
        op: "&&"
        left: {call: Contains, on: [1, 2], args: [$s.ID]}
        right: {op: "!=", left: $s.Name, right: null}
  - select: {params: [s], body: {op: "+", left: $s.Name, right: "!"}}
`,
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := NewCompiler().Compile(buildModel(t, tt.pipeline))
			require.NoError(t, err)
			g.Assert(t, tt.name, snapshot(t, sql, args))
		})
	}
}

func TestCompile_WithoutStableOrder(t *testing.T) {
	m := buildModel(t, `
pipeline:
  - from: {name: s, source: Students}
  - select: {params: [s], body: $s.Name}
`)
	sql, args, err := (&Compiler{}).Compile(m)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "s"."Name" AS "value" FROM "Students" AS "s"`, sql)
	assert.Empty(t, args)
}

func TestCompile_DerivedTableOrdering(t *testing.T) {
	const inner = `(SELECT "s".* FROM "Students" AS "s" ORDER BY "s"."Age" DESC, "s".rowid ASC LIMIT ?) AS "s"`

	t.Run("no ordering of its own", func(t *testing.T) {
		m := buildModel(t, `
pipeline:
  - from: {name: s, source: Students}
  - orderbydesc: {params: [s], body: $s.Age}
  - take: 3
  - where: {params: [s], body: {op: ">", left: $s.Age, right: 18}}
`)
		sql, _, err := NewCompiler().Compile(m)
		require.NoError(t, err)
		assert.Equal(t, `SELECT "s".* FROM `+inner+` WHERE ("s"."Age" > ?)`, sql)
	})

	t.Run("outer ordering without rowid tiebreak", func(t *testing.T) {
		m := buildModel(t, `
pipeline:
  - from: {name: s, source: Students}
  - orderbydesc: {params: [s], body: $s.Age}
  - take: 3
  - orderby: {params: [s], body: $s.Name}
`)
		sql, args, err := NewCompiler().Compile(m)
		require.NoError(t, err)
		assert.Equal(t, `SELECT "s".* FROM `+inner+` ORDER BY "s"."Name" ASC`, sql)
		assert.Equal(t, []any{int64(3)}, args)
	})
}

func TestCompile_Unsupported(t *testing.T) {
	tests := []struct {
		name     string
		pipeline string
		contains string
	}{
		{
			name: "group join",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - groupjoin:
      inner: Orders
      outer_key: {params: [s], body: $s.ID}
      inner_key: {params: [o], body: $o.StudentID}
      result: {params: [s, orders], body: {call: Count, on: $orders}}
`,
			contains: "group join",
		},
		{
			name: "nested collection",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - selectmany: {collection: {params: [s], body: $s.Courses}}
`,
			contains: "additional from clause over [s].Courses",
		},
		{
			name: "whole row in predicate",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - where: {params: [s], body: {op: "==", left: $s, right: null}}
`,
			contains: "whole-row reference [s]",
		},
		{
			name: "record member row",
			pipeline: `
pipeline:
  - from: {name: s, source: Students}
  - select: {params: [s], body: {new: [$s]}}
`,
			contains: "member s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewCompiler().Compile(buildModel(t, tt.pipeline))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupported)
			assert.Contains(t, err.Error(), tt.contains)

			var uerr *UnsupportedError
			assert.ErrorAs(t, err, &uerr)
		})
	}
}

func TestCompile_NilModel(t *testing.T) {
	_, _, err := NewCompiler().Compile(nil)
	assert.Error(t, err)
}

func TestCompile_DuplicateItemNames(t *testing.T) {
	students := expr.NewSource("Students", expr.Named("Student"))
	main, err := querymodel.NewMainFromClause("x", expr.Named("Student"), students)
	require.NoError(t, err)
	extra, err := querymodel.NewAdditionalFromClause("x", expr.Named("Student"), students)
	require.NoError(t, err)
	sel, err := querymodel.NewSelectClause(expr.NewMember(expr.NewReference(extra), "Name", expr.StringType))
	require.NoError(t, err)
	m, err := querymodel.NewQueryModel(main, sel)
	require.NoError(t, err)
	m.AddBodyClause(extra)

	sql, _, err := (&Compiler{}).Compile(m)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "x_2"."Name" AS "value" FROM "Students" AS "x" CROSS JOIN "Students" AS "x_2"`, sql)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"Name"`, quote("Name"))
	assert.Equal(t, `"a""b"`, quote(`a"b`))
	// Decomposed e + combining acute accent is normalized to U+00E9.
	assert.Equal(t, "\"caf\u00e9\"", quote("cafe\u0301"))
}
