package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/compiler"
)

const studentsSeed = `
CREATE TABLE "Students" (ID INTEGER, Name TEXT, Age INTEGER);
INSERT INTO "Students" VALUES (1, 'Ada', 36), (2, 'Brendan', 17), (3, 'Cleo', 22);
`

func loadDocument(t *testing.T, src string) *compiler.Document {
	t.Helper()
	doc, err := compiler.LoadYAML(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Document:    loadDocument(t, studentsDocument),
		Seed:        studentsSeed,
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "scenario-minimal", result.BuildID)
	assert.Equal(t, "from Student s in Students select [s].Name", result.Model)
	assert.Equal(t, []string{"value"}, result.Columns)
	assert.Equal(t, [][]any{{"Ada"}, {"Brendan"}, {"Cleo"}}, result.Rows)
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"adults", "adult_count", "seattle_join", "group_join_unsupported"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ExpectedErrorRecorded(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/group_join_unsupported.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Contains(t, result.Error, "group join orders")
	assert.Contains(t, result.Model, "into seq<Order> orders")
	assert.Empty(t, result.SQL)
}

func TestRun_CustomBuildID(t *testing.T) {
	scenario := &Scenario{
		Name:     "custom",
		Document: loadDocument(t, studentsDocument),
		Seed:     studentsSeed,
		BuildID:  "build-001",
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "build-001", result.BuildID)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		scenario *Scenario
		contains string
	}{
		{
			name: "row mismatch",
			scenario: &Scenario{
				Name:     "rows",
				Document: loadDocument(t, studentsDocument),
				Seed:     studentsSeed,
				Expect:   Expectation{Rows: [][]any{{"Ada"}, {"Cleo"}, {"Brendan"}}},
			},
			contains: "row 1 mismatch",
		},
		{
			name: "row count mismatch",
			scenario: &Scenario{
				Name:     "count",
				Document: loadDocument(t, studentsDocument),
				Seed:     studentsSeed,
				Expect:   Expectation{Rows: [][]any{}},
			},
			contains: "expected 0 rows, got 3",
		},
		{
			name: "model mismatch",
			scenario: &Scenario{
				Name:     "model",
				Document: loadDocument(t, studentsDocument),
				Seed:     studentsSeed,
				Expect:   Expectation{Model: "from Student s in Students select [s]"},
			},
			contains: "model mismatch",
		},
		{
			name: "sql mismatch",
			scenario: &Scenario{
				Name:     "sql",
				Document: loadDocument(t, studentsDocument),
				Seed:     studentsSeed,
				Expect:   Expectation{SQL: "SELECT 1"},
			},
			contains: "sql mismatch",
		},
		{
			name: "assertion failure",
			scenario: &Scenario{
				Name:       "assert",
				Document:   loadDocument(t, studentsDocument),
				Seed:       studentsSeed,
				Assertions: []Assertion{{Type: AssertRowCount, Count: 1}},
			},
			contains: "Assertion failed: row_count",
		},
		{
			name: "compile error",
			scenario: &Scenario{
				Name:     "compile",
				Document: loadDocument(t, "pipeline:\n  - where: {params: [s], body: true}\n"),
				Seed:     studentsSeed,
			},
			contains: "compile document",
		},
		{
			name: "missing table",
			scenario: &Scenario{
				Name:     "table",
				Document: loadDocument(t, studentsDocument),
				Seed:     "CREATE TABLE other (x INTEGER);",
			},
			contains: "no such table",
		},
		{
			name: "expected error did not occur",
			scenario: &Scenario{
				Name:     "noerror",
				Document: loadDocument(t, studentsDocument),
				Seed:     studentsSeed,
				Expect:   Expectation{Error: "group join"},
			},
			contains: "run succeeded",
		},
		{
			name: "different error",
			scenario: &Scenario{
				Name:     "othererror",
				Document: loadDocument(t, studentsDocument),
				Seed:     "SELECT 1;",
				Expect:   Expectation{Error: "group join"},
			},
			contains: "no such table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(tt.scenario)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, strings.Join(result.Errors, "\n"), tt.contains)
		})
	}
}

func TestRun_SeedError(t *testing.T) {
	scenario := &Scenario{
		Name:     "badseed",
		Document: loadDocument(t, studentsDocument),
		Seed:     "CREATE TABLE",
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario badseed")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/seattle_join.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
