package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/querymodel/internal/compiler"
	"github.com/roach88/querymodel/internal/pipeline"
	"github.com/roach88/querymodel/internal/querysql"
	"github.com/roach88/querymodel/internal/store"
)

// Harness is the scenario execution engine.
// It runs one scenario against its own store with a fixed build id.
type Harness struct {
	store   *store.Store
	builder *pipeline.Builder
	sql     *querysql.Compiler
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and run the seed script
// 2. Compile the pipeline document to a node chain
// 3. Build the query model with a fixed build id
// 4. Compile the model to SQL and execute it
// 5. Check expectations and assertions
//
// The returned error is reserved for harness failures (database setup,
// seeding). Failures of the document under test are recorded in the result
// and checked against expect.error.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	result := NewResult()
	result.BuildID = scenario.buildID()

	h := &Harness{
		store: st,
		builder: pipeline.NewBuilder(
			pipeline.WithLogger(logger),
			pipeline.WithBuildIDGenerator(pipeline.NewFixedGenerator(result.BuildID)),
		),
		sql:    querysql.NewCompiler(),
		logger: logger,
	}

	ctx := context.Background()

	if strings.TrimSpace(scenario.Seed) != "" {
		if err := st.Seed(ctx, scenario.Seed); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	runErr := h.execute(ctx, scenario, result)
	if runErr != nil {
		result.Error = runErr.Error()
	}

	if want := scenario.Expect.Error; want != "" {
		switch {
		case runErr == nil:
			result.AddError(fmt.Sprintf("expected error containing %q, run succeeded", want))
		case !strings.Contains(runErr.Error(), want):
			result.AddError(fmt.Sprintf("expected error containing %q, got: %v", want, runErr))
		}
		return result, nil
	}
	if runErr != nil {
		result.AddError(runErr.Error())
		return result, nil
	}

	h.checkExpectations(scenario.Expect, result)
	for _, e := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(e)
	}
	return result, nil
}

// execute runs the document through every stage, filling result as it goes.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	if scenario.Document == nil {
		return fmt.Errorf("scenario %s has no document", scenario.Name)
	}

	sink, err := compiler.Compile(scenario.Document)
	if err != nil {
		return fmt.Errorf("compile document: %w", err)
	}

	m, err := h.builder.Build(sink)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}
	result.Model = m.String()

	sql, args, err := h.sql.Compile(m)
	if err != nil {
		return fmt.Errorf("compile sql: %w", err)
	}
	result.SQL = sql
	result.Args = args

	rs, err := h.store.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	result.Columns = rs.Columns
	result.Rows = rs.Rows

	h.logger.Debug("scenario query executed",
		"scenario", scenario.Name,
		"build_id", result.BuildID,
		"rows", len(rs.Rows),
	)

	return h.store.RecordRun(ctx, store.Run{
		RunID:    result.BuildID,
		BuildID:  result.BuildID,
		Model:    result.Model,
		SQL:      sql,
		Args:     args,
		RowCount: len(rs.Rows),
	})
}

// checkExpectations compares the exact expectations against the result.
func (h *Harness) checkExpectations(expect Expectation, result *Result) {
	if expect.Model != "" && expect.Model != result.Model {
		result.AddError(fmt.Sprintf("model mismatch:\n  Expected: %s\n  Actual: %s", expect.Model, result.Model))
	}
	if expect.SQL != "" && expect.SQL != result.SQL {
		result.AddError(fmt.Sprintf("sql mismatch:\n  Expected: %s\n  Actual: %s", expect.SQL, result.SQL))
	}
	if expect.Rows == nil {
		return
	}

	if len(expect.Rows) != len(result.Rows) {
		result.AddError(fmt.Sprintf("expected %d rows, got %d: %v", len(expect.Rows), len(result.Rows), result.Rows))
		return
	}
	for i, want := range expect.Rows {
		if !rowsEqual(want, result.Rows[i]) {
			result.AddError(fmt.Sprintf("row %d mismatch:\n  Expected: %v\n  Actual: %v", i, want, result.Rows[i]))
		}
	}
}

func rowsEqual(expected, actual []any) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if !stateValuesEqual(expected[i], actual[i]) {
			return false
		}
	}
	return true
}
