package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ResultSet holds the columns and rows of one query, in statement order.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Records returns the rows as column → value maps.
// Returns an empty slice (not nil) for an empty result.
func (r *ResultSet) Records() []map[string]any {
	records := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			rec[col] = row[j]
		}
		records[i] = rec
	}
	return records
}

// Seed executes a SQL script that may hold several statements.
func (s *Store) Seed(ctx context.Context, script string) error {
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

// Query executes a parameterized query and reads every row.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	result := &ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalize(v)
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// normalize maps driver values onto int64, float64, string, bool or nil.
func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int:
		return int64(val)
	default:
		return val
	}
}

// Run is one logged query execution.
type Run struct {
	Seq      int64
	RunID    string
	BuildID  string
	Model    string
	SQL      string
	Args     []any
	RowCount int
}

// RecordRun appends a run to the log. Uses ON CONFLICT(run_id) DO NOTHING
// for idempotency - recording the same run twice is a no-op.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	args := run.Args
	if args == nil {
		args = []any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("record run: marshal args: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO qm_runs (run_id, build_id, model, sql, args, row_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, run.RunID, run.BuildID, run.Model, run.SQL, string(argsJSON), run.RowCount)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns the logged runs in recording order.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, build_id, model, sql, args, row_count
		FROM qm_runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var argsJSON string
	if err := rows.Scan(&run.Seq, &run.RunID, &run.BuildID, &run.Model, &run.SQL, &argsJSON, &run.RowCount); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(argsJSON), &run.Args); err != nil {
		return Run{}, fmt.Errorf("unmarshal run args: %w", err)
	}
	return run, nil
}
