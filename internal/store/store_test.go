package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const seedScript = `
CREATE TABLE "Students" (ID INTEGER, Name TEXT, Age INTEGER);
INSERT INTO "Students" VALUES (1, 'Ada', 36), (2, 'Brendan', 17), (3, 'Cleo', NULL);
`

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Seed(ctx, seedScript); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	rs, err := s.Query(ctx, `SELECT COUNT(*) FROM "Students"`)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if got := rs.Rows[0][0]; got != int64(3) {
		t.Errorf("count = %v, want 3", got)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s := mustOpen(t, path)
	if _, err := s.DB().Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("Open() succeeded on a newer schema version")
	}
}

func mustOpen(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return s
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var value string
			if err := s.DB().QueryRow("PRAGMA " + tt.name).Scan(&value); err != nil {
				t.Fatalf("query %s: %v", tt.name, err)
			}
			if value != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, value, tt.expected)
			}
		})
	}
}

func TestQuery_ColumnsAndValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx, seedScript); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	rs, err := s.Query(ctx, `SELECT "Name", "Age" FROM "Students" WHERE "ID" >= ? ORDER BY "ID"`, int64(2))
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	if len(rs.Columns) != 2 || rs.Columns[0] != "Name" || rs.Columns[1] != "Age" {
		t.Errorf("columns = %v, want [Name Age]", rs.Columns)
	}
	if len(rs.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rs.Rows))
	}
	if rs.Rows[0][0] != "Brendan" || rs.Rows[0][1] != int64(17) {
		t.Errorf("row 0 = %v", rs.Rows[0])
	}
	if rs.Rows[1][1] != nil {
		t.Errorf("NULL age = %v, want nil", rs.Rows[1][1])
	}

	records := rs.Records()
	if records[0]["Name"] != "Brendan" {
		t.Errorf("records[0] = %v", records[0])
	}
}

func TestQuery_EmptyResult(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx, seedScript); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	rs, err := s.Query(ctx, `SELECT * FROM "Students" WHERE "Age" > ?`, int64(100))
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if rs.Rows == nil || len(rs.Rows) != 0 {
		t.Errorf("rows = %#v, want empty non-nil slice", rs.Rows)
	}
	if records := rs.Records(); records == nil || len(records) != 0 {
		t.Errorf("records = %#v, want empty non-nil slice", records)
	}
}

func TestQuery_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Query(ctx, `SELECT * FROM "Missing"`); err == nil {
		t.Error("Query() on a missing table succeeded")
	}
	if err := s.Seed(ctx, "CREATE TABLE"); err == nil {
		t.Error("Seed() with invalid SQL succeeded")
	}
}

func TestRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs := []Run{
		{RunID: "run-1", BuildID: "b-1", Model: "from S s in Students select [s]", SQL: "SELECT 1", Args: []any{int64(1), "x"}, RowCount: 1},
		{RunID: "run-2", Model: "m", SQL: "SELECT 2", RowCount: 0},
	}
	for _, r := range runs {
		if err := s.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun() failed: %v", err)
		}
	}
	// Duplicate run ids are ignored.
	if err := s.RecordRun(ctx, runs[0]); err != nil {
		t.Fatalf("RecordRun() duplicate failed: %v", err)
	}

	got, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].RunID != "run-1" || got[0].BuildID != "b-1" || got[0].Seq >= got[1].Seq {
		t.Errorf("runs out of order or incomplete: %+v", got)
	}
	// JSON round trip turns numbers into float64.
	if len(got[0].Args) != 2 || got[0].Args[0] != float64(1) || got[0].Args[1] != "x" {
		t.Errorf("args = %#v", got[0].Args)
	}
	if got[1].Args == nil || len(got[1].Args) != 0 {
		t.Errorf("empty args = %#v, want empty slice", got[1].Args)
	}
}
