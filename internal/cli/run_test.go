package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/store"
)

// sequentialRunIDs returns run-1, run-2, ...
func sequentialRunIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
}

// runDocument calls runQuery with deterministic run ids.
func runDocument(t *testing.T, opts *RunOptions, path string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	err := runQuery(opts, path, cmd)
	return out.String(), err
}

func TestRunCommand_RequiresDB(t *testing.T) {
	_, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "testdata/adults.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestRunCommand_Text(t *testing.T) {
	db := filepath.Join(t.TempDir(), "school.db")
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    db,
		Seed:        "testdata/school.sql",
		RunIDs:      sequentialRunIDs(),
	}

	out, err := runDocument(t, opts, "testdata/adults.yaml")
	require.NoError(t, err)
	assert.Equal(t, "value\nAda\nCleo\n(2 row(s), run run-1)\n", out)
}

func TestRunCommand_JSONAndRunLog(t *testing.T) {
	db := filepath.Join(t.TempDir(), "school.db")
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    db,
		Seed:        "testdata/school.sql",
		RunIDs:      sequentialRunIDs(),
	}

	out, err := runDocument(t, opts, "testdata/top_two.cue")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		RunID  string    `json:"run_id"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, []string{"ID", "Name", "Age", "AddressID"}, resp.Data.Columns)
	require.Len(t, resp.Data.Rows, 2)
	assert.Equal(t, "Ada", resp.Data.Rows[0][1])
	assert.Equal(t, "Cleo", resp.Data.Rows[1][1])

	// A second run against the same database needs no seed.
	opts.Seed = ""
	_, err = runDocument(t, opts, "testdata/adults.yaml")
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, resp.Data.BuildID, runs[0].BuildID)
	assert.Equal(t, 2, runs[0].RowCount)
	assert.Equal(t, "run-2", runs[1].RunID)
	assert.Contains(t, runs[1].Model, "where ([s].Age > 18)")
}

func TestRunCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		seed     string
		path     string
		code     string
		exitCode int
	}{
		{"missing seed file", "testdata/none.sql", "testdata/adults.yaml", ErrCodeNotFound, ExitCommandError},
		{"missing table", "", "testdata/adults.yaml", ErrCodeQueryFailed, ExitFailure},
		{"unsupported model", "", "testdata/group_join.yaml", ErrCodeSQLFailed, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &RunOptions{
				RootOptions: &RootOptions{Format: "text"},
				Database:    filepath.Join(t.TempDir(), "x.db"),
				Seed:        tt.seed,
				RunIDs:      sequentialRunIDs(),
			}
			out, err := runDocument(t, opts, tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestRunsCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "school.db")
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    db,
		Seed:        "testdata/school.sql",
		RunIDs:      sequentialRunIDs(),
	}
	_, err := runDocument(t, opts, "testdata/adults.yaml")
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		out, _, err := execute(t, NewRunsCommand(&RootOptions{Format: "text", Verbose: true}), "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "[1] run run-1")
		assert.Contains(t, out, "2 row(s)")
		assert.Contains(t, out, "model: from Student s in Students")
		assert.Contains(t, out, "args:  [18]")
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := execute(t, NewRunsCommand(&RootOptions{Format: "json"}), "--db", db)
		require.NoError(t, err)

		var resp struct {
			Data RunsResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.Equal(t, 1, resp.Data.Total)
		assert.Equal(t, "run-1", resp.Data.Runs[0].RunID)
	})

	t.Run("build filter", func(t *testing.T) {
		out, _, err := execute(t, NewRunsCommand(&RootOptions{Format: "text"}), "--db", db, "--build", "other")
		require.NoError(t, err)
		assert.Equal(t, "No runs recorded.\n", out)
	})
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", formatValue(nil))
	assert.Equal(t, "42", formatValue(int64(42)))
	assert.Equal(t, "Ada", formatValue("Ada"))
}
