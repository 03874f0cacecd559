package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	BuildID  string // optional - filter to one build
}

// RunEntry is one logged execution.
type RunEntry struct {
	Seq      int64  `json:"seq"`
	RunID    string `json:"run_id"`
	BuildID  string `json:"build_id"`
	Model    string `json:"model"`
	SQL      string `json:"sql"`
	Args     []any  `json:"args"`
	RowCount int    `json:"row_count"`
}

// RunsResult holds the run log output.
type RunsResult struct {
	Runs  []RunEntry `json:"runs"`
	Total int        `json:"total"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List executions recorded by run",
		Long: `List the executions recorded in a database by "qmodel run", oldest
first: run id, build id, row count and, with --verbose, the model and SQL.

Examples:
  qmodel runs --db ./school.db
  qmodel runs --db ./school.db --build 0192f0c4-...
  qmodel runs --db ./school.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.BuildID, "build", "", "only show runs of this build id")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}

	result := RunsResult{Runs: []RunEntry{}}
	for _, r := range runs {
		if opts.BuildID != "" && r.BuildID != opts.BuildID {
			continue
		}
		result.Runs = append(result.Runs, RunEntry{
			Seq:      r.Seq,
			RunID:    r.RunID,
			BuildID:  r.BuildID,
			Model:    r.Model,
			SQL:      r.SQL,
			Args:     r.Args,
			RowCount: r.RowCount,
		})
	}
	result.Total = len(result.Runs)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range result.Runs {
		fmt.Fprintf(w, "[%d] run %s  build %s  %d row(s)\n", r.Seq, truncateID(r.RunID), truncateID(r.BuildID), r.RowCount)
		if formatter.Verbose {
			fmt.Fprintf(w, "    model: %s\n", r.Model)
			fmt.Fprintf(w, "    sql:   %s\n", r.SQL)
			if len(r.Args) > 0 {
				fmt.Fprintf(w, "    args:  %v\n", r.Args)
			}
		}
	}
	return nil
}

// truncateID shortens an id for display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
