package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Seed     string // optional SQL script run before the query

	// RunIDs allows overriding the run id source (for testing).
	// If nil, random UUIDs are used.
	RunIDs func() string
}

// RunResult holds an executed query and its rows.
type RunResult struct {
	SQLResult
	RunID   string   `json:"run_id"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <document>",
		Short: "Execute a pipeline document against a SQLite database",
		Long: `Build, translate and execute a pipeline document against a SQLite
database (created if it doesn't exist), and print the rows.

Every execution is recorded in the database's qm_runs table; list the
log with "qmodel runs".

Examples:
  qmodel run --db ./school.db ./adults.yaml
  qmodel run --db ./school.db --seed ./school.sql ./adults.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "SQL script to run before the query")

	return cmd
}

func runQuery(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := formatter.Logger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	translated, err := translate(formatter, path, true)
	if err != nil {
		return outputError(formatter, ExitCommandError, err)
	}

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return outputError(formatter, ExitCommandError,
			&LoadError{Code: ErrCodeQueryFailed, Message: "failed to open database", Err: err})
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	if opts.Seed != "" {
		script, err := os.ReadFile(opts.Seed)
		if err != nil {
			return outputError(formatter, ExitCommandError,
				&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading seed script: %v", err), Err: err})
		}
		if err := st.Seed(ctx, string(script)); err != nil {
			return outputError(formatter, ExitCommandError,
				&LoadError{Code: ErrCodeQueryFailed, Message: err.Error(), Err: err})
		}
		logger.Debug("seed applied", "path", opts.Seed)
	}

	rs, err := st.Query(ctx, translated.SQL, translated.Args...)
	if err != nil {
		return outputError(formatter, ExitFailure,
			&LoadError{Code: ErrCodeQueryFailed, Message: err.Error(), Err: err})
	}

	runID := newRunID(opts)
	if err := st.RecordRun(ctx, store.Run{
		RunID:    runID,
		BuildID:  translated.BuildID,
		Model:    translated.Model,
		SQL:      translated.SQL,
		Args:     translated.Args,
		RowCount: len(rs.Rows),
	}); err != nil {
		return outputError(formatter, ExitCommandError,
			&LoadError{Code: ErrCodeQueryFailed, Message: err.Error(), Err: err})
	}
	logger.Info("query executed",
		"run_id", runID,
		"build_id", translated.BuildID,
		"rows", len(rs.Rows),
	)

	result := RunResult{
		SQLResult: *translated,
		RunID:     runID,
		Columns:   rs.Columns,
		Rows:      rs.Rows,
	}

	if formatter.Format == "json" {
		return formatter.encode(CLIResponse{Status: "ok", Data: result, RunID: runID})
	}
	return outputRowsText(formatter, result)
}

func newRunID(opts *RunOptions) string {
	if opts.RunIDs != nil {
		return opts.RunIDs()
	}
	return uuid.NewString()
}

// outputRowsText prints rows as an aligned table followed by a row count.
func outputRowsText(formatter *OutputFormatter, result RunResult) error {
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Columns, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(formatter.Writer, "(%d row(s), run %s)\n", len(result.Rows), result.RunID)
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
