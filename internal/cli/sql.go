package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/pipeline"
	"github.com/roach88/querymodel/internal/querysql"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	NoStableOrder bool
}

// SQLResult holds a translated statement.
type SQLResult struct {
	BuildID string `json:"build_id"`
	Model   string `json:"model"`
	SQL     string `json:"sql"`
	Args    []any  `json:"args"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <document>",
		Short: "Translate a pipeline document to SQLite SQL",
		Long: `Build the query model of a pipeline document and translate it to a single
parameterized SQLite SELECT statement.

Orderings get rowid tiebreaks so results are reproducible; pass
--no-stable-order to leave them out. Group joins and nested collection
sources have no SQL translation and are reported as errors.

Examples:
  qmodel sql ./adults.yaml
  qmodel sql ./adults.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoStableOrder, "no-stable-order", false, "omit rowid tiebreaks from ORDER BY")

	return cmd
}

func runSQL(opts *SQLOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, err := translate(formatter, path, !opts.NoStableOrder)
	if err != nil {
		return outputError(formatter, ExitCommandError, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	if len(result.Args) > 0 {
		fmt.Fprintf(formatter.Writer, "-- args: %v\n", result.Args)
	}
	return nil
}

// translate builds the document at path and compiles its model to SQL.
func translate(f *OutputFormatter, path string, stableOrder bool) (*SQLResult, error) {
	buildID := pipeline.UUIDv7Generator{}.Generate()
	m, err := buildDocument(f, path, buildID)
	if err != nil {
		return nil, err
	}
	f.VerboseLog("Model: %s", m)

	c := querysql.NewCompiler()
	c.StableOrder = stableOrder
	sql, args, err := c.Compile(m)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSQLFailed, Message: err.Error(), Err: err}
	}
	if args == nil {
		args = []any{}
	}

	return &SQLResult{
		BuildID: buildID,
		Model:   m.String(),
		SQL:     sql,
		Args:    args,
	}, nil
}
