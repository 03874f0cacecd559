package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/querymodel/internal/pipeline"
	"github.com/roach88/querymodel/internal/querymodel"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output string // output file path for the model text
}

// BuildResult describes a built query model.
type BuildResult struct {
	BuildID         string   `json:"build_id"`
	Model           string   `json:"model"`
	OutputType      string   `json:"output_type"`
	Scalar          bool     `json:"scalar"`
	BodyClauses     int      `json:"body_clauses"`
	ResultOperators []string `json:"result_operators"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <document>",
		Short: "Build the query model of a pipeline document",
		Long: `Compile a pipeline document to a node chain and build its query model.

The model is printed in its diagnostic text form, for example:

  from Student s in Students where ([s].Age > 18) select [s].Name

Examples:
  qmodel build ./adults.yaml
  qmodel build ./adults.cue --format json
  qmodel build ./adults.yaml -o adults.model`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the model text to this file")

	return cmd
}

func runBuild(opts *BuildOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	buildID := pipeline.UUIDv7Generator{}.Generate()
	m, err := buildDocument(formatter, path, buildID)
	if err != nil {
		return outputError(formatter, ExitCommandError, err)
	}

	result := newBuildResult(buildID, m)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(result.Model+"\n"), 0644); err != nil {
			return outputError(formatter, ExitCommandError,
				&LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err), Err: err})
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.Model)
	formatter.VerboseLog("build %s: %d body clause(s), output %s", buildID, result.BodyClauses, result.OutputType)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote model to %s\n", opts.Output)
	}
	return nil
}

func newBuildResult(buildID string, m *querymodel.QueryModel) BuildResult {
	ops := make([]string, len(m.ResultOperators))
	for i, op := range m.ResultOperators {
		ops[i] = op.String()
	}
	return BuildResult{
		BuildID:         buildID,
		Model:           m.String(),
		OutputType:      m.OutputType().String(),
		Scalar:          m.IsScalar(),
		BodyClauses:     len(m.BodyClauses),
		ResultOperators: ops,
	}
}
