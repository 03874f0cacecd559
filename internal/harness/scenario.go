package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/querymodel/internal/compiler"
)

// Scenario defines one end-to-end query run and its expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is an inline pipeline document.
	Document *compiler.Document `yaml:"document,omitempty"`

	// DocumentFile is the path of a .yaml, .yml or .cue pipeline document.
	// Relative paths are resolved against the scenario file's directory.
	// Exactly one of Document and DocumentFile must be set.
	DocumentFile string `yaml:"document_file,omitempty"`

	// Seed is a SQL script run before the query: table setup and rows.
	Seed string `yaml:"seed,omitempty"`

	// Expect holds exact expectations. Empty fields are not checked.
	Expect Expectation `yaml:"expect,omitempty"`

	// Assertions are additional checks on the result.
	// Supported types: row_count, rows_contain, column_order,
	// model_contains, sql_contains
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// BuildID is the fixed build id for the run.
	// If empty, defaults to "scenario-<name>".
	BuildID string `yaml:"build_id,omitempty"`
}

// Expectation specifies exact expected results.
type Expectation struct {
	// Model is the expected query model text.
	Model string `yaml:"model,omitempty"`

	// SQL is the expected SQL statement.
	SQL string `yaml:"sql,omitempty"`

	// Error, if set, is a substring the run's error must contain.
	// The scenario fails if the run succeeds.
	Error string `yaml:"error,omitempty"`

	// Rows are the expected rows, in order. Nil means not checked; an empty
	// list expects no rows.
	Rows [][]any `yaml:"rows,omitempty"`
}

// Assertion validates part of a result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": exactly Count rows
	// - "rows_contain": some row matches Row
	// - "column_order": columns equal Columns
	// - "model_contains": model text contains Text
	// - "sql_contains": SQL contains Text
	Type string `yaml:"type"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`

	// Row maps column names to expected values (used by rows_contain).
	// Subset match - columns not listed are ignored.
	Row map[string]any `yaml:"row,omitempty"`

	// Columns is the expected column list (used by column_order).
	Columns []string `yaml:"columns,omitempty"`

	// Text is the expected substring (used by model_contains and sql_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount      = "row_count"
	AssertRowsContain   = "rows_contain"
	AssertColumnOrder   = "column_order"
	AssertModelContains = "model_contains"
	AssertSQLContains   = "sql_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A document_file is resolved relative to the scenario file and loaded.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative document_file against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.DocumentFile != "" && !filepath.IsAbs(scenario.DocumentFile) && basePath != "" {
		scenario.DocumentFile = filepath.Join(basePath, scenario.DocumentFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.DocumentFile != "" {
		doc, err := compiler.LoadFile(scenario.DocumentFile)
		if err != nil {
			return nil, fmt.Errorf("load document %s: %w", scenario.DocumentFile, err)
		}
		scenario.Document = doc
	}

	return &scenario, nil
}

// buildID returns the scenario's fixed build id.
func (s *Scenario) buildID() string {
	if s.BuildID != "" {
		return s.BuildID
	}
	return "scenario-" + s.Name
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Document == nil && s.DocumentFile == "":
		return fmt.Errorf("one of document or document_file is required")
	case s.Document != nil && s.DocumentFile != "":
		return fmt.Errorf("document and document_file are mutually exclusive")
	}

	if s.DocumentFile != "" {
		if _, err := os.Stat(s.DocumentFile); os.IsNotExist(err) {
			return fmt.Errorf("document file not found: %s", s.DocumentFile)
		}
	}

	if strings.TrimSpace(s.Seed) == "" && s.Expect.Error == "" {
		return fmt.Errorf("seed is required unless expect.error is set")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertRowsContain:
		if len(a.Row) == 0 {
			return fmt.Errorf("assertions[%d]: row is required for rows_contain", index)
		}
	case AssertColumnOrder:
		if len(a.Columns) == 0 {
			return fmt.Errorf("assertions[%d]: columns list is required for column_order", index)
		}
	case AssertModelContains, AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
