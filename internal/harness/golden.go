package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot captures everything a scenario run produced, for golden
// comparison. Field order is fixed by the struct, so the encoding is
// deterministic.
type Snapshot struct {
	Scenario string   `json:"scenario"`
	BuildID  string   `json:"build_id"`
	Model    string   `json:"model"`
	SQL      string   `json:"sql"`
	Args     []any    `json:"args"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	Error    string   `json:"error,omitempty"`
}

// NewSnapshot builds the snapshot of a result. Nil slices are recorded as
// empty lists.
func NewSnapshot(scenarioName string, result *Result) Snapshot {
	s := Snapshot{
		Scenario: scenarioName,
		BuildID:  result.BuildID,
		Model:    result.Model,
		SQL:      result.SQL,
		Args:     result.Args,
		Columns:  result.Columns,
		Rows:     result.Rows,
		Error:    result.Error,
	}
	if s.Args == nil {
		s.Args = []any{}
	}
	if s.Columns == nil {
		s.Columns = []string{}
	}
	if s.Rows == nil {
		s.Rows = [][]any{}
	}
	return s
}

// Marshal encodes the snapshot as indented JSON with a trailing newline.
// HTML escaping is off so SQL operators stay readable.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's snapshot against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
