package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string  // Assertion type for categorization
	Expected string  // Human-readable expected outcome
	Actual   string  // Human-readable actual outcome
	Rows     [][]any // Result rows for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nRows:\n")
		for i, row := range e.Rows {
			fmt.Fprintf(&buf, "  [%d] %v\n", i+1, row)
		}
	}

	return buf.String()
}

// assertRowCount checks that the result has exactly the specified number of rows.
func assertRowCount(result *Result, assertion Assertion) error {
	if len(result.Rows) != assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", assertion.Count),
			Actual:   fmt.Sprintf("%d rows", len(result.Rows)),
			Rows:     result.Rows,
		}
	}
	return nil
}

// assertRowsContain checks that some row matches every column of the
// assertion's row (subset match).
func assertRowsContain(result *Result, assertion Assertion) error {
	for _, row := range result.Rows {
		if matchRow(result.Columns, row, assertion.Row) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertRowsContain,
		Expected: fmt.Sprintf("a row matching %v", assertion.Row),
		Actual:   "no matching row",
		Rows:     result.Rows,
	}
}

// assertColumnOrder checks the exact column list.
func assertColumnOrder(result *Result, assertion Assertion) error {
	if !slices.Equal(result.Columns, assertion.Columns) {
		return &AssertionError{
			Type:     AssertColumnOrder,
			Expected: fmt.Sprintf("columns %v", assertion.Columns),
			Actual:   fmt.Sprintf("columns %v", result.Columns),
		}
	}
	return nil
}

func assertContains(kind, text, want string) error {
	if !strings.Contains(text, want) {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("text containing %q", want),
			Actual:   text,
		}
	}
	return nil
}

// matchRow checks if the row holds all expected column values (subset match).
// Extra columns in the row are ignored.
func matchRow(columns []string, row []any, expected map[string]any) bool {
	for col, expectedVal := range expected {
		i := slices.Index(columns, col)
		if i < 0 || i >= len(row) {
			return false // Required column missing
		}
		if !stateValuesEqual(expectedVal, row[i]) {
			return false
		}
	}
	return true
}

// stateValuesEqual compares an expected scenario value with a value read
// from SQLite. Handles type coercion: YAML decodes integers as int, SQLite
// returns int64, and SQLite stores booleans as integers (0/1).
func stateValuesEqual(expected, actual any) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		if actualStr, ok := actual.(string); ok {
			return exp == actualStr
		}
		return false
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case float64:
		switch act := actual.(type) {
		case float64:
			return exp == act
		case int64:
			return exp == float64(act)
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	// Fallback to DeepEqual for complex types
	return reflect.DeepEqual(expected, actual)
}

func intEqual(exp int64, actual any) bool {
	switch act := actual.(type) {
	case int64:
		return exp == act
	case int:
		return exp == int64(act)
	case float64:
		return float64(exp) == act
	}
	return false
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(result, assertion)
		case AssertRowsContain:
			err = assertRowsContain(result, assertion)
		case AssertColumnOrder:
			err = assertColumnOrder(result, assertion)
		case AssertModelContains:
			err = assertContains(AssertModelContains, result.Model, assertion.Text)
		case AssertSQLContains:
			err = assertContains(AssertSQLContains, result.SQL, assertion.Text)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
