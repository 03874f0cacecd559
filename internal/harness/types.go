package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// BuildID is the fixed build id the model was built under.
	BuildID string `json:"build_id"`

	// Model is the query model text. Empty if the build failed.
	Model string `json:"model,omitempty"`

	// SQL and Args are the compiled statement and its arguments.
	SQL  string `json:"sql,omitempty"`
	Args []any  `json:"args,omitempty"`

	// Columns and Rows hold the query result.
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`

	// Error is the text of the error that stopped the run, if any.
	Error string `json:"error,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
