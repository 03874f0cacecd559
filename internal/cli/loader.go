package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/querymodel/internal/compiler"
	"github.com/roach88/querymodel/internal/pipeline"
	"github.com/roach88/querymodel/internal/querymodel"
)

// Error codes reported by the CLI. Document validation problems carry the
// compiler's own codes (E100-E125).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeLoadFailed  = "E004" // Document could not be decoded
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Node chain could not be built into a model
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeSQLFailed   = "E008" // Model has no SQL translation
	ErrCodeQueryFailed = "E009" // Database or query error
	ErrCodeCompile     = "E010" // Document failed to compile to a node chain
)

// LoadError represents an error that occurred while loading a document.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// loadDocument reads a pipeline document from path.
func loadDocument(path string) (*compiler.Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing document: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	doc, err := compiler.LoadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Err: err}
	}
	return doc, nil
}

// buildDocument loads, compiles and builds the document at path.
// The builder logs through f's logger under buildID.
func buildDocument(f *OutputFormatter, path, buildID string) (*querymodel.QueryModel, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	f.VerboseLog("Loaded %s: %d stage(s)", path, len(doc.Pipeline))

	sink, err := compiler.Compile(doc)
	if err != nil {
		return nil, err
	}

	builder := pipeline.NewBuilder(
		pipeline.WithLogger(f.Logger()),
		pipeline.WithBuildIDGenerator(pipeline.NewFixedGenerator(buildID)),
	)
	m, err := builder.Build(sink)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error(), Err: err}
	}
	return m, nil
}

// errorCode extracts the CLI code and message for an error.
func errorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, fmt.Sprintf("%s: %s", verr.Field, verr.Message)
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return ErrCodeCompile, compileErr.Error()
	}
	return ErrCodeGeneric, err.Error()
}

// outputError reports err through the formatter and returns the matching
// ExitError.
func outputError(f *OutputFormatter, exitCode int, err error) error {
	code, message := errorCode(err)
	_ = f.Error(code, message, nil)
	return WrapExitError(exitCode, code, err)
}
