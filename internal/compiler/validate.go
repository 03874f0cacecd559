package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
)

// Validation error codes (E100-E199)
const (
	// Document errors (E100-E109)
	ErrEmptyPipeline      = "E100" // pipeline has no stages
	ErrInvalidName        = "E101" // type, field, source or item name is not an identifier
	ErrInvalidFieldType   = "E104" // invalid type string
	ErrUndeclaredType     = "E105" // type name not declared under types
	ErrFloatTypeForbidden = "E106" // float types not allowed
	ErrSourceNotSequence  = "E107" // source item type is itself a sequence

	// Stage errors (E120-E129)
	ErrInvalidStage     = "E120" // stage is not a single-key map
	ErrUnknownOperator  = "E121" // stage key is not a known operator
	ErrMissingFrom      = "E122" // first stage is not from
	ErrMisplacedFrom    = "E123" // from appears after the first stage
	ErrUnknownSource    = "E124" // from/join names an undeclared source
	ErrMissingStageArgs = "E125" // stage map lacks a required key
)

// ValidationError represents a document validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// requiredArgs lists the keys a map-valued stage must carry.
var requiredArgs = map[string][]string{
	"from":       {"name", "source"},
	"join":       {"inner", "outer_key", "inner_key", "result"},
	"groupjoin":  {"inner", "outer_key", "inner_key", "result"},
	"selectmany": {"collection"},
}

// Validate checks the structure of a document: schema declarations, stage
// shapes, operator names and source references. It returns all errors found
// (does not fail-fast), ordered by field.
//
// Expression bodies are checked later, during Compile, where parameter
// shapes are known.
func Validate(doc *Document) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateTypes(doc)...)
	errs = append(errs, validateSources(doc)...)
	errs = append(errs, validatePipeline(doc)...)
	return errs
}

func validateTypes(doc *Document) []ValidationError {
	var errs []ValidationError
	for _, name := range slices.Sorted(maps.Keys(doc.Types)) {
		if !identifierPattern.MatchString(name) {
			errs = append(errs, ValidationError{
				Field:   "types." + name,
				Message: fmt.Sprintf("invalid type name %q", name),
				Code:    ErrInvalidName,
			})
		}
		fields := doc.Types[name]
		for _, field := range slices.Sorted(maps.Keys(fields)) {
			path := "types." + name + "." + field
			if !identifierPattern.MatchString(field) {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("invalid field name %q", field),
					Code:    ErrInvalidName,
				})
			}
			errs = append(errs, validateTypeRef(doc, path, fields[field])...)
		}
	}
	return errs
}

func validateSources(doc *Document) []ValidationError {
	var errs []ValidationError
	for _, name := range slices.Sorted(maps.Keys(doc.Sources)) {
		path := "sources." + name
		if !identifierPattern.MatchString(name) {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("invalid source name %q", name),
				Code:    ErrInvalidName,
			})
		}
		typeErrs := validateTypeRef(doc, path, doc.Sources[name])
		errs = append(errs, typeErrs...)
		if len(typeErrs) == 0 {
			if t, _ := ParseType(doc.Sources[name]); t.IsSequence() {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("source items must not be sequences, got %s", t),
					Code:    ErrSourceNotSequence,
				})
			}
		}
	}
	return errs
}

// validateTypeRef validates a type string, returning errors for invalid
// types, floats and undeclared record types.
func validateTypeRef(doc *Document, path, typeName string) []ValidationError {
	if isFloatType(typeName) {
		return []ValidationError{{
			Field:   path,
			Message: fmt.Sprintf("float type %q forbidden, use int instead", typeName),
			Code:    ErrFloatTypeForbidden,
		}}
	}

	t, err := ParseType(typeName)
	if err != nil {
		return []ValidationError{{
			Field:   path,
			Message: err.Error(),
			Code:    ErrInvalidFieldType,
		}}
	}

	for elem, ok := t.ElementType(); ok; elem, ok = t.ElementType() {
		t = elem
	}
	switch t.Name {
	case expr.IntType.Name, expr.StringType.Name, expr.BoolType.Name:
		return nil
	}
	if _, ok := doc.Types[t.Name]; !ok {
		return []ValidationError{{
			Field:   path,
			Message: fmt.Sprintf("undeclared type %q", t.Name),
			Code:    ErrUndeclaredType,
		}}
	}
	return nil
}

func isFloatType(t string) bool {
	switch strings.TrimSpace(t) {
	case "float", "float32", "float64", "number", "double":
		return true
	}
	return false
}

func validatePipeline(doc *Document) []ValidationError {
	if len(doc.Pipeline) == 0 {
		return []ValidationError{{
			Field:   "pipeline",
			Message: "at least one stage is required",
			Code:    ErrEmptyPipeline,
		}}
	}

	var errs []ValidationError
	for i, stage := range doc.Pipeline {
		field := fmt.Sprintf("pipeline[%d]", i)
		if len(stage) != 1 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("stage must have exactly one operator key, got %v", keys(stage)),
				Code:    ErrInvalidStage,
			})
			continue
		}

		op, arg := stageOperator(stage)
		field += "." + op
		switch {
		case op == "from" && i > 0:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "from is only allowed as the first stage",
				Code:    ErrMisplacedFrom,
			})
			continue
		case op != "from" && i == 0:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("first stage must be from, got %s", op),
				Code:    ErrMissingFrom,
			})
			continue
		case op != "from" && operators[op] == nil:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown operator %q (known: %s)", op, strings.Join(Operators(), ", ")),
				Code:    ErrUnknownOperator,
			})
			continue
		}

		errs = append(errs, validateStageArgs(doc, field, op, arg)...)
	}
	return errs
}

func validateStageArgs(doc *Document, field, op string, arg any) []ValidationError {
	required, ok := requiredArgs[op]
	if !ok {
		return nil
	}
	m, ok := arg.(map[string]any)
	if !ok {
		return []ValidationError{{
			Field:   field,
			Message: fmt.Sprintf("must be a map with %s", strings.Join(required, ", ")),
			Code:    ErrInvalidStage,
		}}
	}

	var errs []ValidationError
	for _, key := range required {
		if !has(m, key) {
			errs = append(errs, ValidationError{
				Field:   field + "." + key,
				Message: "is required",
				Code:    ErrMissingStageArgs,
			})
		}
	}

	sourceKey := "inner"
	if op == "from" {
		sourceKey = "source"
		if name, _ := m["name"].(string); has(m, "name") && !identifierPattern.MatchString(name) {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("invalid item name %v", m["name"]),
				Code:    ErrInvalidName,
			})
		}
	}
	if raw, ok := m[sourceKey]; ok {
		name, _ := raw.(string)
		if _, declared := doc.Sources[name]; !declared {
			errs = append(errs, ValidationError{
				Field:   field + "." + sourceKey,
				Message: fmt.Sprintf("unknown source %v", raw),
				Code:    ErrUnknownSource,
			})
		}
	}
	return errs
}
