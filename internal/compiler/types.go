package compiler

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseType parses a type name: int, string, bool, a declared type name, or
// seq<T>. Float types are forbidden.
func ParseType(s string) (expr.Type, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "int":
		return expr.IntType, nil
	case "string":
		return expr.StringType, nil
	case "bool":
		return expr.BoolType, nil
	case "float", "float64", "number":
		return expr.Type{}, fmt.Errorf("float types are forbidden - use int instead")
	}

	if strings.HasPrefix(s, "seq<") && strings.HasSuffix(s, ">") {
		elem, err := ParseType(s[len("seq<") : len(s)-1])
		if err != nil {
			return expr.Type{}, err
		}
		return expr.SequenceOf(elem), nil
	}

	if !identifierPattern.MatchString(s) {
		return expr.Type{}, fmt.Errorf("invalid type name %q", s)
	}
	return expr.Named(s), nil
}

// schema holds the declared record types and root sources of a document.
type schema struct {
	types   map[string]map[string]expr.Type
	sources map[string]expr.Type // source name → item type
}

func newSchema(doc *Document) (*schema, error) {
	s := &schema{
		types:   make(map[string]map[string]expr.Type, len(doc.Types)),
		sources: make(map[string]expr.Type, len(doc.Sources)),
	}
	for _, name := range slices.Sorted(maps.Keys(doc.Types)) {
		fields := doc.Types[name]
		if !identifierPattern.MatchString(name) {
			return nil, errorf("types."+name, "invalid type name")
		}
		parsed := make(map[string]expr.Type, len(fields))
		for _, field := range slices.Sorted(maps.Keys(fields)) {
			t, err := ParseType(fields[field])
			if err != nil {
				return nil, errorf("types."+name+"."+field, "%v", err)
			}
			parsed[field] = t
		}
		s.types[name] = parsed
	}
	for _, name := range slices.Sorted(maps.Keys(doc.Sources)) {
		t, err := ParseType(doc.Sources[name])
		if err != nil {
			return nil, errorf("sources."+name, "%v", err)
		}
		s.sources[name] = t
	}
	return s, nil
}

// declared reports whether every named type inside t is a builtin or a
// declared record type.
func (s *schema) declared(t expr.Type) bool {
	if elem, ok := t.ElementType(); ok {
		return s.declared(elem)
	}
	switch t.Name {
	case "int", "string", "bool":
		return true
	}
	_, ok := s.types[t.Name]
	return ok
}

// shape is the compile-time view of a row: a declared type, or an anonymous
// record built by a new expression without a type.
type shape struct {
	typ    expr.Type
	fields map[string]shape
	order  []string
}

func typed(t expr.Type) shape { return shape{typ: t} }

func (sh shape) isRecord() bool { return sh.fields != nil }

// member returns the shape of a member of sh.
func (s *schema) member(sh shape, name string) (shape, error) {
	if sh.isRecord() {
		f, ok := sh.fields[name]
		if !ok {
			return shape{}, fmt.Errorf("record has no member %q (members: %s)", name, strings.Join(sh.order, ", "))
		}
		return f, nil
	}
	fields, ok := s.types[sh.typ.Name]
	if !ok || sh.typ.IsSequence() {
		return shape{}, fmt.Errorf("type %s has no members", sh.typ)
	}
	t, ok := fields[name]
	if !ok {
		return shape{}, fmt.Errorf("type %s has no member %q", sh.typ, name)
	}
	return typed(t), nil
}
