package compiler

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Document is a pipeline document: a type schema, the named root sources and
// the ordered pipeline stages.
//
// YAML form:
//
//	types:
//	  Student: {ID: int, Name: string, AddressID: int}
//	  Address: {ID: int, City: string}
//	sources:
//	  Students: Student
//	  Addresses: Address
//	pipeline:
//	  - from: {name: s, source: Students}
//	  - join:
//	      inner: Addresses
//	      outer_key: {params: [s], body: $s.AddressID}
//	      inner_key: {params: [a], body: $a.ID}
//	      result: {params: [s, a], body: {new: [$s, $a]}}
//	  - where: {params: [x], body: {op: "==", left: $x.a.City, right: Seattle}}
//	  - select: {params: [x], body: $x.s.Name}
//	  - take: 5
//
// The CUE form decodes into the same structure.
type Document struct {
	Name     string                       `yaml:"name,omitempty" json:"name,omitempty"`
	Types    map[string]map[string]string `yaml:"types" json:"types"`
	Sources  map[string]string            `yaml:"sources" json:"sources"`
	Pipeline []map[string]any             `yaml:"pipeline" json:"pipeline"`
}

// LoadYAML decodes a YAML pipeline document. Unknown top-level fields are
// rejected.
func LoadYAML(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, &CompileError{Field: "document", Message: "empty document"}
		}
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	return &doc, nil
}

// LoadCUE compiles and decodes a CUE pipeline document. filename is used in
// error positions.
func LoadCUE(src []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var doc Document
	if err := v.Decode(&doc); err != nil {
		return nil, formatCUEError(err)
	}
	return &doc, nil
}

// LoadFile loads a pipeline document, choosing the decoder by extension
// (.yaml, .yml or .cue).
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(bytes.NewReader(data))
	case ".cue":
		return LoadCUE(data, path)
	default:
		return nil, &CompileError{
			Field:   "document",
			Message: fmt.Sprintf("unsupported file extension %q (want .yaml, .yml or .cue)", filepath.Ext(path)),
		}
	}
}
