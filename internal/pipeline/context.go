package pipeline

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
)

// ClauseGenerationContext records, for one build, which query source each
// node produced. Later nodes resolve their parameters through it.
//
// A fresh context is created per build; mappings never leak between builds.
type ClauseGenerationContext struct {
	sources   map[Node]expr.QuerySource
	generated int
}

// NewClauseGenerationContext creates an empty context.
func NewClauseGenerationContext() *ClauseGenerationContext {
	return &ClauseGenerationContext{sources: make(map[Node]expr.QuerySource)}
}

// AddMapping records that n produced src. Mapping a node twice fails with
// ErrNodeMapped.
func (c *ClauseGenerationContext) AddMapping(n Node, src expr.QuerySource) error {
	if _, ok := c.sources[n]; ok {
		return fmt.Errorf("%s: %w", n, ErrNodeMapped)
	}
	c.sources[n] = src
	return nil
}

// ReplaceMapping changes the source recorded for an already mapped node.
func (c *ClauseGenerationContext) ReplaceMapping(n Node, src expr.QuerySource) error {
	if _, ok := c.sources[n]; !ok {
		return &ResolutionError{Node: n.String(), Err: ErrUnmappedNode}
	}
	c.sources[n] = src
	return nil
}

// Contains reports whether n is mapped.
func (c *ClauseGenerationContext) Contains(n Node) bool {
	_, ok := c.sources[n]
	return ok
}

// QuerySource returns the source n produced. An unmapped node is a
// ResolutionError wrapping ErrUnmappedNode.
func (c *ClauseGenerationContext) QuerySource(n Node) (expr.QuerySource, error) {
	src, ok := c.sources[n]
	if !ok {
		return nil, &ResolutionError{Node: n.String(), Err: ErrUnmappedNode}
	}
	return src, nil
}

// Count returns the number of mapped nodes.
func (c *ClauseGenerationContext) Count() int {
	return len(c.sources)
}

// GenerateIdentifier returns a fresh item name for a query source that no
// lambda parameter names: <generated>_0, <generated>_1, ...
func (c *ClauseGenerationContext) GenerateIdentifier() string {
	name := fmt.Sprintf("<generated>_%d", c.generated)
	c.generated++
	return name
}
