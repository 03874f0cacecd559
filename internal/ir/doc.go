// Package ir provides the constant value domain shared by the expression
// graph, the query model and its backends.
//
// This package contains value definitions only. All other internal packages
// may import ir; ir imports nothing internal. This keeps constants the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - IRValue is sealed; backends switch exhaustively over its variants
//   - Null is an explicit value (IRNull), never a nil interface
package ir
