// Package querymodel provides the query model: the mutable intermediate
// representation that pipeline builders produce and backends consume.
//
// ARCHITECTURE:
//
//	[node chain] → pipeline.Builder → [QueryModel] → Visitor → [backend]
//
// A QueryModel has a MainFromClause (origin), an ordered list of
// BodyClauses, a SelectClause (terminal projection) and optional
// ResultOperators (Distinct, Take, Skip, Count, First).
//
// QUERY SOURCES:
//
// MainFromClause, AdditionalFromClause, JoinClause and GroupJoinClause
// introduce a named, typed item into scope and implement expr.QuerySource.
// Later clauses address them through expr.QuerySourceReference. Item names
// are descriptive and need not be unique; the clause identity is what a
// reference binds to.
//
// CLOSED CLAUSE SET:
//
// BodyClause is implemented only by the clause types in this package.
// Backends either implement Visitor (double dispatch through Accept) or use
// an exhaustive type switch:
//
//	switch c := clause.(type) {
//	case *querymodel.WhereClause:
//	case *querymodel.JoinClause:
//	...
//	}
//
// CLONING:
//
// QueryModel.Clone copies every clause (sharing immutable expressions),
// registers original → [clone] in a CloneContext as each query source is
// copied, and finally rewrites every expression in the copy through that
// mapping. No reference in a clone points into the original.
//
// JOIN SKELETONS:
//
// A join's inner key selector may reference the join itself. Builders create
// the clause with NewJoinClauseSkeleton, register it, resolve the inner key,
// then call AttachInnerKeySelector. Validate rejects leftover placeholders.
package querymodel
