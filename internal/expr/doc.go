// Package expr provides the abstract expression graph that pipeline lambdas
// and query model clauses are built from.
//
// Expressions are immutable pointer nodes compared by identity. The graph is
// deliberately small: parameters, lambdas, member access, constants, unary
// and binary operators, record construction, method calls, named root
// sources, query source references and placeholders.
//
// QuerySourceReference is the bridge to the query model: resolution rewrites
// lambda parameters into references to the clauses that produce their values.
// References are never evaluable on their own; backends translate them.
//
// Diagnostic formatting (String) is stable and used by tests and golden files:
//
//	s.AddressID            member access on parameter s
//	[a].ID                 member access on the item of query source a
//	(x == 5)               binary operator
//	(s, a) => new R(S = s, A = a)
package expr
