// Package querysql compiles query models to parameterized SQLite SQL.
//
// The compiler consumes a model only through querymodel.Walk. Each model
// becomes one SELECT:
//
//	main from clause       FROM "Source" AS "item" (or a derived table for a subquery)
//	additional from clause CROSS JOIN "Source" AS "item"
//	join clause            JOIN "Source" AS "item" ON outer = inner
//	where clause           WHERE ... AND ...
//	order-by clause        ORDER BY (later clauses first)
//	Distinct/Take/Skip     DISTINCT, LIMIT ?, OFFSET ?
//	Count/First            COUNT(*), LIMIT 1
//
// Result operators that cannot be merged into the current statement (Skip
// after Take, Distinct after paging) wrap it as a derived table. Group joins
// and sources over nested collections return an UnsupportedError.
package querysql
