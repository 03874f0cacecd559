// Package pipeline turns a chain of query pipeline stages into a query model.
//
// ARCHITECTURE:
//
//	MainSource → Join → Where → Select → Take      (nodes, each links its Source)
//	                  │
//	           Builder.Build(sink)
//	                  │
//	                  ▼
//	from Student s in Students join ... where ... select ... => Take(5)
//
// Each Node holds the raw lambdas of one operator call. Build collects the
// chain, then applies the nodes origin first on a fresh
// ClauseGenerationContext. Each node resolves its lambdas and appends its
// clause; nothing is ever reordered.
//
// RESOLUTION:
//
// A lambda parameter stands for "the current row". Resolving a lambda asks
// the source node to rewrite the parameter:
//   - MainSourceNode binds it to a reference to the main from clause
//   - Where, OrderBy, ThenBy and result operators pass it through
//   - Select substitutes its resolved selector
//   - Join, GroupJoin and SelectMany substitute their resolved result
//     selector, since they change what a row is
//
// Chained operators resolve transitively. Resolved lambdas are cached per
// node and per build, and are returned identically on repeat access.
// Reading a slot that is still being computed fails with
// ErrReentrantResolution. Cached values are frozen: a later SetItemType on
// a clause does not re-resolve them, and QueryModel.Validate reports the
// resulting stale references.
//
// JOINS:
//
// A join's inner key selector refers to the join clause itself, so a
// JoinNode builds its clause in two explicit steps:
//
//	clause, err := node.CreateSkeleton(ctx)   // placeholder inner key, registered in ctx
//	err = node.ResolveAndAttach(clause, ctx)  // resolve inner key against clause, attach
//
// Resolving the inner key before the skeleton is registered fails with
// ErrUnmappedNode.
//
// RESULT OPERATORS:
//
// Distinct, Take, Skip, Count and First append result operators. A clause
// node that follows a result operator node first wraps the model:
//
//	from T x in {inner model} select [x]
//
// Consecutive result operators do not wrap.
//
// ERRORS:
//
// Constructors validate their arguments (nil inputs, lambda arity, sequence
// types) and return a *ValidationError naming the argument before anything
// is built. Build returns a nil model on any error.
package pipeline
