package expr

// Rewrite traverses an expression depth-first and lets fn replace nodes.
// Children are processed before parents (bottom-up). A parent is rebuilt only
// when one of its children was replaced, so an identity fn returns the input
// unchanged without allocating.
func Rewrite(e Expression, fn func(Expression) Expression) Expression {
	if e == nil {
		return nil
	}

	children := e.Children()
	if len(children) > 0 {
		var rewritten []Expression
		for i, child := range children {
			next := Rewrite(child, fn)
			if next != child && rewritten == nil {
				rewritten = make([]Expression, len(children))
				copy(rewritten, children[:i])
			}
			if rewritten != nil {
				rewritten[i] = next
			}
		}
		if rewritten != nil {
			e = e.WithChildren(rewritten)
		}
	}

	return fn(e)
}

// Replace substitutes every occurrence of target (by identity) with
// replacement.
func Replace(e, target, replacement Expression) Expression {
	return Rewrite(e, func(node Expression) Expression {
		if node == target {
			return replacement
		}
		return node
	})
}

// Inspect walks e in pre-order. Children of a node are skipped when fn
// returns false.
func Inspect(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, child := range e.Children() {
		Inspect(child, fn)
	}
}

// Contains reports whether any node in e satisfies pred.
func Contains(e Expression, pred func(Expression) bool) bool {
	found := false
	Inspect(e, func(node Expression) bool {
		if found {
			return false
		}
		if pred(node) {
			found = true
			return false
		}
		return true
	})
	return found
}

// RemoveTransparentIdentifiers folds member accesses on record constructions,
// so new T(a = [a], s = [s]).a becomes [a]. Resolution produces such shapes
// whenever a lambda reads through the row record of an earlier join.
func RemoveTransparentIdentifiers(e Expression) Expression {
	return Rewrite(e, func(node Expression) Expression {
		m, ok := node.(*Member)
		if !ok {
			return node
		}
		rec, ok := m.Expr.(*New)
		if !ok {
			return node
		}
		if arg, ok := rec.Arg(m.Name); ok {
			return arg
		}
		return node
	})
}
