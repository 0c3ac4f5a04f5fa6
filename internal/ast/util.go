package ast

// FindMain returns the definition of main() directly under root and its body.
func (t *Tree) FindMain(root NodeID) (fn, body NodeID, ok bool) {
	for _, k := range t.Node(root).Kids {
		n := t.Node(k)
		if n.Kind == KindFunction && t.Syms.FuncName(n.Func) == "main" {
			return k, n.Kids[0], true
		}
	}
	return NoNodeID, NoNodeID, false
}

// RunAtBeginningOfMain prepends stmts to the body of main().
func (t *Tree) RunAtBeginningOfMain(root NodeID, stmts ...NodeID) bool {
	_, body, ok := t.FindMain(root)
	if !ok {
		return false
	}
	t.InsertKids(body, 0, stmts...)
	return true
}

// FindFunctionDef returns the top-level definition of fn.
func (t *Tree) FindFunctionDef(root NodeID, fn FuncID) NodeID {
	for _, k := range t.Node(root).Kids {
		if n := t.Node(k); n.Kind == KindFunction && n.Func == fn {
			return k
		}
	}
	return NoNodeID
}

// CountOps counts live nodes of op under id, skipping nodes carrying skip.
func (t *Tree) CountOps(id NodeID, op Op, skip Flags) int {
	c := 0
	t.Walk(id, func(k NodeID, _ int) bool {
		n := t.Node(k)
		if n.Op == op && (n.Kind == KindUnary || n.Kind == KindBinary || n.Kind == KindAggregate) && !n.Has(skip) {
			c++
		}
		return true
	})
	return c
}
