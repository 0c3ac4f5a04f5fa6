package rewrite

import "prism/internal/ast"

// VisitFunc is called for one node. The result of a pre-visit tells whether
// to descend into the children; post-visit results are ignored.
type VisitFunc func(t *Traverser, id ast.NodeID) bool

// Hooks holds the visit functions of one pass, indexed by node kind.
type Hooks struct {
	pre  [ast.NumKinds]VisitFunc
	post [ast.NumKinds]VisitFunc
}

func (h *Hooks) Pre(k ast.Kind, fn VisitFunc) *Hooks {
	h.pre[k] = fn
	return h
}

// Post registers fn to run after the children of k nodes. It is skipped for
// nodes whose pre-visit returned false.
func (h *Hooks) Post(k ast.Kind, fn VisitFunc) *Hooks {
	h.post[k] = fn
	return h
}
