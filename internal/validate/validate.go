// Package validate checks structural invariants of a shader tree after
// lowering passes have rewritten it.
package validate

import (
	"errors"
	"fmt"

	"prism/internal/ast"
	"prism/internal/diag"
	"prism/internal/source"
)

// Problem is one violated invariant.
type Problem struct {
	Code   diag.Code
	Node   ast.NodeID
	Reason string
}

func (p *Problem) Error() string {
	return fmt.Sprintf("node %d: %s", p.Node, p.Reason)
}

// Tree checks the subtree at root. Returns nil or an errors.Join of
// *Problem values.
func Tree(t *ast.Tree, root ast.NodeID) error {
	v := &validator{
		tree:   t,
		seen:   make(map[ast.NodeID]ast.NodeID),
		scopes: []map[ast.VarID]struct{}{make(map[ast.VarID]struct{})},
	}
	if n := t.Node(root); n == nil {
		return &Problem{Code: diag.AstMissingChild, Node: root, Reason: "root does not exist"}
	}
	v.node(root, ast.NoNodeID)
	return errors.Join(v.errs...)
}

// Report forwards every Problem in err to r. Returns the number reported.
func Report(r diag.Reporter, t *ast.Tree, err error) int {
	if err == nil {
		return 0
	}
	var problems []*Problem
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var p *Problem
			if errors.As(e, &p) {
				problems = append(problems, p)
			}
		}
	} else {
		var p *Problem
		if errors.As(err, &p) {
			problems = append(problems, p)
		}
	}
	for _, p := range problems {
		token := ""
		if n := t.Node(p.Node); n != nil {
			token = n.Kind.String()
		}
		diag.ReportError(r, p.Code, spanOf(t, p.Node), p.Reason).WithToken(token).Emit()
	}
	return len(problems)
}

// spanOf returns the span of id or of its nearest ancestor that has one.
func spanOf(t *ast.Tree, id ast.NodeID) source.Span {
	for n := t.Node(id); n != nil; n = t.Node(n.Parent) {
		if !n.Span.Empty() {
			return n.Span
		}
	}
	return source.NoSpan
}

type validator struct {
	tree   *ast.Tree
	seen   map[ast.NodeID]ast.NodeID
	scopes []map[ast.VarID]struct{}
	errs   []error
}

func (v *validator) fail(code diag.Code, id ast.NodeID, format string, args ...any) {
	v.errs = append(v.errs, &Problem{Code: code, Node: id, Reason: fmt.Sprintf(format, args...)})
}

func (v *validator) declare(id ast.VarID) {
	v.scopes[len(v.scopes)-1][id] = struct{}{}
}

func (v *validator) declared(id ast.VarID) bool {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if _, ok := v.scopes[i][id]; ok {
			return true
		}
	}
	return false
}

func (v *validator) push() { v.scopes = append(v.scopes, make(map[ast.VarID]struct{})) }
func (v *validator) pop()  { v.scopes = v.scopes[:len(v.scopes)-1] }

func (v *validator) node(id, parent ast.NodeID) {
	n := v.tree.Node(id)
	if n == nil {
		v.fail(diag.AstMissingChild, parent, "child %d does not exist", id)
		return
	}
	if prev, dup := v.seen[id]; dup {
		v.fail(diag.AstMultipleParent, id, "reachable from both %d and %d", prev, parent)
		return
	}
	v.seen[id] = parent
	if parent.IsValid() && n.Parent != parent {
		v.fail(diag.AstParentLink, id, "parent link is %d, listed under %d", n.Parent, parent)
	}
	if n.Has(ast.FlagDetached | ast.FlagReleased) {
		v.fail(diag.AstDeadNode, id, "%s node is detached but still reachable", n.Kind)
	}
	if n.Type != nil && !v.tree.Types.Owns(n.Type) {
		v.fail(diag.AstForeignType, id, "type %s is not interned by this compilation", n.Type)
	}
	v.shape(id, n)

	switch n.Kind {
	case ast.KindSymbol:
		v.symbol(id, n, parent)
	case ast.KindFunction:
		v.push()
		if f := v.tree.Syms.Func(n.Func); f != nil {
			for _, p := range f.Params {
				v.declare(p)
			}
		}
		v.kids(id)
		v.pop()
		return
	case ast.KindBlock, ast.KindLoop:
		// The root block is the global scope.
		if parent.IsValid() {
			v.push()
			defer v.pop()
		}
	}
	v.kids(id)
}

func (v *validator) kids(id ast.NodeID) {
	for _, k := range v.tree.Node(id).Kids {
		if k.IsValid() {
			v.node(k, id)
		}
	}
}

func (v *validator) symbol(id ast.NodeID, n *ast.Node, parent ast.NodeID) {
	variable := v.tree.Syms.Var(n.Var)
	if variable == nil {
		v.fail(diag.AstUndeclaredVar, id, "unknown variable %d", n.Var)
		return
	}
	if variable.Origin == ast.OriginBuiltIn {
		return
	}
	if isDeclarationTarget(v.tree, id, parent) {
		v.declare(n.Var)
		return
	}
	if !v.declared(n.Var) {
		v.fail(diag.AstUndeclaredVar, id, "'%s' used before its declaration", v.tree.Syms.VarName(n.Var))
	}
}

func isDeclarationTarget(t *ast.Tree, id, parent ast.NodeID) bool {
	p := t.Node(parent)
	if p == nil {
		return false
	}
	if p.Kind == ast.KindDeclaration {
		return true
	}
	if p.Kind == ast.KindBinary && p.Op == ast.OpInitialize && p.Kids[0] == id {
		gp := t.Node(p.Parent)
		return gp != nil && gp.Kind == ast.KindDeclaration
	}
	return false
}

// shape checks the children layout documented on ast.Node.
func (v *validator) shape(id ast.NodeID, n *ast.Node) {
	want := -1
	switch n.Kind {
	case ast.KindFunction, ast.KindDeclaration, ast.KindUnary, ast.KindSwizzle:
		want = 1
	case ast.KindBinary:
		want = 2
	case ast.KindTernary:
		want = 3
	case ast.KindLoop:
		want = 4
	case ast.KindSymbol, ast.KindConstant:
		want = 0
	case ast.KindIfElse:
		if len(n.Kids) != 2 && len(n.Kids) != 3 {
			v.fail(diag.AstBadShape, id, "if with %d children", len(n.Kids))
		}
	case ast.KindInvalid:
		v.fail(diag.AstBadShape, id, "invalid node kind")
	}
	if want >= 0 && len(n.Kids) != want {
		v.fail(diag.AstBadShape, id, "%s with %d children, want %d", n.Kind, len(n.Kids), want)
		return
	}
	for i, k := range n.Kids {
		if k.IsValid() {
			continue
		}
		if n.Kind == ast.KindLoop && i < 3 {
			continue
		}
		v.fail(diag.AstMissingChild, id, "%s is missing child %d", n.Kind, i)
	}
	if n.Kind == ast.KindDeclaration && len(n.Kids) == 1 && n.Kids[0].IsValid() {
		k := v.tree.Node(n.Kids[0])
		ok := k != nil && (k.Kind == ast.KindSymbol || (k.Kind == ast.KindBinary && k.Op == ast.OpInitialize))
		if !ok {
			v.fail(diag.AstBadShape, id, "declaration must name a symbol")
		}
	}
}
