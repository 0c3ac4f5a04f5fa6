package astio

import (
	"strconv"
	"strings"

	"prism/internal/ast"
	"prism/internal/compiler"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/types"
)

// Save serializes the tree under root. Only variables and functions the
// tree references are written; their qualifiers are written resolved.
func Save(c *compiler.Compiler, root ast.NodeID) *Document {
	tr := c.Tree()
	s := &saver{tree: tr, vars: make(map[ast.VarID]bool), funcs: make(map[ast.FuncID]bool)}
	doc := &Document{
		Stage:   c.Stage().String(),
		Version: c.Version(),
		Root:    s.node(root),
	}
	for i := 1; i <= tr.Syms.NumVars(); i++ {
		if id := ast.VarID(i); s.vars[id] {
			doc.Variables = append(doc.Variables, s.variable(id))
		}
	}
	for i := 1; i <= tr.Syms.NumFuncs(); i++ {
		if id := ast.FuncID(i); s.funcs[id] {
			doc.Functions = append(doc.Functions, s.function(id))
		}
	}
	return doc
}

type saver struct {
	tree  *ast.Tree
	vars  map[ast.VarID]bool
	funcs map[ast.FuncID]bool
}

func typeRef(t *types.Type) TypeRef {
	ref := TypeRef{Shape: t.Shape(), Precision: t.Precision.String()}
	if t.Qualifier != types.QualTemporary {
		ref.Qualifier = t.Qualifier.Ident()
	}
	return ref
}

func spanRef(sp source.Span) *Span {
	if sp == source.NoSpan {
		return nil
	}
	return &Span{Start: sp.Start, End: sp.End}
}

func (s *saver) useFunc(fn ast.FuncID) {
	if s.funcs[fn] {
		return
	}
	s.funcs[fn] = true
	for _, p := range s.tree.Syms.Func(fn).Params {
		s.vars[p] = true
	}
}

func (s *saver) node(id ast.NodeID) *Node {
	n := s.tree.Node(id)
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:      n.Kind.String(),
		Array:     n.Array,
		Corrected: n.Has(ast.FlagViewportCorrected),
		Span:      spanRef(n.Span),
	}
	for _, off := range n.Swizzle {
		out.Swizzle = append(out.Swizzle, int(off))
	}
	if n.Op != ast.OpNone {
		out.Op = n.Op.Ident()
	}
	if n.Var.IsValid() {
		out.Var = int(n.Var)
		s.vars[n.Var] = true
	}
	if n.Func.IsValid() {
		out.Func = int(n.Func)
		s.useFunc(n.Func)
	}
	if n.Type != nil && n.Kind != ast.KindSymbol && n.Kind != ast.KindFunction {
		ref := typeRef(n.Type)
		out.Type = &ref
	}
	for _, c := range n.Consts {
		out.Consts = append(out.Consts, Const{Kind: c.Kind.String(), Value: constValue(c)})
	}
	for _, k := range n.Kids {
		out.Kids = append(out.Kids, s.node(k))
	}
	return out
}

func constValue(c ast.Const) string {
	switch c.Kind {
	case types.BasicFloat:
		return strconv.FormatFloat(c.Float(), 'g', -1, 64)
	case types.BasicUInt:
		return strconv.FormatUint(c.Bits, 10)
	}
	return c.String()
}

func (s *saver) variable(id ast.VarID) Variable {
	v := s.tree.Syms.Var(id)
	out := Variable{
		ID:   int(id),
		Name: s.tree.Syms.VarName(id),
		Type: typeRef(v.Type),
		Span: spanRef(v.Span),
	}
	switch v.Origin {
	case ast.OriginBuiltIn:
		out.Origin = originBuiltIn
		return out
	case ast.OriginInternal:
		out.Origin = originInternal
	}
	out.Quals = record(v.Quals)
	if v.Memory != 0 {
		out.Memory = strings.Fields(v.Memory.String())
	}
	return out
}

func record(q qualifier.Qualifiers) *Qualifiers {
	r := &Qualifiers{
		Storage:   q.Storage.Ident(),
		Precision: q.Precision.String(),
		Invariant: q.Invariant,
	}
	if q.Layout.Location >= 0 {
		loc := q.Layout.Location
		r.Location = &loc
	}
	if q.Layout.Binding >= 0 {
		b := q.Layout.Binding
		r.Binding = &b
	}
	if q.Layout.Format != qualifier.FormatUnspecified {
		r.Format = q.Layout.Format.String()
	}
	return r
}

func (s *saver) function(id ast.FuncID) Function {
	f := s.tree.Syms.Func(id)
	out := Function{
		ID:     int(id),
		Name:   s.tree.Syms.FuncName(id),
		Return: typeRef(f.Return),
	}
	for _, p := range f.Params {
		out.Params = append(out.Params, int(p))
	}
	if f.Origin == ast.OriginInternal {
		out.Origin = originInternal
	}
	return out
}
