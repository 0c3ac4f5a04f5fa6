package astio

import (
	"errors"
	"fmt"
	"strconv"

	"fortio.org/safecast"

	"prism/internal/ast"
	"prism/internal/compiler"
	"prism/internal/diag"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/types"
)

var (
	// ErrBadDocument wraps structural problems of a document.
	ErrBadDocument = errors.New("bad document")
	// ErrHalted is returned when a reported error stopped construction.
	ErrHalted = errors.New("construction halted")
)

// Header returns the stage and version a compiler for doc needs.
func (doc *Document) Header() (compiler.Stage, int, error) {
	stage, err := compiler.ParseStage(doc.Stage)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrBadDocument, err)
	}
	if doc.Version <= 0 {
		return 0, 0, fmt.Errorf("%w: version %d", ErrBadDocument, doc.Version)
	}
	return stage, doc.Version, nil
}

// Build creates a compiler for doc and loads the tree into it. The stage
// and version of cfg are taken from the document and Document.Source is
// registered in cfg.Files. The compiler is returned even on failure so
// callers can render its diagnostics.
func Build(doc *Document, cfg compiler.Config) (*compiler.Compiler, error) {
	stage, version, err := doc.Header()
	if err != nil {
		return nil, err
	}
	cfg.Stage, cfg.Version = stage, version
	if cfg.Files == nil {
		cfg.Files = source.NewFileSet()
	}
	name := doc.Path
	if name == "" {
		name = "<document>"
	}
	file := cfg.Files.AddVirtual(name, []byte(doc.Source))
	c := compiler.New(cfg)
	_, err = Load(doc, c, file)
	return c, err
}

type loader struct {
	c     *compiler.Compiler
	tree  *ast.Tree
	file  source.FileID
	vars  map[int]ast.VarID
	funcs map[int]ast.FuncID
	decls map[int]bool
}

// Load builds the tree of doc inside c and installs it as the root. file
// is the FileID Document.Source was registered under; spans refer to it.
// Raw modifier sequences are resolved in document order and loading
// stops at the first sequence that halted the compiler.
func Load(doc *Document, c *compiler.Compiler, file source.FileID) (ast.NodeID, error) {
	if doc.Root == nil {
		return ast.NoNodeID, fmt.Errorf("%w: no root", ErrBadDocument)
	}
	l := &loader{
		c:     c,
		tree:  c.Tree(),
		file:  file,
		vars:  make(map[int]ast.VarID, len(doc.Variables)),
		funcs: make(map[int]ast.FuncID, len(doc.Functions)),
		decls: declaredLocals(doc),
	}
	for i := range doc.Variables {
		if err := l.variable(&doc.Variables[i]); err != nil {
			return ast.NoNodeID, err
		}
		if c.Halted() {
			return ast.NoNodeID, fmt.Errorf("variable %q: %w", doc.Variables[i].Name, ErrHalted)
		}
	}
	for i := range doc.Functions {
		if err := l.function(&doc.Functions[i]); err != nil {
			return ast.NoNodeID, err
		}
	}
	root, err := l.node(doc.Root)
	if err != nil {
		return ast.NoNodeID, err
	}
	if l.tree.Node(root).Kind != ast.KindBlock {
		return ast.NoNodeID, fmt.Errorf("%w: root is a %s", ErrBadDocument, l.tree.Node(root).Kind)
	}
	c.SetRoot(root)
	return root, nil
}

// declaredLocals collects variables declared inside function bodies, which
// resolve their modifiers from the Temporary scope.
func declaredLocals(doc *Document) map[int]bool {
	out := make(map[int]bool)
	var walk func(n *Node, inFunc bool)
	walk = func(n *Node, inFunc bool) {
		if n == nil {
			return
		}
		if n.Kind == "Function" {
			inFunc = true
		}
		if inFunc && n.Kind == "Declaration" && len(n.Kids) > 0 && n.Kids[0] != nil {
			sym := n.Kids[0]
			if sym.Kind == "Binary" && len(sym.Kids) > 0 && sym.Kids[0] != nil {
				sym = sym.Kids[0]
			}
			if sym.Kind == "Symbol" {
				out[sym.Var] = true
			}
		}
		for _, k := range n.Kids {
			walk(k, inFunc)
		}
	}
	if doc.Root != nil {
		for _, k := range doc.Root.Kids {
			if k != nil && k.Kind == "Function" {
				walk(k, false)
			}
		}
	}
	return out
}

func (l *loader) span(s *Span) source.Span {
	if s == nil {
		return source.NoSpan
	}
	return source.Span{File: l.file, Start: s.Start, End: s.End}
}

func (l *loader) typeRef(ref *TypeRef, defQual types.Qualifier) (*types.Type, error) {
	kind, primary, secondary, ok := types.ParseShape(ref.Shape)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrBadDocument, ref.Shape)
	}
	prec, ok := types.ParsePrecision(ref.Precision)
	if !ok {
		return nil, fmt.Errorf("%w: unknown precision %q", ErrBadDocument, ref.Precision)
	}
	q := defQual
	if ref.Qualifier != "" {
		if q, ok = types.QualifierByIdent(ref.Qualifier); !ok {
			return nil, fmt.Errorf("%w: unknown qualifier %q", ErrBadDocument, ref.Qualifier)
		}
	}
	return l.tree.Types.Intern(kind, prec, q, primary, secondary), nil
}

func (l *loader) variable(v *Variable) error {
	if _, dup := l.vars[v.ID]; dup || v.ID <= 0 {
		return fmt.Errorf("%w: variable id %d", ErrBadDocument, v.ID)
	}
	syms := l.tree.Syms
	if v.Origin == originBuiltIn {
		id, ok := syms.BuiltIn(v.Name, l.tree.Types)
		if !ok {
			return fmt.Errorf("%w: unknown built-in %q", ErrBadDocument, v.Name)
		}
		l.vars[v.ID] = id
		return nil
	}

	at := l.span(v.Span)
	quals, err := l.qualifiers(v, at)
	if err != nil {
		return fmt.Errorf("variable %q: %w", v.Name, err)
	}
	typ, err := l.typeRef(&v.Type, quals.Storage)
	if err != nil {
		return fmt.Errorf("variable %q: %w", v.Name, err)
	}
	if typ.Precision == types.PrecisionUndefined && quals.Precision != types.PrecisionUndefined {
		typ = l.tree.Types.WithPrecision(typ, quals.Precision)
	}
	if quals.Precision == types.PrecisionUndefined {
		quals.Precision = typ.Precision
	}
	var id ast.VarID
	if v.Origin == originInternal {
		id = syms.NewInternal(v.Name, typ, quals)
		syms.NoteTemp(v.Name)
	} else {
		id = syms.NewVariable(v.Name, typ, quals)
	}
	sv := syms.Var(id)
	sv.Span = at
	for _, m := range v.Memory {
		bit, ok := memoryBits[m]
		if !ok {
			return fmt.Errorf("%w: variable %q: unknown memory qualifier %q", ErrBadDocument, v.Name, m)
		}
		sv.Memory |= bit
	}
	l.vars[v.ID] = id
	return nil
}

var memoryBits = map[string]ast.MemoryQualifier{
	"coherent":  ast.MemCoherent,
	"volatile":  ast.MemVolatile,
	"restrict":  ast.MemRestrict,
	"readonly":  ast.MemReadOnly,
	"writeonly": ast.MemWriteOnly,
}

func (l *loader) qualifiers(v *Variable, at source.Span) (qualifier.Qualifiers, error) {
	switch {
	case v.Quals != nil && len(v.Modifiers) > 0:
		return qualifier.Qualifiers{}, fmt.Errorf("%w: both quals and modifiers", ErrBadDocument)
	case v.Quals != nil:
		return l.record(v.Quals, at)
	case len(v.Modifiers) > 0:
		q, err := Resolve(l.c, v.Modifiers, v.Param, l.decls[v.ID], l.span)
		if err != nil {
			return q, fmt.Errorf("%w: %w", ErrBadDocument, err)
		}
		q.Span = at
		return q, nil
	}
	scope := types.QualGlobal
	switch {
	case v.Param:
		scope = types.QualIn
	case l.decls[v.ID]:
		scope = types.QualTemporary
	}
	if v.Type.Qualifier != "" {
		if q, ok := types.QualifierByIdent(v.Type.Qualifier); ok {
			scope = q
		}
	}
	return qualifier.Default(scope, at), nil
}

func (l *loader) record(r *Qualifiers, at source.Span) (qualifier.Qualifiers, error) {
	storage, ok := types.QualifierByIdent(r.Storage)
	if !ok {
		return qualifier.Qualifiers{}, fmt.Errorf("%w: unknown storage %q", ErrBadDocument, r.Storage)
	}
	prec, ok := types.ParsePrecision(r.Precision)
	if !ok {
		return qualifier.Qualifiers{}, fmt.Errorf("%w: unknown precision %q", ErrBadDocument, r.Precision)
	}
	lay, err := layoutOf(r.Location, r.Binding, r.Format)
	if err != nil {
		return qualifier.Qualifiers{}, fmt.Errorf("%w: %w", ErrBadDocument, err)
	}
	return qualifier.Qualifiers{Storage: storage, Precision: prec, Layout: lay, Invariant: r.Invariant, Span: at}, nil
}

func (l *loader) function(f *Function) error {
	if _, dup := l.funcs[f.ID]; dup || f.ID <= 0 {
		return fmt.Errorf("%w: function id %d", ErrBadDocument, f.ID)
	}
	ret, err := l.typeRef(&f.Return, types.QualTemporary)
	if err != nil {
		return fmt.Errorf("function %q: %w", f.Name, err)
	}
	params := make([]ast.VarID, len(f.Params))
	for i, p := range f.Params {
		id, ok := l.vars[p]
		if !ok {
			return fmt.Errorf("%w: function %q: unknown parameter %d", ErrBadDocument, f.Name, p)
		}
		params[i] = id
	}
	id := l.tree.Syms.NewFunction(f.Name, ret, params...)
	if f.Origin == originInternal {
		l.tree.Syms.Func(id).Origin = ast.OriginInternal
	}
	l.funcs[f.ID] = id
	return nil
}

func (l *loader) node(n *Node) (ast.NodeID, error) {
	if n == nil {
		return ast.NoNodeID, nil
	}
	kind, ok := ast.KindByName(n.Kind)
	if !ok {
		return ast.NoNodeID, fmt.Errorf("%w: unknown node kind %q", ErrBadDocument, n.Kind)
	}
	out := ast.Node{Kind: kind, Span: l.span(n.Span), Array: n.Array}
	for _, off := range n.Swizzle {
		o, err := safecast.Conv[uint8](off)
		if err != nil || o > 3 {
			return ast.NoNodeID, fmt.Errorf("%w: swizzle offset %d", ErrBadDocument, off)
		}
		out.Swizzle = append(out.Swizzle, o)
	}
	if n.Op != "" {
		if out.Op, ok = ast.OpByIdent(n.Op); !ok {
			return ast.NoNodeID, fmt.Errorf("%w: unknown op %q", ErrBadDocument, n.Op)
		}
	}
	if n.Corrected {
		out.Flags |= ast.FlagViewportCorrected
	}
	if n.Var != 0 {
		if out.Var, ok = l.vars[n.Var]; !ok {
			return ast.NoNodeID, fmt.Errorf("%w: unknown variable %d", ErrBadDocument, n.Var)
		}
	}
	if n.Func != 0 {
		if out.Func, ok = l.funcs[n.Func]; !ok {
			return ast.NoNodeID, fmt.Errorf("%w: unknown function %d", ErrBadDocument, n.Func)
		}
	}
	switch {
	case kind == ast.KindSymbol:
		if !out.Var.IsValid() {
			return ast.NoNodeID, fmt.Errorf("%w: symbol without variable", ErrBadDocument)
		}
		out.Type = l.tree.Syms.Var(out.Var).Type
	case kind == ast.KindFunction:
		if !out.Func.IsValid() {
			return ast.NoNodeID, fmt.Errorf("%w: function definition without function", ErrBadDocument)
		}
		out.Type = l.tree.Syms.Func(out.Func).Return
	case n.Type != nil:
		t, err := l.typeRef(n.Type, types.QualTemporary)
		if err != nil {
			return ast.NoNodeID, err
		}
		out.Type = t
	}
	for _, c := range n.Consts {
		v, err := parseConst(c)
		if err != nil {
			return ast.NoNodeID, err
		}
		out.Consts = append(out.Consts, v)
	}
	for _, k := range n.Kids {
		id, err := l.node(k)
		if err != nil {
			return ast.NoNodeID, err
		}
		out.Kids = append(out.Kids, id)
	}
	if kind == ast.KindAggregate && out.Op == ast.OpNone {
		l.c.Diagnostics().Warning(out.Span, diag.IOBadDocument, n.Kind, "aggregate without op")
	}
	return l.tree.Add(out), nil
}

func parseConst(c Const) (ast.Const, error) {
	bad := func(err error) (ast.Const, error) {
		return ast.Const{}, fmt.Errorf("%w: %s constant %q: %w", ErrBadDocument, c.Kind, c.Value, err)
	}
	switch c.Kind {
	case "float":
		f, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return bad(err)
		}
		return ast.FloatConst(f), nil
	case "int":
		i, err := strconv.ParseInt(c.Value, 10, 64)
		if err != nil {
			return bad(err)
		}
		return ast.IntConst(i), nil
	case "uint":
		u, err := strconv.ParseUint(trimSuffixU(c.Value), 10, 64)
		if err != nil {
			return bad(err)
		}
		return ast.UIntConst(u), nil
	case "bool":
		b, err := strconv.ParseBool(c.Value)
		if err != nil {
			return bad(err)
		}
		return ast.BoolConst(b), nil
	}
	return bad(errors.New("unknown constant kind"))
}

func trimSuffixU(s string) string {
	if n := len(s); n > 0 && (s[n-1] == 'u' || s[n-1] == 'U') {
		return s[:n-1]
	}
	return s
}
