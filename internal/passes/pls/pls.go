// Package pls lowers pixel-local storage planes to image load/store.
//
// Every plane declaration
//
//	layout(binding=N, fmt) uniform pixelLocal p;
//
// becomes a readonly and a writeonly image aliasing the same binding, and a
// global coordinate initialized at the top of main addresses the texel of
// the current fragment. Loads read from the readonly alias; stores go
// through the writeonly one, bracketed by memory barriers.
package pls

import (
	"fmt"

	"prism/internal/ast"
	"prism/internal/compiler"
	"prism/internal/diag"
	"prism/internal/flip"
	"prism/internal/mono"
	"prism/internal/qualifier"
	"prism/internal/rewrite"
	"prism/internal/trace"
	"prism/internal/types"
)

// MinVersion is the first shading language version with image load/store.
const MinVersion = 310

// Images is the pair of aliases standing in for one plane.
type Images struct {
	Plane ast.VarID
	Load  ast.VarID
	Store ast.VarID
}

// Result is what a run produced, keyed by binding.
type Result struct {
	Planes map[int]Images
	Coord  ast.VarID
	Loads  int
	Stores int
	Mono   mono.Result
}

// Apply specializes functions taking planes and then rewrites the planes
// under root. It returns false when a diagnostic was reported.
//
// With OptPreRotation the pixel coordinate is rotated back through
// p.FragRotation, so planes are addressed in the orientation the shader
// was written for. p may be nil otherwise.
func Apply(c *compiler.Compiler, opts compiler.Options, root ast.NodeID, p flip.Provider) bool {
	_, ok := Run(c, opts, root, p)
	return ok
}

// Run is Apply returning the side table for callers that need it.
func Run(c *compiler.Compiler, opts compiler.Options, root ast.NodeID, p flip.Provider) (Result, bool) {
	res := Result{Planes: make(map[int]Images)}
	if c.Version() < MinVersion {
		if usesPixelLocal(c.Tree(), root) {
			c.Diagnostics().Error(c.Tree().Node(root).Span, diag.SemPLSVersion, fmt.Sprintf("%d", c.Version()),
				fmt.Sprintf("pixel local storage needs version %d or later", MinVersion))
			return res, false
		}
		return res, true
	}

	mres, ok := mono.Run(c, root, mono.Options{Unsupported: mono.PixelLocal})
	res.Mono = mres
	if !ok {
		return res, false
	}

	r := &rewriter{
		tree: c.Tree(),
		sink: c.Diagnostics(),
		res:  &res,
		ok:   true,
	}
	if opts.Has(compiler.OptPreRotation) {
		r.rotation = p
	}
	hooks := (&rewrite.Hooks{}).
		Pre(ast.KindDeclaration, r.visitDeclaration).
		Pre(ast.KindAggregate, r.visitAggregate)
	t := rewrite.New(r.tree, root, hooks)
	if !rewrite.RunWith(t, c, func() { r.finish(c, root) }) || !r.ok {
		return res, false
	}
	return res, true
}

type rewriter struct {
	tree *ast.Tree
	sink *diag.Sink
	res  *Result
	ok   bool

	rotation flip.Provider
}

func (r *rewriter) fail(id ast.NodeID, code diag.Code, token, format string, args ...any) {
	r.sink.Error(r.tree.Node(id).Span, code, token, fmt.Sprintf(format, args...))
	r.ok = false
}

func (r *rewriter) visitDeclaration(t *rewrite.Traverser, id ast.NodeID) bool {
	plane := r.tree.DeclaredVar(id)
	if !plane.IsValid() {
		return true
	}
	pv := r.tree.Syms.Var(plane)
	if !pv.Type.Basic.IsPixelLocal() {
		return true
	}
	name := r.tree.Syms.VarName(plane)
	if pv.Quals.Storage != types.QualUniform {
		r.fail(id, diag.SemPLSMissingBinding, name, "pixel local plane %s must be a uniform", name)
		return false
	}
	binding := pv.Quals.Layout.Binding
	if binding < 0 {
		r.fail(id, diag.SemPLSMissingBinding, name, "pixel local plane %s has no binding", name)
		return false
	}
	if prev, dup := r.res.Planes[binding]; dup {
		r.fail(id, diag.SemPLSDuplicateBind, name, "binding %d already used by %s", binding, r.tree.Syms.VarName(prev.Plane))
		return false
	}

	var before []ast.NodeID
	if !r.res.Coord.IsValid() {
		coordType := r.tree.Types.Intern(types.BasicInt, types.PrecisionHigh, types.QualGlobal, 2, 1)
		r.res.Coord = r.tree.Syms.NewTemp(coordType)
		q := qualifier.Default(types.QualGlobal, pv.Span)
		q.Precision = types.PrecisionHigh
		r.tree.Syms.Var(r.res.Coord).Quals = q
		before = append(before, r.tree.Declare(r.res.Coord, ast.NoNodeID))
	}

	imgs := Images{
		Plane: plane,
		Load:  r.image(plane, ast.MemReadOnly, "_R"),
		Store: r.image(plane, ast.MemWriteOnly, "_W"),
	}
	r.res.Planes[binding] = imgs
	before = append(before, r.tree.Declare(imgs.Load, ast.NoNodeID))
	t.InsertStatementsInParentBlock(before, nil)

	repl := r.tree.WithSpan(r.tree.Declare(imgs.Store, ast.NoNodeID), r.tree.Node(id).Span)
	t.QueueReplacement(id, repl, rewrite.Dropped)
	return false
}

// image creates _pls<name><suffix>, an image of the plane's texel kind
// sharing its binding and format.
func (r *rewriter) image(plane ast.VarID, access ast.MemoryQualifier, suffix string) ast.VarID {
	pv := r.tree.Syms.Var(plane)
	kind, _, _ := types.PixelLocalImage(pv.Type.Basic)
	typ := r.tree.Types.Intern(kind, pv.Type.Precision, types.QualUniform, 1, 1)
	name := "_pls" + r.tree.Syms.VarName(plane) + suffix
	v := r.tree.Syms.NewInternal(name, typ, pv.Quals)
	r.tree.Syms.Var(v).Memory = ast.MemCoherent | ast.MemVolatile | access
	return v
}

func (r *rewriter) visitAggregate(t *rewrite.Traverser, id ast.NodeID) bool {
	n := r.tree.Node(id)
	if n.Op != ast.OpPixelLocalLoad && n.Op != ast.OpPixelLocalStore {
		return true
	}
	imgs, ok := r.lookup(id, n)
	if !ok {
		return false
	}
	span := n.Span

	if n.Op == ast.OpPixelLocalLoad {
		load := r.tree.ImageLoad(r.tree.Symbol(imgs.Load), r.tree.Symbol(r.res.Coord))
		t.QueueReplacement(id, r.tree.WithSpan(load, span), rewrite.Dropped)
		r.res.Loads++
		return false
	}

	if len(n.Kids) < 2 || !n.Kids[1].IsValid() {
		r.fail(id, diag.SemPLSUnknownBinding, n.Op.String(), "store without a value")
		return false
	}
	pv := r.tree.Syms.Var(imgs.Plane)
	_, texel, _ := types.PixelLocalImage(pv.Type.Basic)
	value := r.tree.Syms.NewTemp(r.tree.Types.Vec(texel, pv.Type.Precision, 4))
	r.tree.Syms.Var(value).Quals.Precision = pv.Type.Precision
	decl := r.tree.Declare(value, r.tree.Clone(n.Kids[1]))
	// Loads inside the stored value must run before the first barrier.
	t.TraverseSubtree(decl)
	t.InsertStatementsInParentBlock(
		[]ast.NodeID{decl, r.tree.MemoryBarrier()},
		[]ast.NodeID{r.tree.MemoryBarrier()},
	)

	store := r.tree.ImageStore(r.tree.Symbol(imgs.Store), r.tree.Symbol(r.res.Coord), r.tree.Symbol(value))
	t.QueueReplacement(id, r.tree.WithSpan(store, span), rewrite.Dropped)
	r.res.Stores++
	return false
}

// lookup finds the images of the plane named by the first argument.
func (r *rewriter) lookup(id ast.NodeID, n *ast.Node) (Images, bool) {
	if len(n.Kids) == 0 || !n.Kids[0].IsValid() {
		r.fail(id, diag.SemPLSUnknownBinding, n.Op.String(), "%s without a plane", n.Op)
		return Images{}, false
	}
	arg := r.tree.Node(n.Kids[0])
	if arg.Kind != ast.KindSymbol {
		r.fail(id, diag.SemPLSUnknownBinding, n.Op.String(), "%s argument is not a pixel local plane", n.Op)
		return Images{}, false
	}
	name := r.tree.Syms.VarName(arg.Var)
	imgs, ok := r.res.Planes[r.tree.Syms.Var(arg.Var).Quals.Layout.Binding]
	if !ok || imgs.Plane != arg.Var {
		r.fail(id, diag.SemPLSUnknownBinding, name, "pixel local plane %s is not declared", name)
		return Images{}, false
	}
	return imgs, true
}

// finish initializes the coordinate at the start of main.
func (r *rewriter) finish(c *compiler.Compiler, root ast.NodeID) {
	trace.Point(c.Tracer(), trace.ScopeNode, "pls",
		fmt.Sprintf("planes=%d loads=%d stores=%d", len(r.res.Planes), r.res.Loads, r.res.Stores), 0)
	if !r.res.Coord.IsValid() {
		return
	}
	frag, _ := r.tree.Syms.BuiltIn("gl_FragCoord", r.tree.Types)
	xy := r.tree.Swizzle(r.tree.Symbol(frag), 0, 1)
	if r.rotation != nil {
		xy = r.tree.Binary(ast.OpMul, r.rotation.FragRotation(), xy)
	}
	ivec2 := r.tree.Types.Vec(types.BasicInt, types.PrecisionHigh, 2)
	init := r.tree.Assign(r.tree.Symbol(r.res.Coord), r.tree.Construct(ivec2, r.tree.Unary(ast.OpFloor, xy)))
	if !r.tree.RunAtBeginningOfMain(root, init) {
		r.fail(root, diag.SemPLSMissingEntry, "main", "no main function to initialize the pixel coordinate in")
		return
	}
	if r.rotation != nil {
		r.rotation.Finish(root)
	}
}

func usesPixelLocal(t *ast.Tree, root ast.NodeID) bool {
	found := false
	t.Walk(root, func(id ast.NodeID, _ int) bool {
		n := t.Node(id)
		if n.Type != nil && n.Type.Basic.IsPixelLocal() {
			found = true
		}
		return !found
	})
	return found
}
