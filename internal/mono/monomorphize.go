// Package mono specializes functions whose parameters cannot cross a
// function boundary in the target language, such as pixel-local storage
// planes. Each distinct tuple of global arguments gets its own copy of the
// callee with the parameters replaced by the globals; the generic
// originals are removed afterwards.
package mono

import (
	"fmt"
	"slices"
	"strings"

	"prism/internal/ast"
	"prism/internal/compiler"
	"prism/internal/diag"
	"prism/internal/rewrite"
	"prism/internal/trace"
	"prism/internal/types"
)

// DefaultMaxDepth bounds how deep specializations may nest.
const DefaultMaxDepth = 64

type Options struct {
	// Unsupported selects the parameter types to specialize away.
	Unsupported func(*types.Type) bool
	MaxDepth    int
}

// PixelLocal is the Unsupported predicate of pixel-local storage lowering.
func PixelLocal(t *types.Type) bool {
	return t != nil && t.Basic.IsPixelLocal()
}

// Result describes a finished run.
type Result struct {
	Instances *InstantiationMap
	Removed   int
}

type monoBuilder struct {
	c       *compiler.Compiler
	tree    *ast.Tree
	root    ast.NodeID
	opts    Options
	insts   *InstantiationMap
	queue   []work
	done    map[ast.FuncID]bool
	generic map[ast.FuncID][]int
	ok      bool
}

type work struct {
	fn    ast.FuncID
	depth int
}

// Run specializes every call reachable from main that passes an
// unsupported argument. The result is false when a diagnostic was reported.
func Run(c *compiler.Compiler, root ast.NodeID, opts Options) (Result, bool) {
	if opts.Unsupported == nil {
		opts.Unsupported = PixelLocal
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	b := &monoBuilder{
		c:       c,
		tree:    c.Tree(),
		root:    root,
		opts:    opts,
		insts:   NewInstantiationMap(),
		done:    make(map[ast.FuncID]bool),
		generic: make(map[ast.FuncID][]int),
		ok:      true,
	}
	b.collectGeneric()
	if len(b.generic) == 0 {
		return Result{Instances: b.insts}, true
	}
	mainDef, _, found := b.tree.FindMain(root)
	if !found {
		return Result{Instances: b.insts}, true
	}
	b.queue = append(b.queue, work{fn: b.tree.Node(mainDef).Func})
	for len(b.queue) > 0 && b.ok {
		w := b.queue[0]
		b.queue = b.queue[1:]
		if b.done[w.fn] {
			continue
		}
		b.done[w.fn] = true
		if !b.process(w) {
			b.ok = false
		}
	}
	res := Result{Instances: b.insts}
	if b.ok {
		res.Removed = b.removeGeneric()
		b.ok = b.c.ValidateAST(root)
	}
	trace.Point(c.Tracer(), trace.ScopeNode, "mono",
		fmt.Sprintf("instances=%d removed=%d", b.insts.Len(), res.Removed), 0)
	return res, b.ok
}

// collectGeneric records the unsupported parameter positions of every
// function defined under root.
func (b *monoBuilder) collectGeneric() {
	for _, k := range b.tree.Node(b.root).Kids {
		n := b.tree.Node(k)
		if n.Kind != ast.KindFunction {
			continue
		}
		f := b.tree.Syms.Func(n.Func)
		for i, p := range f.Params {
			if b.opts.Unsupported(b.tree.Syms.Var(p).Type) {
				b.generic[n.Func] = append(b.generic[n.Func], i)
			}
		}
	}
}

func (b *monoBuilder) isGlobal(v ast.VarID) bool {
	variable := b.tree.Syms.Var(v)
	if variable == nil {
		return false
	}
	switch variable.Quals.Storage {
	case types.QualGlobal, types.QualUniform:
		return true
	}
	return false
}

// process rewrites the calls in one function definition.
func (b *monoBuilder) process(w work) bool {
	def := b.tree.FindFunctionDef(b.root, w.fn)
	if !def.IsValid() {
		return true
	}
	sink := b.c.Diagnostics()
	var created []*InstEntry
	failed := false

	hooks := (&rewrite.Hooks{}).Pre(ast.KindAggregate, func(t *rewrite.Traverser, id ast.NodeID) bool {
		n := b.tree.Node(id)
		if n.Op != ast.OpCallFunction {
			return true
		}
		if _, isGeneric := b.generic[n.Func]; !isGeneric {
			if !b.done[n.Func] {
				b.queue = append(b.queue, work{fn: n.Func, depth: w.depth})
			}
			return true
		}
		if w.depth+1 > b.opts.MaxDepth {
			sink.Error(n.Span, diag.SemMonoDepthExceeded, b.tree.Syms.FuncName(n.Func),
				fmt.Sprintf("specialization nested deeper than %d", b.opts.MaxDepth))
			failed = true
			return false
		}
		entry, fresh, ok := b.instantiate(id, w)
		if !ok {
			failed = true
			return false
		}
		if fresh {
			created = append(created, entry)
		}
		entry.UseSites = append(entry.UseSites, UseSite{Span: n.Span, Caller: w.fn})
		t.QueueReplacement(id, b.specializedCall(id, entry), rewrite.Dropped)
		return false
	})
	if !rewrite.TraverseAndCommit(rewrite.New(b.tree, def, hooks), b.c) || failed {
		return false
	}
	for _, e := range created {
		b.queue = append(b.queue, work{fn: e.Instance, depth: e.Depth})
	}
	return true
}

// instantiate finds or creates the specialization for the call at id.
func (b *monoBuilder) instantiate(call ast.NodeID, w work) (*InstEntry, bool, bool) {
	n := b.tree.Node(call)
	callee := n.Func
	positions := b.generic[callee]
	bound := make(map[int]ast.VarID, len(positions))
	args := make([]ast.VarID, 0, len(positions))
	for _, i := range positions {
		arg := b.tree.Node(n.Kids[i])
		if arg.Kind != ast.KindSymbol || !b.isGlobal(arg.Var) {
			b.c.Diagnostics().Error(arg.Span, diag.SemMonoNonGlobalArg, b.tree.Syms.FuncName(callee),
				fmt.Sprintf("argument %d must name a global variable", i+1))
			return nil, false, false
		}
		bound[i] = arg.Var
		args = append(args, arg.Var)
	}
	key := InstantiationKey{Func: callee, ArgsKey: argsKey(args)}
	if e := b.insts.Lookup(key); e != nil {
		return e, false, true
	}
	e := &InstEntry{Key: key, Bound: bound, Depth: w.depth + 1}
	e.Instance, e.Def = b.cloneFunction(callee, bound, args)
	b.insts.add(e)
	return e, true, true
}

// cloneFunction copies the definition of fn with the bound parameters
// replaced by globals and inserts the copy right before the original.
func (b *monoBuilder) cloneFunction(fn ast.FuncID, bound map[int]ast.VarID, args []ast.VarID) (ast.FuncID, ast.NodeID) {
	syms := b.tree.Syms
	orig := syms.Func(fn)
	subst := make(map[ast.VarID]ast.VarID, len(orig.Params))
	var params []ast.VarID
	for i, p := range orig.Params {
		if g, ok := bound[i]; ok {
			subst[p] = g
			continue
		}
		pv := syms.Var(p)
		np := syms.NewVariable(syms.VarName(p), pv.Type, pv.Quals)
		syms.Var(np).Origin = pv.Origin
		subst[p] = np
		params = append(params, np)
	}
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = syms.VarName(a)
	}
	name := syms.FuncName(fn) + "_" + strings.Join(names, "_")
	inst := syms.NewFunction(name, orig.Return, params...)
	syms.Func(inst).Origin = ast.OriginInternal
	syms.Func(inst).Span = orig.Span

	origDef := b.tree.FindFunctionDef(b.root, fn)
	body := b.tree.CloneWith(b.tree.Kid(origDef, 0), subst)
	def := b.tree.WithSpan(b.tree.FunctionDef(inst, body), b.tree.Node(origDef).Span)
	b.tree.InsertKids(b.root, b.tree.SlotOf(b.root, origDef), def)
	return inst, def
}

// specializedCall builds the call to entry with the bound arguments dropped.
func (b *monoBuilder) specializedCall(call ast.NodeID, entry *InstEntry) ast.NodeID {
	n := b.tree.Node(call)
	kids := slices.Clone(n.Kids)
	span := n.Span
	var args []ast.NodeID
	for i, k := range kids {
		if _, ok := entry.Bound[i]; ok {
			continue
		}
		args = append(args, b.tree.Clone(k))
	}
	return b.tree.WithSpan(b.tree.Call(entry.Instance, args...), span)
}
