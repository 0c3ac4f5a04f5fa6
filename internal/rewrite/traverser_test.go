package rewrite

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism/internal/ast"
	"prism/internal/diag"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/trace"
	"prism/internal/types"
	"prism/internal/validate"
)

type testHandle struct {
	tree  *ast.Tree
	sink  *diag.Sink
	valid bool
}

func (h *testHandle) Tree() *ast.Tree             { return h.tree }
func (h *testHandle) Diagnostics() *diag.Sink     { return h.sink }
func (h *testHandle) Tracer() trace.Tracer        { return trace.Nop }
func (h *testHandle) ValidateAST(ast.NodeID) bool { return h.valid }

// fixture: { a = 1.0; b = 2.0; }
type fixture struct {
	tree   *ast.Tree
	root   ast.NodeID
	a, b   ast.VarID
	s1, s2 ast.NodeID
	h      *testHandle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr := ast.NewTree(types.NewInterner(), nil)
	f32 := tr.Types.Scalar(types.BasicFloat, types.PrecisionHigh)
	quals := qualifier.Default(types.QualGlobal, source.NoSpan)
	f := &fixture{tree: tr}
	f.a = tr.Syms.NewVariable("a", tr.Types.WithQualifier(f32, types.QualGlobal), quals)
	f.b = tr.Syms.NewVariable("b", tr.Types.WithQualifier(f32, types.QualGlobal), quals)
	f.s1 = tr.Assign(tr.Symbol(f.a), tr.Float(1, types.PrecisionHigh))
	f.s2 = tr.Assign(tr.Symbol(f.b), tr.Float(2, types.PrecisionHigh))
	f.root = tr.Block(f.s1, f.s2)
	f.h = &testHandle{tree: tr, sink: diag.NewSink(nil, 0), valid: true}
	return f
}

func (f *fixture) constValue(id ast.NodeID) float64 {
	return f.tree.Node(f.tree.Kid(id, 1)).Consts[0].Float()
}

// linkProblems runs tree validation and keeps the structural findings. The
// fixture uses globals without declarations, so scope findings are dropped.
func linkProblems(tr *ast.Tree, root ast.NodeID) []string {
	err := validate.Tree(tr, root)
	if err == nil {
		return nil
	}
	var out []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var p *validate.Problem
		if errors.As(e, &p) && p.Code != diag.AstUndeclaredVar {
			out = append(out, p.Error())
		}
	}
	return out
}

func requireContractPanic(t *testing.T, fn func()) *ContractError {
	t.Helper()
	var got *ContractError
	func() {
		defer func() {
			r := recover()
			ce, ok := r.(*ContractError)
			require.True(t, ok, "panic value %v is not a *ContractError", r)
			got = ce
		}()
		fn()
	}()
	return got
}

func TestReplacementDeferredUntilCommit(t *testing.T) {
	f := newFixture(t)
	var repl ast.NodeID
	hooks := (&Hooks{}).Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		if f.tree.Node(id).Consts[0].Float() != 1 {
			return false
		}
		repl = f.tree.Float(10, types.PrecisionHigh)
		tv.QueueReplacement(id, repl, Dropped)
		assert.Equal(t, f.s1, tv.Parent())
		return false
	})
	tv := New(f.tree, f.root, hooks)
	tv.Traverse()
	assert.Equal(t, 1.0, f.constValue(f.s1), "tree changed before commit")
	assert.Equal(t, 1, tv.Pending())

	old := f.tree.Kid(f.s1, 1)
	stats, err := tv.Commit(f.h)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Replaced)
	assert.Equal(t, 1, stats.Released)
	assert.Equal(t, 10.0, f.constValue(f.s1))
	assert.Equal(t, f.s1, f.tree.Node(repl).Parent)
	assert.True(t, f.tree.Node(old).Has(ast.FlagReleased))
	assert.Equal(t, StateDone, tv.State())
}

func TestKeptSubtreeIsHandedBack(t *testing.T) {
	f := newFixture(t)
	hooks := (&Hooks{}).Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		if id == f.s2 {
			tv.QueueReplacement(id, f.tree.MemoryBarrier(), Kept)
		}
		return false
	})
	tv := New(f.tree, f.root, hooks)
	require.True(t, Run(tv, f.h))

	assert.True(t, tv.Detached(f.s2))
	assert.False(t, tv.Detached(f.s1))
	n := f.tree.Node(f.s2)
	assert.False(t, n.Parent.IsValid())
	assert.True(t, n.Has(ast.FlagDetached))
	assert.False(t, n.Has(ast.FlagReleased))

	f.tree.Reattach(f.s2)
	assert.False(t, f.tree.Node(f.s2).Has(ast.FlagDetached))
}

func TestDoubleQueuePanics(t *testing.T) {
	f := newFixture(t)
	hooks := (&Hooks{}).Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		tv.QueueReplacement(id, f.tree.MemoryBarrier(), Dropped)
		tv.QueueRemoval(id)
		return false
	})
	ce := requireContractPanic(t, New(f.tree, f.root, hooks).Traverse)
	assert.Equal(t, "QueueRemoval", ce.Op)
	assert.Equal(t, f.s1, ce.Node)
}

func TestRemovalOutsideBlockPanics(t *testing.T) {
	f := newFixture(t)
	hooks := (&Hooks{}).Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		tv.QueueRemoval(id)
		return false
	})
	requireContractPanic(t, New(f.tree, f.root, hooks).Traverse)
}

func TestQueueOutsideTraversalPanics(t *testing.T) {
	f := newFixture(t)
	tv := New(f.tree, f.root, nil)
	requireContractPanic(t, func() { tv.QueueRemoval(f.s1) })
}

func TestShadowedEditsAreSkipped(t *testing.T) {
	f := newFixture(t)
	hooks := &Hooks{}
	hooks.Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		if id == f.s1 {
			tv.QueueRemoval(id)
		}
		return true
	})
	hooks.Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		tv.QueueReplacement(id, f.tree.Float(-1, types.PrecisionHigh), Dropped)
		return false
	})
	tv := New(f.tree, f.root, hooks)
	tv.Traverse()
	stats, err := tv.Commit(f.h)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Shadowed)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, stats.Replaced)
	require.Equal(t, []ast.NodeID{f.s2}, f.tree.Node(f.root).Kids)
	assert.Equal(t, -1.0, f.constValue(f.s2))
}

func TestStaleEditAbortsCommit(t *testing.T) {
	f := newFixture(t)
	hooks := &Hooks{}
	hooks.Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		tv.QueueReplacement(id, f.tree.Float(7, types.PrecisionHigh), Dropped)
		return false
	})
	tv := New(f.tree, f.root, hooks)
	tv.Traverse()

	// Swap the statements behind the traverser's back.
	f.tree.SetKid(f.s2, 1, f.tree.Float(3, types.PrecisionHigh))

	_, err := tv.Commit(f.h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStaleEdit))
	assert.Equal(t, 1.0, f.constValue(f.s1), "no edit may land after a failed preflight")
	assert.Equal(t, 3.0, f.constValue(f.s2))
}

func TestRunReportsStaleEdit(t *testing.T) {
	f := newFixture(t)
	hooks := (&Hooks{}).Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		if id == f.s1 {
			tv.QueueRemoval(id)
			f.tree.SetKids(f.root, []ast.NodeID{f.s2})
		}
		return false
	})
	require.False(t, Run(New(f.tree, f.root, hooks), f.h))
	assert.Equal(t, 1, f.h.sink.ErrorCount())
	assert.Equal(t, diag.PasStaleEdit, f.h.sink.Bag().Items()[0].Code)
}

func TestInsertStatements(t *testing.T) {
	f := newFixture(t)
	var before, after, tail ast.NodeID
	hooks := (&Hooks{}).Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		if tv.Parent() != f.s2 {
			return false
		}
		block, pos := tv.ParentBlock()
		assert.Equal(t, f.root, block)
		assert.Equal(t, 1, pos)
		before, after = f.tree.MemoryBarrier(), f.tree.MemoryBarrier()
		tv.InsertStatementsInParentBlock([]ast.NodeID{before}, []ast.NodeID{after})
		tail = f.tree.MemoryBarrier()
		tv.InsertStatementsInBlock(f.root, 2, []ast.NodeID{tail}, nil)
		return false
	})
	tv := New(f.tree, f.root, hooks)
	tv.Traverse()
	stats, err := tv.Commit(f.h)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Inserted)
	assert.Equal(t, []ast.NodeID{f.s1, before, f.s2, after, tail}, f.tree.Node(f.root).Kids)
	for _, id := range []ast.NodeID{before, after, tail} {
		assert.Equal(t, f.root, f.tree.Node(id).Parent)
	}
}

func TestPostVisitSkippedWhenNotDescending(t *testing.T) {
	f := newFixture(t)
	var posts int
	hooks := &Hooks{}
	hooks.Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool { return id == f.s2 })
	hooks.Post(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		posts++
		assert.Equal(t, f.s2, id)
		assert.Equal(t, 1, tv.Depth())
		return true
	})
	New(f.tree, f.root, hooks).Traverse()
	assert.Equal(t, 1, posts)
}

func TestTraverseSubtreeSeesFreshNodes(t *testing.T) {
	f := newFixture(t)
	var seen []float64
	hooks := &Hooks{}
	hooks.Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		if id != f.s1 {
			return false
		}
		fresh := f.tree.Assign(f.tree.Symbol(f.b), f.tree.Float(5, types.PrecisionHigh))
		tv.TraverseSubtree(f.tree.Kid(fresh, 1))
		tv.InsertStatementsInParentBlock(nil, []ast.NodeID{fresh})
		return false
	})
	hooks.Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		seen = append(seen, f.tree.Node(id).Consts[0].Float())
		assert.Equal(t, ast.NoNodeID, tv.Parent(), "enclosing path must be hidden")
		return false
	})
	require.True(t, Run(New(f.tree, f.root, hooks), f.h))
	assert.Equal(t, []float64{5}, seen)
	assert.Len(t, f.tree.Node(f.root).Kids, 3)
}

func TestWrappedTargetIsMoved(t *testing.T) {
	queues := map[string]func(tv *Traverser, parent, target, repl ast.NodeID){
		"path parent": func(tv *Traverser, _, target, repl ast.NodeID) {
			tv.QueueReplacement(target, repl, Kept)
		},
		"explicit parent": func(tv *Traverser, parent, target, repl ast.NodeID) {
			tv.QueueReplacementWithParent(parent, target, repl, Dropped)
		},
	}
	for name, queue := range queues {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			one := f.tree.Kid(f.s1, 1)
			var neg ast.NodeID
			hooks := (&Hooks{}).Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
				if id == one {
					neg = f.tree.Unary(ast.OpNegative, id)
					queue(tv, f.s1, id, neg)
				}
				return false
			})
			tv := New(f.tree, f.root, hooks)
			tv.Traverse()
			stats, err := tv.Commit(f.h)
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Replaced)
			assert.Zero(t, stats.Released)

			assert.Equal(t, []ast.NodeID{f.tree.Kid(f.s1, 0), neg}, f.tree.Node(f.s1).Kids)
			assert.Equal(t, f.s1, f.tree.Node(neg).Parent)
			assert.Equal(t, []ast.NodeID{one}, f.tree.Node(neg).Kids)
			assert.Equal(t, neg, f.tree.Node(one).Parent)
			assert.False(t, f.tree.Node(one).Has(ast.FlagDetached|ast.FlagReleased))
			assert.False(t, tv.Detached(one), "a moved target is not handed back")
			assert.Empty(t, linkProblems(f.tree, f.root))
		})
	}
}

func TestWrappedAncestorKeepsDescendantEdits(t *testing.T) {
	f := newFixture(t)
	var wrapper, minus ast.NodeID
	hooks := &Hooks{}
	hooks.Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		if id != f.s1 {
			return false
		}
		wrapper = f.tree.Block(id)
		tv.QueueReplacement(id, wrapper, Kept)
		return true
	})
	hooks.Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		minus = f.tree.Float(-1, types.PrecisionHigh)
		tv.QueueReplacement(id, minus, Dropped)
		return false
	})
	tv := New(f.tree, f.root, hooks)
	tv.Traverse()
	stats, err := tv.Commit(f.h)
	require.NoError(t, err)
	assert.Zero(t, stats.Shadowed)
	assert.Equal(t, 2, stats.Replaced)
	assert.Equal(t, []ast.NodeID{wrapper, f.s2}, f.tree.Node(f.root).Kids)
	assert.Equal(t, wrapper, f.tree.Node(f.s1).Parent)
	assert.Equal(t, minus, f.tree.Kid(f.s1, 1))
	assert.Equal(t, -1.0, f.constValue(f.s1))
	assert.Empty(t, linkProblems(f.tree, f.root))
}

func TestReplacementHoldingItsParentIsStale(t *testing.T) {
	f := newFixture(t)
	one := f.tree.Kid(f.s1, 1)
	hooks := (&Hooks{}).Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		if id == one {
			tv.QueueReplacement(id, f.tree.Block(f.s1), Dropped)
		}
		return false
	})
	tv := New(f.tree, f.root, hooks)
	tv.Traverse()
	_, err := tv.Commit(f.h)
	require.ErrorIs(t, err, ErrStaleEdit)
	assert.Contains(t, err.Error(), "its own ancestor")
	assert.Equal(t, one, f.tree.Kid(f.s1, 1))
	assert.False(t, f.tree.Node(one).Has(ast.FlagDetached))
}

func TestTargetReusedTwiceIsStale(t *testing.T) {
	f := newFixture(t)
	hooks := (&Hooks{}).Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		if id == f.s1 {
			tv.QueueReplacement(id, f.tree.Block(id), Kept)
			tv.InsertStatementsInBlock(f.root, 2, nil, []ast.NodeID{id})
		}
		return false
	})
	tv := New(f.tree, f.root, hooks)
	tv.Traverse()
	_, err := tv.Commit(f.h)
	require.ErrorIs(t, err, ErrStaleEdit)
	assert.Contains(t, err.Error(), "reused twice")
	assert.Equal(t, []ast.NodeID{f.s1, f.s2}, f.tree.Node(f.root).Kids)
}

func TestNestedReplacementsLeaveSiblingAlone(t *testing.T) {
	f := newFixture(t)
	sibling := slices.Clone(f.tree.Node(f.s2).Kids)
	oldConst := f.tree.Kid(f.s1, 1)
	var outer ast.NodeID
	hooks := &Hooks{}
	hooks.Pre(ast.KindBinary, func(tv *Traverser, id ast.NodeID) bool {
		if id != f.s1 {
			return false
		}
		outer = f.tree.Assign(f.tree.Symbol(f.a), f.tree.Float(9, types.PrecisionHigh))
		tv.QueueReplacement(id, outer, Dropped)
		return true
	})
	hooks.Pre(ast.KindConstant, func(tv *Traverser, id ast.NodeID) bool {
		tv.QueueReplacement(id, f.tree.Float(-1, types.PrecisionHigh), Dropped)
		return false
	})
	tv := New(f.tree, f.root, hooks)
	tv.Traverse()
	stats, err := tv.Commit(f.h)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Replaced)
	assert.Equal(t, 1, stats.Shadowed)

	assert.Equal(t, []ast.NodeID{outer, f.s2}, f.tree.Node(f.root).Kids)
	assert.Equal(t, 9.0, f.constValue(outer))
	assert.True(t, f.tree.Node(oldConst).Has(ast.FlagReleased))
	assert.Equal(t, sibling, f.tree.Node(f.s2).Kids)
	assert.Equal(t, 2.0, f.constValue(f.s2))
	assert.Equal(t, f.root, f.tree.Node(f.s2).Parent)
	assert.Empty(t, linkProblems(f.tree, f.root))
}
