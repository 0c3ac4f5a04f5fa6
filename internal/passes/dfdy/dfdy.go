// Package dfdy corrects screen-space derivatives for flipped and
// pre-rotated render targets.
//
// Without pre-rotation every dFdx(x) becomes dFdx(x) * flipX and every
// dFdy(x) becomes dFdy(x) * flipY. With pre-rotation the two axes are
// mixed:
//
//	dFdx(x) -> dFdx(x) * mX + dFdy(x) * mY
//
// where the weights depend on which derivative is corrected and on the
// surface rotation. fwidth is invariant under both and left alone.
package dfdy

import (
	"fmt"

	"prism/internal/ast"
	"prism/internal/compiler"
	"prism/internal/diag"
	"prism/internal/flip"
	"prism/internal/rewrite"
	"prism/internal/trace"
)

// MinVersion is the first shading language version the pass rewrites.
const MinVersion = 300

// Apply rewrites every derivative under root. Derivatives this pass
// produced are marked and skipped, so running it twice is harmless.
func Apply(c *compiler.Compiler, opts compiler.Options, root ast.NodeID, p flip.Provider) bool {
	if c.Version() < MinVersion {
		return true
	}
	r := &rewriter{
		tree:        c.Tree(),
		sink:        c.Diagnostics(),
		provider:    p,
		preRotation: opts.Has(compiler.OptPreRotation),
	}
	hooks := (&rewrite.Hooks{}).Pre(ast.KindUnary, r.visitUnary)
	return rewrite.RunWith(rewrite.New(r.tree, root, hooks), c, func() {
		trace.Point(c.Tracer(), trace.ScopeNode, "dfdy", fmt.Sprintf("corrected=%d", r.corrected), 0)
		if r.corrected > 0 {
			p.Finish(root)
		}
	})
}

type rewriter struct {
	tree        *ast.Tree
	sink        *diag.Sink
	provider    flip.Provider
	preRotation bool
	corrected   int
}

func (r *rewriter) visitUnary(t *rewrite.Traverser, id ast.NodeID) bool {
	n := r.tree.Node(id)
	if (n.Op != ast.OpDFdx && n.Op != ast.OpDFdy) || n.Has(ast.FlagViewportCorrected) {
		return true
	}
	if len(n.Kids) != 1 || !n.Kids[0].IsValid() {
		r.sink.Error(n.Span, diag.SemDerivativeOperand, n.Op.String(), "derivative has no operand")
		return false
	}
	repl := r.correct(t, id)
	r.tree.WithSpan(repl, r.tree.Node(id).Span)
	t.QueueReplacement(id, repl, rewrite.Dropped)
	r.corrected++
	return false
}

// derivative builds op(clone of operand) and corrects derivatives nested in
// the clone.
func (r *rewriter) derivative(t *rewrite.Traverser, op ast.Op, operand ast.NodeID) ast.NodeID {
	cp := r.tree.Clone(operand)
	d := r.tree.Unary(op, cp)
	r.tree.Node(d).Flags |= ast.FlagViewportCorrected
	t.TraverseSubtree(cp)
	return d
}

func (r *rewriter) correct(t *rewrite.Traverser, id ast.NodeID) ast.NodeID {
	n := r.tree.Node(id)
	op, operand := n.Op, n.Kids[0]
	isDFdy := op == ast.OpDFdy

	if !r.preRotation {
		axis := uint8(0)
		if isDFdy {
			axis = 1
		}
		d := r.derivative(t, op, operand)
		return r.tree.Binary(ast.OpMul, d, r.tree.Swizzle(r.provider.FlipXY(), axis))
	}

	dx := r.derivative(t, ast.OpDFdx, operand)
	dy := r.derivative(t, ast.OpDFdy, operand)
	return r.tree.Binary(ast.OpAdd,
		r.tree.Binary(ast.OpMul, dx, r.provider.Multiplier(isDFdy, 0)),
		r.tree.Binary(ast.OpMul, dy, r.provider.Multiplier(isDFdy, 1)))
}
