package mono

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism/internal/ast"
	"prism/internal/diag"
	"prism/internal/qualifier"
	"prism/internal/testkit"
	"prism/internal/types"
)

func store(s *testkit.Shader, plane ast.NodeID, x float64) ast.NodeID {
	tr := s.Tree
	return tr.Aggregate(ast.OpPixelLocalStore, tr.Types.Void(), plane, tr.Construct(s.Vec4(), tr.Float(x, types.PrecisionHigh)))
}

func callsTo(tr *ast.Tree, root ast.NodeID) map[string]int {
	out := map[string]int{}
	tr.Walk(root, func(id ast.NodeID, _ int) bool {
		if n := tr.Node(id); n.Kind == ast.KindAggregate && n.Op == ast.OpCallFunction {
			out[tr.Syms.FuncName(n.Func)]++
		}
		return true
	})
	return out
}

func TestSpecializesPerGlobal(t *testing.T) {
	s := testkit.NewFragment(t, 310, 0)
	tr := s.Tree
	pls0 := s.PixelLocal("pls0", types.BasicPixelLocal, 0, qualifier.FormatRGBA8)
	pls1 := s.PixelLocal("pls1", types.BasicPixelLocal, 1, qualifier.FormatRGBA8)
	plType := tr.Types.Scalar(types.BasicPixelLocal, types.PrecisionHigh)

	p := s.Param("p", plType)
	x := s.Param("x", s.Float())
	helper := s.Func("helper", tr.Types.Void(), []ast.VarID{p, x},
		tr.Aggregate(ast.OpPixelLocalStore, tr.Types.Void(), tr.Symbol(p), tr.Construct(s.Vec4(), tr.Symbol(x))))

	q := s.Param("q", plType)
	outer := s.Func("outer", tr.Types.Void(), []ast.VarID{q},
		tr.Call(helper, tr.Symbol(q), tr.Float(9, types.PrecisionHigh)))

	s.Main(
		tr.Call(helper, tr.Symbol(pls0), tr.Float(1, types.PrecisionHigh)),
		tr.Call(helper, tr.Symbol(pls0), tr.Float(2, types.PrecisionHigh)),
		tr.Call(helper, tr.Symbol(pls1), tr.Float(3, types.PrecisionHigh)),
		tr.Call(outer, tr.Symbol(pls1)),
		store(s, tr.Symbol(pls0), 4),
	)
	root := s.Finish()

	res, ok := Run(s.C, root, Options{})
	require.True(t, ok, s.C.Diagnostics().Messages())
	assert.Equal(t, 3, res.Instances.Len(), "helper×2 and outer×1")
	assert.Equal(t, 2, res.Removed)

	calls := callsTo(tr, root)
	assert.Equal(t, 2, calls["helper_pls0"])
	assert.Equal(t, 2, calls["helper_pls1"], "one from main, one from outer_pls1")
	assert.Equal(t, 1, calls["outer_pls1"])
	assert.Zero(t, calls["helper"])
	assert.Zero(t, calls["outer"])

	for _, e := range res.Instances.Entries() {
		f := tr.Syms.Func(e.Instance)
		for _, param := range f.Params {
			assert.False(t, PixelLocal(tr.Syms.Var(param).Type), "instance %s keeps an opaque parameter", tr.Syms.FuncName(e.Instance))
		}
	}
	helperPls0 := res.Instances.Entries()[0]
	assert.Len(t, helperPls0.UseSites, 2)
	assert.Equal(t, 1, helperPls0.Depth)
}

func TestNonGlobalArgument(t *testing.T) {
	s := testkit.NewFragment(t, 310, 0)
	tr := s.Tree
	plType := tr.Types.Scalar(types.BasicPixelLocal, types.PrecisionHigh)
	p := s.Param("p", plType)
	helper := s.Func("helper", tr.Types.Void(), []ast.VarID{p})
	local := s.Variable("l", plType, types.QualTemporary)
	s.Main(tr.Declare(local, ast.NoNodeID), tr.Call(helper, tr.Symbol(local)))
	root := s.Finish()

	_, ok := Run(s.C, root, Options{})
	require.False(t, ok)
	sink := s.C.Diagnostics()
	require.Equal(t, 1, sink.ErrorCount())
	assert.Equal(t, diag.SemMonoNonGlobalArg, sink.Bag().Items()[0].Code)
}

func TestDepthLimit(t *testing.T) {
	s := testkit.NewFragment(t, 310, 0)
	tr := s.Tree
	pls := s.PixelLocal("pls", types.BasicPixelLocal, 0, qualifier.FormatRGBA8)
	plType := tr.Types.Scalar(types.BasicPixelLocal, types.PrecisionHigh)
	p := s.Param("p", plType)
	leaf := s.Func("leaf", tr.Types.Void(), []ast.VarID{p})
	q := s.Param("q", plType)
	mid := s.Func("mid", tr.Types.Void(), []ast.VarID{q}, tr.Call(leaf, tr.Symbol(q)))
	s.Main(tr.Call(mid, tr.Symbol(pls)))
	root := s.Finish()

	_, ok := Run(s.C, root, Options{MaxDepth: 1})
	require.False(t, ok)
	assert.Equal(t, diag.SemMonoDepthExceeded, s.C.Diagnostics().Bag().Items()[0].Code)
}

func TestNothingToDo(t *testing.T) {
	s := testkit.NewFragment(t, 300, 0)
	s.Main()
	root := s.Finish()
	res, ok := Run(s.C, root, Options{})
	require.True(t, ok)
	assert.Zero(t, res.Instances.Len())
}
