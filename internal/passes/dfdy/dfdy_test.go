package dfdy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism/internal/ast"
	"prism/internal/compiler"
	"prism/internal/flip"
	"prism/internal/interp"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/types"
)

// shader builds
//
//	highp float p;
//	void main() { float a = dFdx(p); float b = dFdy(p); float w = fwidth(p); }
type shader struct {
	c       *compiler.Compiler
	root    ast.NodeID
	p       ast.VarID
	a, b, w ast.NodeID
}

func newShader(t *testing.T, version int, opts compiler.Options) *shader {
	t.Helper()
	c := compiler.New(compiler.Config{Stage: compiler.StageFragment, Version: version, Options: opts | compiler.OptValidateAST})
	tr := c.Tree()
	f := tr.Types.Scalar(types.BasicFloat, types.PrecisionHigh)
	global := func(name string) ast.VarID {
		return tr.Syms.NewVariable(name, tr.Types.WithQualifier(f, types.QualGlobal), qualifier.Default(types.QualGlobal, source.NoSpan))
	}
	local := func(name string) ast.VarID {
		return tr.Syms.NewVariable(name, tr.Types.WithQualifier(f, types.QualTemporary), qualifier.Default(types.QualTemporary, source.NoSpan))
	}
	s := &shader{c: c, p: global("p")}
	s.a = tr.Declare(local("a"), tr.Unary(ast.OpDFdx, tr.Symbol(s.p)))
	s.b = tr.Declare(local("b"), tr.Unary(ast.OpDFdy, tr.Symbol(s.p)))
	s.w = tr.Declare(local("w"), tr.Unary(ast.OpFwidth, tr.Symbol(s.p)))
	main := tr.Syms.NewFunction("main", tr.Types.Void())
	s.root = tr.Block(tr.Declare(s.p, ast.NoNodeID), tr.FunctionDef(main, tr.Block(s.a, s.b, s.w)))
	c.SetRoot(s.root)
	return s
}

func (s *shader) init(decl ast.NodeID) ast.NodeID {
	tr := s.c.Tree()
	return tr.Kid(tr.Kid(decl, 0), 1)
}

func (s *shader) varByName(t *testing.T, name string) ast.VarID {
	t.Helper()
	syms := s.c.Tree().Syms
	for i := 1; i <= syms.NumVars(); i++ {
		if syms.VarName(ast.VarID(i)) == name {
			return ast.VarID(i)
		}
	}
	t.Fatalf("no variable %q", name)
	return ast.NoVarID
}

func (s *shader) eval(t *testing.T, decl ast.NodeID, vars map[ast.VarID]interp.Value) float64 {
	t.Helper()
	vars[s.p] = interp.Scalar(0.25)
	got, err := interp.Eval(s.c.Tree(), s.init(decl), &interp.Env{Vars: vars, Derivative: interp.ConstantDerivatives(3, 5)})
	require.NoError(t, err)
	return got.Float()
}

// With dFdx = 3 and dFdy = 5 on screen.
var rotationCases = []struct {
	r          flip.Rotation
	dfdx, dfdy float64
}{
	{flip.Identity, 3, 5},
	{flip.Rotated90, 5, 3},
	{flip.Rotated180, -3, 5},
	{flip.Rotated270, -5, -3},
}

func TestPreRotationWithSpecConst(t *testing.T) {
	for _, tc := range rotationCases {
		t.Run(tc.r.String(), func(t *testing.T) {
			s := newShader(t, 300, compiler.OptPreRotation)
			p := flip.NewSpecConst(s.c.Tree())
			require.True(t, Apply(s.c, s.c.Options(), s.root, p), s.c.Diagnostics().Messages())

			tr := s.c.Tree()
			assert.Zero(t, tr.CountOps(s.root, ast.OpDFdx, ast.FlagViewportCorrected))
			assert.Zero(t, tr.CountOps(s.root, ast.OpDFdy, ast.FlagViewportCorrected))
			assert.Equal(t, 1, tr.CountOps(s.root, ast.OpFwidth, 0))
			assert.True(t, p.Referenced())

			vars := map[ast.VarID]interp.Value{p.Var(): interp.Scalar(float64(tc.r))}
			assert.Equal(t, tc.dfdx, s.eval(t, s.a, vars))
			assert.Equal(t, tc.dfdy, s.eval(t, s.b, vars))
		})
	}
}

func TestPreRotationWithDriverUniforms(t *testing.T) {
	for _, tc := range rotationCases {
		t.Run(tc.r.String(), func(t *testing.T) {
			s := newShader(t, 310, compiler.OptPreRotation|compiler.OptRotationUniforms)
			p := flip.NewDriverUniforms(s.c.Tree())
			require.True(t, Apply(s.c, s.c.Options(), s.root, p), s.c.Diagnostics().Messages())

			vars := map[ast.VarID]interp.Value{}
			values := flip.Values(tc.r)
			for _, name := range []string{flip.UniformDFdxMul, flip.UniformDFdyMul} {
				vars[s.varByName(t, name)] = interp.Vector(values[name]...)
			}
			assert.Equal(t, tc.dfdx, s.eval(t, s.a, vars))
			assert.Equal(t, tc.dfdy, s.eval(t, s.b, vars))
		})
	}
}

func TestFlipOnly(t *testing.T) {
	s := newShader(t, 300, 0)
	p := flip.NewSpecConst(s.c.Tree())
	require.True(t, Apply(s.c, s.c.Options(), s.root, p))
	vars := map[ast.VarID]interp.Value{p.Var(): interp.Scalar(float64(flip.FlippedIdentity))}
	assert.Equal(t, 3.0, s.eval(t, s.a, vars))
	assert.Equal(t, -5.0, s.eval(t, s.b, vars))
}

func TestOldVersionIsNoOp(t *testing.T) {
	s := newShader(t, 100, compiler.OptPreRotation)
	before := s.c.Tree().Count(s.root)
	p := flip.NewSpecConst(s.c.Tree())
	require.True(t, Apply(s.c, s.c.Options(), s.root, p))
	assert.Equal(t, before, s.c.Tree().Count(s.root))
	assert.False(t, p.Referenced())
}

func TestSecondRunChangesNothing(t *testing.T) {
	s := newShader(t, 300, compiler.OptPreRotation)
	p := flip.NewSpecConst(s.c.Tree())
	require.True(t, Apply(s.c, s.c.Options(), s.root, p))
	once := s.c.Tree().String(s.root)
	require.True(t, Apply(s.c, s.c.Options(), s.root, p))
	assert.Equal(t, once, s.c.Tree().String(s.root))
}

func TestNestedDerivative(t *testing.T) {
	s := newShader(t, 300, compiler.OptPreRotation)
	tr := s.c.Tree()
	f := tr.Types.Scalar(types.BasicFloat, types.PrecisionHigh)
	n := tr.Syms.NewVariable("n", tr.Types.WithQualifier(f, types.QualTemporary), qualifier.Default(types.QualTemporary, source.NoSpan))
	nested := tr.Declare(n, tr.Unary(ast.OpDFdx, tr.Unary(ast.OpDFdy, tr.Symbol(s.p))))
	_, body, ok := tr.FindMain(s.root)
	require.True(t, ok)
	tr.InsertKids(body, 0, nested)

	p := flip.NewSpecConst(tr)
	require.True(t, Apply(s.c, s.c.Options(), s.root, p), s.c.Diagnostics().Messages())
	assert.Zero(t, tr.CountOps(s.root, ast.OpDFdx, ast.FlagViewportCorrected))
	assert.Zero(t, tr.CountOps(s.root, ast.OpDFdy, ast.FlagViewportCorrected))
	assert.Zero(t, s.c.Diagnostics().ErrorCount())
}
