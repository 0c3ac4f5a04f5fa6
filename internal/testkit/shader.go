// Package testkit builds small shader trees for package tests.
package testkit

import (
	"testing"

	"prism/internal/ast"
	"prism/internal/compiler"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/types"
)

// Shader accumulates global declarations and functions; Finish assembles
// them under one root block.
type Shader struct {
	C       *compiler.Compiler
	Tree    *ast.Tree
	globals []ast.NodeID
	funcs   []ast.NodeID
}

// NewFragment returns a fragment shader builder. OptValidateAST is always on.
func NewFragment(t testing.TB, version int, opts compiler.Options) *Shader {
	t.Helper()
	c := compiler.New(compiler.Config{
		Stage:   compiler.StageFragment,
		Version: version,
		Options: opts | compiler.OptValidateAST,
	})
	return &Shader{C: c, Tree: c.Tree()}
}

func (s *Shader) Float() *types.Type {
	return s.Tree.Types.Scalar(types.BasicFloat, types.PrecisionHigh)
}

func (s *Shader) Vec4() *types.Type {
	return s.Tree.Types.Vec(types.BasicFloat, types.PrecisionHigh, 4)
}

// Variable registers a variable of typ with the given storage.
func (s *Shader) Variable(name string, typ *types.Type, storage types.Qualifier) ast.VarID {
	q := qualifier.Default(storage, source.NoSpan)
	q.Precision = typ.Precision
	return s.Tree.Syms.NewVariable(name, s.Tree.Types.WithQualifier(typ, storage), q)
}

// Global declares a global variable.
func (s *Shader) Global(name string, typ *types.Type, storage types.Qualifier) ast.VarID {
	v := s.Variable(name, typ, storage)
	s.globals = append(s.globals, s.Tree.Declare(v, ast.NoNodeID))
	return v
}

// PixelLocal declares a pixel-local storage plane with the given binding
// and image format.
func (s *Shader) PixelLocal(name string, kind types.BasicKind, binding int, format qualifier.ImageFormat) ast.VarID {
	v := s.Global(name, s.Tree.Types.Scalar(kind, types.PrecisionHigh), types.QualUniform)
	lay := qualifier.NoLayout()
	lay.Binding = binding
	lay.Format = format
	s.Tree.Syms.Var(v).Quals.Layout = lay
	return v
}

// Param registers a function parameter.
func (s *Shader) Param(name string, typ *types.Type) ast.VarID {
	return s.Variable(name, typ, types.QualIn)
}

// Func defines a function with the given body statements.
func (s *Shader) Func(name string, ret *types.Type, params []ast.VarID, stmts ...ast.NodeID) ast.FuncID {
	fn := s.Tree.Syms.NewFunction(name, ret, params...)
	s.funcs = append(s.funcs, s.Tree.FunctionDef(fn, s.Tree.Block(stmts...)))
	return fn
}

// Main defines void main().
func (s *Shader) Main(stmts ...ast.NodeID) ast.FuncID {
	return s.Func("main", s.Tree.Types.Void(), nil, stmts...)
}

// Finish builds the root block and installs it as the compiler's root.
func (s *Shader) Finish() ast.NodeID {
	kids := append(append([]ast.NodeID{}, s.globals...), s.funcs...)
	root := s.Tree.Block(kids...)
	s.C.SetRoot(root)
	return root
}

// VarByName finds a variable by name, failing the test when it is missing.
func (s *Shader) VarByName(t testing.TB, name string) ast.VarID {
	t.Helper()
	syms := s.Tree.Syms
	for i := 1; i <= syms.NumVars(); i++ {
		if syms.VarName(ast.VarID(i)) == name {
			return ast.VarID(i)
		}
	}
	t.Fatalf("no variable %q", name)
	return ast.NoVarID
}
