package validate

import (
	"errors"
	"strings"
	"testing"

	"prism/internal/ast"
	"prism/internal/diag"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/types"
)

func newTree() (*ast.Tree, ast.VarID) {
	tr := ast.NewTree(types.NewInterner(), nil)
	f := tr.Types.Scalar(types.BasicFloat, types.PrecisionHigh)
	v := tr.Syms.NewVariable("x", tr.Types.WithQualifier(f, types.QualGlobal), qualifier.Default(types.QualGlobal, source.NoSpan))
	return tr, v
}

func codes(err error) []diag.Code {
	var out []diag.Code
	if err == nil {
		return nil
	}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var p *Problem
		if errors.As(e, &p) {
			out = append(out, p.Code)
		}
	}
	return out
}

func hasCode(err error, c diag.Code) bool {
	for _, got := range codes(err) {
		if got == c {
			return true
		}
	}
	return false
}

func TestValidTree(t *testing.T) {
	tr, x := newTree()
	fc, _ := tr.Syms.BuiltIn("gl_FragCoord", tr.Types)
	decl := tr.Declare(x, tr.Float(1, types.PrecisionHigh))
	use := tr.Assign(tr.Symbol(x), tr.Swizzle(tr.Symbol(fc), 0))
	root := tr.Block(decl, use)
	if err := Tree(tr, root); err != nil {
		t.Fatalf("unexpected problems: %v", err)
	}
}

func TestUseBeforeDeclaration(t *testing.T) {
	tr, x := newTree()
	use := tr.Assign(tr.Symbol(x), tr.Float(2, types.PrecisionHigh))
	root := tr.Block(use, tr.Declare(x, ast.NoNodeID))
	err := Tree(tr, root)
	if !hasCode(err, diag.AstUndeclaredVar) {
		t.Fatalf("want undeclared variable, got %v", err)
	}
}

func TestSharedChild(t *testing.T) {
	tr, x := newTree()
	decl := tr.Declare(x, ast.NoNodeID)
	c := tr.Float(1, types.PrecisionHigh)
	a := tr.Assign(tr.Symbol(x), c)
	root := tr.Block(decl, a)
	b := tr.Assign(tr.Symbol(x), tr.Float(3, types.PrecisionHigh))
	tr.Node(b).Kids[1] = c
	tr.InsertKids(root, 2, b)
	err := Tree(tr, root)
	if !hasCode(err, diag.AstMultipleParent) {
		t.Fatalf("want multiple parent problem, got %v", err)
	}
}

func TestDeadNodeAndForeignType(t *testing.T) {
	tr, x := newTree()
	decl := tr.Declare(x, ast.NoNodeID)
	stmt := tr.Assign(tr.Symbol(x), tr.Float(1, types.PrecisionHigh))
	root := tr.Block(decl, stmt)
	tr.Node(stmt).Flags |= ast.FlagReleased
	other := types.NewInterner()
	tr.Node(tr.Kid(stmt, 1)).Type = other.Scalar(types.BasicFloat, types.PrecisionHigh)

	err := Tree(tr, root)
	if !hasCode(err, diag.AstDeadNode) || !hasCode(err, diag.AstForeignType) {
		t.Fatalf("got %v", codes(err))
	}

	sink := diag.NewSink(nil, 0)
	if n := Report(sink, tr, err); n != 2 || sink.ErrorCount() != 2 {
		t.Fatalf("reported %d, sink has %d errors", n, sink.ErrorCount())
	}
	if !strings.Contains(sink.Messages(), "'Binary'") {
		t.Fatalf("messages:\n%s", sink.Messages())
	}
}

func TestBadShape(t *testing.T) {
	tr, _ := newTree()
	bad := tr.Add(ast.Node{Kind: ast.KindDeclaration, Kids: []ast.NodeID{tr.Float(1, types.PrecisionHigh)}})
	root := tr.Block(bad)
	if err := Tree(tr, root); !hasCode(err, diag.AstBadShape) {
		t.Fatalf("want bad shape, got %v", err)
	}
}
