package fuzztests

import (
	"bytes"
	"testing"

	"prism/internal/ast"
	"prism/internal/astio"
	"prism/internal/qualifier"
	"prism/internal/testkit"
	"prism/internal/types"
)

const maxFuzzInput = 64 << 10

// planeShader is a fragment shader using one pixel-local plane and a
// screen-space derivative, the input both passes rewrite.
func planeShader(tb testing.TB, version int) *astio.Document {
	s := testkit.NewFragment(tb, version, 0)
	tr := s.Tree
	plane := s.PixelLocal("pls", types.BasicPixelLocal, 0, qualifier.FormatRGBA8)
	p := s.Global("p", s.Float(), types.QualGlobal)
	d := s.Variable("d", s.Float(), types.QualTemporary)
	s.Main(
		tr.Declare(d, tr.Unary(ast.OpDFdy, tr.Symbol(p))),
		tr.Aggregate(ast.OpPixelLocalStore, tr.Types.Void(), tr.Symbol(plane),
			tr.Aggregate(ast.OpPixelLocalLoad, s.Vec4(), tr.Symbol(plane))),
	)
	return astio.Save(s.C, s.Finish())
}

func addDocumentSeeds(f *testing.F) {
	for _, version := range []int{300, 310} {
		var buf bytes.Buffer
		if err := astio.Encode(&buf, planeShader(f, version), astio.FormatJSON); err != nil {
			f.Fatal(err)
		}
		f.Add(buf.Bytes())
		// truncated input exercises the decoder error path
		f.Add(buf.Bytes()[:buf.Len()/2])
	}
	f.Add([]byte(`{"stage":"fragment","version":310}`))
	f.Add([]byte(`{"stage":"geometry","version":310,"root":{"kind":"Block"}}`))
	f.Add([]byte(`{"stage":"vertex","version":300,"root":{"kind":"Symbol","var":7}}`))
}

var wordSeeds = []string{
	"smooth out highp",
	"out smooth",
	"highp uniform",
	"invariant flat in mediump",
	"layout(binding=0,rgba8) uniform",
	"layout(location=1) layout(location=2) out",
	"const in lowp",
	"in in",
	"layout(oops) uniform",
}
