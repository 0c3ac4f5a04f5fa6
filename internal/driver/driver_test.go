package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism/internal/ast"
	"prism/internal/astio"
	"prism/internal/compiler"
	"prism/internal/diag"
	"prism/internal/flip"
	"prism/internal/observ"
	"prism/internal/pipeline"
	"prism/internal/qualifier"
	"prism/internal/testkit"
	"prism/internal/trace"
	"prism/internal/types"
)

// fragment returns the document of
//
//	layout(binding=0, rgba8) uniform highp pixelLocal pls;
//	highp float p;
//	void main() { float d = dFdy(p); pixelLocalStore(pls, pixelLocalLoad(pls)); }
func fragment(t *testing.T, version int) *astio.Document {
	t.Helper()
	s := testkit.NewFragment(t, version, 0)
	tr := s.Tree
	plane := s.PixelLocal("pls", types.BasicPixelLocal, 0, qualifier.FormatRGBA8)
	p := s.Global("p", s.Float(), types.QualGlobal)
	d := s.Variable("d", s.Float(), types.QualTemporary)
	s.Main(
		tr.Declare(d, tr.Unary(ast.OpDFdy, tr.Symbol(p))),
		tr.Aggregate(ast.OpPixelLocalStore, tr.Types.Void(), tr.Symbol(plane),
			tr.Aggregate(ast.OpPixelLocalLoad, s.Vec4(), tr.Symbol(plane))),
	)
	doc := astio.Save(s.C, s.Finish())
	doc.Path = "unit.json"
	return doc
}

// withoutPlanes is fragment minus pixel-local storage.
func withoutPlanes(t *testing.T, version int) *astio.Document {
	t.Helper()
	s := testkit.NewFragment(t, version, 0)
	tr := s.Tree
	p := s.Global("p", s.Float(), types.QualGlobal)
	d := s.Variable("d", s.Float(), types.QualTemporary)
	s.Main(tr.Declare(d, tr.Unary(ast.OpDFdy, tr.Symbol(p))))
	doc := astio.Save(s.C, s.Finish())
	doc.Path = "flat.json"
	return doc
}

const allPasses = compiler.OptPixelLocalStorage | compiler.OptFlipDerivatives | compiler.OptValidateAST

func reload(t *testing.T, doc *astio.Document) *compiler.Compiler {
	t.Helper()
	c, err := astio.Build(doc, compiler.Config{Options: compiler.OptValidateAST})
	require.NoError(t, err)
	require.True(t, c.ValidateAST(c.Root()), c.Diagnostics().Messages())
	return c
}

func TestLowerDocumentRunsPasses(t *testing.T) {
	rec := &pipeline.Recorder{}
	res := LowerDocument(context.Background(), fragment(t, 310), Options{
		Passes:   allPasses,
		Progress: rec,
		Timings:  true,
	})
	require.NoError(t, res.Err)
	require.True(t, res.CodegenReady, res.Compiler.Diagnostics().Messages())
	require.NotNil(t, res.Output)
	assert.Equal(t, "unit.json", res.Output.Path)
	assert.NotEmpty(t, res.SpecConst)
	assert.Empty(t, res.Uniforms)

	for _, st := range []pipeline.Stage{pipeline.StageLoad, pipeline.StagePLS, pipeline.StageDerivatives, pipeline.StageValidate, pipeline.StageEmit} {
		assert.True(t, res.Timings.Has(st), st)
	}
	require.NotNil(t, res.Report)
	var names []string
	for _, ph := range res.Report.Phases {
		names = append(names, ph.Name)
	}
	assert.Equal(t, []string{"pls", "dfdy", "validate"}, names)
	assert.Equal(t, map[string]pipeline.Status{"unit.json": pipeline.StatusDone}, rec.Final())

	c := reload(t, res.Output)
	root := c.Root()
	tr := c.Tree()
	assert.Zero(t, tr.CountOps(root, ast.OpPixelLocalStore, 0))
	assert.Equal(t, 1, tr.CountOps(root, ast.OpImageStore, 0))
	assert.Equal(t, 1, tr.CountOps(root, ast.OpDFdy, 0))
	assert.Zero(t, tr.CountOps(root, ast.OpDFdy, ast.FlagViewportCorrected), "reloaded derivatives keep their mark")
}

func TestLowerSkipsDisabledPasses(t *testing.T) {
	rec := &pipeline.Recorder{}
	res := LowerDocument(context.Background(), withoutPlanes(t, 300), Options{
		Passes:   compiler.OptFlipDerivatives | compiler.OptRotationUniforms,
		Progress: rec,
	})
	require.True(t, res.CodegenReady)
	assert.Empty(t, res.SpecConst)
	assert.Equal(t, []string{flip.UniformFlipXY}, res.Uniforms)
	assert.Nil(t, res.Report)

	skipped := map[pipeline.Stage]bool{}
	for _, evt := range rec.Events() {
		if evt.Status == pipeline.StatusSkipped {
			skipped[evt.Stage] = true
		}
	}
	assert.Equal(t, map[pipeline.Stage]bool{pipeline.StagePLS: true, pipeline.StageValidate: true}, skipped)
}

func TestPreRotatedPlanesShareProvider(t *testing.T) {
	res := LowerDocument(context.Background(), fragment(t, 310), Options{
		Passes: compiler.OptPixelLocalStorage | compiler.OptPreRotation | compiler.OptRotationUniforms | compiler.OptValidateAST,
	})
	require.NoError(t, res.Err)
	require.True(t, res.CodegenReady, res.Compiler.Diagnostics().Messages())
	assert.Empty(t, res.SpecConst)
	assert.Equal(t, []string{flip.UniformFragRotation}, res.Uniforms)

	c := reload(t, res.Output)
	assert.Equal(t, 1, c.Tree().CountOps(c.Root(), ast.OpImageStore, 0))
}

func TestHaltStopsLaterPasses(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelPhase)
	rec := &pipeline.Recorder{}
	res := LowerDocument(context.Background(), fragment(t, 300), Options{Passes: allPasses, Tracer: ring, Progress: rec})
	require.NoError(t, res.Err)
	assert.False(t, res.CodegenReady)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.SemPLSVersion, res.Diagnostics[0].Code)
	assert.Equal(t, 1, res.Compiler.Tree().CountOps(res.Compiler.Root(), ast.OpDFdy, 0))
	assert.Zero(t, res.Compiler.Tree().CountOps(res.Compiler.Root(), ast.OpDFdy, ast.FlagViewportCorrected), "dfdy never ran")

	statuses := map[pipeline.Stage]pipeline.Status{}
	for _, evt := range rec.Events() {
		statuses[evt.Stage] = evt.Status
	}
	assert.Equal(t, pipeline.StatusError, statuses[pipeline.StagePLS])
	assert.Equal(t, pipeline.StatusSkipped, statuses[pipeline.StageDerivatives])
	assert.Equal(t, pipeline.StatusSkipped, statuses[pipeline.StageValidate])

	var failed bool
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanEnd && ev.Name == "pls" && ev.Detail == "failed" {
			failed = true
		}
	}
	assert.True(t, failed)
}

func TestQualifierErrorReportsDiagnostic(t *testing.T) {
	doc := withoutPlanes(t, 300)
	doc.Variables[0].Quals = nil
	doc.Variables[0].Modifiers = []astio.Modifier{
		{Kind: "precision", Value: "highp"},
		{Kind: "precision", Value: "mediump"},
	}
	res := LowerDocument(context.Background(), doc, Options{Passes: allPasses})
	require.NoError(t, res.Err)
	assert.Nil(t, res.Output)
	errs, _ := res.Summary()
	assert.Equal(t, 1, errs)
	assert.False(t, res.CodegenReady)
}

func TestBadDocumentIsAnError(t *testing.T) {
	doc := withoutPlanes(t, 300)
	doc.Stage = "tessellation"
	res := LowerDocument(context.Background(), doc, Options{})
	assert.ErrorIs(t, res.Err, astio.ErrBadDocument)
	assert.Nil(t, res.Compiler)
}

func writeDocs(t *testing.T, dir string, docs map[string]*astio.Document) []string {
	t.Helper()
	var paths []string
	for name, doc := range docs {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, astio.WriteFile(p, doc))
		paths = append(paths, p)
	}
	return paths
}

func TestLowerAll(t *testing.T) {
	dir := t.TempDir()
	writeDocs(t, dir, map[string]*astio.Document{
		"a.json":      fragment(t, 310),
		"nested/b.mp": withoutPlanes(t, 300),
		"c.msgpack":   fragment(t, 300),
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	paths, err := ListDocuments(dir)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join(dir, "a.json"), paths[0])

	rec := &pipeline.Recorder{}
	results, err := LowerAll(context.Background(), paths, Options{
		Passes:   compiler.OptPixelLocalStorage | compiler.OptFlipDerivatives,
		Jobs:     2,
		Progress: rec,
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	byName := map[string]*Result{}
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
		byName[filepath.Base(r.Path)] = r
	}
	assert.True(t, byName["a.json"].CodegenReady)
	assert.True(t, byName["b.mp"].CodegenReady)
	assert.False(t, byName["c.msgpack"].CodegenReady)
	assert.NoError(t, byName["c.msgpack"].Err)
	assert.Error(t, byName["broken.json"].Err)

	final := rec.Final()
	assert.Equal(t, pipeline.StatusDone, final[paths[0]])
	assert.Equal(t, pipeline.StatusError, final[filepath.Join(dir, "broken.json")])
}

func TestLowerAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LowerAll(ctx, []string{"x.json"}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiskCache(t *testing.T) {
	cache, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	opts := Options{Passes: allPasses, Cache: cache}

	first := LowerDocument(context.Background(), fragment(t, 310), opts)
	require.True(t, first.CodegenReady)
	require.False(t, first.Cached)

	second := LowerDocument(context.Background(), fragment(t, 310), opts)
	require.True(t, second.Cached)
	assert.Nil(t, second.Compiler)
	assert.True(t, second.CodegenReady)
	assert.Equal(t, first.SpecConst, second.SpecConst)
	assert.Equal(t, first.Output.Root, second.Output.Root)
	assert.Equal(t, first.Output.Variables, second.Output.Variables)

	other := opts
	other.Passes = compiler.OptFlipDerivatives
	assert.False(t, LowerDocument(context.Background(), fragment(t, 310), other).Cached, "options are part of the key")

	failed := LowerDocument(context.Background(), fragment(t, 300), opts)
	require.False(t, failed.CodegenReady)
	again := LowerDocument(context.Background(), fragment(t, 300), opts)
	assert.False(t, again.Cached, "failed units are not cached")

	require.NoError(t, cache.DropAll())
	assert.False(t, LowerDocument(context.Background(), fragment(t, 310), opts).Cached)
}

func TestCacheKeyIgnoresPath(t *testing.T) {
	a, b := fragment(t, 310), fragment(t, 310)
	b.Path = "elsewhere.json"
	ka, err := CacheKey(a, allPasses)
	require.NoError(t, err)
	kb, err := CacheKey(b, allPasses)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)

	kc, err := CacheKey(a, compiler.OptFlipDerivatives)
	require.NoError(t, err)
	assert.NotEqual(t, ka, kc)
	assert.Equal(t, "unit.json", a.Path, "key computation leaves the document alone")
}

func TestLowerRunsInOrder(t *testing.T) {
	doc := fragment(t, 310)
	timer := observ.NewTimer()
	c, err := astio.Build(doc, compiler.Config{Options: allPasses, Timer: timer})
	require.NoError(t, err)
	specConst, uniforms := Lower(c, c.Options())
	require.True(t, c.CanGenerateCode(), c.Diagnostics().Messages())
	assert.NotEmpty(t, specConst)
	assert.Nil(t, uniforms)

	rep := timer.Report()
	require.Len(t, rep.Phases, 2)
	assert.Equal(t, "pls", rep.Phases[0].Name)
	assert.Equal(t, "dfdy", rep.Phases[1].Name)
}
