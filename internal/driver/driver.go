// Package driver runs the lowering pipeline over interchange documents.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prism/internal/ast"
	"prism/internal/astio"
	"prism/internal/compiler"
	"prism/internal/diag"
	"prism/internal/flip"
	"prism/internal/observ"
	"prism/internal/passes/dfdy"
	"prism/internal/passes/pls"
	"prism/internal/pipeline"
	"prism/internal/source"
	"prism/internal/trace"
)

// Options configures a lowering run. The zero value runs no passes.
type Options struct {
	Passes         compiler.Options
	MaxDiagnostics int
	ArenaLimit     int
	// Jobs bounds LowerAll's parallelism; 0 means GOMAXPROCS.
	Jobs     int
	Tracer   trace.Tracer
	Timings  bool
	Progress pipeline.ProgressSink
	Cache    *DiskCache
}

// Result is the outcome of lowering one unit.
type Result struct {
	Path string
	// Compiler is nil for results served from the cache.
	Compiler    *compiler.Compiler
	Files       *source.FileSet
	Diagnostics []diag.Diagnostic
	// Output is the lowered document, nil when the tree never loaded.
	Output       *astio.Document
	CodegenReady bool
	Cached       bool
	// SpecConst is the declaration layout of the rotation constant when
	// the derivative pass referenced it.
	SpecConst string
	// Uniforms lists the driver uniforms the host has to upload.
	Uniforms []string
	Timings  pipeline.Timings
	Report   *observ.Report
	// Err is set for failures outside the diagnostics model: unreadable
	// files and malformed documents.
	Err error
}

// Summary counts errors and warnings among the stored diagnostics.
func (r *Result) Summary() (errs, warnings int) {
	for _, d := range r.Diagnostics {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warnings++
		}
	}
	return errs, warnings
}

// Lower runs the enabled passes over the tree of c: pixel-local storage
// first, then derivative correction, then validation. Passes are skipped
// once the compilation halted. Both passes read orientation constants from
// the same provider, declared once.
func Lower(c *compiler.Compiler, opts compiler.Options) (specConst string, uniforms []string) {
	root := c.Root()
	var (
		sc *flip.SpecConst
		du *flip.DriverUniforms
		p  flip.Provider
	)
	if opts.Has(compiler.OptRotationUniforms) {
		du = flip.NewDriverUniforms(c.Tree())
		p = du
	} else {
		sc = flip.NewSpecConst(c.Tree())
		p = sc
	}
	if opts.Has(compiler.OptPixelLocalStorage) {
		c.RunPass("pls", func() bool {
			return pls.Apply(c, opts, root, p) && c.ValidateAST(root)
		})
	}
	if opts.Has(compiler.OptFlipDerivatives) {
		c.RunPass("dfdy", func() bool {
			return dfdy.Apply(c, opts, root, p) && c.ValidateAST(root)
		})
	}
	if sc != nil && sc.Referenced() {
		specConst = sc.LayoutString()
	}
	if du != nil {
		uniforms = du.Referenced()
	}
	return specConst, uniforms
}

// stageTimer reports stage transitions of one unit and records how long
// each stage took.
type stageTimer struct {
	file  string
	sink  pipeline.ProgressSink
	res   *Result
	stage pipeline.Stage
	start time.Time
}

func (s *stageTimer) begin(stage pipeline.Stage) {
	s.stage, s.start = stage, time.Now()
	pipeline.Emit(s.sink, pipeline.Event{File: s.file, Stage: stage, Status: pipeline.StatusWorking})
}

func (s *stageTimer) end(status pipeline.Status, err error) {
	elapsed := time.Since(s.start)
	s.res.Timings.Set(s.stage, elapsed)
	pipeline.Emit(s.sink, pipeline.Event{File: s.file, Stage: s.stage, Status: status, Err: err, Elapsed: elapsed})
}

// LowerDocument builds doc, lowers it and serializes the result. Problems
// with the shader are reported as diagnostics; Result.Err is only set for
// documents that cannot be built at all.
func LowerDocument(ctx context.Context, doc *astio.Document, opts Options) *Result {
	res := &Result{Path: doc.Path}
	st := &stageTimer{file: doc.Path, sink: opts.Progress, res: res}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	span := trace.Begin(tracer, trace.ScopeUnit, "lower", trace.CurrentSpan(ctx)).WithExtra("path", doc.Path)
	defer func() { span.End(res.verdict()) }()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	var key Digest
	if opts.Cache != nil {
		k, err := CacheKey(doc, opts.Passes)
		if err == nil {
			key = k
			if res.fromCache(opts.Cache, key, doc) {
				trace.Point(tracer, trace.ScopeUnit, "cache", "hit", span.ID())
				pipeline.Emit(opts.Progress, pipeline.Event{File: doc.Path, Stage: pipeline.StageEmit, Status: pipeline.StatusCached})
				return res
			}
		}
	}

	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
	}
	res.Files = source.NewFileSet()
	cfg := compiler.Config{
		Options:        opts.Passes,
		Files:          res.Files,
		MaxDiagnostics: opts.MaxDiagnostics,
		ArenaLimit:     opts.ArenaLimit,
		Tracer:         tracer,
		Timer:          timer,
	}

	st.begin(pipeline.StageLoad)
	c, err := astio.Build(doc, cfg)
	res.Compiler = c
	if c != nil {
		c.SetTraceParent(span.ID())
	}
	switch {
	case err == nil:
		st.end(pipeline.StatusDone, nil)
	case errors.Is(err, astio.ErrHalted):
		st.end(pipeline.StatusError, err)
		res.collect(c, timer)
		return res
	default:
		st.end(pipeline.StatusError, err)
		res.Err = err
		res.collect(c, timer)
		return res
	}

	res.SpecConst, res.Uniforms = lowerStages(c, opts.Passes, st)

	st.begin(pipeline.StageEmit)
	res.Output = astio.Save(c, c.Root())
	res.Output.Path = doc.Path
	res.Output.Source = doc.Source
	res.collect(c, timer)
	if res.CodegenReady && opts.Cache != nil && key != (Digest{}) {
		if err := opts.Cache.Put(key, res.payload()); err != nil {
			trace.Point(tracer, trace.ScopeUnit, "cache", "put failed: "+err.Error(), span.ID())
		}
	}
	if res.CodegenReady {
		st.end(pipeline.StatusDone, nil)
	} else {
		st.end(pipeline.StatusError, c.Verdict())
	}
	return res
}

// lowerStages is Lower with progress reporting per pass.
func lowerStages(c *compiler.Compiler, opts compiler.Options, st *stageTimer) (string, []string) {
	report := func(stage pipeline.Stage, enabled bool, run func()) {
		if !enabled || c.Halted() {
			pipeline.Emit(st.sink, pipeline.Event{File: st.file, Stage: stage, Status: pipeline.StatusSkipped})
			return
		}
		st.begin(stage)
		run()
		if c.Halted() {
			st.end(pipeline.StatusError, c.Verdict())
			return
		}
		st.end(pipeline.StatusDone, nil)
	}

	var (
		specConst string
		uniforms  []string
	)
	report(pipeline.StagePLS, opts.Has(compiler.OptPixelLocalStorage), func() {
		Lower(c, opts&^compiler.OptFlipDerivatives)
	})
	report(pipeline.StageDerivatives, opts.Has(compiler.OptFlipDerivatives), func() {
		specConst, uniforms = Lower(c, opts&^compiler.OptPixelLocalStorage)
	})
	report(pipeline.StageValidate, opts.Has(compiler.OptValidateAST), func() {
		c.RunPass("validate", func() bool { return c.ValidateAST(c.Root()) })
	})
	return specConst, uniforms
}

func (r *Result) collect(c *compiler.Compiler, timer *observ.Timer) {
	if c == nil {
		return
	}
	r.Diagnostics = append([]diag.Diagnostic(nil), c.Diagnostics().Bag().Items()...)
	r.CodegenReady = c.CanGenerateCode()
	if timer != nil {
		rep := timer.Report()
		r.Report = &rep
	}
}

func (r *Result) verdict() string {
	switch {
	case r.Err != nil:
		return "failed: " + r.Err.Error()
	case r.Cached:
		return "cached"
	case r.CodegenReady:
		return "ok"
	}
	errs, _ := r.Summary()
	return fmt.Sprintf("%d error(s)", errs)
}

// LowerFile reads the document at path and lowers it.
func LowerFile(ctx context.Context, path string, opts Options) *Result {
	doc, err := astio.ReadFile(path)
	if err != nil {
		pipeline.Emit(opts.Progress, pipeline.Event{File: path, Stage: pipeline.StageLoad, Status: pipeline.StatusError, Err: err})
		return &Result{Path: path, Err: err}
	}
	doc.Path = path
	return LowerDocument(ctx, doc, opts)
}

// Root returns the lowered tree root of a non-cached result.
func (r *Result) Root() ast.NodeID {
	if r.Compiler == nil {
		return ast.NoNodeID
	}
	return r.Compiler.Root()
}
