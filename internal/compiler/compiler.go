// Package compiler holds the state of one shader compilation: the tree, its
// type interner, diagnostics and the options passes consult.
package compiler

import (
	"errors"
	"fmt"

	"prism/internal/ast"
	"prism/internal/diag"
	"prism/internal/observ"
	"prism/internal/source"
	"prism/internal/trace"
	"prism/internal/types"
	"prism/internal/validate"
)

// ErrHasErrors is returned by Verdict when diagnostics block code generation.
var ErrHasErrors = errors.New("compilation has errors")

type Config struct {
	Stage          Stage
	Version        int
	Options        Options
	Files          *source.FileSet
	MaxDiagnostics int
	// ArenaLimit caps the number of interned types; 0 means unbounded.
	ArenaLimit int
	Tracer     trace.Tracer
	Timer      *observ.Timer
}

// Compiler is the handle every pass receives.
type Compiler struct {
	cfg    Config
	tree   *ast.Tree
	sink   *diag.Sink
	tracer trace.Tracer
	timer  *observ.Timer
	halted bool
	span   uint64
}

func New(cfg Config) *Compiler {
	if cfg.Tracer == nil {
		cfg.Tracer = trace.Nop
	}
	in := types.NewInternerWithArena(types.NewArena("unit", cfg.ArenaLimit))
	c := &Compiler{
		cfg:    cfg,
		tree:   ast.NewTree(in, nil),
		sink:   diag.NewSink(cfg.Files, cfg.MaxDiagnostics),
		tracer: cfg.Tracer,
		timer:  cfg.Timer,
	}
	c.sink.SetHaltFunc(func(diag.Diagnostic) { c.halted = true })
	return c
}

func (c *Compiler) Tree() *ast.Tree          { return c.tree }
func (c *Compiler) Types() *types.Interner   { return c.tree.Types }
func (c *Compiler) Diagnostics() *diag.Sink  { return c.sink }
func (c *Compiler) Tracer() trace.Tracer     { return c.tracer }
func (c *Compiler) Timer() *observ.Timer     { return c.timer }
func (c *Compiler) Options() Options         { return c.cfg.Options }
func (c *Compiler) Stage() Stage             { return c.cfg.Stage }
func (c *Compiler) Version() int             { return c.cfg.Version }
func (c *Compiler) Root() ast.NodeID         { return c.tree.Root }
func (c *Compiler) SetRoot(root ast.NodeID)  { c.tree.Root = root }
func (c *Compiler) SetTraceParent(id uint64) { c.span = id }

// Halted reports whether an error was reported since the last Reset. The
// driver stops running passes once a compilation halted.
func (c *Compiler) Halted() bool {
	return c.halted
}

// SetHaltFunc chains fn after the compiler's own halt bookkeeping.
func (c *Compiler) SetHaltFunc(fn diag.HaltFunc) {
	c.sink.SetHaltFunc(func(d diag.Diagnostic) {
		c.halted = true
		if fn != nil {
			fn(d)
		}
	})
}

// Reset prepares the handle for another compilation of the same tree.
func (c *Compiler) Reset() {
	c.sink.Reset()
	c.halted = false
}

// ValidateAST checks the tree under root when OptValidateAST is set and
// reports violations as diagnostics.
func (c *Compiler) ValidateAST(root ast.NodeID) bool {
	if !c.cfg.Options.Has(OptValidateAST) {
		return true
	}
	err := validate.Tree(c.tree, root)
	if err == nil {
		return true
	}
	validate.Report(c.sink, c.tree, err)
	return false
}

// RunPass runs fn as the pass called name inside a trace span and a timer
// phase. A halted compilation skips the pass and reports failure.
func (c *Compiler) RunPass(name string, fn func() bool) bool {
	if c.halted {
		trace.Point(c.tracer, trace.ScopePass, name, "skipped: halted", c.span)
		return false
	}
	span := trace.Begin(c.tracer, trace.ScopePass, name, c.span)
	idx := -1
	if c.timer != nil {
		idx = c.timer.Begin(name)
	}
	ok := fn()
	if !ok && c.sink.ErrorCount() == 0 {
		c.sink.Error(source.NoSpan, diag.PasFailed, name, "pass failed")
	}
	detail := "ok"
	if !ok {
		detail = "failed"
	}
	if c.timer != nil {
		c.timer.End(idx, detail)
	}
	span.WithExtra("errors", fmt.Sprint(c.sink.ErrorCount())).End(detail)
	return ok
}

// CanGenerateCode reports whether the tree may be handed to a code generator.
// Warnings do not block code generation.
func (c *Compiler) CanGenerateCode() bool {
	return c.sink.ErrorCount() == 0 && c.tree.Root.IsValid()
}

// Verdict is CanGenerateCode as an error.
func (c *Compiler) Verdict() error {
	if n := c.sink.ErrorCount(); n > 0 {
		return fmt.Errorf("%d error(s): %w", n, ErrHasErrors)
	}
	if !c.tree.Root.IsValid() {
		return fmt.Errorf("no tree: %w", ErrHasErrors)
	}
	return nil
}
