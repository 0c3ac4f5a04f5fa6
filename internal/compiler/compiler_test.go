package compiler

import (
	"errors"
	"testing"

	"prism/internal/ast"
	"prism/internal/diag"
	"prism/internal/observ"
	"prism/internal/qualifier"
	"prism/internal/source"
	"prism/internal/trace"
	"prism/internal/types"
)

func TestParseOptions(t *testing.T) {
	o, err := ParseOptions("flip-derivatives, pre-rotation,,none")
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if !o.Has(OptFlipDerivatives) || !o.Has(OptPreRotation) || o.Has(OptPixelLocalStorage) {
		t.Fatalf("unexpected options %s", o)
	}
	if got := o.String(); got != "pre-rotation,flip-derivatives" {
		t.Fatalf("String() = %q", got)
	}
	if _, err := ParseOptions("warp-speed"); err == nil {
		t.Fatal("expected error for unknown option")
	}
	if Options(0).String() != "none" {
		t.Fatalf("zero options should print as none")
	}
}

func TestParseStage(t *testing.T) {
	for _, s := range []Stage{StageVertex, StageFragment, StageCompute} {
		got, err := ParseStage(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseStage(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseStage("geometry"); err == nil {
		t.Fatal("expected error for unsupported stage")
	}
}

func newUnit(opts Options) *Compiler {
	c := New(Config{Stage: StageFragment, Version: 310, Options: opts})
	tr := c.Tree()
	main := tr.Syms.NewFunction("main", tr.Types.Void())
	c.SetRoot(tr.Block(tr.FunctionDef(main, tr.Block())))
	return c
}

func TestHaltStopsLaterPasses(t *testing.T) {
	c := newUnit(0)
	var halted []diag.Code
	c.SetHaltFunc(func(d diag.Diagnostic) { halted = append(halted, d.Code) })

	ran := 0
	ok := c.RunPass("first", func() bool {
		ran++
		c.Diagnostics().Error(source.NoSpan, diag.SemPLSVersion, "300", "too old")
		return false
	})
	if ok || !c.Halted() {
		t.Fatalf("first pass: ok=%v halted=%v", ok, c.Halted())
	}
	if c.RunPass("second", func() bool { ran++; return true }) {
		t.Fatal("second pass should be skipped")
	}
	if ran != 1 {
		t.Fatalf("ran %d passes, want 1", ran)
	}
	if len(halted) != 1 || halted[0] != diag.SemPLSVersion {
		t.Fatalf("halt callback saw %v", halted)
	}
	if c.CanGenerateCode() {
		t.Fatal("code generation must be refused after an error")
	}
	if err := c.Verdict(); !errors.Is(err, ErrHasErrors) {
		t.Fatalf("Verdict() = %v", err)
	}

	c.Reset()
	if c.Halted() || !c.CanGenerateCode() {
		t.Fatal("Reset should clear the halt state")
	}
}

func TestFailedPassWithoutDiagnostic(t *testing.T) {
	c := newUnit(0)
	c.RunPass("silent", func() bool { return false })
	items := c.Diagnostics().Bag().Items()
	if len(items) != 1 || items[0].Code != diag.PasFailed {
		t.Fatalf("diagnostics = %v", items)
	}
}

func TestWarningsDoNotBlock(t *testing.T) {
	c := newUnit(0)
	c.Diagnostics().Warning(source.NoSpan, diag.SemInfo, "x", "just saying")
	if !c.CanGenerateCode() || c.Verdict() != nil || c.Halted() {
		t.Fatal("warnings must not block code generation")
	}
}

func TestRunPassTracesAndTimes(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelPhase)
	timer := observ.NewTimer()
	c := New(Config{Stage: StageFragment, Version: 310, Tracer: ring, Timer: timer})

	c.RunPass("dfdy", func() bool { return true })
	c.RunPass("dfdy", func() bool { return true })

	events := ring.Snapshot()
	if len(events) != 4 {
		t.Fatalf("got %d events, want begin/end per pass", len(events))
	}
	if events[0].Kind != trace.KindSpanBegin || events[0].Name != "dfdy" || events[0].Scope != trace.ScopePass {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	report := timer.Report()
	if len(report.Phases) != 1 || report.Phases[0].Count != 2 {
		t.Fatalf("timer report %+v", report)
	}
}

func TestValidateASTOnlyWhenEnabled(t *testing.T) {
	for _, opts := range []Options{0, OptValidateAST} {
		c := newUnit(opts)
		tr := c.Tree()
		// A reference to a variable that is never declared.
		stray := tr.Syms.NewVariable("stray", tr.Types.Scalar(types.BasicFloat, types.PrecisionHigh), qualifier.Default(types.QualTemporary, source.NoSpan))
		_, body, _ := tr.FindMain(c.Root())
		tr.InsertKids(body, 0, tr.Assign(tr.Symbol(stray), tr.Float(1, types.PrecisionHigh)))

		ok := c.ValidateAST(c.Root())
		if want := !opts.Has(OptValidateAST); ok != want {
			t.Fatalf("opts=%s: ValidateAST = %v, want %v", opts, ok, want)
		}
		if opts.Has(OptValidateAST) && c.Diagnostics().Bag().Items()[0].Code != diag.AstUndeclaredVar {
			t.Fatalf("unexpected diagnostics %s", c.Diagnostics().Messages())
		}
	}
}

func TestVerdictWithoutTree(t *testing.T) {
	c := New(Config{})
	if c.Root() != ast.NoNodeID {
		t.Fatal("fresh compiler has a root")
	}
	if err := c.Verdict(); !errors.Is(err, ErrHasErrors) {
		t.Fatalf("Verdict() = %v", err)
	}
}
