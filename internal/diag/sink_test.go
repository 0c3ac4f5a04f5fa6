package diag

import (
	"strings"
	"testing"

	"prism/internal/source"
)

func TestSinkCountsAndHalts(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("shader.frag", []byte("precision highp float;\nsmooth flat in vec4 v;\n"))
	s := NewSink(fs, 1)

	halts := 0
	s.SetHaltFunc(func(Diagnostic) { halts++ })

	s.Warning(source.Span{File: file, Start: 0, End: 9}, QuaInfo, "precision", "redundant")
	s.Error(source.Span{File: file, Start: 24, End: 30}, QuaRepeated, "flat", "interpolation qualifier specified multiple times")
	s.Error(source.Span{File: file, Start: 24, End: 30}, QuaOrder, "smooth", "bad")

	if s.ErrorCount() != 2 || s.WarningCount() != 1 {
		t.Fatalf("counts = %d errors, %d warnings", s.ErrorCount(), s.WarningCount())
	}
	if halts != 2 {
		t.Fatalf("halt callback called %d times, want 2", halts)
	}
	if s.Bag().Len() != 1 {
		t.Fatalf("bag limit not honored: %d", s.Bag().Len())
	}
	want := "ERROR: shader.frag:2: 'flat' : interpolation qualifier specified multiple times"
	if !strings.Contains(s.Messages(), want) {
		t.Fatalf("messages missing %q:\n%s", want, s.Messages())
	}

	s.Reset()
	if s.ErrorCount() != 0 || s.WarningCount() != 0 || s.Messages() != "" {
		t.Fatalf("reset did not clear state")
	}
	s.Error(source.NoSpan, PasFailed, "", "again")
	if halts != 3 {
		t.Fatalf("halt callback must survive Reset, got %d calls", halts)
	}
}

func TestSeverityForms(t *testing.T) {
	if SevWarning.Label() != "warning" || SevError.String() != "ERROR" {
		t.Fatalf("unexpected names %q %q", SevWarning.Label(), SevError.String())
	}
	if Severity(9).String() != "Severity(9)" {
		t.Fatalf("unknown severity = %q", Severity(9).String())
	}
	if SevWarning.Blocking() || !SevError.Blocking() {
		t.Fatalf("only errors block code generation")
	}
}
