package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"prism/internal/diag"
	"prism/internal/source"
)

func orderError(t *testing.T) (*source.FileSet, []diag.Diagnostic) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("/home/user/project/src/a.frag", []byte("smooth out highp vec2 v_uv;\nvoid main() {}\n"))
	d := diag.New(diag.SevError, diag.QuaOrder, source.Span{File: id, Start: 11, End: 16}, "qualifiers out of order")
	d.Token = "highp"
	d = d.WithNote(source.Span{File: id, Start: 0, End: 6}, "interpolation is here")
	return fs, []diag.Diagnostic{d}
}

func TestPrettyExcerpt(t *testing.T) {
	fs, items := orderError(t)
	var buf bytes.Buffer
	Pretty(&buf, items, fs, PrettyOpts{PathMode: PathModeBasename})

	want := "a.frag:1:12: ERROR QUA1001: 'highp' : qualifiers out of order\n" +
		"   1 | smooth out highp vec2 v_uv;\n" +
		"     |            ^~~~~\n"
	if got := buf.String(); got != want {
		t.Fatalf("pretty output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyNotesAndColor(t *testing.T) {
	fs, items := orderError(t)
	var buf bytes.Buffer
	Pretty(&buf, items, fs, PrettyOpts{Color: true, ShowNotes: true})
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI escapes, got %q", out)
	}
	if !strings.Contains(out, "/home/user/project/src/a.frag:1:1: interpolation is here") {
		t.Fatalf("note missing:\n%s", out)
	}
}

func TestPrettyWideRunes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("w.frag", []byte("語語 x;\n"))
	items := []diag.Diagnostic{diag.NewError(diag.SemPLSUnknownBinding, source.Span{File: id, Start: 7, End: 8}, "unknown")}
	var buf bytes.Buffer
	Pretty(&buf, items, fs, PrettyOpts{})
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 3 {
		t.Fatalf("short output: %q", buf.String())
	}
	if want := "     |      ^"; lines[2] != want {
		t.Fatalf("caret line = %q, want %q", lines[2], want)
	}
}

func TestPrettyTruncates(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("long.frag", []byte(strings.Repeat("a", 30)+" bad\n"))
	items := []diag.Diagnostic{diag.NewError(diag.AstUndeclaredVar, source.Span{File: id, Start: 31, End: 34}, "bad")}
	var buf bytes.Buffer
	Pretty(&buf, items, fs, PrettyOpts{Width: 10})
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasSuffix(lines[1], "…") {
		t.Fatalf("excerpt not truncated: %q", lines[1])
	}
	if want := "     |          ^"; lines[2] != want {
		t.Fatalf("caret line = %q, want %q", lines[2], want)
	}
}

func TestGeneratedSpan(t *testing.T) {
	items := []diag.Diagnostic{diag.NewError(diag.PasFailed, source.NoSpan, "pass failed")}
	var buf bytes.Buffer
	Pretty(&buf, items, nil, PrettyOpts{})
	if got, want := buf.String(), "<generated>: ERROR PAS3003: pass failed\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestShort(t *testing.T) {
	fs, items := orderError(t)
	var buf bytes.Buffer
	Short(&buf, items, fs, PathModeRelative, "/home/user/project")
	if got, want := buf.String(), "/home/user/project/src/a.frag:1:12: error: [QUA1001] 'highp' : qualifiers out of order\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestJSON(t *testing.T) {
	fs, items := orderError(t)
	items = append(items, diag.NewError(diag.PasFailed, source.NoSpan, "pass failed"))
	var buf bytes.Buffer
	if err := JSON(&buf, items, fs, JSONOpts{IncludePositions: true, IncludeNotes: true}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 {
		t.Fatalf("count = %d", out.Count)
	}
	first := out.Diagnostics[0]
	if first.Code != "QUA1001" || first.Token != "highp" || first.Severity != "ERROR" {
		t.Fatalf("unexpected diagnostic %+v", first)
	}
	if first.Location == nil || first.Location.StartLine != 1 || first.Location.StartCol != 12 || first.Location.EndCol != 17 {
		t.Fatalf("location = %+v", first.Location)
	}
	if len(first.Notes) != 1 {
		t.Fatalf("notes = %+v", first.Notes)
	}
	if out.Diagnostics[1].Location != nil {
		t.Fatalf("generated span has a location: %+v", out.Diagnostics[1].Location)
	}

	buf.Reset()
	if err := JSON(&buf, items, fs, JSONOpts{Max: 1}); err != nil {
		t.Fatal(err)
	}
	out = DiagnosticsOutput{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Diagnostics[0].Notes != nil || out.Diagnostics[0].Location.StartLine != 0 {
		t.Fatalf("max/notes/positions not honored: %+v", out)
	}
}
