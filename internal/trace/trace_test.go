package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRingKeepsLastEvents(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeNode, name, "", 0)
	}
	got := r.Snapshot()
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("snapshot = %+v", got)
	}
	if got[0].Seq >= got[1].Seq {
		t.Fatalf("sequence not increasing: %d, %d", got[0].Seq, got[1].Seq)
	}
	if r.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", r.Dropped())
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelPhase, FormatText)
	span := Begin(st, ScopePass, "dfdy", 0)
	Point(st, ScopeNode, "edit", "", span.ID())
	span.WithExtra("replaced", "2").End("ok")
	if buf.Len() != 0 {
		t.Fatalf("stream must buffer until Flush, got %q", buf.String())
	}
	if err := st.Flush(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "edit") {
		t.Fatalf("node events must be filtered at phase level:\n%s", out)
	}
	if !strings.Contains(out, "← dfdy (ok)") || !strings.Contains(out, "{replaced=2}") {
		t.Fatalf("missing end event:\n%s", out)
	}
}

func TestLevelNames(t *testing.T) {
	for _, name := range []string{"off", "ERROR", " Phase", "detail", "debug"} {
		l, err := ParseLevel(name)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", name, err)
		}
		if l.String() != strings.ToLower(strings.TrimSpace(name)) {
			t.Fatalf("round trip of %q gave %q", name, l)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("unknown level accepted")
	}
	if LevelError.ShouldEmit(ScopeDriver) || !LevelDetail.ShouldEmit(ScopeUnit) || LevelDetail.ShouldEmit(ScopeNode) {
		t.Fatal("level depth table is off")
	}
	if Scope(0).String() != "unknown" || Kind(9).String() != "unknown" {
		t.Fatal("out of range names must read unknown")
	}
}

func TestNopSpan(t *testing.T) {
	span := Begin(Nop, ScopeDriver, "x", 0)
	if span.ID() != 0 || span.End("") != 0 {
		t.Fatalf("nop span must be inert")
	}
	if span.WithExtra("k", "v") != span {
		t.Fatalf("WithExtra must return its receiver")
	}
}

func TestNewBothWritesFileAndRing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, OutputPath: path, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	multi, ok := tr.(*MultiTracer)
	if !ok || multi.Ring() == nil {
		t.Fatalf("both mode must fan out to a ring, got %T", tr)
	}
	Begin(tr, ScopeDriver, "lower_all", 0).End("ok")
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("want begin and end lines, got %q", data)
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("ndjson line: %v", err)
	}
	if ev["kind"] != "end" || ev["name"] != "lower_all" {
		t.Fatalf("end event = %v", ev)
	}
	if n := len(multi.Ring().Snapshot()); n != 2 {
		t.Fatalf("ring holds %d events, want 2", n)
	}
}

func TestContextCarriesSpan(t *testing.T) {
	r := NewRingTracer(4, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	span := Begin(FromContext(ctx), ScopeDriver, "batch", 0)
	ctx = WithSpan(ctx, span)
	child := Begin(FromContext(ctx), ScopeUnit, "lower", CurrentSpan(ctx))
	child.End("")
	events := r.Snapshot()
	if events[len(events)-1].ParentID != span.ID() {
		t.Fatalf("child parent = %d, want %d", events[len(events)-1].ParentID, span.ID())
	}
	if FromContext(context.Background()) != Nop {
		t.Fatal("empty context must yield Nop")
	}
}
