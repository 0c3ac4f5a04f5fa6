package observ

import (
	"strings"
	"testing"
)

func TestReportFoldsByName(t *testing.T) {
	tm := NewTimer()
	tm.Time("dfdy", func() string { return "" })
	tm.Time("pls", func() string { return "2 planes" })
	tm.Time("dfdy", func() string { return "" })
	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("phases = %+v", rep.Phases)
	}
	if rep.Phases[0].Name != "dfdy" || rep.Phases[0].Count != 2 {
		t.Fatalf("first phase = %+v", rep.Phases[0])
	}
	if !strings.Contains(tm.Summary(), "// 2 planes") {
		t.Fatalf("summary missing note:\n%s", tm.Summary())
	}
}

func TestEndIgnoresUnknownIndex(t *testing.T) {
	tm := NewTimer()
	tm.End(3, "x")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("unexpected phases")
	}
}
