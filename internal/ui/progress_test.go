package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"prism/internal/pipeline"
)

func apply(m *progressModel, evs ...pipeline.Event) {
	for _, ev := range evs {
		m.applyEvent(ev)
	}
}

func TestProgressTracksStages(t *testing.T) {
	m := NewProgressModel("lowering", []string{"a.json", "b.json", "c.json"}, nil).(*progressModel)
	apply(m,
		pipeline.Event{File: "a.json", Stage: pipeline.StageLoad, Status: pipeline.StatusWorking},
		pipeline.Event{File: "a.json", Stage: pipeline.StageLoad, Status: pipeline.StatusDone},
		pipeline.Event{File: "a.json", Stage: pipeline.StagePLS, Status: pipeline.StatusWorking},
		pipeline.Event{File: "b.json", Stage: pipeline.StageEmit, Status: pipeline.StatusCached},
		pipeline.Event{File: "c.json", Stage: pipeline.StagePLS, Status: pipeline.StatusError},
		pipeline.Event{File: "c.json", Stage: pipeline.StageDerivatives, Status: pipeline.StatusSkipped},
		pipeline.Event{File: "unknown.json", Stage: pipeline.StageLoad, Status: pipeline.StatusWorking},
	)
	for i, want := range []unitState{stateLowering, stateCached, stateFailed} {
		if got := m.rows[i].state; got != want {
			t.Fatalf("%s state = %s, want %s", m.rows[i].path, got, want)
		}
	}
	if got, want := m.percent(), (0.3+1+1)/3; got != want {
		t.Fatalf("percent = %v, want %v", got, want)
	}

	apply(m, pipeline.Event{File: "a.json", Stage: pipeline.StageEmit, Status: pipeline.StatusDone})
	if m.percent() != 1 {
		t.Fatalf("percent = %v after all units finished", m.percent())
	}
	view := m.View()
	for _, want := range []string{"a.json", "cached", "1 done, 1 cached, 1 failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestFailureReasonAndElapsed(t *testing.T) {
	m := NewProgressModel("lowering", []string{"a.json"}, nil).(*progressModel)
	apply(m,
		pipeline.Event{File: "a.json", Stage: pipeline.StageLoad, Status: pipeline.StatusWorking},
		pipeline.Event{File: "a.json", Stage: pipeline.StageLoad, Status: pipeline.StatusError, Err: errors.New("bad document"), Elapsed: 3 * time.Millisecond},
		pipeline.Event{File: "a.json", Stage: pipeline.StageEmit, Status: pipeline.StatusDone},
	)
	row := m.rows[0]
	if row.state != stateFailed || row.reason != "bad document" || row.elapsed != 3*time.Millisecond {
		t.Fatalf("row = %+v", row)
	}
	if view := m.View(); !strings.Contains(view, "bad document") || !strings.Contains(view, "3ms") {
		t.Fatalf("view lacks reason or time:\n%s", view)
	}
}

func TestBatchLabel(t *testing.T) {
	m := NewProgressModel("lowering", []string{"a.json"}, nil).(*progressModel)
	apply(m, pipeline.Event{Stage: pipeline.StageValidate, Status: pipeline.StatusWorking})
	if m.stageLabel != "validating" {
		t.Fatalf("stage label = %q", m.stageLabel)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("shaders/very/long/path.json", 12); got != "shaders/v..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("語語語", 5); got != "語..." {
		t.Fatalf("truncate wide = %q", got)
	}
	if got := truncate("short", 0); got != "short" {
		t.Fatalf("truncate disabled = %q", got)
	}
}
