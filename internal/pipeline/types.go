// Package pipeline describes the progress of lowering a batch of shaders.
package pipeline

import (
	"sync"
	"time"
)

// Stage describes a phase of lowering one unit.
type Stage string

const (
	// StageLoad decodes the document and builds the tree.
	StageLoad Stage = "load"
	// StagePLS lowers pixel-local storage.
	StagePLS Stage = "pls"
	// StageDerivatives corrects screen-space derivatives.
	StageDerivatives Stage = "dfdy"
	// StageValidate checks tree invariants.
	StageValidate Stage = "validate"
	// StageEmit writes the lowered document.
	StageEmit Stage = "emit"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StageLoad, StagePLS, StageDerivatives, StageValidate, StageEmit}

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusCached  Status = "cached"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Terminal reports whether no further events follow for the unit.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCached || s == StatusError
}

// Event reports progress for a file, or for the whole batch when File is empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Units lowered in parallel report
// from their own goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations of one unit.
type Timings struct {
	stages map[Stage]time.Duration
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] = dur
}

func (t Timings) Has(stage Stage) bool {
	_, ok := t.stages[stage]
	return ok
}

func (t Timings) Duration(stage Stage) time.Duration {
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages, or all of
// them when none are named.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if len(stages) == 0 {
		stages = Stages
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}

// Recorder is a ProgressSink that keeps every event, for tests and for
// the summary printed after a batch.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnEvent(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Final returns the last terminal status reported per file.
func (r *Recorder) Final() map[string]Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Status)
	for _, evt := range r.events {
		if evt.File != "" && evt.Status.Terminal() {
			out[evt.File] = evt.Status
		}
	}
	return out
}
