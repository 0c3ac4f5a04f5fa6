package diag

import (
	"fmt"
	"io"
	"strings"

	"prism/internal/source"
)

// HaltFunc is called after every error reported to a Sink.
type HaltFunc func(d Diagnostic)

// Sink collects the diagnostics of one compilation. It counts every report,
// including those that no longer fit into the bag.
type Sink struct {
	bag      *Bag
	files    *source.FileSet
	out      io.Writer
	halt     HaltFunc
	errors   int
	warnings int
	stream   strings.Builder
}

// NewSink returns a sink storing up to max diagnostics (0 = unbounded).
func NewSink(files *source.FileSet, max int) *Sink {
	return &Sink{bag: NewBag(max), files: files}
}

// SetHaltFunc installs the callback invoked on errors; nil removes it.
func (s *Sink) SetHaltFunc(fn HaltFunc) {
	s.halt = fn
}

// SetOutput echoes every formatted message to w as it is reported.
func (s *Sink) SetOutput(w io.Writer) {
	s.out = w
}

func (s *Sink) Report(code Code, sev Severity, primary source.Span, token, msg string, notes []Note) {
	d := Diagnostic{
		Severity: sev, Code: code, Token: token, Message: msg,
		Primary: primary, Notes: notes,
	}
	switch sev {
	case SevError:
		s.errors++
	case SevWarning:
		s.warnings++
	}
	s.bag.Add(d)
	line := s.format(d)
	s.stream.WriteString(line)
	s.stream.WriteByte('\n')
	if s.out != nil {
		fmt.Fprintln(s.out, line)
	}
	if sev.Blocking() && s.halt != nil {
		s.halt(d)
	}
}

// Error reports an error about token at loc.
func (s *Sink) Error(loc source.Span, code Code, token, reason string) {
	s.Report(code, SevError, loc, token, reason, nil)
}

// Warning reports a warning about token at loc.
func (s *Sink) Warning(loc source.Span, code Code, token, reason string) {
	s.Report(code, SevWarning, loc, token, reason, nil)
}

func (s *Sink) ErrorCount() int {
	return s.errors
}

func (s *Sink) WarningCount() int {
	return s.warnings
}

// Reset clears counters, stored diagnostics and the message stream.
// The halt callback and output writer stay installed.
func (s *Sink) Reset() {
	s.errors = 0
	s.warnings = 0
	s.bag.Reset()
	s.stream.Reset()
}

// Bag exposes the stored diagnostics.
func (s *Sink) Bag() *Bag {
	return s.bag
}

// Files returns the file set used to resolve locations, possibly nil.
func (s *Sink) Files() *source.FileSet {
	return s.files
}

// Messages returns the formatted message stream, one diagnostic per line.
func (s *Sink) Messages() string {
	return s.stream.String()
}

func (s *Sink) format(d Diagnostic) string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, s.location(d.Primary), d.Text())
}

func (s *Sink) location(sp source.Span) string {
	if s.files == nil {
		return fmt.Sprintf("%d:%d", sp.File, sp.Start)
	}
	f := s.files.Get(sp.File)
	if f == nil {
		return fmt.Sprintf("%d:%d", sp.File, sp.Start)
	}
	start, _ := s.files.Resolve(sp)
	return fmt.Sprintf("%s:%d", f.Path, start.Line)
}
