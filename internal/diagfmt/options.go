// Package diagfmt renders diagnostics for terminals and tools.
package diagfmt

import (
	"path/filepath"

	"prism/internal/source"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto shortens paths under BaseDir and keeps others.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color    bool
	PathMode PathMode
	BaseDir  string
	// Width truncates source excerpts to this many cells; 0 disables it.
	Width     uint8
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	BaseDir          string
	Max              int // truncates the output, not the bag
	IncludeNotes     bool
}

func displayPath(f *source.File, mode PathMode, base string) string {
	switch mode {
	case PathModeAbsolute:
		if f.Flags&source.FileVirtual != 0 {
			return f.Path
		}
		if abs, err := filepath.Abs(f.Path); err == nil {
			return filepath.ToSlash(abs)
		}
		return f.Path
	case PathModeRelative, PathModeAuto:
		return f.DisplayPath(base)
	case PathModeBasename:
		return filepath.Base(f.Path)
	}
	return f.Path
}

// location resolves sp to a path and a start position. ok is false for
// generated spans and spans of unknown files.
func location(fs *source.FileSet, sp source.Span, mode PathMode, base string) (path string, start, end source.LineCol, ok bool) {
	if fs == nil || sp == source.NoSpan {
		return "", start, end, false
	}
	f := fs.Get(sp.File)
	if f == nil {
		return "", start, end, false
	}
	start, end = fs.Resolve(sp)
	return displayPath(f, mode, base), start, end, true
}
