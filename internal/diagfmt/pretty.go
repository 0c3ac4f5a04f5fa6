package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"prism/internal/diag"
	"prism/internal/source"
)

type palette struct {
	err, warn, info, code, gutter, caret, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		code:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		note:   color.New(color.FgCyan, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.gutter, p.caret, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes items in a human readable form:
//
//	<path>:<line>:<col>: ERROR QUA1001: 'token' : message
//	   3 | smooth out highp vec2 v_uv;
//	     | ^~~~~~~~~
//
// followed by notes when ShowNotes is set.
func Pretty(w io.Writer, items []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i := range items {
		d := &items[i]
		path, start, end, ok := location(fs, d.Primary, opts.PathMode, opts.BaseDir)
		where := "<generated>"
		if ok {
			where = fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
		}
		fmt.Fprintf(w, "%s: %s %s: %s\n", where,
			p.severity(d.Severity).Sprint(d.Severity.String()),
			p.code.Sprint(d.Code.ID()), d.Text())
		if ok {
			excerpt(w, p, fs.Get(d.Primary.File), start, end, opts.Width)
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			npath, nstart, _, nok := location(fs, n.Span, opts.PathMode, opts.BaseDir)
			if nok {
				fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note.Sprint("note:"), npath, nstart.Line, nstart.Col, n.Msg)
			} else {
				fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
			}
		}
	}
}

// excerpt prints the start line of a span with a caret underline. Columns
// are measured in terminal cells so wide runes line up.
func excerpt(w io.Writer, p palette, f *source.File, start, end source.LineCol, width uint8) {
	raw := f.Line(start.Line)
	if raw == "" {
		return
	}
	line := strings.ReplaceAll(raw, "\t", "    ")
	col := int(start.Col) - 1
	col = min(max(col, 0), len(raw))
	stop := len(raw)
	if end.Line == start.Line {
		stop = min(max(int(end.Col)-1, col), len(raw))
	}
	lead := runewidth.StringWidth(strings.ReplaceAll(raw[:col], "\t", "    "))
	span := max(runewidth.StringWidth(strings.ReplaceAll(raw[col:stop], "\t", "    ")), 1)
	if width > 0 && runewidth.StringWidth(line) > int(width) {
		line = runewidth.Truncate(line, int(width), "…")
		if lead >= int(width) {
			lead, span = int(width)-1, 1
		} else if lead+span > int(width) {
			span = int(width) - lead
		}
	}

	num := fmt.Sprintf("%4d", start.Line)
	fmt.Fprintf(w, "%s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), line)
	underline := "^" + strings.Repeat("~", span-1)
	fmt.Fprintf(w, "%s %s %s%s\n", strings.Repeat(" ", len(num)), p.gutter.Sprint("|"),
		strings.Repeat(" ", lead), p.caret.Sprint(underline))
}

// Short writes one line per diagnostic, the format editors parse:
//
//	path:line:col: error: [QUA1001] 'token' : message
func Short(w io.Writer, items []diag.Diagnostic, fs *source.FileSet, mode PathMode, base string) {
	for i := range items {
		d := &items[i]
		where := "<generated>"
		if path, start, _, ok := location(fs, d.Primary, mode, base); ok {
			where = fmt.Sprintf("%s:%d:%d", path, start.Line, start.Col)
		}
		fmt.Fprintf(w, "%s: %s: [%s] %s\n", where, d.Severity.Label(), d.Code.ID(), d.Text())
	}
}
