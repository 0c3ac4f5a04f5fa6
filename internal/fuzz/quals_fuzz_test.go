package fuzztests

import (
	"strings"
	"testing"

	"prism/internal/astio"
	"prism/internal/compiler"
	"prism/internal/source"
)

func FuzzQualifierWords(f *testing.F) {
	for _, w := range wordSeeds {
		f.Add(w, uint16(300), false)
		f.Add(w, uint16(310), true)
	}
	f.Fuzz(func(t *testing.T, text string, version uint16, param bool) {
		if len(text) > 1024 {
			return
		}
		mods, err := astio.ModifiersFromWords(strings.Fields(text))
		if err != nil {
			return
		}
		c := compiler.New(compiler.Config{Stage: compiler.StageFragment, Version: int(version)})
		noSpan := func(*astio.Span) source.Span { return source.NoSpan }
		if _, err := astio.Resolve(c, mods, param, false, noSpan); err != nil {
			return
		}
		// variables stop at the first fault
		if !param && c.Diagnostics().ErrorCount() > 1 {
			t.Fatalf("%q reported %d errors:\n%s", text, c.Diagnostics().ErrorCount(), c.Diagnostics().Messages())
		}
	})
}
