package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"fortio.org/safecast"

	"prism/internal/diagfmt"
	"prism/internal/driver"
	"prism/internal/pipeline"
)

type renderOptions struct {
	format  string
	color   bool
	notes   bool
	width   int
	baseDir string
}

type unitJSON struct {
	Path         string                    `json:"path"`
	CodegenReady bool                      `json:"codegen_ready"`
	Cached       bool                      `json:"cached,omitempty"`
	Error        string                    `json:"error,omitempty"`
	SpecConst    string                    `json:"spec_const,omitempty"`
	Uniforms     []string                  `json:"uniforms,omitempty"`
	Diagnostics  diagfmt.DiagnosticsOutput `json:"diagnostics"`
}

// renderResults writes the diagnostics of every unit in path order.
func renderResults(w io.Writer, results []*driver.Result, opts renderOptions) error {
	if opts.format == "json" {
		units := make([]unitJSON, 0, len(results))
		for _, res := range results {
			if res == nil {
				continue
			}
			u := unitJSON{
				Path:         res.Path,
				CodegenReady: res.CodegenReady,
				Cached:       res.Cached,
				SpecConst:    res.SpecConst,
				Uniforms:     res.Uniforms,
				Diagnostics: diagfmt.BuildDiagnosticsOutput(res.Diagnostics, res.Files, diagfmt.JSONOpts{
					IncludePositions: true,
					PathMode:         diagfmt.PathModeAuto,
					BaseDir:          opts.baseDir,
					IncludeNotes:     opts.notes,
				}),
			}
			if res.Err != nil {
				u.Error = res.Err.Error()
			}
			units = append(units, u)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"units": units})
	}

	width, err := safecast.Conv[uint8](min(max(opts.width-8, 0), 255))
	if err != nil {
		width = 0
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", res.Path, res.Err)
		}
		switch opts.format {
		case "short":
			diagfmt.Short(w, res.Diagnostics, res.Files, diagfmt.PathModeAuto, opts.baseDir)
		default:
			diagfmt.Pretty(w, res.Diagnostics, res.Files, diagfmt.PrettyOpts{
				Color:     opts.color,
				PathMode:  diagfmt.PathModeAuto,
				BaseDir:   opts.baseDir,
				Width:     width,
				ShowNotes: opts.notes,
			})
		}
	}
	return nil
}

// printUnitSummary tells the host what to bind for a lowered unit.
func printUnitSummary(w io.Writer, res *driver.Result) {
	var parts []string
	if res.Cached {
		parts = append(parts, "cached")
	}
	if res.SpecConst != "" {
		parts = append(parts, "spec constant "+res.SpecConst)
	}
	if len(res.Uniforms) > 0 {
		parts = append(parts, "uniforms "+strings.Join(res.Uniforms, ", "))
	}
	if len(parts) == 0 {
		fmt.Fprintf(w, "%s: ok\n", res.Path)
		return
	}
	fmt.Fprintf(w, "%s: ok (%s)\n", res.Path, strings.Join(parts, "; "))
}

var timedStages = []struct {
	stage pipeline.Stage
	verb  string
}{
	{pipeline.StageLoad, "loaded"},
	{pipeline.StagePLS, "lowered pls"},
	{pipeline.StageDerivatives, "lowered derivatives"},
	{pipeline.StageValidate, "validated"},
	{pipeline.StageEmit, "emitted"},
}

func printTimings(w io.Writer, results []*driver.Result) {
	for _, res := range results {
		if res == nil || res.Cached {
			continue
		}
		fmt.Fprintf(w, "%s:\n", res.Path)
		printStageTimings(w, res.Timings)
		if res.Report == nil {
			continue
		}
		for _, p := range res.Report.Phases {
			fmt.Fprintf(w, "  pass %-18s %.2f ms\n", p.Name, p.DurationMS)
		}
	}
}

func printStageTimings(w io.Writer, timings pipeline.Timings) {
	for _, ts := range timedStages {
		if timings.Has(ts.stage) {
			fmt.Fprintf(w, "  %s %.1f ms\n", ts.verb, toMillis(timings.Duration(ts.stage)))
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
