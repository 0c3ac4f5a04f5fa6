package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"prism/internal/astio"
	"prism/internal/compiler"
	"prism/internal/diag"
	"prism/internal/diagfmt"
	"prism/internal/qualifier"
	"prism/internal/source"
)

var qualsCmd = &cobra.Command{
	Use:   "quals [flags] <qualifier>...",
	Short: "Resolve a qualifier sequence",
	Long: `Quals checks a sequence of declaration qualifiers and prints the
resolved record, for example:

  prism quals --version 300 smooth out highp
  prism quals "layout(binding=0,rgba8)" uniform`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuals,
}

func init() {
	qualsCmd.Flags().String("stage", "fragment", "shader stage (vertex|fragment|compute)")
	qualsCmd.Flags().Int("version", 310, "shading language version")
	qualsCmd.Flags().Bool("param", false, "resolve as a function parameter")
	qualsCmd.Flags().Bool("local", false, "resolve as a local variable")
}

func runQuals(cmd *cobra.Command, args []string) error {
	stageStr, err := cmd.Flags().GetString("stage")
	if err != nil {
		return fmt.Errorf("failed to get stage flag: %w", err)
	}
	ver, err := cmd.Flags().GetInt("version")
	if err != nil {
		return fmt.Errorf("failed to get version flag: %w", err)
	}
	param, err := cmd.Flags().GetBool("param")
	if err != nil {
		return fmt.Errorf("failed to get param flag: %w", err)
	}
	local, err := cmd.Flags().GetBool("local")
	if err != nil {
		return fmt.Errorf("failed to get local flag: %w", err)
	}
	stage, err := compiler.ParseStage(stageStr)
	if err != nil {
		return err
	}

	fs := source.NewFileSet()
	q, ok, err := resolveWords(fs, stage, ver, args, param, local)
	if err != nil {
		return err
	}
	if !ok {
		color, colorErr := readColor(cmd, os.Stderr)
		if colorErr != nil {
			return colorErr
		}
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		diagfmt.Pretty(cmd.ErrOrStderr(), q.diags, fs, diagfmt.PrettyOpts{Color: color})
		return fmt.Errorf("qualifier sequence rejected")
	}
	printQualifiers(cmd.OutOrStdout(), q.record)
	return nil
}

type qualsResult struct {
	record qualifier.Qualifiers
	diags  []diag.Diagnostic
}

// resolveWords registers the joined words as a source line so
// diagnostics can point at the offending word.
func resolveWords(fs *source.FileSet, stage compiler.Stage, ver int, words []string, param, local bool) (qualsResult, bool, error) {
	var kept []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			kept = append(kept, w)
		}
	}
	text := strings.Join(kept, " ")
	file := fs.AddVirtual("<quals>", []byte(text))

	mods, err := astio.ModifiersFromWords(kept)
	if err != nil {
		return qualsResult{}, false, err
	}
	offset := 0
	for i, w := range kept {
		start, err := safecast.Conv[uint32](offset)
		if err != nil {
			return qualsResult{}, false, err
		}
		end, err := safecast.Conv[uint32](offset + len(w))
		if err != nil {
			return qualsResult{}, false, err
		}
		mods[i].Span = &astio.Span{Start: start, End: end}
		offset += len(w) + 1
	}

	c := compiler.New(compiler.Config{Stage: stage, Version: ver, Files: fs})
	rec, err := astio.Resolve(c, mods, param, local, func(s *astio.Span) source.Span {
		if s == nil {
			return source.NoSpan
		}
		return source.Span{File: file, Start: s.Start, End: s.End}
	})
	if err != nil {
		return qualsResult{}, false, err
	}
	res := qualsResult{record: rec, diags: c.Diagnostics().Bag().Items()}
	return res, c.Diagnostics().ErrorCount() == 0, nil
}

func printQualifiers(w io.Writer, q qualifier.Qualifiers) {
	fmt.Fprintf(w, "storage:   %s\n", q.Storage)
	if p := q.Precision.String(); p != "" {
		fmt.Fprintf(w, "precision: %s\n", p)
	}
	if !q.Layout.IsEmpty() {
		fmt.Fprintf(w, "layout:    %s\n", q.Layout)
	}
	if q.Invariant {
		fmt.Fprintln(w, "invariant: true")
	}
}
