package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"prism/internal/astio"
	"prism/internal/compiler"
	"prism/internal/config"
	"prism/internal/driver"
	"prism/internal/pipeline"
	"prism/internal/trace"
	"prism/internal/ui"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] <file|dir>...",
	Short: "Lower interchange documents",
	Long: `Lower reads tree documents (.json, .msgpack, .mp), runs the enabled
passes and reports diagnostics. Directories are searched recursively.
Lowered trees are written when --out is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLower,
}

func init() {
	lowerCmd.Flags().String("passes", "", "comma separated passes (pixel-local-storage,flip-derivatives,pre-rotation,validate-ast)")
	lowerCmd.Flags().String("rotation", "", "rotation source (specconst|uniforms)")
	lowerCmd.Flags().Bool("pre-rotation", false, "mix derivative axes for pre-rotated surfaces")
	lowerCmd.Flags().Bool("validate", false, "check tree invariants after every pass")
	lowerCmd.Flags().Int("jobs", 0, "max parallel units (0=auto)")
	lowerCmd.Flags().StringP("out", "o", "", "directory for lowered documents (- writes a single unit to stdout)")
	lowerCmd.Flags().String("emit", "", "encoding of lowered documents (json|msgpack, default: same as input)")
	lowerCmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	lowerCmd.Flags().Bool("notes", false, "show diagnostic notes")
	lowerCmd.Flags().String("ui", "auto", "progress UI mode (auto|on|off)")
	lowerCmd.Flags().Bool("cache", false, "reuse lowered units from the disk cache")
}

type lowerFlags struct {
	passes      string
	rotation    string
	preRotation bool
	validate    bool
	jobs        int
	out         string
	emit        string
	format      string
	notes       bool
	ui          switchMode
	cache       bool
}

func readLowerFlags(cmd *cobra.Command) (lowerFlags, error) {
	var f lowerFlags
	var err error
	flags := cmd.Flags()
	if f.passes, err = flags.GetString("passes"); err != nil {
		return f, fmt.Errorf("failed to get passes flag: %w", err)
	}
	if f.rotation, err = flags.GetString("rotation"); err != nil {
		return f, fmt.Errorf("failed to get rotation flag: %w", err)
	}
	if f.preRotation, err = flags.GetBool("pre-rotation"); err != nil {
		return f, fmt.Errorf("failed to get pre-rotation flag: %w", err)
	}
	if f.validate, err = flags.GetBool("validate"); err != nil {
		return f, fmt.Errorf("failed to get validate flag: %w", err)
	}
	if f.jobs, err = flags.GetInt("jobs"); err != nil {
		return f, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if f.out, err = flags.GetString("out"); err != nil {
		return f, fmt.Errorf("failed to get out flag: %w", err)
	}
	if f.emit, err = flags.GetString("emit"); err != nil {
		return f, fmt.Errorf("failed to get emit flag: %w", err)
	}
	if f.format, err = flags.GetString("format"); err != nil {
		return f, fmt.Errorf("failed to get format flag: %w", err)
	}
	if f.notes, err = flags.GetBool("notes"); err != nil {
		return f, fmt.Errorf("failed to get notes flag: %w", err)
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return f, fmt.Errorf("failed to get ui flag: %w", err)
	}
	if f.ui, err = parseSwitch("ui", uiValue); err != nil {
		return f, err
	}
	if f.cache, err = flags.GetBool("cache"); err != nil {
		return f, fmt.Errorf("failed to get cache flag: %w", err)
	}
	switch f.format {
	case "pretty", "short", "json":
	default:
		return f, fmt.Errorf("unsupported format %q (must be pretty, short or json)", f.format)
	}
	if f.emit != "" {
		if _, err := astio.ParseFormat(f.emit); err != nil {
			return f, fmt.Errorf("invalid --emit value: %w", err)
		}
	}
	return f, nil
}

// mergeLowerConfig applies flags the user set on top of prism.toml.
func mergeLowerConfig(cfg config.Config, f lowerFlags, g globalOutput, changed func(string) bool) (config.Config, error) {
	if changed("passes") {
		cfg.Lower.Passes = nil
		for p := range strings.SplitSeq(f.passes, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Lower.Passes = append(cfg.Lower.Passes, p)
			}
		}
	}
	if changed("rotation") {
		cfg.Lower.Rotation = f.rotation
	}
	if changed("pre-rotation") {
		cfg.Lower.PreRotation = f.preRotation
	}
	if changed("jobs") {
		cfg.Lower.Jobs = f.jobs
	}
	if changed("out") {
		cfg.Lower.Output = f.out
	}
	if changed("cache") {
		cfg.Cache.Enabled = f.cache
	}
	if g.maxDiagnostics > 0 {
		cfg.Lower.MaxDiagnostics = g.maxDiagnostics
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func driverOptions(cfg config.Config, f lowerFlags, g globalOutput) (driver.Options, error) {
	passes, err := cfg.Options()
	if err != nil {
		return driver.Options{}, err
	}
	if f.validate {
		passes |= compiler.OptValidateAST
	}
	opts := driver.Options{
		Passes:         passes,
		MaxDiagnostics: cfg.Lower.MaxDiagnostics,
		ArenaLimit:     cfg.Lower.ArenaLimit,
		Jobs:           cfg.Lower.Jobs,
		Timings:        g.timings,
	}
	if cfg.Cache.Enabled {
		if cfg.Cache.Dir != "" {
			opts.Cache, err = driver.NewDiskCache(cfg.Cache.Dir)
		} else {
			opts.Cache, err = driver.OpenDiskCache("prism")
		}
		if err != nil {
			return opts, fmt.Errorf("failed to open cache: %w", err)
		}
	}
	return opts, nil
}

// collectInputs expands directories to the documents below them.
func collectInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := driver.ListDocuments(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", arg, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, errors.New("no documents found")
	}
	return files, nil
}

func runLower(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	flags, err := readLowerFlags(cmd)
	if err != nil {
		return err
	}
	global, err := readGlobalOutput(cmd)
	if err != nil {
		return err
	}
	file, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	cfg, err := mergeLowerConfig(file.Config, flags, global, cmd.Flags().Changed)
	if err != nil {
		return err
	}
	opts, err := driverOptions(cfg, flags, global)
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	files, err := collectInputs(args)
	if err != nil {
		return err
	}
	if cfg.Lower.Output == "-" && len(files) != 1 {
		return fmt.Errorf("--out - needs exactly one document, got %d", len(files))
	}

	ctx := cmd.Context()
	opts.Tracer = trace.FromContext(ctx)

	var results []*driver.Result
	// progress goes to stderr so stdout stays clean for --out -
	if !global.quiet && flags.ui.resolve(os.Stderr) {
		err = ui.Run("lowering", files, cmd.ErrOrStderr(), func(sink pipeline.ProgressSink) error {
			opts.Progress = sink
			var runErr error
			results, runErr = driver.LowerAll(ctx, files, opts)
			return runErr
		})
	} else {
		results, err = driver.LowerAll(ctx, files, opts)
	}
	if err != nil {
		return err
	}

	color, err := readColor(cmd, os.Stderr)
	if err != nil {
		return err
	}
	render := renderOptions{
		format:  flags.format,
		color:   color,
		notes:   flags.notes,
		width:   terminalWidth(os.Stderr),
		baseDir: file.Root,
	}
	if err := renderResults(cmd.ErrOrStderr(), results, render); err != nil {
		return err
	}

	var failed int
	for _, res := range results {
		if res == nil || res.Err != nil || !res.CodegenReady {
			failed++
			continue
		}
		if cfg.Lower.Output != "" {
			if err := writeOutput(cmd, res, cfg.Lower.Output, flags.emit); err != nil {
				return err
			}
		}
		if !global.quiet && cfg.Lower.Output != "-" {
			printUnitSummary(cmd.OutOrStdout(), res)
		}
	}
	if global.timings {
		printTimings(cmd.ErrOrStderr(), results)
	}

	if failed > 0 {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		if !global.quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d unit(s) failed\n", failed, len(results))
		}
		return fmt.Errorf("%d unit(s) failed", failed)
	}
	return nil
}

// outputPath maps an input document to its place under dir. emit, when
// set, replaces the extension.
func outputPath(dir, input, emit string) string {
	name := filepath.Base(input)
	if emit != "" {
		ext := ".json"
		if f, err := astio.ParseFormat(emit); err == nil && f == astio.FormatMsgpack {
			ext = ".msgpack"
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ext
	}
	return filepath.Join(dir, name)
}

func writeOutput(cmd *cobra.Command, res *driver.Result, dir, emit string) error {
	if dir == "-" {
		format := astio.FormatJSON
		if emit != "" {
			format, _ = astio.ParseFormat(emit)
		}
		return astio.Encode(cmd.OutOrStdout(), res.Output, format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := outputPath(dir, res.Path, emit)
	if err := astio.WriteFile(path, res.Output); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
