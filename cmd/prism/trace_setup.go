package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"

	"prism/internal/config"
	"prism/internal/trace"
)

// activeRing is the ring tracer of the running command, dumped when the
// command panics.
var activeRing atomic.Pointer[trace.RingTracer]

// setupTracing reads the trace flags, falling back to the [trace] table
// of prism.toml, and attaches the tracer to the command context. It
// returns a cleanup function that flushes and closes the tracer.
func setupTracing(cmd *cobra.Command, cfg config.TraceConfig) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := root.PersistentFlags().GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	if traceOutput == "" {
		traceOutput = cfg.Output
	}
	if levelStr == "" {
		levelStr = cfg.Level
	}
	if formatStr == "" {
		formatStr = cfg.Format
	}
	if levelStr == "" {
		levelStr = "off"
		if traceOutput != "" {
			levelStr = "phase"
		}
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	if mode == trace.ModeRing && traceOutput != "" && !root.PersistentFlags().Changed("trace-mode") {
		mode = trace.ModeBoth
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace format: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	activeRing.Store(ringOf(tracer))

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	cleanup := func() {
		activeRing.Store(nil)
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

func ringOf(t trace.Tracer) *trace.RingTracer {
	switch t := t.(type) {
	case *trace.RingTracer:
		return t
	case *trace.MultiTracer:
		return t.Ring()
	}
	return nil
}

// dumpTraceOnPanic writes the buffered trace events to stderr and
// re-panics. Deferred first thing by commands that lower shaders.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if ring := activeRing.Load(); ring != nil {
		fmt.Fprintf(os.Stderr, "prism: panic: %v\nlast trace events:\n", r)
		_ = ring.Dump(os.Stderr, trace.FormatText)
	}
	panic(r)
}
