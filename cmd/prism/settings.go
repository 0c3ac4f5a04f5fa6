package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"prism/internal/config"
)

// loadConfig reads the file named by --config, or the nearest prism.toml
// above the first input.
func loadConfig(cmd *cobra.Command, inputs []string) (*config.File, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if explicit != "" {
		return config.Load(explicit)
	}
	start := "."
	if len(inputs) > 0 && inputs[0] != "-" {
		start = inputs[0]
		if info, statErr := os.Stat(start); statErr == nil && !info.IsDir() {
			start = filepath.Dir(start)
		}
	}
	f, _, err := config.Discover(start)
	return f, err
}

// switchMode is the value of an auto|on|off flag.
type switchMode uint8

const (
	switchAuto switchMode = iota
	switchOn
	switchOff
)

func parseSwitch(flag, value string) (switchMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return switchAuto, nil
	case "on":
		return switchOn, nil
	case "off":
		return switchOff, nil
	}
	return switchAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// resolve decides an auto switch by whether f is a terminal.
func (m switchMode) resolve(f *os.File) bool {
	switch m {
	case switchOn:
		return true
	case switchOff:
		return false
	}
	return isTerminal(f)
}

// readColor resolves --color against the terminal state of out.
func readColor(cmd *cobra.Command, out *os.File) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	mode, err := parseSwitch("color", value)
	if err != nil {
		return false, err
	}
	if mode == switchAuto && color.NoColor {
		return false, nil
	}
	return mode.resolve(out), nil
}

// globalOutput holds the persistent flags every command renders with.
type globalOutput struct {
	quiet          bool
	timings        bool
	maxDiagnostics int
}

func readGlobalOutput(cmd *cobra.Command) (globalOutput, error) {
	var g globalOutput
	var err error
	flags := cmd.Root().PersistentFlags()
	if g.quiet, err = flags.GetBool("quiet"); err != nil {
		return g, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if g.timings, err = flags.GetBool("timings"); err != nil {
		return g, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if g.maxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
		return g, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if g.maxDiagnostics < 0 {
		return g, fmt.Errorf("--max-diagnostics must not be negative")
	}
	return g, nil
}
