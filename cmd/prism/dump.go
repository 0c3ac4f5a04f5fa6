package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prism/internal/compiler"
	"prism/internal/diagfmt"
	"prism/internal/driver"
	"prism/internal/trace"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <file>",
	Short: "Print the tree of a document",
	Long:  "Dump builds a document and prints its tree, after running the passes named by --passes.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("passes", "", "comma separated passes to run before printing")
}

func runDump(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	passesStr, err := cmd.Flags().GetString("passes")
	if err != nil {
		return fmt.Errorf("failed to get passes flag: %w", err)
	}
	passes, err := compiler.ParseOptions(passesStr)
	if err != nil {
		return err
	}
	file, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, file.Config.Trace)
	if err != nil {
		return err
	}
	defer cleanup()

	res := driver.LowerFile(cmd.Context(), args[0], driver.Options{
		Passes: passes,
		Tracer: trace.FromContext(cmd.Context()),
	})
	if res.Err != nil {
		return res.Err
	}
	color, err := readColor(cmd, os.Stderr)
	if err != nil {
		return err
	}
	diagfmt.Pretty(cmd.ErrOrStderr(), res.Diagnostics, res.Files, diagfmt.PrettyOpts{Color: color, BaseDir: file.Root})
	if res.Compiler == nil {
		return fmt.Errorf("%s: no tree", args[0])
	}
	fmt.Fprint(cmd.OutOrStdout(), res.Compiler.Tree().String(res.Root()))
	return nil
}
