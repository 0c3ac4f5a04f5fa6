package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prism/internal/driver"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the lowered unit cache",
	Long:  "Remove every entry of the disk cache used by lower --cache.",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, _ []string) error {
	file, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	var cache *driver.DiskCache
	if dir := file.Config.Cache.Dir; dir != "" {
		cache, err = driver.NewDiskCache(dir)
	} else {
		cache, err = driver.OpenDiskCache("prism")
	}
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to drop %s: %w", cache.Dir(), err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", cache.Dir())
	return nil
}
