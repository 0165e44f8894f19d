package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/byteowlz/kaextract/internal/ui"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local result cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached results, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeCache, err := openCache(cfg, false)
		if err != nil {
			return exitError(ExitFileIOError, "failed to open cache: %v", err)
		}
		defer closeCache()

		ui.RenderEntries(cmd.OutOrStdout(), c.Entries(), time.Now(), c.Expiry())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, closeCache, err := openCache(cfg, false)
		if err != nil {
			return exitError(ExitFileIOError, "failed to open cache: %v", err)
		}
		defer closeCache()

		n := c.Len()
		if err := c.Clear(); err != nil {
			return exitError(ExitFileIOError, "failed to clear cache: %v", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "removed %d cached results\n", n)
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd)
}
