package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/services"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Publish the site once.",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build, then rebuild incrementally whenever the archive database changes.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	buildCmd.Flags().Bool("symlink", false, "Symlink static and media directories and index.html instead of copying")
	watchCmd.Flags().Duration("debounce", services.DefaultDebounce, "Quiet period after a database write before rebuilding")
	rootCmd.AddCommand(buildCmd, watchCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	symlink, _ := cmd.Flags().GetBool("symlink")
	a, err := setup(cmd, func(c *core.Config) {
		c.Build.Symlink = c.Build.Symlink || symlink
	})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer a.close(ctx)

	if err := a.init(ctx); err != nil {
		return err
	}

	result, err := a.archive.Build(ctx)
	if errors.Is(err, services.ErrNoData) {
		fmt.Fprintln(cmd.OutOrStdout(), "No data found to publish site.")
		return nil
	}
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		a.logger.Warn("Build warning", "warning", w)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %s pages (%d skipped) across %d months in %s. Entry point: %s\n",
		humanize.Comma(int64(result.Pages)), result.Skipped, result.Months,
		result.Duration.Round(time.Millisecond), result.IndexPage)
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	// Rebuilds only touch what changed since the previous one.
	a, err := setup(cmd, func(c *core.Config) {
		c.Build.IncrementalBuilds = true
	})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer a.close(ctx)

	if err := a.init(ctx); err != nil {
		return err
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	watcher, err := a.archive.Watch(ctx, debounce)
	if err != nil {
		return err
	}

	watcher.Wait()
	return nil
}
