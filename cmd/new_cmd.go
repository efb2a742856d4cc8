package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"chatarchive/internal/features/archive"
)

var newCmd = &cobra.Command{
	Use:   "new <dir>",
	Short: "Scaffold a site directory with config.yaml, templates and static files.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetString("group")
		force, _ := cmd.Flags().GetBool("force")

		written, err := archive.NewSite(args[0], group, force)
		if err != nil {
			return err
		}

		sort.Strings(written)
		out := cmd.OutOrStdout()
		for _, name := range written {
			fmt.Fprintf(out, "  created %s\n", name)
		}
		fmt.Fprintf(out, "Site scaffolded in %s. Edit %s, then run 'chatarchive build'.\n", args[0], archive.ScaffoldConfig)
		return nil
	},
}

func init() {
	newCmd.Flags().String("group", "", "Group name substituted into site_name")
	newCmd.Flags().Bool("force", false, "Overwrite existing files")
	rootCmd.AddCommand(newCmd)
}
