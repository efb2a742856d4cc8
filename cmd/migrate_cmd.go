package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the archive database schema (up, down, status).",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		mgr := a.archive.GetMigrationManager()
		pending, err := mgr.GetPendingMigrations(cmd.Context())
		if err != nil {
			// The migrations table does not exist yet on a fresh database.
			pending = mgr.Migrations()
		}
		if err := mgr.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s).\n", len(pending))
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		if err := a.archive.GetMigrationManager().Rollback(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Rolled back the latest migration.")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied migrations.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		status, err := a.archive.GetMigrationManager().Status(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d migration(s) applied\n", status.AppliedCount)
		for _, m := range status.Applied {
			fmt.Fprintf(out, "  %03d %-32s %s\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
