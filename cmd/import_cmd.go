package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"chatarchive/internal/features/archive/models"
)

const importBatchSize = 500

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load messages from a JSON Lines file into the archive database.",
	Long: `Read one JSON message object per line (or "-" for stdin) and upsert it,
together with its user and media, into the archive database.

  {"id": 1, "date": "2023-01-05T10:00:00Z", "content": "hi", "user": {"id": 7, "username": "ann"}}`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer a.close(ctx)

	if err := a.archive.GetMigrationManager().Migrate(ctx); err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	service := a.archive.GetMessageService()
	dec := json.NewDecoder(in)
	batch := make([]models.Message, 0, importBatchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := service.SaveMessages(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		var m models.Message
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to decode message %d: %w", total+len(batch)+1, err)
		}
		if m.ID == 0 {
			return fmt.Errorf("message %d has no id", total+len(batch)+1)
		}
		batch = append(batch, m)
		if len(batch) == importBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d messages.\n", total)
	return nil
}
