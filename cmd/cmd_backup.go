package main

import (
	"fmt"

	"llmdesk/internal/storage"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the session store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		backend, err := storage.Open(cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer backend.Close()

		b, ok := backend.(storage.Backuper)
		if !ok {
			return fmt.Errorf("storage type %q does not support backup", cfg.Storage.Type)
		}

		path, err := b.Backup()
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		fmt.Printf("Backup written to %s\n", path)
		return nil
	},
}
