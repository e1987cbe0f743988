package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"llmdesk/internal/model"
	"llmdesk/internal/service"
	"llmdesk/internal/storage"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted chat sessions",
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

		repo := service.NewSessionRepository(storage.NewKV(backend))
		sessions := repo.Sessions()
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		currentID := repo.CurrentID()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tNAME\tMESSAGES\tUPDATED")
		for _, s := range sessions {
			marker := ""
			if s.ID == currentID {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				marker, s.ID, s.Name, len(s.Messages), model.FormatTimestamp(s.UpdatedAt.Time))
		}
		return w.Flush()
	},
}
