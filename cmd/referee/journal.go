package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"droneops-referee/internal/config"
	"droneops-referee/internal/journal"
)

// defaultJournalPath is read when neither the flag nor REFEREE_JOURNAL is set.
const defaultJournalPath = "referee-journal"

var journalPath string

var journalCmd = &cobra.Command{
	Use:   "journal [run-id]",
	Short: "List journaled runs or print the events of one run",
	Long:  "journal reads the badger event journal. Without arguments it lists run ids; with a run id it prints that run's events as YAML.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := journalPath
		if path == "" {
			settings, err := config.ParseEnv()
			if err != nil {
				return err
			}
			path = settings.JournalPath
		}
		if path == "" {
			path = defaultJournalPath
		}
		store, err := journal.Open(path, nil)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 0 {
			runs, err := store.Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		}

		rows, err := store.Records(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("no events for run %s", args[0])
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rows)
	},
}

func init() {
	journalCmd.Flags().StringVar(&journalPath, "path", "", "Directory of the badger event journal (REFEREE_JOURNAL, then "+defaultJournalPath+")")
}
