package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"anime-dubber/internal/history"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			store, err := history.Open(e.cfg.HistoryPath)
			if err != nil {
				return err
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			jobID, _ := cmd.Flags().GetString("job")

			var entries []history.Entry
			if jobID != "" {
				entries, err = store.ForJob(cmd.Context(), jobID)
			} else {
				entries, err = store.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tJOB\tMODE\tSTATUS\tSTAGE\tOUTPUT\tERROR")
			for _, en := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					en.RecordedAt.Local().Format(time.DateTime), shortID(en.JobID), en.Mode,
					en.Status, en.Stage, filepath.Base(en.Output), en.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum rows; 0 for all")
	cmd.Flags().String("job", "", "Show every run of one job ID")
	cmd.Flags().String("history", "", "Job history database")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
