package cli

import (
	"github.com/spf13/cobra"

	"anime-dubber/ui"
)

func newGUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			store := openHistory(e.cfg.HistoryPath, e.log)
			if store != nil {
				defer store.Close()
			}
			ui.Run(e.cfg, e.log, store)
			return nil
		},
	}
}
