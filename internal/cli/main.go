// Package cli is the anime-dubber command line.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCommand()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "anime-dubber",
		Short:         "Dub Japanese anime into another language",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default ~/.config/anime-dubber/config.json)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Also append the log to this file")

	root.AddCommand(
		newRunCommand(),
		newOCRCommand(),
		newStatusCommand(),
		newDiscardCommand(),
		newHistoryCommand(),
		newConfigCommand(),
		newGUICommand(),
	)
	return root
}
