package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anime-dubber/models"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the config file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := models.LoadConfigFrom(path)
			if err != nil {
				return err
			}
			cfg.ApplyEnv(os.LookupEnv)

			masked := *cfg
			masked.GoogleAPIKey = mask(masked.GoogleAPIKey)
			masked.OpenAIKey = mask(masked.OpenAIKey)
			data, err := json.MarshalIndent(&masked, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := models.DefaultConfig()
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = cfg.ConfigPath()
			}
			if _, err := os.Stat(path); err == nil {
				if force, _ := cmd.Flags().GetBool("force"); !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the default config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), models.DefaultConfig().ConfigPath())
		},
	}

	cmd.AddCommand(show, initCmd, pathCmd)
	return cmd
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
