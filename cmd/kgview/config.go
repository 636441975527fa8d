package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kgview/internal/config"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show which config file is in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := g.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintf(out, "config: %s\n%s\n\nsearch order:\n", path, cfg.Summary())
			for _, p := range config.SearchPaths() {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Writes the defaults to --config, or to the user config directory
($XDG_CONFIG_HOME/kgview or ~/.config/kgview) when --config is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
