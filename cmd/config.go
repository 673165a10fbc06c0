package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pixpress/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pixpress presets",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default preset as YAML (\"-\" for stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigName + ".yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if path == "-" {
			return config.WritePreset(os.Stdout, config.DefaultFile())
		}
		if err := config.WritePresetFile(path, config.DefaultFile(), configForce); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote default preset to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after files, environment and flags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, _, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if settings.ConfigFile != "" {
			fmt.Fprintf(os.Stdout, "# from %s\n", settings.ConfigFile)
		}
		return config.WritePreset(os.Stdout, config.FileFrom(settings.Process, settings.Workers, settings.History))
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	config.BindProcessFlags(configShowCmd.Flags())

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
