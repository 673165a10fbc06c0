package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pixpress/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "pixpress",
	Short:         "pixpress - resize, re-encode and compress images",
	Long:          "pixpress optimises images for the web: it resizes, converts to PNG, JPEG or WebP and compresses them in parallel.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./pixpress.yaml or the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}

func loadSettings(cmd *cobra.Command) (config.Settings, *slog.Logger, error) {
	return config.Load(cfgFile, verbose, cmd.Flags())
}
