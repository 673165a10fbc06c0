package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pixpress/internal/batch"
	"pixpress/internal/config"
	"pixpress/internal/watch"
)

var (
	watchRecursive bool
	watchDebounce  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <dir>",
	Short: "Optimise images as they are added to a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exec := batch.New(settings.Process, batch.Options{Workers: 1, Logger: logger})
		w, err := watch.New(exec, watch.Options{
			Debounce:  watchDebounce,
			Recursive: watchRecursive,
			OutputDir: settings.Process.OutputDir,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		if err := w.Add(args[0]); err != nil {
			return err
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for u := range w.Updates() {
				switch {
				case !u.Result.Success:
					fmt.Fprintf(os.Stdout, "✗ %s: %s\n", u.Path, u.Result.Error)
				case batch.IsSkipped(u.Result):
					fmt.Fprintf(os.Stdout, "- %s: %s\n", u.Path, u.Result.OutputPath)
				default:
					fmt.Fprintf(os.Stdout, "✓ %s -> %s (%.1f%%)\n", u.Path, u.Result.OutputPath, u.Result.CompressionRatio)
				}
			}
		}()

		fmt.Fprintf(os.Stdout, "Watching %s, press Ctrl+C to stop.\n", args[0])
		err = w.Run(ctx)
		<-done
		return err
	},
}

func init() {
	config.BindProcessFlags(watchCmd.Flags())
	watchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", true, "watch subdirectories too")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a changed file is processed")

	rootCmd.AddCommand(watchCmd)
}
