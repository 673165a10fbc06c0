package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pixpress/internal/batch"
	"pixpress/internal/config"
	"pixpress/internal/encode"
	"pixpress/internal/pipeline"
	"pixpress/internal/tui"
)

var optimizeJSON bool

var optimizeCmd = &cobra.Command{
	Use:   "optimize [flags] <image>",
	Short: "Optimise a single image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		for _, note := range encode.InertOptions(settings.Process) {
			logger.Debug("option has no effect", slog.String("note", note))
		}

		events := make(chan pipeline.Event, 8)
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for ev := range events {
				logger.Debug("stage", slog.String("stage", ev.Stage.String()), slog.String("message", ev.Message))
			}
		}()

		exec := batch.New(settings.Process, batch.Options{Workers: 1, Logger: logger})
		res, err := exec.ProcessSingleWithEvents(cmd.Context(), args[0], events)
		close(events)
		<-drained

		if optimizeJSON {
			if encErr := printJSON(res); encErr != nil {
				return encErr
			}
			return err
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary(tui.ResultRows(args[0], res)))
		return nil
	},
}

func init() {
	config.BindProcessFlags(optimizeCmd.Flags())
	optimizeCmd.Flags().BoolVar(&optimizeJSON, "json", false, "print the result as JSON")

	rootCmd.AddCommand(optimizeCmd)
}
