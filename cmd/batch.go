package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pixpress/internal/batch"
	"pixpress/internal/config"
	"pixpress/internal/history"
	"pixpress/internal/pipeline"
	"pixpress/internal/tui"
)

var (
	batchInputs inputOptions
	batchNoTUI  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] <path>...",
	Short: "Optimise many images in parallel",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		paths, err := collectInputs(ctx, args, batchInputs)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Fprintln(os.Stdout, "No supported images found.")
			return nil
		}

		cfg := settings.Process
		if cfg.PreserveFolderStructure && cfg.BasePath == "" && len(args) == 1 {
			if info, statErr := os.Stat(args[0]); statErr == nil && info.IsDir() {
				cfg.BasePath = args[0]
			}
		}

		runID := uuid.NewString()
		started := time.Now()
		var results []pipeline.Result
		interrupted := false
		if batchNoTUI || !isatty.IsTerminal(os.Stdout.Fd()) {
			results = runPlain(ctx, cfg, settings.Workers, runID, logger, paths)
			interrupted = ctx.Err() != nil
		} else {
			results, interrupted, err = runWithTUI(ctx, cfg, settings.Workers, runID, paths)
			if err != nil {
				return err
			}
		}
		finished := time.Now()

		sum := batch.Summarize(results)
		fmt.Fprintln(os.Stdout, tui.RenderSummary(tui.BatchRows(sum, finished.Sub(started))))
		if sum.Failed > 0 {
			fmt.Fprintln(os.Stdout, tui.RenderFailures(paths, results))
		}
		outPath := cfg.OutputDir
		if abs, absErr := filepath.Abs(outPath); absErr == nil {
			outPath = abs
		}
		fmt.Fprintf(os.Stdout, "Optimised files written to: %s\n", outPath)

		if settings.History.Enabled {
			if err := recordRun(settings.History, runID, cfg, paths, results, started, finished); err != nil {
				logger.Warn("could not record run history", slog.Any("error", err))
			}
		}

		if interrupted {
			return fmt.Errorf("batch cancelled")
		}
		if sum.Failed > 0 {
			return fmt.Errorf("%d of %d images failed", sum.Failed, sum.Total)
		}
		return nil
	},
}

func runPlain(ctx context.Context, cfg config.ProcessConfig, workers int, runID string, logger *slog.Logger, paths []string) []pipeline.Result {
	exec := batch.New(cfg, batch.Options{Workers: workers, Logger: logger, RunID: runID})
	return exec.ProcessBatch(ctx, paths)
}

func runWithTUI(ctx context.Context, cfg config.ProcessConfig, workers int, runID string, paths []string) ([]pipeline.Result, bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan batch.Update, 64)
	program := tea.NewProgram(tui.NewModel(updates, len(paths), cancel))

	uiDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		if err != nil {
			// Nothing drains updates any more; unblock the executor.
			cancel()
		}
		uiDone <- err
	}()

	// The executor logs nothing while the TUI owns the terminal; failures are
	// listed after the summary instead.
	exec := batch.New(cfg, batch.Options{Workers: workers, Updates: updates, RunID: runID})
	results := exec.ProcessBatch(ctx, paths)
	interrupted := ctx.Err() != nil
	close(updates)

	if err := <-uiDone; err != nil {
		return results, interrupted, fmt.Errorf("progress view: %w", err)
	}
	return results, interrupted, nil
}

func recordRun(h config.HistorySettings, runID string, cfg config.ProcessConfig, paths []string, results []pipeline.Result, started, finished time.Time) error {
	path, err := h.ResolvePath()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Record(runID, cfg, paths, results, started, finished)
	return err
}

func init() {
	flags := batchCmd.Flags()
	config.BindProcessFlags(flags)
	flags.Bool(config.FlagNoHistory, false, "do not record this run in the history database")
	flags.BoolVar(&batchNoTUI, "no-tui", false, "print log lines instead of the progress view")
	batchInputs.bind(flags)

	rootCmd.AddCommand(batchCmd)
}
