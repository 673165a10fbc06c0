package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pixpress/internal/history"
	"pixpress/internal/tui"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent batch runs, or the items of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, _, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		path, err := settings.History.ResolvePath()
		if err != nil {
			return err
		}
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			run, err := store.Get(args[0])
			if err != nil {
				return err
			}
			if historyJSON {
				return printJSON(run)
			}
			printRun(run)
			return nil
		}

		runs, err := store.Recent(historyLimit)
		if err != nil {
			return err
		}
		if historyJSON {
			return printJSON(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stdout, "No runs recorded yet.")
			return nil
		}
		for _, run := range runs {
			fmt.Fprintf(os.Stdout, "%s  %s\n",
				historyIDStyle.Render(run.ID),
				historyDimStyle.Render(fmt.Sprintf("%s  %s  %d images, %d failed, saved %s",
					run.StartedAt.Local().Format(time.DateTime),
					run.Format,
					run.Total,
					run.Failed,
					tui.FormatSaved(run.OriginalBytes, run.NewBytes),
				)),
			)
		}
		return nil
	},
}

func printRun(run history.Run) {
	fmt.Fprintln(os.Stdout, tui.RenderSummary([]tui.SummaryRow{
		{Label: "Run", Value: run.ID},
		{Label: "Started", Value: run.StartedAt.Local().Format(time.DateTime)},
		{Label: "Format", Value: run.Format},
		{Label: "Output", Value: run.OutputDir},
		{Label: "Images", Value: fmt.Sprintf("%d", run.Total)},
		{Label: "Failed", Value: fmt.Sprintf("%d", run.Failed)},
		{Label: "Saved", Value: tui.FormatSaved(run.OriginalBytes, run.NewBytes)},
	}))
	for _, e := range run.Entries {
		switch {
		case !e.Success:
			fmt.Fprintf(os.Stdout, "✗ %s  %s\n", e.InputPath, historyDimStyle.Render(e.Error))
		default:
			fmt.Fprintf(os.Stdout, "✓ %s  %s\n", e.InputPath, historyDimStyle.Render(e.OutputPath))
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	historyIDStyle  = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	historyDimStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print as JSON")

	rootCmd.AddCommand(historyCmd)
}
