package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pixpress/internal/scan"
	"pixpress/internal/tui"
)

var (
	scanInputs   inputOptions
	scanMetadata bool
	scanJSON     bool
)

type scanReport struct {
	scan.FileInfo
	Metadata *scan.Metadata `json:"metadata,omitempty"`
}

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "List supported images with their dimensions without modifying files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := scanInputs.scanner()
		files, err := s.Scan(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		reports := make([]scanReport, len(files))
		var total int64
		for i, f := range files {
			reports[i] = scanReport{FileInfo: f}
			total += f.Size
			if !scanMetadata {
				continue
			}
			md, err := s.Metadata(f.Path)
			if err != nil {
				continue
			}
			reports[i].Metadata = &md
		}

		if scanJSON {
			return printJSON(reports)
		}

		for _, report := range reports {
			fmt.Fprintf(os.Stdout, "%s  %s\n",
				scanFileStyle.Render(report.Path),
				scanDimStyle.Render(fmt.Sprintf("%dx%d %s %s", report.Width, report.Height, report.Format, tui.FormatBytes(report.Size))),
			)
			if report.Metadata == nil {
				continue
			}
			cats := report.Metadata.Categories()
			if len(cats) == 0 {
				fmt.Fprintf(os.Stdout, "  %s %s\n", scanBulletStyle.Render("-"), scanDimStyle.Render("no identifying metadata"))
				continue
			}
			fmt.Fprintf(os.Stdout, "  %s\n", scanCategoryStyle.Render("Dropped on optimise:"))
			for _, cat := range cats {
				fmt.Fprintf(os.Stdout, "    %s %s\n", scanBulletStyle.Render("-"), scanValueStyle.Render(cat))
			}
		}

		fmt.Fprintln(os.Stdout, tui.RenderSummary([]tui.SummaryRow{
			{Label: "Images found", Value: fmt.Sprintf("%d", len(files))},
			{Label: "Total size", Value: tui.FormatBytes(total)},
		}))
		return nil
	},
}

var (
	scanFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	scanCategoryStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	scanValueStyle    = lipgloss.NewStyle().Foreground(tui.ColorInk)
	scanDimStyle      = lipgloss.NewStyle().Foreground(tui.ColorDim)
	scanBulletStyle   = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	scanInputs.bind(scanCmd.Flags())
	scanCmd.Flags().BoolVar(&scanMetadata, "metadata", false, "report EXIF, ICC and text metadata per image")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the listing as JSON")

	rootCmd.AddCommand(scanCmd)
}
