package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"pixpress/internal/batch"
	"pixpress/internal/pipeline"
)

type SummaryRow struct {
	Label string
	Value string
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, len(row.Label))
		valueWidth = max(valueWidth, len(row.Value))
	}

	hline := strings.Repeat("-", labelWidth+valueWidth+3)
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), valueStyle.Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// BatchRows lays out the totals of a finished batch.
func BatchRows(sum batch.Summary, elapsed time.Duration) []SummaryRow {
	return []SummaryRow{
		{Label: "Images", Value: fmt.Sprintf("%d", sum.Total)},
		{Label: "Optimised", Value: fmt.Sprintf("%d", sum.Succeeded)},
		{Label: "Skipped", Value: fmt.Sprintf("%d", sum.Skipped)},
		{Label: "Failed", Value: fmt.Sprintf("%d", sum.Failed)},
		{Label: "Before", Value: FormatBytes(sum.OriginalBytes)},
		{Label: "After", Value: FormatBytes(sum.NewBytes)},
		{Label: "Saved", Value: FormatSaved(sum.OriginalBytes, sum.NewBytes)},
		{Label: "Elapsed", Value: elapsed.Round(time.Millisecond).String()},
	}
}

// ResultRows lays out a single optimised image.
func ResultRows(input string, res pipeline.Result) []SummaryRow {
	if batch.IsSkipped(res) {
		return []SummaryRow{
			{Label: "Input", Value: input},
			{Label: "Output", Value: res.OutputPath},
		}
	}
	return []SummaryRow{
		{Label: "Input", Value: input},
		{Label: "Output", Value: res.OutputPath},
		{Label: "Before", Value: FormatBytes(res.OriginalSize)},
		{Label: "After", Value: FormatBytes(res.NewSize)},
		{Label: "Saved", Value: FormatSaved(res.OriginalSize, res.NewSize)},
	}
}

// RenderFailures lists the failed items of a batch, one per line.
func RenderFailures(paths []string, results []pipeline.Result) string {
	var lines []string
	for i, r := range results {
		if r.Success {
			continue
		}
		lines = append(lines, failStyle.Render("✗ "+paths[i])+dimStyle.Render("  "+r.Error))
	}
	return strings.Join(lines, "\n")
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	if n < unit {
		return fmt.Sprintf("%s%d B", sign, n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %ciB", sign, float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatSaved renders the saving with its ratio, e.g. "750 B (75.0%)".
func FormatSaved(original, encoded int64) string {
	return fmt.Sprintf("%s (%.1f%%)", FormatBytes(original-encoded), pipeline.CompressionRatio(original, encoded))
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
)
