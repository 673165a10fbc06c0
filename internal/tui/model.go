package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pixpress/internal/batch"
)

const recentLimit = 5

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "cancel batch"),
	),
}

// Model renders batch progress from a stream of batch.Update values. The
// stream must be closed once the batch returns.
type Model struct {
	updates <-chan batch.Update
	cancel  context.CancelFunc
	started time.Time
	width   int
	total   int

	done          int
	succeeded     int
	skipped       int
	failed        int
	originalBytes int64
	newBytes      int64
	recent        []batch.Update

	bar         progress.Model
	spinner     spinner.Model
	quitting    bool
	interrupted bool
}

type doneMsg struct{}

type updateMsg batch.Update

// NewModel builds a progress view for total images. cancel, if set, is
// called when the user quits early.
func NewModel(updates <-chan batch.Update, total int, cancel context.CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	return Model{
		updates: updates,
		cancel:  cancel,
		started: time.Now(),
		total:   total,
		bar:     progress.New(progress.WithGradient(string(ColorAccentAlt), string(ColorSuccess)), progress.WithWidth(40)),
		spinner: sp,
	}
}

// Interrupted reports whether the user cancelled the batch.
func (m Model) Interrupted() bool {
	return m.interrupted
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(listenForUpdates(m.updates), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.record(batch.Update(msg))
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && !m.interrupted {
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		// Keep draining until the batch closes the stream.
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(60, max(20, msg.Width-10))
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m *Model) record(u batch.Update) {
	m.done++
	switch {
	case !u.Result.Success:
		m.failed++
	case batch.IsSkipped(u.Result):
		m.skipped++
	default:
		m.succeeded++
		m.originalBytes += u.Result.OriginalSize
		m.newBytes += u.Result.NewSize
	}
	m.recent = append(m.recent, u)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[len(m.recent)-recentLimit:]
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = min(1, float64(m.done)/float64(m.total))
	}
	elapsed := time.Since(m.started).Round(time.Millisecond)

	title := titleStyle.Render("pixpress")
	if m.interrupted {
		title += warnStyle.Render("  cancelling...")
	} else {
		title += " " + m.spinner.View()
	}

	lines := []string{
		title,
		labelStyle.Render(fmt.Sprintf("Images: %d/%d", m.done, m.total)) +
			dimStyle.Render(fmt.Sprintf("  ok:%d skipped:%d failed:%d", m.succeeded, m.skipped, m.failed)),
		labelStyle.Render("Saved: " + FormatSaved(m.originalBytes, m.newBytes)),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		m.bar.ViewAs(ratio),
	}
	for _, u := range m.recent {
		lines = append(lines, renderRecent(u))
	}
	lines = append(lines, dimStyle.Render(keys.Quit.Help().Key+" "+keys.Quit.Help().Desc))

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan batch.Update) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderRecent(u batch.Update) string {
	name := filepath.Base(u.Path)
	switch {
	case !u.Result.Success:
		return failStyle.Render("✗ "+name) + dimStyle.Render("  "+u.Result.Error)
	case batch.IsSkipped(u.Result):
		return warnStyle.Render("- "+name) + dimStyle.Render("  "+u.Result.OutputPath)
	default:
		return okStyle.Render("✓ "+name) + dimStyle.Render(fmt.Sprintf("  %.1f%%", u.Result.CompressionRatio))
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	okStyle    = lipgloss.NewStyle().Foreground(ColorSuccess)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle  = lipgloss.NewStyle().Foreground(ColorError)
)
