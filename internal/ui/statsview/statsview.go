// Package statsview implements a live bubbletea TUI showing code-cache,
// BBT, and ELT occupancy while the engine runs, per SPEC_FULL.md's
// domain-stack supplement.
//
// The teacher's go.mod carries charmbracelet/bubbletea, bubbles, and
// lipgloss but exercises none of them in the retrieved file subset; this
// package gives them their first real call site, following the standard
// bubbletea Model/Update/View idiom documented by the library itself
// rather than any teacher-specific usage.
package statsview

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Snapshot is a point-in-time read of engine occupancy, supplied by
// internal/engine on every tick.
type Snapshot struct {
	CacheCursor   int
	CacheCapacity int
	Flushes       int
	Generation    int
	BlockCount    int
	LinkCount     int
	PendingLinks  int
}

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// snapshotFunc is polled once per tick to refresh the view.
type snapshotFunc func() Snapshot

// Model is the bubbletea model for the stats view.
type Model struct {
	snapshot snapshotFunc
	current  Snapshot
	bar      progress.Model
	interval time.Duration
	quitting bool
}

// New returns a Model that polls snap every interval.
func New(snap snapshotFunc, interval time.Duration) Model {
	return Model{
		snapshot: snap,
		bar:      progress.New(progress.WithDefaultGradient()),
		interval: interval,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 4

	case tickMsg:
		m.current = m.snapshot()
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#569CD6"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	frac := 0.0
	if m.current.CacheCapacity > 0 {
		frac = float64(m.current.CacheCursor) / float64(m.current.CacheCapacity)
	}

	return fmt.Sprintf(
		"%s\n\n%s\n%s\n\n%s\n%s\n%s\n\n%s\n",
		titleStyle.Render("rvjit — live engine stats"),
		fmt.Sprintf("code cache: %d / %d bytes (gen %d, %d flushes)",
			m.current.CacheCursor, m.current.CacheCapacity, m.current.Generation, m.current.Flushes),
		m.bar.ViewAs(frac),
		fmt.Sprintf("materialized blocks: %d", m.current.BlockCount),
		fmt.Sprintf("linked exits:        %d", m.current.LinkCount),
		fmt.Sprintf("pending backpatches:  %d", m.current.PendingLinks),
		dimStyle.Render("press q to quit"),
	)
}

// Run starts the TUI in the foreground, polling snap every interval
// until the user quits.
func Run(snap func() Snapshot, interval time.Duration) error {
	p := tea.NewProgram(New(snap, interval))
	_, err := p.Run()
	return err
}
