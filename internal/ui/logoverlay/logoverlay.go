// Package logoverlay shows recent log entries inside the TUI. It is only
// wired up in debug mode.
package logoverlay

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/pubsub"
	"github.com/zjrosen/barangay/internal/ui/overlay"
	"github.com/zjrosen/barangay/internal/ui/styles"
)

const (
	maxEntries = 500
	boxMaxW    = 140
	boxMaxH    = 25
)

// Model buffers log entries and renders them in a scrollable box.
type Model struct {
	entries  []string
	minLevel log.Level
	visible  bool
	viewport viewport.Model
	width    int
	height   int
}

// New creates a hidden overlay.
func New() Model {
	return Model{viewport: viewport.New(boxMaxW-2, boxMaxH-2)}
}

// SetSize updates the viewport dimensions.
func (m Model) SetSize(width, height int) Model {
	m.width, m.height = width, height
	m.viewport.Width = m.boxWidth() - 2
	m.viewport.Height = m.boxHeight() - 3
	m.refresh()
	return m
}

// Toggle shows or hides the overlay.
func (m Model) Toggle() Model {
	m.visible = !m.visible
	if m.visible {
		m.refresh()
		m.viewport.GotoBottom()
	}
	return m
}

// Visible reports whether the overlay is showing.
func (m Model) Visible() bool { return m.visible }

// Entries returns the buffered entries.
func (m Model) Entries() []string { return m.entries }

// Append records one log entry, dropping the oldest past the buffer size.
func (m Model) Append(event pubsub.Event[string]) Model {
	m.entries = append(m.entries, strings.TrimRight(event.Payload, "\n"))
	if over := len(m.entries) - maxEntries; over > 0 {
		m.entries = m.entries[over:]
	}
	if m.visible {
		atBottom := m.viewport.AtBottom()
		m.refresh()
		if atBottom {
			m.viewport.GotoBottom()
		}
	}
	return m
}

// Update handles keys while visible: d/i/w/e filter by level, esc closes.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "d":
			m.minLevel = log.LevelDebug
		case "i":
			m.minLevel = log.LevelInfo
		case "w":
			m.minLevel = log.LevelWarn
		case "e":
			m.minLevel = log.LevelError
		case "esc", "ctrl+x":
			m.visible = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	width := max(m.viewport.Width, 10)
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if entryLevel(e) < m.minLevel {
			continue
		}
		line := ansi.Truncate(e, width, "…")
		switch entryLevel(e) {
		case log.LevelError:
			line = styles.ErrorStyle.Render(line)
		case log.LevelWarn:
			line = styles.WarningStyle.Render(line)
		case log.LevelDebug:
			line = styles.MutedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

func entryLevel(entry string) log.Level {
	for _, l := range []log.Level{log.LevelError, log.LevelWarn, log.LevelInfo} {
		if strings.Contains(entry, "["+l.String()+"]") {
			return l
		}
	}
	return log.LevelDebug
}

func (m Model) boxWidth() int  { return min(max(m.width-4, 40), boxMaxW) }
func (m Model) boxHeight() int { return min(max(m.height-4, 8), boxMaxH) }

// Overlay draws the log box centered over bg when visible.
func (m Model) Overlay(bg string) string {
	if !m.visible {
		return bg
	}
	body := m.viewport.View() + "\n" +
		styles.HintStyle.Render("filter: d debug • i info • w warn • e error   esc close")
	box := styles.RenderPanel(body, "Logs (min "+m.minLevel.String()+")", m.boxWidth(), m.boxHeight(), true)
	return overlay.Place(overlay.Config{Width: m.width, Height: m.height}, box, bg)
}
