// Package toaster shows notify.Notification values as a transient box at
// the bottom of the screen.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/barangay/internal/notify"
	"github.com/zjrosen/barangay/internal/ui/overlay"
	"github.com/zjrosen/barangay/internal/ui/styles"
)

// DefaultDuration is used when a notification carries no duration.
const DefaultDuration = 3 * time.Second

// DismissMsg hides the toast it was scheduled for.
type DismissMsg struct {
	seq uint64
}

// Model holds the visible toast, if any.
type Model struct {
	current notify.Notification
	visible bool
	seq     uint64
}

// New creates an empty toaster.
func New() Model {
	return Model{}
}

// Show replaces the current toast and schedules its dismissal. A dismissal
// scheduled for an earlier toast does not hide this one.
func (m Model) Show(n notify.Notification) (Model, tea.Cmd) {
	m.current = n
	m.visible = true
	m.seq++
	d := n.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	seq := m.seq
	return m, tea.Tick(d, func(time.Time) tea.Msg { return DismissMsg{seq: seq} })
}

// Update handles DismissMsg.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.seq == m.seq {
		m.visible = false
	}
	return m
}

// Visible reports whether a toast is showing.
func (m Model) Visible() bool { return m.visible }

// Current returns the last shown notification.
func (m Model) Current() notify.Notification { return m.current }

// View renders the toast box, or "" when hidden.
func (m Model) View() string {
	if !m.visible || (m.current.Title == "" && m.current.Message == "") {
		return ""
	}

	var color lipgloss.TerminalColor
	var icon string
	switch m.current.Type {
	case notify.TypeError:
		color, icon = styles.ToastBorderErrorColor, "✗"
	case notify.TypeInfo:
		color, icon = styles.ToastBorderInfoColor, "i"
	default:
		color, icon = styles.ToastBorderSuccessColor, "✓"
	}

	text := m.current.Message
	if m.current.Title != "" {
		title := lipgloss.NewStyle().Bold(true).Render(m.current.Title)
		if text == "" {
			text = title
		} else {
			text = title + ": " + text
		}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		MaxWidth(80).
		Render(lipgloss.NewStyle().Foreground(color).Render(icon) + " " + text)
}

// Overlay draws the toast over bg, one row above the bottom edge.
func (m Model) Overlay(bg string, width, height int) string {
	fg := m.View()
	if fg == "" {
		return bg
	}
	return overlay.Place(overlay.Config{Width: width, Height: height, Position: overlay.Bottom, PadY: 1}, fg, bg)
}
