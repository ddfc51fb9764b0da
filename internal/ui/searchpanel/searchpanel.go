// Package searchpanel provides the resident autocomplete used by the
// registration form.
//
// The panel never queries anything itself. It debounces the typed text
// and emits QueryChangedMsg; the owner performs the lookup and feeds the
// outcome back with SetResults, SetLoading and SetFetchError. Picking a row
// emits SelectedMsg and closes the dropdown.
package searchpanel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/barangay/internal/debounce"
	"github.com/zjrosen/barangay/internal/domain"
	"github.com/zjrosen/barangay/internal/keys"
	"github.com/zjrosen/barangay/internal/ui/styles"
)

const (
	// NoResultsText is shown when a settled query matched nobody.
	NoResultsText = "No residents found"
	// SearchingText is shown while the owner reports loading.
	SearchingText = "Searching..."

	maxVisibleRows = 6
	debounceID     = "resident-search"
)

// QueryChangedMsg carries the debounced search text.
type QueryChangedMsg struct {
	Query string
}

// SelectedMsg reports the resident chosen from the dropdown.
type SelectedMsg struct {
	ResidentID string
	Candidate  domain.ResidentCandidate
}

// FocusTarget says where focus goes when the panel loses it.
type FocusTarget int

const (
	// FocusOutside is any element outside the panel.
	FocusOutside FocusTarget = iota
	// FocusResults is the panel's own result list.
	FocusResults
)

type blurElapsedMsg struct {
	id  string
	seq uint64
}

// Config holds the timing knobs.
type Config struct {
	Debounce  time.Duration
	BlurGrace time.Duration
	Width     int
}

// Model is the search panel state.
type Model struct {
	id    string
	input textinput.Model
	query debounce.Value[string]

	debounced string
	results   []domain.ResidentCandidate
	cursor    int
	offset    int

	loading      bool
	fetchErr     string
	selectionErr string
	checking     bool

	open      bool
	focused   bool
	blurGrace time.Duration
	blurSeq   uint64
	width     int
}

// New creates a panel.
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Search resident by name"
	ti.Prompt = "🔍 "
	ti.CharLimit = 100
	ti.Cursor.SetMode(cursor.CursorStatic)

	id := zone.NewPrefix()
	m := Model{
		id:        id,
		input:     ti,
		query:     debounce.New[string](debounceID+id, cfg.Debounce),
		blurGrace: cfg.BlurGrace,
	}
	return m.SetWidth(cfg.Width)
}

// SetWidth sets the rendered width.
func (m Model) SetWidth(w int) Model {
	if w <= 0 {
		w = 60
	}
	m.width = w
	m.input.Width = max(w-6, 10)
	return m
}

// Focus gives the panel keyboard focus and cancels a pending blur close.
func (m Model) Focus() (Model, tea.Cmd) {
	m.focused = true
	m.blurSeq++
	return m, m.input.Focus()
}

// Blur removes keyboard focus. The dropdown stays open when focus moves
// into the result list; otherwise it closes after the grace period.
func (m Model) Blur(next FocusTarget) (Model, tea.Cmd) {
	m.focused = false
	m.input.Blur()
	m.blurSeq++
	if next == FocusResults || !m.open {
		return m, nil
	}
	if m.blurGrace <= 0 {
		m.open = false
		return m, nil
	}
	msg := blurElapsedMsg{id: m.id, seq: m.blurSeq}
	return m, tea.Tick(m.blurGrace, func(time.Time) tea.Msg { return msg })
}

// SetResults replaces the candidate list.
func (m Model) SetResults(results []domain.ResidentCandidate) Model {
	m.results = results
	if m.cursor >= len(results) {
		m.cursor = 0
		m.offset = 0
	}
	return m
}

// SetLoading sets the loading indicator.
func (m Model) SetLoading(loading bool) Model {
	m.loading = loading
	return m
}

// SetFetchError sets the message shown in place of results.
func (m Model) SetFetchError(msg string) Model {
	m.fetchErr = msg
	return m
}

// SetSelectionError sets the message shown under the input.
func (m Model) SetSelectionError(msg string) Model {
	m.selectionErr = msg
	return m
}

// SetChecking disables typing while a selection is being checked.
func (m Model) SetChecking(checking bool) Model {
	m.checking = checking
	return m
}

// SetValue replaces the input text without triggering a search.
func (m Model) SetValue(s string) Model {
	m.input.SetValue(s)
	return m
}

// Value returns the raw input text.
func (m Model) Value() string { return m.input.Value() }

// Query returns the last debounced text.
func (m Model) Query() string { return m.debounced }

// Open reports whether the dropdown is showing.
func (m Model) Open() bool { return m.open }

// Focused reports whether the input has focus.
func (m Model) Focused() bool { return m.focused }

// Disabled reports whether typing is currently ignored.
func (m Model) Disabled() bool { return m.open && m.checking }

// Owns reports whether msg is this panel's query debounce tick.
func (m Model) Owns(msg debounce.SettledMsg) bool { return m.query.Owns(msg) }

// Cursor returns the highlighted row.
func (m Model) Cursor() int { return m.cursor }

// Update handles keys, mouse clicks, debounce ticks and blur timers.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case debounce.SettledMsg:
		q, ok := m.query.Resolve(msg)
		if !ok {
			return m, nil
		}
		m.debounced = q
		m.open = strings.TrimSpace(q) != ""
		m.cursor, m.offset = 0, 0
		return m, func() tea.Msg { return QueryChangedMsg{Query: q} }

	case blurElapsedMsg:
		if msg.id == m.id && msg.seq == m.blurSeq && !m.focused {
			m.open = false
		}
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.Disabled() {
		return m, nil
	}
	if m.open {
		switch {
		case key.Matches(msg, keys.Search.Up):
			m.moveCursor(-1)
			return m, nil
		case key.Matches(msg, keys.Search.Down):
			m.moveCursor(1)
			return m, nil
		case key.Matches(msg, keys.Search.Select):
			if m.listVisible() && len(m.results) > 0 {
				return m.choose(m.cursor)
			}
			return m, nil
		case key.Matches(msg, keys.Search.Dismiss):
			m.open = false
			return m, nil
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.query.Set(m.input.Value()))
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if m.open && m.listVisible() && !m.checking {
		for i := m.offset; i < min(len(m.results), m.offset+maxVisibleRows); i++ {
			if z := zone.Get(m.rowZoneID(i)); z != nil && z.InBounds(msg) {
				return m.choose(i)
			}
		}
	}
	if z := zone.Get(m.inputZoneID()); z != nil && z.InBounds(msg) && !m.focused {
		return m.Focus()
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	if len(m.results) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.results)-1, m.cursor+delta))
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+maxVisibleRows {
		m.offset = m.cursor - maxVisibleRows + 1
	}
}

func (m Model) choose(i int) (Model, tea.Cmd) {
	c := m.results[i]
	m.open = false
	m.cursor = i
	m.input.SetValue(c.DisplayName())
	m.query.Cancel()
	return m, func() tea.Msg { return SelectedMsg{ResidentID: c.ID, Candidate: c} }
}

// listVisible reports whether rows (rather than a status line) are shown.
func (m Model) listVisible() bool {
	return m.fetchErr == "" && !m.loading
}

func (m Model) rowZoneID(i int) string { return fmt.Sprintf("%srow-%d", m.id, i) }
func (m Model) inputZoneID() string    { return m.id + "input" }

// View renders the input, the selection error and, when open, the dropdown.
func (m Model) View() string {
	var b strings.Builder

	input := m.input.View()
	if m.Disabled() {
		input = styles.MutedStyle.Render(ansi.Strip(input)) + " " + styles.HintStyle.Render("checking…")
	}
	b.WriteString(zone.Mark(m.inputZoneID(), input))

	if m.selectionErr != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorStyle.Render(wordwrap.String(m.selectionErr, m.width-2)))
	}

	if m.open {
		b.WriteString("\n")
		b.WriteString(styles.RenderPanel(m.dropdown(), "Residents", m.width, 0, m.focused))
	}
	return b.String()
}

func (m Model) dropdown() string {
	switch {
	case m.fetchErr != "":
		return styles.ErrorStyle.Render(wordwrap.String(m.fetchErr, m.width-4))
	case m.loading:
		return styles.HintStyle.Render(SearchingText)
	case len(m.results) == 0:
		return styles.MutedStyle.Render(NoResultsText)
	}

	inner := m.width - 2
	end := min(len(m.results), m.offset+maxVisibleRows)
	lines := make([]string, 0, end-m.offset+1)
	for i := m.offset; i < end; i++ {
		lines = append(lines, zone.Mark(m.rowZoneID(i), m.renderRow(i, inner)))
	}
	if len(m.results) > maxVisibleRows {
		lines = append(lines, styles.MutedStyle.Render(
			fmt.Sprintf("%d-%d of %d", m.offset+1, end, len(m.results))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(i, width int) string {
	c := m.results[i]
	text := c.DisplayName()
	if c.MobileNumber != nil && *c.MobileNumber != "" {
		text += "  " + styles.MutedStyle.Render(*c.MobileNumber)
	}
	text = ansi.Truncate(text, width-2, "…")
	if i == m.cursor {
		pad := max(width-2-ansi.StringWidth(text), 0)
		return styles.SelectionIndicatorStyle.Render(">") + " " +
			styles.SelectedRowStyle.Render(text+strings.Repeat(" ", pad))
	}
	return "  " + lipgloss.NewStyle().Foreground(styles.TextPrimaryColor).Render(text)
}
