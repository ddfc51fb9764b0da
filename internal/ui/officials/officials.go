// Package officials is the list screen of registered barangay officials.
package officials

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/barangay/internal/domain"
	"github.com/zjrosen/barangay/internal/keys"
	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/ui/styles"
)

// Lister fetches the officials shown by the screen.
type Lister interface {
	ListOfficials(ctx context.Context) ([]domain.Official, error)
}

// NewMsg asks the app to open an empty registration form.
type NewMsg struct{}

// EditMsg asks the app to open the form for an existing official.
type EditMsg struct {
	ID string
}

// QuitMsg asks the app to exit.
type QuitMsg struct{}

type loadedMsg struct {
	seq       uint64
	officials []domain.Official
	err       error
}

type column struct {
	title string
	width int
	value func(domain.Official) string
}

var columns = []column{
	{title: "Name", width: 28, value: func(o domain.Official) string { return o.Prefix + " " + o.FullName() }},
	{title: "Position", width: 16, value: func(o domain.Official) string { return positionLabel(o.Position) }},
	{title: "Committee", width: 16, value: func(o domain.Official) string { return domain.Deref(o.Committee) }},
	{title: "Term", width: 23, value: func(o domain.Official) string {
		if o.TermStart == "" && o.TermEnd == "" {
			return ""
		}
		return o.TermStart + " – " + o.TermEnd
	}},
	{title: "Status", width: 8, value: func(o domain.Official) string { return o.Status }},
}

// Model is the officials list.
type Model struct {
	ctx       context.Context
	lister    Lister
	officials []domain.Official
	cursor    int
	offset    int
	loading   bool
	err       string
	seq       uint64
	draft     bool
	zoneID    string
	width     int
	height    int
}

// New creates the list screen.
func New(ctx context.Context, lister Lister) Model {
	return Model{ctx: ctx, lister: lister, zoneID: zone.NewPrefix()}
}

// Refresh reloads the list. Results of earlier refreshes are dropped.
func (m Model) Refresh() (Model, tea.Cmd) {
	m.seq++
	m.loading = true
	m.err = ""
	ctx, lister, seq := m.ctx, m.lister, m.seq
	return m, func() tea.Msg {
		list, err := lister.ListOfficials(ctx)
		return loadedMsg{seq: seq, officials: list, err: err}
	}
}

// SetSize updates the screen dimensions.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m
}

// SetDraftPending toggles the unsent-draft marker in the footer.
func (m Model) SetDraftPending(pending bool) Model {
	m.draft = pending
	return m
}

// DraftPending reports whether the footer shows the draft marker.
func (m Model) DraftPending() bool { return m.draft }

// Officials returns the loaded list.
func (m Model) Officials() []domain.Official { return m.officials }

// Selected returns the highlighted official.
func (m Model) Selected() (domain.Official, bool) {
	if m.cursor < 0 || m.cursor >= len(m.officials) {
		return domain.Official{}, false
	}
	return m.officials[m.cursor], true
}

// Update handles navigation and load results.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			log.ErrorErr(log.CatUI, "list officials", msg.err)
			m.err = "Failed to load officials: " + msg.err.Error()
			return m, nil
		}
		m.officials = msg.officials
		m.cursor = min(m.cursor, max(len(m.officials)-1, 0))
		m.clampOffset()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Officials.Up):
			m.cursor = max(m.cursor-1, 0)
			m.clampOffset()
		case key.Matches(msg, keys.Officials.Down):
			m.cursor = min(m.cursor+1, max(len(m.officials)-1, 0))
			m.clampOffset()
		case key.Matches(msg, keys.Officials.New):
			return m, func() tea.Msg { return NewMsg{} }
		case key.Matches(msg, keys.Officials.Edit):
			if o, ok := m.Selected(); ok {
				return m, func() tea.Msg { return EditMsg{ID: o.ID} }
			}
		case key.Matches(msg, keys.Officials.Refresh):
			return m.Refresh()
		case key.Matches(msg, keys.Officials.Quit):
			return m, func() tea.Msg { return QuitMsg{} }
		}

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		for i := range m.officials {
			if z := zone.Get(m.rowZoneID(i)); z != nil && z.InBounds(msg) {
				if m.cursor == i {
					id := m.officials[i].ID
					return m, func() tea.Msg { return EditMsg{ID: id} }
				}
				m.cursor = i
				m.clampOffset()
				return m, nil
			}
		}
	}
	return m, nil
}

func (m *Model) visibleRows() int {
	// title border, header, footer, bottom border
	return max(m.height-5, 3)
}

func (m *Model) clampOffset() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m Model) rowZoneID(i int) string { return fmt.Sprintf("%sofficial-%d", m.zoneID, i) }

// View renders the table.
func (m Model) View() string {
	var lines []string
	lines = append(lines, styles.LabelStyle.Bold(true).Render(renderRow(headers())))

	switch {
	case m.err != "":
		lines = append(lines, styles.ErrorStyle.Render(m.err))
	case m.loading && len(m.officials) == 0:
		lines = append(lines, styles.HintStyle.Render("Loading officials…"))
	case len(m.officials) == 0:
		lines = append(lines, styles.MutedStyle.Render("No officials registered yet. Press n to register one."))
	default:
		end := min(len(m.officials), m.offset+m.visibleRows())
		for i := m.offset; i < end; i++ {
			o := m.officials[i]
			cells := make([]string, len(columns))
			for c, col := range columns {
				cells[c] = col.value(o)
			}
			row := renderRow(cells)
			switch {
			case i == m.cursor:
				row = styles.SelectedRowStyle.Render(row)
			case o.Status == domain.StatusInactive:
				row = styles.MutedStyle.Render(row)
			}
			lines = append(lines, zone.Mark(m.rowZoneID(i), row))
		}
	}

	footer := fmt.Sprintf("%d officials", len(m.officials))
	if m.loading {
		footer += " • refreshing…"
	}
	if m.draft {
		footer += " • unsent draft (n to resume)"
	}
	lines = append(lines, styles.MutedStyle.Render(footer))

	return styles.RenderPanel(strings.Join(lines, "\n"), "Barangay Officials", max(m.width, 40), m.height, true)
}

func headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.title
	}
	return out
}

// renderRow pads or truncates each cell to its column's display width.
func renderRow(cells []string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = runewidth.FillRight(runewidth.Truncate(cells[i], col.width, "…"), col.width)
	}
	return " " + strings.Join(parts, " ")
}

var positionLabels = map[string]string{
	domain.PositionPunongBarangay: "Punong Barangay",
	domain.PositionKagawad:        "Kagawad",
	domain.PositionSKChairperson:  "SK Chairperson",
	domain.PositionSecretary:      "Secretary",
	domain.PositionTreasurer:      "Treasurer",
}

func positionLabel(p string) string {
	if l, ok := positionLabels[p]; ok {
		return l
	}
	return p
}
