// Package officialform is the screen for registering or editing a barangay
// official. It hosts the resident search panel and drives a
// registration.Form.
package officialform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/zjrosen/barangay/internal/debounce"
	"github.com/zjrosen/barangay/internal/domain"
	"github.com/zjrosen/barangay/internal/keys"
	"github.com/zjrosen/barangay/internal/registration"
	"github.com/zjrosen/barangay/internal/ui/searchpanel"
	"github.com/zjrosen/barangay/internal/ui/styles"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindChoice
)

type field struct {
	name    string
	label   string
	kind    fieldKind
	input   textinput.Model
	options []string
	choice  int
}

// Config configures the screen.
type Config struct {
	Form           registration.Config
	SearchDebounce time.Duration
	BlurGrace      time.Duration
}

// Model is the form screen.
type Model struct {
	form     *registration.Form
	search   searchpanel.Model
	fields   []field
	focus    int // 0 is the search panel, i+1 is fields[i]
	fieldErr map[string]string
	revision uint64
	width    int
	height   int
}

// New creates the screen. Cancelling ctx, or closing the screen, abandons
// every request it issued.
func New(ctx context.Context, cfg Config) Model {
	m := Model{
		form:     registration.New(ctx, cfg.Form),
		search:   searchpanel.New(searchpanel.Config{Debounce: cfg.SearchDebounce, BlurGrace: cfg.BlurGrace}),
		fieldErr: map[string]string{},
	}
	m.fields = []field{
		newText("prefix", "Prefix"),
		newChoice("position", "Position", append([]string{""}, domain.Positions...)),
		newText("committee", "Committee"),
		newText("termStart", "Term start (YYYY-MM-DD)"),
		newText("termEnd", "Term end (YYYY-MM-DD)"),
		newText("termNumber", "Term number"),
		newChoice("isCurrentTerm", "Current term", []string{"true", "false"}),
		newChoice("status", "Status", []string{domain.StatusActive, domain.StatusInactive}),
	}
	m.loadFields(m.form.Data())
	m.search, _ = m.search.Focus()
	return m
}

func newText(name, label string) field {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 64
	ti.Cursor.SetMode(cursor.CursorStatic)
	return field{name: name, label: label, kind: kindText, input: ti}
}

func newChoice(name, label string, options []string) field {
	return field{name: name, label: label, kind: kindChoice, options: options}
}

// Form exposes the underlying state machine.
func (m Model) Form() *registration.Form { return m.form }

// Search exposes the search panel.
func (m Model) Search() searchpanel.Model { return m.search }

// Focus returns the focused element: 0 for the search panel.
func (m Model) Focus() int { return m.focus }

// Typing reports whether keystrokes go to a text input.
func (m Model) Typing() bool {
	return m.focus == 0 || m.fields[m.focus-1].kind == kindText
}

// FieldError returns the inline error for a field.
func (m Model) FieldError(name string) string { return m.fieldErr[name] }

// Init loads the official (edit) or the draft (create).
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// SetSize updates the screen dimensions.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	m.search = m.search.SetWidth(min(max(width-4, 30), 72))
	return m
}

// Update routes input to the search panel and fields, and async results
// to the state machine.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Focused() && m.focus != 0 {
			m.focus = 0
		}
		cmds = append(cmds, cmd)

	case debounce.SettledMsg:
		if m.search.Owns(msg) {
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			cmds = append(cmds, cmd)
		} else {
			cmds = append(cmds, m.form.Update(msg))
		}

	case searchpanel.QueryChangedMsg:
		cmds = append(cmds, m.form.Search(msg.Query))

	case searchpanel.SelectedMsg:
		cmds = append(cmds, m.form.SelectResident(msg.ResidentID))

	default:
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		cmds = append(cmds, cmd, m.form.Update(msg))
	}

	m.sync()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Form.Submit):
		return m.form.Submit()
	case key.Matches(msg, keys.Form.SaveDraft):
		return m.form.SaveDraft()
	case key.Matches(msg, keys.Form.NextField):
		return m.moveFocus(1)
	case key.Matches(msg, keys.Form.PrevField):
		return m.moveFocus(-1)
	case key.Matches(msg, keys.Form.Close):
		if m.focus == 0 && m.search.Open() {
			break
		}
		return m.form.Close()
	}

	if m.focus == 0 {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return cmd
	}
	return m.editField(&m.fields[m.focus-1], msg)
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	var cmds []tea.Cmd
	if m.focus == 0 {
		var cmd tea.Cmd
		m.search, cmd = m.search.Blur(searchpanel.FocusOutside)
		cmds = append(cmds, cmd)
	} else if f := &m.fields[m.focus-1]; f.kind == kindText {
		f.input.Blur()
	}

	n := len(m.fields) + 1
	m.focus = (m.focus + delta + n) % n

	if m.focus == 0 {
		var cmd tea.Cmd
		m.search, cmd = m.search.Focus()
		cmds = append(cmds, cmd)
	} else if f := &m.fields[m.focus-1]; f.kind == kindText {
		cmds = append(cmds, f.input.Focus())
	}
	return tea.Batch(cmds...)
}

func (m *Model) editField(f *field, msg tea.KeyMsg) tea.Cmd {
	if f.kind == kindChoice {
		switch {
		case key.Matches(msg, keys.Form.Cycle):
			f.choice = (f.choice + 1) % len(f.options)
		case key.Matches(msg, keys.Form.CycleBack):
			f.choice = (f.choice - 1 + len(f.options)) % len(f.options)
		default:
			return nil
		}
		m.apply(f.name, f.options[f.choice])
		return nil
	}

	before := f.input.Value()
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	if f.input.Value() != before {
		m.apply(f.name, f.input.Value())
	}
	return cmd
}

func (m *Model) apply(name, value string) {
	if err := m.form.SetField(name, value); err != nil {
		m.fieldErr[name] = err.Error()
		return
	}
	delete(m.fieldErr, name)
}

// sync pushes state machine outputs into the search panel and reloads the
// inputs after a wholesale data replace.
func (m *Model) sync() {
	m.search = m.search.
		SetResults(m.form.SearchResults()).
		SetLoading(m.form.SearchLoading()).
		SetFetchError(m.form.SearchError()).
		SetSelectionError(m.form.ConflictMessage()).
		SetChecking(m.form.Checking())

	if rev := m.form.Revision(); rev != m.revision {
		m.revision = rev
		data := m.form.Data()
		m.loadFields(data)
		if name := data.FullName(); name != "" && m.search.Value() == "" {
			m.search = m.search.SetValue(name)
		}
	}
}

func (m *Model) loadFields(d domain.OfficialFormData) {
	values := map[string]string{
		"prefix":        d.Prefix,
		"position":      d.Position,
		"committee":     domain.Deref(d.Committee),
		"termStart":     d.TermStart,
		"termEnd":       d.TermEnd,
		"termNumber":    strconv.Itoa(d.TermNumber),
		"isCurrentTerm": strconv.FormatBool(d.IsCurrentTerm),
		"status":        d.Status,
	}
	for i := range m.fields {
		f := &m.fields[i]
		v := values[f.name]
		if f.kind == kindText {
			f.input.SetValue(v)
			continue
		}
		for j, opt := range f.options {
			if opt == v {
				f.choice = j
			}
		}
	}
	clear(m.fieldErr)
}

// View renders the screen.
func (m Model) View() string {
	width := max(m.width, 40)
	inner := width - 4

	title := "Register Official"
	if m.form.Mode() == registration.ModeEdit {
		title = "Edit Official"
	}

	var sections []string
	if m.form.Loading() {
		sections = append(sections, styles.HintStyle.Render("Loading official…"))
	}
	if e := m.form.LoadError(); e != "" {
		sections = append(sections, banner(e, styles.StatusErrorColor, inner))
	}

	sections = append(sections,
		styles.LabelStyle.Render("Resident"),
		m.search.View(),
		"",
		m.identityView(inner),
		"",
		m.fieldsView(),
	)
	if e := m.form.ValidationError(); e != "" {
		sections = append(sections, "", banner(e, styles.StatusErrorColor, inner))
	}
	sections = append(sections, "", m.footer())

	body := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return styles.RenderPanel(body, title, width, m.height, true)
}

func banner(text string, color lipgloss.TerminalColor, width int) string {
	return styles.BannerStyle(color).Render(wordwrap.String(text, max(width-2, 10)))
}

func (m Model) identityView(width int) string {
	var status string
	switch m.form.Status() {
	case registration.StatusChecking:
		status = styles.WarningStyle.Render("Checking registration…")
	case registration.StatusConflict:
		status = styles.ErrorStyle.Render("Cannot register this resident")
	case registration.StatusValid:
		status = styles.SuccessStyle.Render("✓ Resident can be registered")
		if m.form.DetailLoading() {
			status += " " + styles.HintStyle.Render("loading details…")
		}
	default:
		if m.form.Data().ResidentID == "" {
			status = styles.HintStyle.Render("Select a resident to continue")
		} else {
			status = styles.HintStyle.Render("Waiting to check…")
		}
	}

	d := m.form.Data()
	rows := [][2]string{
		{"Name", d.FullName()},
		{"Gender", d.Gender},
		{"Birth date", d.BirthDate},
		{"Civil status", d.CivilStatus},
		{"Mobile", domain.Deref(d.MobileNumber)},
		{"Email", domain.Deref(d.EmailAddress)},
		{"Address", d.CompleteAddress},
		{"Education", d.EducationalAttainment},
	}
	lines := []string{status}
	for _, r := range rows {
		v := r[1]
		if v == "" {
			v = "—"
		}
		lines = append(lines, wordwrap.String(
			styles.LabelStyle.Render(fmt.Sprintf("%-13s", r[0]))+styles.ValueStyle.Render(v), width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) fieldsView() string {
	lines := make([]string, 0, len(m.fields))
	for i, f := range m.fields {
		focused := m.focus == i+1
		indicator := "  "
		if focused {
			indicator = styles.SelectionIndicatorStyle.Render(">") + " "
		}

		var value string
		if f.kind == kindChoice {
			v := f.options[f.choice]
			if v == "" {
				v = "(choose)"
			}
			value = "‹ " + v + " ›"
			if !focused {
				value = v
			}
		} else {
			value = f.input.View()
		}

		line := indicator + styles.LabelStyle.Render(fmt.Sprintf("%-26s", f.label)) + value
		if e := m.fieldErr[f.name]; e != "" {
			line += "  " + styles.ErrorStyle.Render(e)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) footer() string {
	hints := []key.Binding{keys.Form.NextField, keys.Form.Submit, keys.Form.SaveDraft, keys.Form.Close}
	parts := make([]string, 0, len(hints))
	for _, b := range hints {
		parts = append(parts, b.Help().Key+" "+b.Help().Desc)
	}
	if m.form.Submitting() {
		parts = append([]string{styles.WarningStyle.Render("Saving…")}, parts...)
	}
	return styles.MutedStyle.Render(strings.Join(parts, " • "))
}
