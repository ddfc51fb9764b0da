// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// Global bindings are handled by the root model on every screen.
var Global = struct {
	Help key.Binding
	Quit key.Binding
	Logs key.Binding
}{
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Logs: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "toggle logs (debug)"),
	),
}

// Officials bindings apply to the officials list.
var Officials = struct {
	Up      key.Binding
	Down    key.Binding
	New     key.Binding
	Edit    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "move down"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "register official"),
	),
	Edit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "edit official"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
}

// Form bindings apply to the registration form.
var Form = struct {
	Submit    key.Binding
	SaveDraft key.Binding
	Close     key.Binding
	NextField key.Binding
	PrevField key.Binding
	Cycle     key.Binding
	CycleBack key.Binding
}{
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save official"),
	),
	SaveDraft: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "save draft"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous field"),
	),
	Cycle: key.NewBinding(
		key.WithKeys("right", " "),
		key.WithHelp("→/space", "next option"),
	),
	CycleBack: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "previous option"),
	),
}

// Search bindings apply while the resident search input is focused.
var Search = struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Dismiss key.Binding
}{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑/ctrl+p", "previous resident"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓/ctrl+n", "next resident"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select resident"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close results"),
	),
}

// HelpSection is a titled group of bindings for the help overlay.
type HelpSection struct {
	Title    string
	Bindings []key.Binding
}

// HelpSections lists every binding group in display order.
func HelpSections() []HelpSection {
	return []HelpSection{
		{Title: "Officials", Bindings: []key.Binding{Officials.Up, Officials.Down, Officials.New, Officials.Edit, Officials.Refresh, Officials.Quit}},
		{Title: "Registration form", Bindings: []key.Binding{Form.NextField, Form.PrevField, Form.Cycle, Form.CycleBack, Form.Submit, Form.SaveDraft, Form.Close}},
		{Title: "Resident search", Bindings: []key.Binding{Search.Up, Search.Down, Search.Select, Search.Dismiss}},
		{Title: "General", Bindings: []key.Binding{Global.Help, Global.Quit, Global.Logs}},
	}
}
