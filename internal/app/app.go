// Package app contains the root application model.
package app

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/barangay/internal/config"
	"github.com/zjrosen/barangay/internal/draft"
	"github.com/zjrosen/barangay/internal/flags"
	"github.com/zjrosen/barangay/internal/keys"
	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/notify"
	"github.com/zjrosen/barangay/internal/pubsub"
	"github.com/zjrosen/barangay/internal/registration"
	"github.com/zjrosen/barangay/internal/ui/help"
	"github.com/zjrosen/barangay/internal/ui/logoverlay"
	"github.com/zjrosen/barangay/internal/ui/officialform"
	"github.com/zjrosen/barangay/internal/ui/officials"
	"github.com/zjrosen/barangay/internal/ui/toaster"
	"github.com/zjrosen/barangay/internal/watcher"
)

// Screen identifies the active screen.
type Screen int

const (
	ScreenOfficials Screen = iota
	ScreenForm
)

// Backend is everything the screens need from the barangay API.
type Backend interface {
	registration.ResidentDirectory
	registration.RegistrationQuery
	registration.OfficialService
	officials.Lister
}

// SearchInvalidator is implemented by backends that cache search results.
type SearchInvalidator interface {
	InvalidateSearch(ctx context.Context) error
}

// Services are the shared dependencies of the root model.
type Services struct {
	Backend  Backend
	Drafts   draft.Store      // nil disables drafts
	Notifier *notify.Service  // required
	Tracer   trace.Tracer     // nil uses a noop tracer
	Watcher  *watcher.Watcher // nil disables the draft indicator refresh
	Flags    *flags.Registry  // nil uses the flag defaults
}

type draftStatusMsg struct {
	pending bool
}

// Model is the root application state.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	services Services
	cfg      config.Config

	screen Screen
	list   officials.Model
	form   officialform.Model

	width  int
	height int

	// Owned by the app so every screen's notifications share one toast.
	toaster   toaster.Model
	noteLnr   *pubsub.Listener[notify.Notification]
	help      help.Model
	showHelp  bool
	debugMode bool
	logs      logoverlay.Model
	logLnr    *pubsub.Listener[string]
	watchLnr  *pubsub.Listener[watcher.Event]
}

// New creates the root model. debugMode enables the log overlay (ctrl+x).
func New(ctx context.Context, cfg config.Config, services Services, debugMode bool) Model {
	ctx, cancel := context.WithCancel(ctx)
	if services.Flags == nil {
		services.Flags = flags.New(cfg.Flags)
	}

	m := Model{
		ctx:       ctx,
		cancel:    cancel,
		services:  services,
		cfg:       cfg,
		list:      officials.New(ctx, services.Backend),
		toaster:   toaster.New(),
		help:      help.New(cfg.UI.MarkdownStyle),
		debugMode: debugMode,
		logs:      logoverlay.New(),
		noteLnr:   pubsub.NewListener(ctx, services.Notifier.Broker()),
	}
	if debugMode {
		m.logLnr = log.NewListener(ctx)
	}
	if services.Watcher != nil {
		m.watchLnr = pubsub.NewListener(ctx, services.Watcher.Broker())
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Refresh()
	cmds := []tea.Cmd{cmd, m.noteLnr.Listen(), m.checkDraft()}
	if m.logLnr != nil {
		cmds = append(cmds, m.logLnr.Listen())
	}
	if m.watchLnr != nil {
		cmds = append(cmds, m.watchLnr.Listen())
	}
	return tea.Batch(cmds...)
}

// Screen returns the active screen.
func (m Model) Screen() Screen { return m.screen }

// Officials returns the list screen.
func (m Model) Officials() officials.Model { return m.list }

// Form returns the form screen. It is the zero value outside ScreenForm.
func (m Model) Form() officialform.Model { return m.form }

// HelpVisible reports whether the help overlay is shown.
func (m Model) HelpVisible() bool { return m.showHelp }

// LogsVisible reports whether the log overlay is shown.
func (m Model) LogsVisible() bool { return m.logs.Visible() }

// Toaster returns the toast state.
func (m Model) Toaster() toaster.Model { return m.toaster }

// Close cancels every subscription and any open form.
func (m Model) Close() {
	if f := m.form.Form(); f != nil {
		f.Close()
	}
	m.cancel()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list = m.list.SetSize(msg.Width, msg.Height)
		m.help = m.help.SetSize(msg.Width, msg.Height)
		m.logs = m.logs.SetSize(msg.Width, msg.Height)
		if m.screen == ScreenForm {
			m.form = m.form.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case pubsub.Event[notify.Notification]:
		var cmd tea.Cmd
		m.toaster, cmd = m.toaster.Show(msg.Payload)
		return m, tea.Batch(cmd, m.noteLnr.Listen())

	case toaster.DismissMsg:
		m.toaster = m.toaster.Update(msg)
		return m, nil

	case pubsub.Event[string]:
		m.logs = m.logs.Append(msg)
		if m.logLnr == nil {
			return m, nil
		}
		return m, m.logLnr.Listen()

	case pubsub.Event[watcher.Event]:
		if msg.Payload.Type == watcher.Failed {
			log.ErrorErr(log.CatDraft, "draft watcher", msg.Payload.Error)
		}
		return m, tea.Batch(m.checkDraft(), m.watchLnr.Listen())

	case draftStatusMsg:
		m.list = m.list.SetDraftPending(msg.pending)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Global.Quit) {
			m.Close()
			return m, tea.Quit
		}
		if m.debugMode && key.Matches(msg, keys.Global.Logs) {
			m.logs = m.logs.Toggle()
			return m, nil
		}
		if m.logs.Visible() {
			var cmd tea.Cmd
			m.logs, cmd = m.logs.Update(msg)
			return m, cmd
		}
		if m.showHelp {
			if key.Matches(msg, keys.Global.Help) || msg.Type == tea.KeyEsc {
				m.showHelp = false
			}
			return m, nil
		}
		// The form captures "?" when a text field is being edited.
		if key.Matches(msg, keys.Global.Help) && (m.screen == ScreenOfficials || !m.form.Typing()) {
			m.showHelp = true
			return m, nil
		}

	case officials.NewMsg:
		return m.openForm(registration.ModeCreate, "")

	case officials.EditMsg:
		return m.openForm(registration.ModeEdit, msg.ID)

	case officials.QuitMsg:
		m.Close()
		return m, tea.Quit

	case registration.SavedMsg:
		log.Info(log.CatUI, "official saved", "id", msg.Official.ID, "mode", msg.Mode.String())
		m.closeForm()
		if inv, ok := m.services.Backend.(SearchInvalidator); ok {
			if err := inv.InvalidateSearch(m.ctx); err != nil {
				log.Warn(log.CatCache, "Failed to invalidate search cache", "error", err)
			}
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Refresh()
		return m, tea.Batch(cmd, m.checkDraft())

	case registration.ClosedMsg:
		m.closeForm()
		return m, m.checkDraft()
	}

	return m.route(msg)
}

// route forwards msg to the active screen.
func (m Model) route(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case ScreenForm:
		m.form, cmd = m.form.Update(msg)
		switch msg.(type) {
		case tea.KeyMsg, tea.MouseMsg:
		default:
			// list refreshes issued before the form opened still land
			var listCmd tea.Cmd
			m.list, listCmd = m.list.Update(msg)
			cmd = tea.Batch(cmd, listCmd)
		}
	default:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m Model) openForm(mode registration.Mode, officialID string) (tea.Model, tea.Cmd) {
	log.Info(log.CatUI, "open form", "mode", mode.String(), "official", officialID)
	rc := m.cfg.Registration
	drafts := m.services.Drafts
	if mode == registration.ModeEdit && !m.services.Flags.Enabled(flags.FlagEditDrafts) {
		drafts = nil
	}
	m.form = officialform.New(m.ctx, officialform.Config{
		Form: registration.Config{
			Mode:              mode,
			OfficialID:        officialID,
			Directory:         m.services.Backend,
			Query:             m.services.Backend,
			Officials:         m.services.Backend,
			Drafts:            drafts,
			Notifier:          m.services.Notifier,
			Tracer:            m.services.Tracer,
			CheckSettle:       rc.CheckSettle,
			ValidateTermDates: rc.ValidateTermDates,
		},
		SearchDebounce: rc.SearchDebounce,
		BlurGrace:      rc.BlurGrace,
	}).SetSize(m.width, m.height)
	m.screen = ScreenForm
	return m, m.form.Init()
}

func (m *Model) closeForm() {
	if f := m.form.Form(); f != nil {
		f.Close()
	}
	m.form = officialform.Model{}
	m.screen = ScreenOfficials
}

// checkDraft looks up the new-official draft slot.
func (m Model) checkDraft() tea.Cmd {
	store, ctx := m.services.Drafts, m.ctx
	if store == nil || !m.services.Flags.Enabled(flags.FlagDraftIndicator) {
		return nil
	}
	return func() tea.Msg {
		_, err := store.Load(ctx, draft.NewOfficialKey)
		if err != nil && !errors.Is(err, draft.ErrNotFound) {
			log.ErrorErr(log.CatDraft, "check draft", err)
		}
		return draftStatusMsg{pending: err == nil}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var view string
	switch m.screen {
	case ScreenForm:
		view = m.form.View()
	default:
		view = m.list.View()
	}

	if m.toaster.Visible() {
		view = m.toaster.Overlay(view, m.width, m.height)
	}
	if m.showHelp {
		view = m.help.Overlay(view)
	}
	if m.logs.Visible() {
		view = m.logs.Overlay(view)
	}
	return zone.Scan(view)
}
