package officialform

import (
	"context"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/barangay/internal/debounce"
	"github.com/zjrosen/barangay/internal/domain"
	"github.com/zjrosen/barangay/internal/draft"
	"github.com/zjrosen/barangay/internal/mocks"
	"github.com/zjrosen/barangay/internal/notify"
	"github.com/zjrosen/barangay/internal/registration"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

type fixture struct {
	dir       *mocks.MockResidentDirectory
	query     *mocks.MockRegistrationQuery
	officials *mocks.MockOfficialService
	notes     *notify.Recorder
	drafts    *draft.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		dir:       mocks.NewMockResidentDirectory(t),
		query:     mocks.NewMockRegistrationQuery(t),
		officials: mocks.NewMockOfficialService(t),
		notes:     &notify.Recorder{},
		drafts:    draft.NewMemoryStore(),
	}
}

func (f *fixture) model(mode registration.Mode, officialID string) Model {
	m := New(context.Background(), Config{
		Form: registration.Config{
			Mode:        mode,
			OfficialID:  officialID,
			Directory:   f.dir,
			Query:       f.query,
			Officials:   f.officials,
			Drafts:      f.drafts,
			Notifier:    f.notes,
			CheckSettle: time.Millisecond,
		},
		SearchDebounce: time.Millisecond,
		BlurGrace:      time.Millisecond,
	})
	return m.SetSize(100, 50)
}

// pump runs cmd, feeds every resulting message back into m and repeats
// until the model goes quiet. All messages seen are returned.
func pump(t *testing.T, m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	t.Helper()
	var seen []tea.Msg
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 200, "model never settled")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg == nil {
			continue
		}
		seen = append(seen, msg)
		var next tea.Cmd
		m, next = m.Update(msg)
		queue = append(queue, next)
	}
	return m, seen
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, []tea.Msg) {
	t.Helper()
	m, cmd := m.Update(k)
	return pump(t, m, cmd)
}

func typeRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func juan() domain.ResidentDetail {
	return domain.ResidentDetail{ID: "42", FirstName: "Juan", LastName: "Dela Cruz", Gender: "MALE", CompleteAddress: "Purok 1"}
}

func TestSearchSelectAndSubmit(t *testing.T) {
	f := newFixture(t)
	f.dir.On("SearchResidents", mock.Anything, "juan").
		Return([]domain.ResidentCandidate{{ID: "42", FirstName: "Juan", LastName: "Dela Cruz"}}, nil).Once()
	f.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, nil).Once()
	f.dir.On("GetResident", mock.Anything, "42").Return(juan(), nil).Once()

	m := f.model(registration.ModeCreate, "")
	m, _ = pump(t, m, m.Init())

	m, _ = press(t, m, typeRunes("juan"))
	require.True(t, m.Search().Open())
	require.Contains(t, ansi.Strip(m.View()), "Dela Cruz, Juan")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, registration.StatusValid, m.Form().Status())
	require.Equal(t, "Juan", m.Form().Data().FirstName)
	require.Contains(t, ansi.Strip(m.View()), "Resident can be registered")

	// Focus the position field and pick the first position.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, 2, m.Focus())
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, domain.PositionPunongBarangay, m.Form().Data().Position)

	f.officials.On("CreateOfficial", mock.Anything, mock.MatchedBy(func(d domain.OfficialFormData) bool {
		return d.ResidentID == "42" && d.Position == domain.PositionPunongBarangay
	})).Return(domain.Official{ID: "off-1"}, nil).Once()

	m, msgs := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Contains(t, msgs, tea.Msg(registration.SavedMsg{Official: domain.Official{ID: "off-1"}, Mode: registration.ModeCreate}))
	require.Equal(t, notify.TypeSuccess, f.notes.Last().Type)
}

func settledTicks(msgs []tea.Msg) []debounce.SettledMsg {
	var ticks []debounce.SettledMsg
	for _, msg := range msgs {
		if s, ok := msg.(debounce.SettledMsg); ok {
			ticks = append(ticks, s)
		}
	}
	return ticks
}

func TestSettleTicksRouteToOwner(t *testing.T) {
	f := newFixture(t)
	f.dir.On("SearchResidents", mock.Anything, "juan").
		Return([]domain.ResidentCandidate{{ID: "42", FirstName: "Juan", LastName: "Dela Cruz"}}, nil).Once()
	f.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, nil).Once()
	f.dir.On("GetResident", mock.Anything, "42").Return(juan(), nil).Once()

	m := f.model(registration.ModeCreate, "")
	m, _ = pump(t, m, m.Init())

	m, seen := press(t, m, typeRunes("juan"))
	searchTicks := settledTicks(seen)
	require.Len(t, searchTicks, 1)
	require.True(t, m.Search().Owns(searchTicks[0]))
	require.Equal(t, registration.StatusIdle, m.Form().Status())

	m, seen = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	checkTicks := settledTicks(seen)
	require.Len(t, checkTicks, 1)
	require.False(t, m.Search().Owns(checkTicks[0]))
	require.Equal(t, registration.StatusValid, m.Form().Status())
}

func TestConflictShownUnderSearch(t *testing.T) {
	f := newFixture(t)
	f.dir.On("SearchResidents", mock.Anything, "maria").
		Return([]domain.ResidentCandidate{{ID: "43", FirstName: "Maria", LastName: "Clara"}}, nil).Once()
	f.query.On("IsAlreadyOfficial", mock.Anything, "43").Return(1, nil).Once()

	m := f.model(registration.ModeCreate, "")
	m, _ = press(t, m, typeRunes("maria"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, registration.StatusConflict, m.Form().Status())
	view := ansi.Strip(m.View())
	require.Contains(t, view, registration.MsgAlreadyOfficial)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Contains(t, ansi.Strip(m.View()), registration.MsgNotValidated)
	f.officials.AssertNotCalled(t, "CreateOfficial", mock.Anything, mock.Anything)
}

func TestInvalidTermNumberShowsFieldError(t *testing.T) {
	f := newFixture(t)
	m := f.model(registration.ModeCreate, "")

	for m.Focus() != 6 {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	require.NotEmpty(t, m.FieldError("termNumber"))
	m, _ = press(t, m, typeRunes("3"))
	require.Empty(t, m.FieldError("termNumber"))
	require.Equal(t, 3, m.Form().Data().TermNumber)
}

func TestEditModeLoadsFields(t *testing.T) {
	f := newFixture(t)
	existing := domain.Official{ID: "off-1", OfficialFormData: domain.DefaultFormData().WithResident(juan())}
	existing.Position = domain.PositionSecretary
	existing.TermStart = "2023-01-01"
	f.officials.On("GetOfficial", mock.Anything, "off-1").Return(existing, nil).Once()

	m := f.model(registration.ModeEdit, "off-1")
	m, _ = pump(t, m, m.Init())

	view := ansi.Strip(m.View())
	require.Contains(t, view, "Edit Official")
	require.Contains(t, view, "SECRETARY")
	require.Contains(t, view, "2023-01-01")
	require.Equal(t, "Juan Dela Cruz", m.Search().Value())
	require.Equal(t, registration.StatusValid, m.Form().Status())
}

func TestSaveDraftAndClose(t *testing.T) {
	f := newFixture(t)
	m := f.model(registration.ModeCreate, "")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	_, ok, err := draft.LoadForm(context.Background(), f.drafts, draft.NewOfficialKey)
	require.NoError(t, err)
	require.True(t, ok)

	_, msgs := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Contains(t, msgs, tea.Msg(registration.ClosedMsg{}))
}

func TestEscFirstClosesDropdown(t *testing.T) {
	f := newFixture(t)
	f.dir.On("SearchResidents", mock.Anything, "x").Return([]domain.ResidentCandidate{}, nil).Once()
	m := f.model(registration.ModeCreate, "")

	m, _ = press(t, m, typeRunes("x"))
	require.True(t, m.Search().Open())
	require.Contains(t, ansi.Strip(m.View()), "No residents found")

	m, msgs := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.Search().Open())
	require.NotContains(t, msgs, tea.Msg(registration.ClosedMsg{}))
}
