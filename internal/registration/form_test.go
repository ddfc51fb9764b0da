package registration

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/barangay/internal/debounce"
	"github.com/zjrosen/barangay/internal/domain"
	"github.com/zjrosen/barangay/internal/draft"
	"github.com/zjrosen/barangay/internal/mocks"
	"github.com/zjrosen/barangay/internal/notify"
	"github.com/zjrosen/barangay/internal/tracing"
)

type harness struct {
	form      *Form
	dir       *mocks.MockResidentDirectory
	query     *mocks.MockRegistrationQuery
	officials *mocks.MockOfficialService
	notes     *notify.Recorder
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{
		dir:       mocks.NewMockResidentDirectory(t),
		query:     mocks.NewMockRegistrationQuery(t),
		officials: mocks.NewMockOfficialService(t),
		notes:     &notify.Recorder{},
	}
	cfg := Config{
		Directory:   h.dir,
		Query:       h.query,
		Officials:   h.officials,
		Notifier:    h.notes,
		CheckSettle: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.form = New(context.Background(), cfg)
	return h
}

func exec(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd, "expected a command")
	return cmd()
}

// settle drives a selection through the settle tick and the check request,
// returning whatever command the check result produced.
func (h *harness) settle(t *testing.T, selectCmd tea.Cmd) tea.Cmd {
	t.Helper()
	msg := exec(t, selectCmd)
	require.IsType(t, debounce.SettledMsg{}, msg)
	checkCmd := h.form.Update(msg)
	require.Equal(t, StatusChecking, h.form.Status())
	return h.form.Update(exec(t, checkCmd))
}

func juan() domain.ResidentDetail {
	return domain.ResidentDetail{
		ID:              "42",
		FirstName:       "Juan",
		MiddleName:      domain.StringPtr("Santos"),
		LastName:        "Dela Cruz",
		Gender:          "MALE",
		BirthDate:       "1980-05-12",
		CompleteAddress: "Purok 1",
		CivilStatus:     "MARRIED",
	}
}

func TestSelectResident_ValidPopulatesIdentity(t *testing.T) {
	h := newHarness(t, nil)
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, nil).Once()
	h.dir.On("GetResident", mock.Anything, "42").Return(juan(), nil).Once()

	cmd := h.form.SelectResident("42")
	require.Equal(t, StatusIdle, h.form.Status())
	require.Equal(t, "42", h.form.Data().ResidentID)

	fetch := h.settle(t, cmd)
	require.Equal(t, StatusValid, h.form.Status())
	require.True(t, h.form.DetailLoading())

	require.Nil(t, h.form.Update(exec(t, fetch)))
	require.False(t, h.form.DetailLoading())
	data := h.form.Data()
	require.Equal(t, "Juan", data.FirstName)
	require.Equal(t, "Dela Cruz", data.LastName)
	require.Equal(t, "Santos", domain.Deref(data.MiddleName))
	require.Empty(t, h.form.ConflictMessage())
}

func TestSelectResident_ExistingRegistrationConflicts(t *testing.T) {
	h := newHarness(t, nil)
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(1, nil).Once()

	next := h.settle(t, h.form.SelectResident("42"))
	require.Nil(t, next, "conflicts must not fetch details")
	require.Equal(t, StatusConflict, h.form.Status())
	require.Equal(t, MsgAlreadyOfficial, h.form.ConflictMessage())
	require.False(t, h.form.Data().HasIdentity())
	require.False(t, h.form.CanSubmit())
}

func TestSelectResident_QueryFailureConflicts(t *testing.T) {
	h := newHarness(t, nil)
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, errors.New("boom")).Once()

	require.Nil(t, h.settle(t, h.form.SelectResident("42")))
	require.Equal(t, StatusConflict, h.form.Status())
	require.Equal(t, MsgCheckFailed, h.form.ConflictMessage())
}

func TestSelectResident_NegativeCountIsFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(-1, nil).Once()

	h.settle(t, h.form.SelectResident("42"))
	require.Equal(t, MsgCheckFailed, h.form.ConflictMessage())
}

func TestSelectResident_SupersededTickIsDropped(t *testing.T) {
	h := newHarness(t, nil)
	first := h.form.SelectResident("42")
	second := h.form.SelectResident("43")

	require.Nil(t, h.form.Update(exec(t, first)))
	require.Equal(t, StatusIdle, h.form.Status())

	h.query.On("IsAlreadyOfficial", mock.Anything, "43").Return(0, nil).Once()
	h.dir.On("GetResident", mock.Anything, "43").Return(domain.ResidentDetail{ID: "43", FirstName: "Maria"}, nil).Once()
	fetch := h.settle(t, second)
	h.form.Update(exec(t, fetch))
	require.Equal(t, "43", h.form.Data().ResidentID)
	require.Equal(t, "Maria", h.form.Data().FirstName)
	h.query.AssertNotCalled(t, "IsAlreadyOfficial", mock.Anything, "42")
}

func TestSelectResident_StaleCheckResultIsDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(1, nil).Once()

	checkCmd := h.form.Update(exec(t, h.form.SelectResident("42")))
	require.Equal(t, StatusChecking, h.form.Status())

	h.form.SelectResident("43")
	require.Nil(t, h.form.Update(exec(t, checkCmd)))
	require.Equal(t, StatusIdle, h.form.Status())
	require.Empty(t, h.form.ConflictMessage())
	require.Equal(t, "43", h.form.Data().ResidentID)
}

func TestChecking_IgnoresSupersededRequest(t *testing.T) {
	h := newHarness(t, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(0, nil).Once()

	checkCmd := h.form.Update(exec(t, h.form.SelectResident("42")))
	require.NotNil(t, checkCmd)
	done := make(chan tea.Msg, 1)
	go func() { done <- checkCmd() }()
	<-started
	require.True(t, h.form.Checking())

	h.form.SelectResident("43")
	require.False(t, h.form.Checking(), "the old request must not keep search disabled")

	close(release)
	require.Nil(t, h.form.Update(<-done))
	require.False(t, h.form.Checking())
	require.Equal(t, StatusIdle, h.form.Status())
}

func TestSelectResident_SameIDRechecks(t *testing.T) {
	h := newHarness(t, nil)
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, nil).Twice()
	h.dir.On("GetResident", mock.Anything, "42").Return(juan(), nil).Twice()

	h.form.Update(exec(t, h.settle(t, h.form.SelectResident("42"))))
	require.Equal(t, StatusValid, h.form.Status())

	cmd := h.form.SelectResident("42")
	require.Equal(t, StatusIdle, h.form.Status())
	require.False(t, h.form.Data().HasIdentity())
	h.form.Update(exec(t, h.settle(t, cmd)))
	require.Equal(t, StatusValid, h.form.Status())
	require.Equal(t, "Juan", h.form.Data().FirstName)
}

func TestSelectResident_EmptyClears(t *testing.T) {
	h := newHarness(t, nil)
	pending := h.form.SelectResident("42")
	require.Nil(t, h.form.SelectResident(""))
	require.Nil(t, h.form.Update(exec(t, pending)))
	require.Equal(t, StatusIdle, h.form.Status())
	require.Empty(t, h.form.Data().ResidentID)
}

func TestResidentDetailFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, nil).Once()
	h.dir.On("GetResident", mock.Anything, "42").Return(nil, errors.New("down")).Once()

	h.form.Update(exec(t, h.settle(t, h.form.SelectResident("42"))))
	require.Equal(t, StatusConflict, h.form.Status())
	require.Equal(t, MsgDetailsFailed, h.form.ConflictMessage())
	require.Equal(t, notify.TypeError, h.notes.Last().Type)
}

func validForm(t *testing.T, h *harness) {
	t.Helper()
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, nil).Once()
	h.dir.On("GetResident", mock.Anything, "42").Return(juan(), nil).Once()
	h.form.Update(exec(t, h.settle(t, h.form.SelectResident("42"))))
	require.NoError(t, h.form.SetField("position", domain.PositionKagawad))
	require.NoError(t, h.form.SetField("termStart", "2024-01-01"))
	require.NoError(t, h.form.SetField("termEnd", "2026-12-31"))
}

func TestSubmit_Gates(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.ValidateTermDates = true })

	require.Nil(t, h.form.Submit())
	require.Equal(t, MsgSelectResident, h.form.ValidationError())

	cmd := h.form.SelectResident("42")
	require.Nil(t, h.form.Submit())
	require.Equal(t, MsgNotValidated, h.form.ValidationError())

	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, nil).Once()
	h.dir.On("GetResident", mock.Anything, "42").Return(juan(), nil).Once()
	fetch := h.settle(t, cmd)
	require.Nil(t, h.form.Submit())
	require.Equal(t, MsgDetailsLoading, h.form.ValidationError())

	h.form.Update(exec(t, fetch))
	require.Nil(t, h.form.Submit())
	require.Equal(t, MsgSelectPosition, h.form.ValidationError())

	require.NoError(t, h.form.SetField("position", domain.PositionSecretary))
	require.Nil(t, h.form.Submit())
	require.Equal(t, MsgTermDatesRequired, h.form.ValidationError())

	require.NoError(t, h.form.SetField("termStart", "2026-01-01"))
	require.NoError(t, h.form.SetField("termEnd", "2024-01-01"))
	require.Nil(t, h.form.Submit())
	require.Equal(t, MsgTermOrder, h.form.ValidationError())

	// A term may start and end on the same day.
	require.NoError(t, h.form.SetField("termEnd", "2026-01-01"))
	require.True(t, h.form.CanSubmit())

	h.officials.AssertNotCalled(t, "CreateOfficial", mock.Anything, mock.Anything)
}

func TestSubmit_CreateSuccess(t *testing.T) {
	h := newHarness(t, nil)
	validForm(t, h)

	want := h.form.Data().Normalize()
	created := domain.Official{ID: "off-1", OfficialFormData: want}
	h.officials.On("CreateOfficial", mock.Anything, want).Return(created, nil).Once()

	cmd := h.form.Submit()
	require.True(t, h.form.Submitting())
	require.Nil(t, h.form.Submit(), "double submit is rejected")
	require.Equal(t, MsgAlreadySubmitting, h.form.ValidationError())

	done := h.form.Update(exec(t, cmd))
	require.False(t, h.form.Submitting())
	require.Equal(t, notify.TypeSuccess, h.notes.Last().Type)
	require.Equal(t, SavedMsg{Official: created, Mode: ModeCreate}, exec(t, done))
}

func TestSubmit_NormalizesOptionalFields(t *testing.T) {
	h := newHarness(t, nil)
	validForm(t, h)

	h.officials.On("CreateOfficial", mock.Anything, mock.MatchedBy(func(d domain.OfficialFormData) bool {
		return d.MobileNumber != nil && *d.MobileNumber == "" &&
			d.EmailAddress != nil && d.Committee != nil && d.ProfilePhotoURL != nil
	})).Return(domain.Official{ID: "off-1"}, nil).Once()

	h.form.Update(exec(t, h.form.Submit()))
}

func TestSubmit_FailureToastsServerMessage(t *testing.T) {
	h := newHarness(t, nil)
	validForm(t, h)
	h.officials.On("CreateOfficial", mock.Anything, mock.Anything).
		Return(nil, errors.New("resident already holds an active position")).Once()

	require.Nil(t, h.form.Update(exec(t, h.form.Submit())))
	last := h.notes.Last()
	require.Equal(t, notify.TypeError, last.Type)
	require.Equal(t, "resident already holds an active position", last.Message)
	require.True(t, h.form.CanSubmit(), "a failed submission can be retried")
}

func TestSubmit_CustomOnSuccessAndSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	type done struct{ id string }

	h := newHarness(t, func(c *Config) {
		c.Tracer = tp.Tracer("test")
		c.OnSuccess = func(o domain.Official) tea.Msg { return done{id: o.ID} }
	})
	validForm(t, h)
	h.officials.On("CreateOfficial", mock.Anything, mock.Anything).Return(domain.Official{ID: "off-9"}, nil).Once()

	require.Equal(t, done{id: "off-9"}, exec(t, h.form.Update(exec(t, h.form.Submit()))))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "registration.Submit", spans[0].Name())
	var mode string
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == tracing.AttrFormMode {
			mode = kv.Value.AsString()
		}
	}
	require.Equal(t, "create", mode)
}

func TestEditMode(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Mode = ModeEdit
		c.OfficialID = "off-1"
	})
	existing := domain.Official{ID: "off-1", OfficialFormData: domain.DefaultFormData().WithResident(juan())}
	existing.Position = domain.PositionPunongBarangay
	h.officials.On("GetOfficial", mock.Anything, "off-1").Return(existing, nil).Once()

	cmd := h.form.Init()
	require.True(t, h.form.Loading())
	require.Nil(t, h.form.Update(exec(t, cmd)))
	require.False(t, h.form.Loading())
	require.Equal(t, StatusValid, h.form.Status())
	require.Equal(t, "Juan", h.form.Data().FirstName)
	require.True(t, h.form.CanSubmit())

	// Reselecting the official's own resident skips the check.
	h.dir.On("GetResident", mock.Anything, "42").Return(juan(), nil).Once()
	fetch := h.form.Update(exec(t, h.form.SelectResident("42")))
	require.Equal(t, StatusValid, h.form.Status())
	h.form.Update(exec(t, fetch))

	h.officials.On("UpdateOfficial", mock.Anything, "off-1", mock.Anything).Return(existing, nil).Once()
	done := h.form.Update(exec(t, h.form.Submit()))
	require.Equal(t, SavedMsg{Official: existing, Mode: ModeEdit}, exec(t, done))
	require.Contains(t, h.notes.Last().Message, "updated")

	h.query.AssertNotCalled(t, "IsAlreadyOfficial", mock.Anything, mock.Anything)
}

func TestEditMode_LoadFailure(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Mode = ModeEdit
		c.OfficialID = "missing"
	})
	h.officials.On("GetOfficial", mock.Anything, "missing").Return(nil, errors.New("not found")).Once()

	h.form.Update(exec(t, h.form.Init()))
	require.Contains(t, h.form.LoadError(), "not found")
	require.False(t, h.form.CanSubmit())
}

func TestDraftMissingKeepsDefaults(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Drafts = draft.NewMemoryStore() })
	require.Nil(t, h.form.Update(exec(t, h.form.Init())))
	require.Equal(t, domain.DefaultFormData(), h.form.Data())
}

func TestInit_NoDraftStore(t *testing.T) {
	h := newHarness(t, nil)
	require.Nil(t, h.form.Init())
}

func TestDraftSaveAndRestore(t *testing.T) {
	store := draft.NewMemoryStore()
	h := newHarness(t, func(c *Config) { c.Drafts = store })
	validForm(t, h)
	require.NoError(t, h.form.SetField("committee", "Health"))
	saved := h.form.Data()

	require.Nil(t, h.form.Update(exec(t, h.form.SaveDraft())))
	require.Equal(t, notify.TypeInfo, h.notes.Last().Type)

	h2 := newHarness(t, func(c *Config) { c.Drafts = store })
	recheck := h2.form.Update(exec(t, h2.form.Init()))
	require.Equal(t, saved, h2.form.Data())
	require.Equal(t, StatusIdle, h2.form.Status())

	h2.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(0, nil).Once()
	h2.dir.On("GetResident", mock.Anything, "42").Return(juan(), nil).Once()
	h2.form.Update(exec(t, h2.settle(t, recheck)))
	require.Equal(t, StatusValid, h2.form.Status())
}

func TestDraftCorruptIsIgnored(t *testing.T) {
	store := draft.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), draft.NewOfficialKey, []byte("{not json")))
	h := newHarness(t, func(c *Config) { c.Drafts = store })

	require.Nil(t, h.form.Update(exec(t, h.form.Init())))
	require.Equal(t, domain.DefaultFormData(), h.form.Data())
}

func TestSaveDraft_EditModeUsesOwnSlot(t *testing.T) {
	store := draft.NewMemoryStore()
	h := newHarness(t, func(c *Config) {
		c.Mode = ModeEdit
		c.OfficialID = "off-1"
		c.Drafts = store
	})
	require.Nil(t, h.form.Update(exec(t, h.form.SaveDraft())))

	_, ok, err := draft.LoadForm(context.Background(), store, draft.EditOfficialKey)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = draft.LoadForm(context.Background(), store, draft.NewOfficialKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveDraft_InConflict(t *testing.T) {
	store := draft.NewMemoryStore()
	h := newHarness(t, func(c *Config) { c.Drafts = store })
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").Return(1, nil).Once()
	h.settle(t, h.form.SelectResident("42"))
	require.Equal(t, StatusConflict, h.form.Status())

	require.Nil(t, h.form.Update(exec(t, h.form.SaveDraft())))
	data, ok, err := draft.LoadForm(context.Background(), store, draft.NewOfficialKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "42", data.ResidentID)
}

func TestSaveDraft_NoStore(t *testing.T) {
	h := newHarness(t, nil)
	require.Nil(t, h.form.SaveDraft())
	require.Equal(t, MsgDraftUnavailable, h.notes.Last().Message)
}

func TestSetField(t *testing.T) {
	h := newHarness(t, nil)
	require.ErrorIs(t, h.form.SetField("firstName", "X"), ErrReadOnlyField)
	require.ErrorIs(t, h.form.SetField("residentId", "1"), ErrReadOnlyField)
	require.ErrorIs(t, h.form.SetField("nickname", "X"), ErrUnknownField)
	require.Error(t, h.form.SetField("termNumber", "zero"))
	require.Error(t, h.form.SetField("status", "RETIRED"))

	require.NoError(t, h.form.SetField("termNumber", "2"))
	require.NoError(t, h.form.SetField("isCurrentTerm", "false"))
	require.NoError(t, h.form.SetField("committee", ""))
	d := h.form.Data()
	require.Equal(t, 2, d.TermNumber)
	require.False(t, d.IsCurrentTerm)
	require.Nil(t, d.Committee)
}

func TestClose_DropsLateResults(t *testing.T) {
	var closedCtx context.Context
	h := newHarness(t, nil)
	h.query.On("IsAlreadyOfficial", mock.Anything, "42").
		Run(func(args mock.Arguments) { closedCtx = args.Get(0).(context.Context) }).
		Return(0, nil).Once()

	checkCmd := h.form.Update(exec(t, h.form.SelectResident("42")))
	require.IsType(t, ClosedMsg{}, exec(t, h.form.Close()))
	require.Nil(t, h.form.Close())

	require.Nil(t, h.form.Update(exec(t, checkCmd)))
	require.Error(t, closedCtx.Err())
	require.Nil(t, h.form.SelectResident("43"))
	require.Nil(t, h.form.Submit())
}

func TestSearch_StaleResultsDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.dir.On("SearchResidents", mock.Anything, "ju").Return([]domain.ResidentCandidate{{ID: "42"}}, nil).Once()
	h.dir.On("SearchResidents", mock.Anything, "juan").Return([]domain.ResidentCandidate{{ID: "42"}, {ID: "47"}}, nil).Once()

	first := h.form.Search("ju")
	second := h.form.Search("juan")
	require.True(t, h.form.SearchLoading())

	h.form.Update(exec(t, second))
	h.form.Update(exec(t, first))
	require.Len(t, h.form.SearchResults(), 2)
	require.False(t, h.form.SearchLoading())

	require.Nil(t, h.form.Search("  "))
	require.Empty(t, h.form.SearchResults())
}

func TestSearch_Error(t *testing.T) {
	h := newHarness(t, nil)
	h.dir.On("SearchResidents", mock.Anything, "x").Return(nil, errors.New("offline")).Once()
	h.form.Update(exec(t, h.form.Search("x")))
	require.NotEmpty(t, h.form.SearchError())
	require.Empty(t, h.form.SearchResults())
}

func TestRevisionBumpsOnWholesaleReplace(t *testing.T) {
	store := draft.NewMemoryStore()
	d := domain.DefaultFormData()
	d.Position = domain.PositionTreasurer
	require.NoError(t, draft.SaveForm(context.Background(), store, draft.NewOfficialKey, d))

	h := newHarness(t, func(c *Config) { c.Drafts = store })
	require.Zero(t, h.form.Revision())
	require.Nil(t, h.form.Update(exec(t, h.form.Init())))
	require.Equal(t, uint64(1), h.form.Revision())
	require.NoError(t, h.form.SetField("prefix", "Kgd."))
	require.Equal(t, uint64(1), h.form.Revision(), "field edits do not bump the revision")
}
