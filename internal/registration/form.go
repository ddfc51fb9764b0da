// Package registration implements the barangay official registration
// workflow: resident selection, the duplicate-registration check, draft
// handling and create/update submission.
//
// Form is driven by the Bubble Tea event loop. Every transition is an
// explicit method call or an async result delivered through Update, and
// every async result is tagged so responses for superseded selections or
// a closed form are dropped.
package registration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/barangay/internal/debounce"
	"github.com/zjrosen/barangay/internal/domain"
	"github.com/zjrosen/barangay/internal/draft"
	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/notify"
	"github.com/zjrosen/barangay/internal/tracing"
)

// User-visible messages.
const (
	MsgSelectResident     = "Please select a resident first"
	MsgNotValidated       = "Please wait for the resident to be validated"
	MsgDetailsLoading     = "Resident details are still loading"
	MsgAlreadyOfficial    = "This resident is already registered as an active official"
	MsgCheckFailed        = "Failed to check official status. Please try again."
	MsgDetailsFailed      = "Failed to load resident details"
	MsgSelectPosition     = "Please select a position"
	MsgTermDatesRequired  = "Term start and term end are required (YYYY-MM-DD)"
	MsgTermOrder          = "Term start must be on or before term end"
	MsgSubmitFallback     = "Something went wrong while saving the official"
	MsgDraftUnavailable   = "Draft storage is not configured"
	MsgAlreadySubmitting  = "Submission in progress"
	defaultCheckSettle    = time.Second
	checkDebounceID       = "registration-check"
	defaultSearchDebounce = 500 * time.Millisecond
)

var (
	// ErrReadOnlyField is returned by SetField for identity fields.
	ErrReadOnlyField = errors.New("field is populated from the resident record")
	// ErrUnknownField is returned by SetField for names it does not know.
	ErrUnknownField = errors.New("unknown field")
)

// Mode selects create or edit behavior.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Status is the registration check state for the current resident id.
type Status int

const (
	StatusIdle Status = iota
	StatusChecking
	StatusConflict
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusConflict:
		return "conflict"
	case StatusValid:
		return "valid"
	default:
		return "idle"
	}
}

// ResidentDirectory looks residents up.
type ResidentDirectory interface {
	SearchResidents(ctx context.Context, query string) ([]domain.ResidentCandidate, error)
	GetResident(ctx context.Context, id string) (domain.ResidentDetail, error)
}

// OfficialService persists officials.
type OfficialService interface {
	CreateOfficial(ctx context.Context, data domain.OfficialFormData) (domain.Official, error)
	UpdateOfficial(ctx context.Context, id string, data domain.OfficialFormData) (domain.Official, error)
	GetOfficial(ctx context.Context, id string) (domain.Official, error)
}

// Config wires a Form to its collaborators.
type Config struct {
	Mode       Mode
	OfficialID string // required in ModeEdit

	Directory ResidentDirectory
	Query     RegistrationQuery
	Officials OfficialService
	Drafts    draft.Store // nil disables drafts
	DraftKey  string      // defaults to draft.NewOfficialKey, or draft.EditOfficialKey in ModeEdit
	Notifier  notify.Notifier
	Tracer    trace.Tracer

	CheckSettle       time.Duration
	ValidateTermDates bool

	// OnSuccess builds the message sent after a successful save.
	// Defaults to SavedMsg.
	OnSuccess func(domain.Official) tea.Msg
	// OnClose builds the message sent by Close. Defaults to ClosedMsg.
	OnClose func() tea.Msg
}

type selection struct {
	residentID string
	attempt    uint64
}

// Form is the registration form state machine.
type Form struct {
	cfg     Config
	ctx     context.Context
	cancel  context.CancelFunc
	checker *Checker

	data   domain.OfficialFormData
	status Status

	// attempt increases on every selection, so re-selecting the same
	// resident re-runs the check.
	attempt     uint64
	settle      debounce.Value[selection]
	ownResident string // edit mode: the official's own resident id

	conflictMsg   string
	validationErr string
	loadErr       string

	detailLoading bool
	loading       bool
	submitting    bool
	closed        bool

	// revision increases whenever data is replaced wholesale (edit load,
	// draft restore) so views can resync their inputs.
	revision uint64

	searchSeq     uint64
	searchQuery   string
	searchResults []domain.ResidentCandidate
	searchLoading bool
	searchErr     string
}

// New creates a Form bound to ctx. Close cancels every request the form
// issued.
func New(ctx context.Context, cfg Config) *Form {
	if cfg.CheckSettle <= 0 {
		cfg.CheckSettle = defaultCheckSettle
	}
	if cfg.DraftKey == "" {
		cfg.DraftKey = draft.NewOfficialKey
		if cfg.Mode == ModeEdit {
			cfg.DraftKey = draft.EditOfficialKey
		}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = &notify.Recorder{}
	}
	if cfg.OnSuccess == nil {
		mode := cfg.Mode
		cfg.OnSuccess = func(o domain.Official) tea.Msg { return SavedMsg{Official: o, Mode: mode} }
	}
	if cfg.OnClose == nil {
		cfg.OnClose = func() tea.Msg { return ClosedMsg{} }
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Form{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		checker: NewChecker(cfg.Query),
		data:    domain.DefaultFormData(),
		settle:  debounce.New[selection](checkDebounceID, cfg.CheckSettle),
	}
}

// Init bootstraps the form: edit mode loads the official, create mode
// loads the draft.
func (f *Form) Init() tea.Cmd {
	if f.cfg.Mode == ModeEdit {
		f.loading = true
		ctx, svc, id := f.ctx, f.cfg.Officials, f.cfg.OfficialID
		return func() tea.Msg {
			o, err := svc.GetOfficial(ctx, id)
			return officialLoadedMsg{official: o, err: err}
		}
	}
	if f.cfg.Drafts == nil {
		return nil
	}
	ctx, store, key := f.ctx, f.cfg.Drafts, f.cfg.DraftKey
	return func() tea.Msg {
		data, ok, err := draft.LoadForm(ctx, store, key)
		return draftLoadedMsg{data: data, ok: ok, err: err}
	}
}

// SelectResident makes id the current resident. Any prior check result is
// discarded immediately (state returns to Idle) and a new check is
// scheduled after the settle delay. An empty id just clears the selection.
func (f *Form) SelectResident(id string) tea.Cmd {
	if f.closed {
		return nil
	}
	f.attempt++
	f.status = StatusIdle
	f.conflictMsg = ""
	f.validationErr = ""
	f.detailLoading = false
	f.data = f.data.WithoutIdentity()
	f.data.ResidentID = id
	if id == "" {
		f.settle.Cancel()
		return nil
	}
	log.Debug(log.CatForm, "resident selected", "resident", id, "attempt", f.attempt)
	return f.settle.Set(selection{residentID: id, attempt: f.attempt})
}

// Search issues a directory query for q. Results for older queries are
// dropped when they arrive.
func (f *Form) Search(q string) tea.Cmd {
	if f.closed {
		return nil
	}
	f.searchSeq++
	f.searchQuery = q
	f.searchErr = ""
	if strings.TrimSpace(q) == "" {
		f.searchResults = nil
		f.searchLoading = false
		return nil
	}
	f.searchLoading = true
	ctx, dir, seq := f.ctx, f.cfg.Directory, f.searchSeq
	return func() tea.Msg {
		results, err := dir.SearchResidents(ctx, q)
		return searchResultsMsg{seq: seq, query: q, results: results, err: err}
	}
}

// Update applies async results. Unrelated messages are ignored.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	if f.closed {
		return nil
	}
	switch msg := msg.(type) {
	case debounce.SettledMsg:
		sel, ok := f.settle.Resolve(msg)
		if !ok || sel.attempt != f.attempt {
			return nil
		}
		return f.startCheck(sel)

	case checkResultMsg:
		if msg.attempt != f.attempt || f.status != StatusChecking {
			log.Debug(log.CatForm, "dropping stale check result", "resident", msg.residentID)
			return nil
		}
		return f.applyCheck(msg)

	case residentLoadedMsg:
		if msg.attempt != f.attempt {
			return nil
		}
		f.detailLoading = false
		if msg.err != nil {
			log.ErrorErr(log.CatForm, "resident detail fetch failed", msg.err, "resident", f.data.ResidentID)
			f.enterConflict(MsgDetailsFailed)
			notify.Error(f.cfg.Notifier, "Error", MsgDetailsFailed)
			return nil
		}
		f.data = f.data.WithResident(msg.detail)
		return nil

	case officialLoadedMsg:
		f.loading = false
		if msg.err != nil {
			f.loadErr = "Failed to load official: " + errorMessage(msg.err, "unknown error")
			notify.Error(f.cfg.Notifier, "Error", f.loadErr)
			return nil
		}
		f.bootstrapEdit(msg.official)
		return nil

	case draftLoadedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatDraft, "ignoring unreadable draft", msg.err, "key", f.cfg.DraftKey)
			return nil
		}
		if !msg.ok {
			return nil
		}
		return f.applyDraft(msg.data)

	case draftSavedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatDraft, "draft save failed", msg.err)
			notify.Error(f.cfg.Notifier, "Draft", "Failed to save draft: "+msg.err.Error())
			return nil
		}
		notify.Info(f.cfg.Notifier, "Draft", "Draft saved")
		return nil

	case submittedMsg:
		f.submitting = false
		if msg.err != nil {
			log.ErrorErr(log.CatForm, "submission failed", msg.err, "mode", f.cfg.Mode.String())
			notify.Error(f.cfg.Notifier, "Error", errorMessage(msg.err, MsgSubmitFallback))
			return nil
		}
		verb := "registered"
		if f.cfg.Mode == ModeEdit {
			verb = "updated"
		}
		notify.Success(f.cfg.Notifier, "Success", fmt.Sprintf("Official %s successfully", verb))
		official, onSuccess := msg.official, f.cfg.OnSuccess
		return func() tea.Msg { return onSuccess(official) }

	case searchResultsMsg:
		if msg.seq != f.searchSeq {
			return nil
		}
		f.searchLoading = false
		if msg.err != nil {
			log.ErrorErr(log.CatSearch, "resident search failed", msg.err, "query", msg.query)
			f.searchErr = "Failed to search residents"
			f.searchResults = nil
			return nil
		}
		f.searchResults = msg.results
		return nil
	}
	return nil
}

func (f *Form) startCheck(sel selection) tea.Cmd {
	if f.cfg.Mode == ModeEdit && sel.residentID == f.ownResident {
		// An official cannot conflict with their own registration.
		f.status = StatusValid
		return f.fetchResident(sel.attempt, sel.residentID)
	}
	f.status = StatusChecking
	ctx, checker := f.ctx, f.checker
	return func() tea.Msg {
		return checkResultMsg{
			attempt:    sel.attempt,
			residentID: sel.residentID,
			result:     checker.Check(ctx, sel.residentID),
		}
	}
}

func (f *Form) applyCheck(msg checkResultMsg) tea.Cmd {
	switch {
	case !msg.result.OK:
		f.enterConflict(MsgCheckFailed)
		return nil
	case msg.result.HasExistingRegistration:
		f.enterConflict(MsgAlreadyOfficial)
		return nil
	}
	f.status = StatusValid
	f.conflictMsg = ""
	return f.fetchResident(msg.attempt, msg.residentID)
}

func (f *Form) fetchResident(attempt uint64, id string) tea.Cmd {
	f.detailLoading = true
	ctx, dir := f.ctx, f.cfg.Directory
	return func() tea.Msg {
		detail, err := dir.GetResident(ctx, id)
		return residentLoadedMsg{attempt: attempt, detail: detail, err: err}
	}
}

func (f *Form) enterConflict(message string) {
	f.status = StatusConflict
	f.conflictMsg = message
	f.data = f.data.WithoutIdentity()
}

func (f *Form) bootstrapEdit(o domain.Official) {
	f.attempt++
	f.settle.Cancel()
	f.data = o.OfficialFormData
	f.revision++
	f.ownResident = o.ResidentID
	f.status = StatusValid
	f.conflictMsg = ""
	log.Debug(log.CatForm, "edit form loaded", "official", o.ID, "resident", o.ResidentID)
}

// applyDraft restores a saved snapshot as-is. A stored resident id is
// re-validated through the normal check path.
func (f *Form) applyDraft(data domain.OfficialFormData) tea.Cmd {
	f.data = data
	f.revision++
	f.attempt++
	f.status = StatusIdle
	f.conflictMsg = ""
	log.Debug(log.CatDraft, "draft restored", "resident", data.ResidentID)
	if data.ResidentID == "" {
		return nil
	}
	return f.settle.Set(selection{residentID: data.ResidentID, attempt: f.attempt})
}

// SetField edits a term/position field. Identity fields are read-only.
func (f *Form) SetField(field, value string) error {
	switch field {
	case "prefix":
		f.data.Prefix = value
	case "position":
		f.data.Position = value
	case "committee":
		if value == "" {
			f.data.Committee = nil
		} else {
			f.data.Committee = domain.StringPtr(value)
		}
	case "termStart":
		f.data.TermStart = value
	case "termEnd":
		f.data.TermEnd = value
	case "termNumber":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return fmt.Errorf("term number must be a positive integer, got %q", value)
		}
		f.data.TermNumber = n
	case "isCurrentTerm":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("is current term must be true or false, got %q", value)
		}
		f.data.IsCurrentTerm = b
	case "status":
		if value != domain.StatusActive && value != domain.StatusInactive {
			return fmt.Errorf("status must be %s or %s, got %q", domain.StatusActive, domain.StatusInactive, value)
		}
		f.data.Status = value
	case "residentId", "firstName", "middleName", "lastName", "gender", "birthDate",
		"mobileNumber", "emailAddress", "completeAddress", "civilStatus",
		"educationalAttainment", "profilePhotoUrl":
		return fmt.Errorf("%s: %w", field, ErrReadOnlyField)
	default:
		return fmt.Errorf("%s: %w", field, ErrUnknownField)
	}
	f.validationErr = ""
	return nil
}

// Submit validates locally and, when accepted, creates or updates the
// official. Rejections set ValidationError and issue no request.
func (f *Form) Submit() tea.Cmd {
	if f.closed {
		return nil
	}
	if msg := f.rejectReason(); msg != "" {
		f.validationErr = msg
		log.Debug(log.CatForm, "submission rejected", "reason", msg)
		return nil
	}
	f.validationErr = ""
	f.submitting = true

	ctx, cfg, body := f.ctx, f.cfg, f.data.Normalize()
	return func() tea.Msg {
		ctx, span := cfg.Tracer.Start(ctx, "registration.Submit")
		span.SetAttributes(
			attribute.String(tracing.AttrFormMode, cfg.Mode.String()),
			attribute.String(tracing.AttrResidentID, body.ResidentID),
		)
		span.AddEvent(tracing.EventSubmission)

		var o domain.Official
		var err error
		if cfg.Mode == ModeEdit {
			o, err = cfg.Officials.UpdateOfficial(ctx, cfg.OfficialID, body)
		} else {
			o, err = cfg.Officials.CreateOfficial(ctx, body)
		}
		tracing.End(span, err)
		return submittedMsg{official: o, err: err}
	}
}

func (f *Form) rejectReason() string {
	switch {
	case f.submitting:
		return MsgAlreadySubmitting
	case f.data.ResidentID == "":
		return MsgSelectResident
	case f.status != StatusValid:
		return MsgNotValidated
	case f.detailLoading:
		return MsgDetailsLoading
	case f.data.Position == "":
		return MsgSelectPosition
	}
	if f.cfg.ValidateTermDates {
		start, errStart := time.Parse(domain.DateLayout, f.data.TermStart)
		end, errEnd := time.Parse(domain.DateLayout, f.data.TermEnd)
		if errStart != nil || errEnd != nil {
			return MsgTermDatesRequired
		}
		if start.After(end) {
			return MsgTermOrder
		}
	}
	return ""
}

// SaveDraft stores the current state without validation, whatever the
// check status.
func (f *Form) SaveDraft() tea.Cmd {
	if f.closed {
		return nil
	}
	if f.cfg.Drafts == nil {
		notify.Info(f.cfg.Notifier, "Draft", MsgDraftUnavailable)
		return nil
	}
	ctx, store, key, data := f.ctx, f.cfg.Drafts, f.cfg.DraftKey, f.data
	return func() tea.Msg {
		return draftSavedMsg{err: draft.SaveForm(ctx, store, key, data)}
	}
}

// Close cancels outstanding requests and returns the close message.
// Results that arrive afterwards are ignored.
func (f *Form) Close() tea.Cmd {
	if f.closed {
		return nil
	}
	f.closed = true
	f.settle.Cancel()
	if f.checker.InProgress() {
		log.Debug(log.CatForm, "cancelling registration check in flight", "resident", f.data.ResidentID)
	}
	f.cancel()
	onClose := f.cfg.OnClose
	return func() tea.Msg { return onClose() }
}

func errorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

// Data returns a copy of the form state.
func (f *Form) Data() domain.OfficialFormData { return f.data }

// Status returns the registration check state.
func (f *Form) Status() Status { return f.status }

// ConflictMessage is set while Status is StatusConflict.
func (f *Form) ConflictMessage() string { return f.conflictMsg }

// ValidationError is the last local submission rejection.
func (f *Form) ValidationError() string { return f.validationErr }

// LoadError is set when edit mode could not load the official.
func (f *Form) LoadError() string { return f.loadErr }

// Checking reports whether a check for the current selection is running.
// Requests for superseded selections do not count.
func (f *Form) Checking() bool {
	return f.status == StatusChecking
}

// CanSubmit reports whether Submit would be accepted.
func (f *Form) CanSubmit() bool { return !f.closed && f.rejectReason() == "" }

func (f *Form) Mode() Mode               { return f.cfg.Mode }
func (f *Form) Loading() bool            { return f.loading }
func (f *Form) DetailLoading() bool      { return f.detailLoading }
func (f *Form) Submitting() bool         { return f.submitting }
func (f *Form) Closed() bool             { return f.closed }
func (f *Form) Attempt() uint64          { return f.attempt }
func (f *Form) Revision() uint64         { return f.revision }
func (f *Form) Context() context.Context { return f.ctx }

func (f *Form) SearchQuery() string                       { return f.searchQuery }
func (f *Form) SearchResults() []domain.ResidentCandidate { return f.searchResults }
func (f *Form) SearchLoading() bool                       { return f.searchLoading }
func (f *Form) SearchError() string                       { return f.searchErr }
