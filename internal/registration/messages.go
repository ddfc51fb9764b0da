package registration

import (
	"github.com/zjrosen/barangay/internal/domain"
)

// SavedMsg is the default success message, sent after a create or update.
type SavedMsg struct {
	Official domain.Official
	Mode     Mode
}

// ClosedMsg is the default message sent when the form closes.
type ClosedMsg struct{}

// Async results. Each carries the selection attempt or request sequence it
// was issued for so late responses can be recognized and dropped.
type (
	checkResultMsg struct {
		attempt    uint64
		residentID string
		result     CheckResult
	}

	residentLoadedMsg struct {
		attempt uint64
		detail  domain.ResidentDetail
		err     error
	}

	officialLoadedMsg struct {
		official domain.Official
		err      error
	}

	draftLoadedMsg struct {
		data domain.OfficialFormData
		ok   bool
		err  error
	}

	draftSavedMsg struct {
		err error
	}

	submittedMsg struct {
		official domain.Official
		err      error
	}

	searchResultsMsg struct {
		seq     uint64
		query   string
		results []domain.ResidentCandidate
		err     error
	}
)
