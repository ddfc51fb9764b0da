package domain

import "time"

// Position codes accepted by the officials API.
const (
	PositionPunongBarangay = "PUNONG_BARANGAY"
	PositionKagawad        = "KAGAWAD"
	PositionSKChairperson  = "SK_CHAIRPERSON"
	PositionSecretary      = "SECRETARY"
	PositionTreasurer      = "TREASURER"
)

// Positions lists position codes in display order.
var Positions = []string{
	PositionPunongBarangay,
	PositionKagawad,
	PositionSKChairperson,
	PositionSecretary,
	PositionTreasurer,
}

// Official status values.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// DateLayout is the wire format for birth and term dates.
const DateLayout = "2006-01-02"

// OfficialFormData is the editable aggregate behind the registration form.
// It doubles as the draft payload and the create/update request body.
//
// Identity fields are copied from a ResidentDetail. Term fields are edited
// directly by the operator.
type OfficialFormData struct {
	// Identity
	ResidentID            string  `json:"residentId"`
	FirstName             string  `json:"firstName"`
	MiddleName            *string `json:"middleName,omitempty"`
	LastName              string  `json:"lastName"`
	Gender                string  `json:"gender"`
	BirthDate             string  `json:"birthDate"`
	MobileNumber          *string `json:"mobileNumber,omitempty"`
	EmailAddress          *string `json:"emailAddress,omitempty"`
	CompleteAddress       string  `json:"completeAddress"`
	CivilStatus           string  `json:"civilStatus"`
	EducationalAttainment string  `json:"educationalAttainment"`
	ProfilePhotoURL       *string `json:"profilePhotoUrl,omitempty"`

	// Term / position
	Prefix        string  `json:"prefix"`
	Position      string  `json:"position"`
	Committee     *string `json:"committee,omitempty"`
	TermStart     string  `json:"termStart"`
	TermEnd       string  `json:"termEnd"`
	TermNumber    int     `json:"termNumber"`
	IsCurrentTerm bool    `json:"isCurrentTerm"`
	Status        string  `json:"status"`
}

// Official is a registered barangay officer.
type Official struct {
	ID string `json:"id"`
	OfficialFormData
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultFormData returns the seed state for a new registration.
func DefaultFormData() OfficialFormData {
	return OfficialFormData{
		Prefix:        "Hon.",
		TermNumber:    1,
		IsCurrentTerm: true,
		Status:        StatusActive,
	}
}

// HasIdentity reports whether any resident-derived field is populated.
func (f OfficialFormData) HasIdentity() bool {
	return f.FirstName != "" || f.LastName != "" || f.Gender != "" ||
		f.BirthDate != "" || f.CompleteAddress != "" || f.CivilStatus != "" ||
		f.EducationalAttainment != "" || f.MiddleName != nil || f.MobileNumber != nil ||
		f.EmailAddress != nil || f.ProfilePhotoURL != nil
}

// WithResident copies every identity field from r. Term fields are untouched.
func (f OfficialFormData) WithResident(r ResidentDetail) OfficialFormData {
	f.ResidentID = r.ID
	f.FirstName = r.FirstName
	f.MiddleName = cloneString(r.MiddleName)
	f.LastName = r.LastName
	f.Gender = r.Gender
	f.BirthDate = r.BirthDate
	f.MobileNumber = cloneString(r.MobileNumber)
	f.EmailAddress = cloneString(r.EmailAddress)
	f.CompleteAddress = r.CompleteAddress
	f.CivilStatus = r.CivilStatus
	f.EducationalAttainment = r.EducationalAttainment
	f.ProfilePhotoURL = cloneString(r.ProfilePhotoURL)
	return f
}

// WithoutIdentity clears every identity field except the resident id.
func (f OfficialFormData) WithoutIdentity() OfficialFormData {
	f.FirstName = ""
	f.MiddleName = nil
	f.LastName = ""
	f.Gender = ""
	f.BirthDate = ""
	f.MobileNumber = nil
	f.EmailAddress = nil
	f.CompleteAddress = ""
	f.CivilStatus = ""
	f.EducationalAttainment = ""
	f.ProfilePhotoURL = nil
	return f
}

// Normalize returns a copy with every absent optional text field set to "".
// Only submission normalizes; drafts keep absent fields absent.
func (f OfficialFormData) Normalize() OfficialFormData {
	f.MiddleName = orEmpty(f.MiddleName)
	f.MobileNumber = orEmpty(f.MobileNumber)
	f.EmailAddress = orEmpty(f.EmailAddress)
	f.ProfilePhotoURL = orEmpty(f.ProfilePhotoURL)
	f.Committee = orEmpty(f.Committee)
	return f
}

// FullName joins the name parts, skipping empty ones.
func (f OfficialFormData) FullName() string {
	name := f.FirstName
	if f.MiddleName != nil && *f.MiddleName != "" {
		name += " " + *f.MiddleName
	}
	if f.LastName != "" {
		if name != "" {
			name += " "
		}
		name += f.LastName
	}
	return name
}

func orEmpty(s *string) *string {
	if s == nil {
		empty := ""
		return &empty
	}
	return cloneString(s)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
