// Package domain holds the barangay records exchanged with the REST API.
package domain

// ResidentCandidate is a search hit from the resident directory.
// It is a read-only projection; nothing in the console owns it.
type ResidentCandidate struct {
	ID           string  `json:"id"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	MobileNumber *string `json:"mobileNumber,omitempty"`
}

// DisplayName returns "Last, First" for list rendering.
func (c ResidentCandidate) DisplayName() string {
	switch {
	case c.LastName == "":
		return c.FirstName
	case c.FirstName == "":
		return c.LastName
	default:
		return c.LastName + ", " + c.FirstName
	}
}

// ResidentDetail is the full resident record fetched once a resident
// has been validated for registration. Its fields are copied into the
// form; no reference back to the record is kept.
type ResidentDetail struct {
	ID                    string  `json:"id"`
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
}
