package mockapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/zjrosen/barangay/internal/domain"
)

// Store is the in-memory backing of the development API.
type Store struct {
	mu        sync.RWMutex
	residents map[string]domain.ResidentDetail
	officials map[string]domain.Official
	now       func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		residents: make(map[string]domain.ResidentDetail),
		officials: make(map[string]domain.Official),
		now:       time.Now,
	}
}

// AddResident inserts or replaces a resident.
func (s *Store) AddResident(r domain.ResidentDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.residents[r.ID] = r
}

// SearchResidents matches q case-insensitively against first, middle and last name.
func (s *Store) SearchResidents(q string) []domain.ResidentCandidate {
	q = strings.ToLower(strings.TrimSpace(q))
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := lo.Filter(lo.Values(s.residents), func(r domain.ResidentDetail, _ int) bool {
		if q == "" {
			return true
		}
		name := strings.ToLower(r.FirstName + " " + domain.Deref(r.MiddleName) + " " + r.LastName)
		return strings.Contains(name, q)
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].LastName != matches[j].LastName {
			return matches[i].LastName < matches[j].LastName
		}
		return matches[i].ID < matches[j].ID
	})
	return lo.Map(matches, func(r domain.ResidentDetail, _ int) domain.ResidentCandidate {
		return domain.ResidentCandidate{
			ID:           r.ID,
			FirstName:    r.FirstName,
			LastName:     r.LastName,
			MobileNumber: r.MobileNumber,
		}
	})
}

// Resident returns the resident with id.
func (s *Store) Resident(id string) (domain.ResidentDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.residents[id]
	return r, ok
}

// ActiveRegistrations counts active officials linked to residentID.
func (s *Store) ActiveRegistrations(residentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRegistrations(residentID, "")
}

func (s *Store) activeRegistrations(residentID, exceptID string) int {
	return lo.CountBy(lo.Values(s.officials), func(o domain.Official) bool {
		return o.ResidentID == residentID && o.Status == domain.StatusActive && o.ID != exceptID
	})
}

// CreateOfficial stores data under a fresh id. It fails with errDuplicate
// when the resident already holds an active registration.
func (s *Store) CreateOfficial(data domain.OfficialFormData) (domain.Official, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.residents[data.ResidentID]; !ok {
		return domain.Official{}, errUnknownResident
	}
	if data.Status == domain.StatusActive && s.activeRegistrations(data.ResidentID, "") > 0 {
		return domain.Official{}, errDuplicate
	}

	now := s.now().UTC()
	o := domain.Official{
		ID:               uuid.NewString(),
		OfficialFormData: data,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.officials[o.ID] = o
	return o, nil
}

// UpdateOfficial replaces the official id.
func (s *Store) UpdateOfficial(id string, data domain.OfficialFormData) (domain.Official, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.officials[id]
	if !ok {
		return domain.Official{}, errOfficialNotFound
	}
	if _, ok := s.residents[data.ResidentID]; !ok {
		return domain.Official{}, errUnknownResident
	}
	if data.Status == domain.StatusActive && s.activeRegistrations(data.ResidentID, id) > 0 {
		return domain.Official{}, errDuplicate
	}

	existing.OfficialFormData = data
	existing.UpdatedAt = s.now().UTC()
	s.officials[id] = existing
	return existing, nil
}

// Official returns the official with id.
func (s *Store) Official(id string) (domain.Official, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.officials[id]
	return o, ok
}

// Officials lists officials ordered by position rank, then last name.
func (s *Store) Officials() []domain.Official {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := lo.Values(s.officials)
	rank := func(pos string) int {
		if i := lo.IndexOf(domain.Positions, pos); i >= 0 {
			return i
		}
		return len(domain.Positions)
	}
	sort.Slice(list, func(i, j int) bool {
		ri, rj := rank(list[i].Position), rank(list[j].Position)
		if ri != rj {
			return ri < rj
		}
		if list[i].LastName != list[j].LastName {
			return list[i].LastName < list[j].LastName
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Seed loads a handful of sample residents.
func (s *Store) Seed() {
	for _, r := range sampleResidents() {
		s.AddResident(r)
	}
}

func sampleResidents() []domain.ResidentDetail {
	return []domain.ResidentDetail{
		{
			ID: "42", FirstName: "Juan", MiddleName: domain.StringPtr("Santos"), LastName: "Dela Cruz",
			Gender: "MALE", BirthDate: "1980-05-14", MobileNumber: domain.StringPtr("09171234567"),
			CompleteAddress: "Purok 1, Barangay San Isidro", CivilStatus: "MARRIED",
			EducationalAttainment: "COLLEGE_GRADUATE",
		},
		{
			ID: "43", FirstName: "Maria", LastName: "Clara", Gender: "FEMALE", BirthDate: "1990-11-02",
			EmailAddress:    domain.StringPtr("maria.clara@example.ph"),
			CompleteAddress: "Purok 3, Barangay San Isidro", CivilStatus: "SINGLE",
			EducationalAttainment: "POST_GRADUATE",
		},
		{
			ID: "44", FirstName: "Jose", MiddleName: domain.StringPtr("Protacio"), LastName: "Rizal",
			Gender: "MALE", BirthDate: "1961-06-19", CompleteAddress: "Purok 2, Barangay San Isidro",
			CivilStatus: "SINGLE", EducationalAttainment: "POST_GRADUATE",
		},
		{
			ID: "45", FirstName: "Andres", LastName: "Bonifacio", Gender: "MALE", BirthDate: "1963-11-30",
			MobileNumber:    domain.StringPtr("09981112222"),
			CompleteAddress: "Purok 4, Barangay San Isidro", CivilStatus: "MARRIED",
			EducationalAttainment: "HIGH_SCHOOL_GRADUATE",
		},
		{
			ID: "46", FirstName: "Gabriela", LastName: "Silang", Gender: "FEMALE", BirthDate: "1981-03-19",
			CompleteAddress: "Purok 5, Barangay San Isidro", CivilStatus: "WIDOWED",
			EducationalAttainment: "COLLEGE_LEVEL",
		},
		{
			ID: "47", FirstName: "Juana", LastName: "Dela Cruz", Gender: "FEMALE", BirthDate: "1984-08-08",
			MobileNumber:    domain.StringPtr("09175550000"),
			CompleteAddress: "Purok 1, Barangay San Isidro", CivilStatus: "MARRIED",
			EducationalAttainment: "COLLEGE_GRADUATE",
		},
	}
}
