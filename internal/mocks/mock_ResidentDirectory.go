package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zjrosen/barangay/internal/domain"
)

// MockResidentDirectory is a testify mock of registration.ResidentDirectory.
type MockResidentDirectory struct {
	mock.Mock
}

// NewMockResidentDirectory creates a mock and asserts its expectations on cleanup.
func NewMockResidentDirectory(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResidentDirectory {
	m := &MockResidentDirectory{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockResidentDirectory) SearchResidents(ctx context.Context, query string) ([]domain.ResidentCandidate, error) {
	args := m.Called(ctx, query)
	var out []domain.ResidentCandidate
	if r := args.Get(0); r != nil {
		out = r.([]domain.ResidentCandidate)
	}
	return out, args.Error(1)
}

func (m *MockResidentDirectory) GetResident(ctx context.Context, id string) (domain.ResidentDetail, error) {
	args := m.Called(ctx, id)
	var out domain.ResidentDetail
	if r := args.Get(0); r != nil {
		out = r.(domain.ResidentDetail)
	}
	return out, args.Error(1)
}
