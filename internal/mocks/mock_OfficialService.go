package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zjrosen/barangay/internal/domain"
)

// MockOfficialService is a testify mock of registration.OfficialService.
type MockOfficialService struct {
	mock.Mock
}

// NewMockOfficialService creates a mock and asserts its expectations on cleanup.
func NewMockOfficialService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOfficialService {
	m := &MockOfficialService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOfficialService) CreateOfficial(ctx context.Context, data domain.OfficialFormData) (domain.Official, error) {
	args := m.Called(ctx, data)
	return official(args.Get(0)), args.Error(1)
}

func (m *MockOfficialService) UpdateOfficial(ctx context.Context, id string, data domain.OfficialFormData) (domain.Official, error) {
	args := m.Called(ctx, id, data)
	return official(args.Get(0)), args.Error(1)
}

func (m *MockOfficialService) GetOfficial(ctx context.Context, id string) (domain.Official, error) {
	args := m.Called(ctx, id)
	return official(args.Get(0)), args.Error(1)
}

func official(v any) domain.Official {
	if o, ok := v.(domain.Official); ok {
		return o
	}
	return domain.Official{}
}
