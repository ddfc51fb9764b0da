package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRegistrationQuery is a testify mock of registration.RegistrationQuery.
type MockRegistrationQuery struct {
	mock.Mock
}

// NewMockRegistrationQuery creates a mock and asserts its expectations on cleanup.
func NewMockRegistrationQuery(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRegistrationQuery {
	m := &MockRegistrationQuery{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRegistrationQuery) IsAlreadyOfficial(ctx context.Context, residentID string) (int, error) {
	args := m.Called(ctx, residentID)
	return args.Int(0), args.Error(1)
}
