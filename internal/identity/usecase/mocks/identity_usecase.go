// Package mocks provides mock implementations of the identity use cases for handler tests.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	identityDomain "github.com/allisson/robert/internal/identity/domain"
)

// MockIdentityUseCase is a mock implementation of IdentityUseCase.
type MockIdentityUseCase struct {
	mock.Mock
}

// Register mocks the Register method.
func (m *MockIdentityUseCase) Register(
	ctx context.Context,
	input *identityDomain.RegisterInput,
) (*identityDomain.RegisterOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.RegisterOutput), args.Error(1)
}

// Status mocks the Status method.
func (m *MockIdentityUseCase) Status(
	ctx context.Context,
	req *identityDomain.AuthRequest,
) (*identityDomain.StatusOutput, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.StatusOutput), args.Error(1)
}

// Unregister mocks the Unregister method.
func (m *MockIdentityUseCase) Unregister(ctx context.Context, req *identityDomain.AuthRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// DeleteHistory mocks the DeleteHistory method.
func (m *MockIdentityUseCase) DeleteHistory(ctx context.Context, req *identityDomain.AuthRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
