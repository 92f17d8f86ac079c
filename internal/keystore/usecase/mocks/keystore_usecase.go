// Package mocks provides mock implementations of the keystore use cases.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	keystoreUseCase "github.com/allisson/robert/internal/keystore/usecase"
)

// MockProvisionUseCase is a mock implementation of ProvisionUseCase.
type MockProvisionUseCase struct {
	mock.Mock
}

// Provision mocks the Provision method.
func (m *MockProvisionUseCase) Provision(
	ctx context.Context,
	input *keystoreUseCase.ProvisionInput,
) (*keystoreUseCase.ProvisionOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keystoreUseCase.ProvisionOutput), args.Error(1)
}

// MockReloadUseCase is a mock implementation of ReloadUseCase.
type MockReloadUseCase struct {
	mock.Mock
}

// Reload mocks the Reload method.
func (m *MockReloadUseCase) Reload(ctx context.Context, override *keystoreDomain.Credentials) error {
	args := m.Called(ctx, override)
	return args.Error(0)
}
