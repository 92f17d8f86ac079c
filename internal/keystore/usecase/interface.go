// Package usecase implements keystore operations driven by operators: provisioning
// key material into a backing store and reloading the live KeyStore.
package usecase

import (
	"context"
	"time"

	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// ProvisionInput describes a provisioning run.
type ProvisionInput struct {
	// Start is the first UTC day receiving a day key.
	Start time.Time
	// Days is the number of consecutive day keys to provision.
	Days int
}

// ProvisionOutput lists the aliases written and the aliases left untouched because
// they already existed.
type ProvisionOutput struct {
	Created []string
	Skipped []string
}

// ProvisionUseCase generates key material and stores it KMS-wrapped.
type ProvisionUseCase interface {
	Provision(ctx context.Context, input *ProvisionInput) (*ProvisionOutput, error)
}

// Reloader is the KeyStore capability used by ReloadUseCase.
type Reloader interface {
	Reload(ctx context.Context, credentials keystoreDomain.Credentials) error
}

// ReloadUseCase rotates the live KeyStore to new credentials.
type ReloadUseCase interface {
	// Reload applies overrides on top of the configured credentials. A nil override
	// reloads the configured provider as is.
	Reload(ctx context.Context, override *keystoreDomain.Credentials) error
}
