// Package usecase orchestrates the identity lifecycle: registration, status checks,
// unregistration and exposure history deletion. Every authenticated operation runs
// the request through the RequestAuthenticator with keys taken from one keystore
// snapshot.
package usecase

import (
	"context"

	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// RegistrationRepository defines the persistence operations on registrations.
type RegistrationRepository interface {
	Create(ctx context.Context, registration *identityDomain.Registration) error
	FindByIDA(ctx context.Context, idA identityDomain.IDA) (*identityDomain.Registration, error)
	Update(ctx context.Context, registration *identityDomain.Registration) error
	DeleteByIDA(ctx context.Context, idA identityDomain.IDA) error
}

// KeySource hands out consistent keystore generations. The generation stays usable
// until release is called.
type KeySource interface {
	Snapshot() (keys keystoreDomain.Keys, release func())
}

// Authenticator validates authenticated requests.
type Authenticator interface {
	Authenticate(
		ctx context.Context,
		keys keystoreDomain.Keys,
		req *identityDomain.AuthRequest,
	) (*identityDomain.AuthResult, error)
}

// BundleGenerator produces encrypted tuple bundles.
type BundleGenerator interface {
	Generate(
		ctx context.Context,
		keys keystoreDomain.Keys,
		idA identityDomain.IDA,
		tuplesKey []byte,
		startEpoch uint32,
		numberOfDays int,
	) (identityDomain.EncryptedTupleBundle, error)
}

// IdentityUseCase defines the identity lifecycle operations.
type IdentityUseCase interface {
	// Register creates a new anonymous identity and returns its first tuple bundle.
	//
	// Security Note: the returned KeyForMac and KeyForTuples are plaintext secrets
	// handed to the client once. They are never stored unwrapped.
	Register(ctx context.Context, input *identityDomain.RegisterInput) (*identityDomain.RegisterOutput, error)
	Status(ctx context.Context, req *identityDomain.AuthRequest) (*identityDomain.StatusOutput, error)
	Unregister(ctx context.Context, req *identityDomain.AuthRequest) error
	DeleteHistory(ctx context.Context, req *identityDomain.AuthRequest) error
}
