package service

import (
	"context"

	identityDomain "github.com/allisson/robert/internal/identity/domain"
)

// RegistrationFinder resolves a registration by idA. Absent identities are reported
// as ErrRegistrationNotFound.
type RegistrationFinder interface {
	FindByIDA(ctx context.Context, idA identityDomain.IDA) (*identityDomain.Registration, error)
}
