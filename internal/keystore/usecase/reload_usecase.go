package usecase

import (
	"context"

	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

type reloadUseCase struct {
	reloader Reloader
	defaults keystoreDomain.Credentials
}

// NewReloadUseCase creates a ReloadUseCase falling back to defaults for every
// credential field an override leaves empty.
func NewReloadUseCase(reloader Reloader, defaults keystoreDomain.Credentials) ReloadUseCase {
	return &reloadUseCase{reloader: reloader, defaults: defaults}
}

func (r *reloadUseCase) Reload(ctx context.Context, override *keystoreDomain.Credentials) error {
	credentials := r.defaults
	if override != nil {
		if override.Provider != "" {
			credentials.Provider = override.Provider
		}
		if override.FilePath != "" {
			credentials.FilePath = override.FilePath
		}
		if override.KMSKeyURI != "" {
			credentials.KMSKeyURI = override.KMSKeyURI
		}
	}
	return r.reloader.Reload(ctx, credentials)
}
