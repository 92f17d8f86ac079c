package provider

import (
	"context"

	cryptoService "github.com/allisson/robert/internal/crypto/service"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// NewFactory returns a ProviderFactory opening a fresh KMS keeper for every provider
// it builds. repo may be nil when no database is configured, in which case the sql
// provider kind is rejected.
func NewFactory(kmsService cryptoService.KMSService, repo KeyEntryRepository) keystoreDomain.ProviderFactory {
	return func(ctx context.Context, credentials keystoreDomain.Credentials) (keystoreDomain.Provider, error) {
		switch credentials.Provider {
		case keystoreDomain.ProviderFile, keystoreDomain.ProviderSQL:
		default:
			return nil, keystoreDomain.ErrUnsupportedProvider
		}
		if credentials.Provider == keystoreDomain.ProviderSQL && repo == nil {
			return nil, keystoreDomain.ErrUnsupportedProvider
		}

		keeper, err := kmsService.OpenKeeper(ctx, credentials.KMSKeyURI)
		if err != nil {
			return nil, err
		}

		if credentials.Provider == keystoreDomain.ProviderSQL {
			return NewSQLProvider(repo, keeper), nil
		}

		fileProvider, err := NewFileProvider(credentials.FilePath, keeper)
		if err != nil {
			_ = keeper.Close()
			return nil, err
		}
		return fileProvider, nil
	}
}
