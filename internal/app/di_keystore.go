package app

import (
	"context"
	"fmt"

	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	keystoreHTTP "github.com/allisson/robert/internal/keystore/http"
	"github.com/allisson/robert/internal/keystore/provider"
	keystoreRepository "github.com/allisson/robert/internal/keystore/repository"
	keystoreService "github.com/allisson/robert/internal/keystore/service"
	keystoreUseCase "github.com/allisson/robert/internal/keystore/usecase"
)

// KeystoreCredentials returns the keystore credentials from the configuration.
func (c *Container) KeystoreCredentials() keystoreDomain.Credentials {
	return keystoreDomain.Credentials{
		Provider:  c.config.KeystoreProvider,
		FilePath:  c.config.KeystoreFilePath,
		KMSKeyURI: c.config.KMSKeyURI,
	}
}

// KeyEntryRepository returns the keystore entry repository based on database driver.
func (c *Container) KeyEntryRepository() (provider.KeyEntryRepository, error) {
	var err error
	c.keyEntryRepoInit.Do(func() {
		c.keyEntryRepo, err = c.initKeyEntryRepository()
		if err != nil {
			c.initErrors["keyEntryRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyEntryRepo"]; exists {
		return nil, storedErr
	}
	return c.keyEntryRepo, nil
}

// KeyStore returns the live keystore, opening the configured provider on first call.
func (c *Container) KeyStore(ctx context.Context) (*keystoreService.KeyStore, error) {
	var err error
	c.keyStoreInit.Do(func() {
		c.keyStore, err = c.initKeyStore(ctx)
		if err != nil {
			c.initErrors["keyStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyStore"]; exists {
		return nil, storedErr
	}
	return c.keyStore, nil
}

// ReloadUseCase returns the use case rotating the live keystore.
func (c *Container) ReloadUseCase() (keystoreUseCase.ReloadUseCase, error) {
	var err error
	c.reloadUseCaseInit.Do(func() {
		c.reloadUseCase, err = c.initReloadUseCase()
		if err != nil {
			c.initErrors["reloadUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["reloadUseCase"]; exists {
		return nil, storedErr
	}
	return c.reloadUseCase, nil
}

// AdminTokenService returns the service hashing and verifying the keystore admin token.
func (c *Container) AdminTokenService() (keystoreService.AdminTokenService, error) {
	var err error
	c.adminTokenServiceInit.Do(func() {
		c.adminTokenService, err = keystoreService.NewAdminTokenService()
		if err != nil {
			c.initErrors["adminTokenService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["adminTokenService"]; exists {
		return nil, storedErr
	}
	return c.adminTokenService, nil
}

// KeystoreHandler returns the keystore administration HTTP handler.
func (c *Container) KeystoreHandler() (*keystoreHTTP.KeystoreHandler, error) {
	var err error
	c.keystoreHandlerInit.Do(func() {
		c.keystoreHandler, err = c.initKeystoreHandler()
		if err != nil {
			c.initErrors["keystoreHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keystoreHandler"]; exists {
		return nil, storedErr
	}
	return c.keystoreHandler, nil
}

// ProvisionUseCase builds a provisioning use case writing to the backing store named
// by credentials. It opens a KMS keeper the caller must close through the returned func.
func (c *Container) ProvisionUseCase(
	ctx context.Context,
	credentials keystoreDomain.Credentials,
) (keystoreUseCase.ProvisionUseCase, func() error, error) {
	var writer keystoreDomain.KeyEntryWriter
	switch credentials.Provider {
	case keystoreDomain.ProviderFile:
		writer = provider.NewFileEntryWriter(credentials.FilePath)
	case keystoreDomain.ProviderSQL:
		repo, err := c.KeyEntryRepository()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get key entry repository for provisioning: %w", err)
		}
		txManager, err := c.TxManager()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get tx manager for provisioning: %w", err)
		}
		writer = provider.NewSQLEntryWriter(repo, txManager)
	default:
		return nil, nil, keystoreDomain.ErrUnsupportedProvider
	}

	keeper, err := c.KMSService().OpenKeeper(ctx, credentials.KMSKeyURI)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open kms keeper: %w", err)
	}

	return keystoreUseCase.NewProvisionUseCase(writer, keeper, c.Logger()), keeper.Close, nil
}

func (c *Container) initKeyEntryRepository() (provider.KeyEntryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for key entry repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return keystoreRepository.NewMySQLKeyEntryRepository(db), nil
	case "postgres":
		return keystoreRepository.NewPostgreSQLKeyEntryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initKeyStore(ctx context.Context) (*keystoreService.KeyStore, error) {
	// The file provider runs without a database; the sql provider needs one.
	var repo provider.KeyEntryRepository
	if c.config.KeystoreProvider == keystoreDomain.ProviderSQL {
		var err error
		repo, err = c.KeyEntryRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get key entry repository for keystore: %w", err)
		}
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for keystore: %w", err)
	}

	keyStore, err := keystoreService.NewKeyStore(
		ctx,
		provider.NewFactory(c.KMSService(), repo),
		c.KeystoreCredentials(),
		c.Clock(),
		c.Logger(),
		businessMetrics,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}
	return keyStore, nil
}

func (c *Container) initReloadUseCase() (keystoreUseCase.ReloadUseCase, error) {
	keyStore, err := c.KeyStore(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get keystore for reload use case: %w", err)
	}
	return keystoreUseCase.NewReloadUseCase(keyStore, c.KeystoreCredentials()), nil
}

func (c *Container) initKeystoreHandler() (*keystoreHTTP.KeystoreHandler, error) {
	reloadUseCase, err := c.ReloadUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get reload use case for keystore handler: %w", err)
	}
	return keystoreHTTP.NewKeystoreHandler(reloadUseCase, c.Logger()), nil
}
