package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	identityHTTP "github.com/allisson/robert/internal/identity/http"
	identityRepository "github.com/allisson/robert/internal/identity/repository"
	identityService "github.com/allisson/robert/internal/identity/service"
	identityUseCase "github.com/allisson/robert/internal/identity/usecase"
)

// RegistrationRepository returns the registration repository based on database driver.
func (c *Container) RegistrationRepository() (identityUseCase.RegistrationRepository, error) {
	var err error
	c.registrationRepoInit.Do(func() {
		c.registrationRepo, err = c.initRegistrationRepository()
		if err != nil {
			c.initErrors["registrationRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["registrationRepo"]; exists {
		return nil, storedErr
	}
	return c.registrationRepo, nil
}

// IdentityCodec returns the EBID/ECC codec.
func (c *Container) IdentityCodec() *identityService.IdentityCodec {
	c.identityCodecInit.Do(func() {
		c.identityCodec = identityService.NewIdentityCodec()
	})
	return c.identityCodec
}

// TupleBundleGenerator returns the generator of encrypted tuple bundles.
func (c *Container) TupleBundleGenerator() *identityService.TupleBundleGenerator {
	c.tupleGeneratorInit.Do(func() {
		c.tupleGenerator = identityService.NewTupleBundleGenerator(
			c.Clock(),
			c.IdentityCodec(),
			c.AEADManager(),
			byte(c.config.CountryCode),
		)
	})
	return c.tupleGenerator
}

// RequestAuthenticator returns the authenticator of status, unregister and
// delete-history requests.
func (c *Container) RequestAuthenticator() (*identityService.RequestAuthenticator, error) {
	var err error
	c.authenticatorInit.Do(func() {
		c.authenticator, err = c.initRequestAuthenticator()
		if err != nil {
			c.initErrors["authenticator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authenticator"]; exists {
		return nil, storedErr
	}
	return c.authenticator, nil
}

// ContactValidator returns the validator of reported hello messages.
func (c *Container) ContactValidator() (*identityService.ContactValidator, error) {
	var err error
	c.contactValidatorInit.Do(func() {
		c.contactValidator, err = c.initContactValidator()
		if err != nil {
			c.initErrors["contactValidator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["contactValidator"]; exists {
		return nil, storedErr
	}
	return c.contactValidator, nil
}

// IdentityUseCase returns the identity use case decorated with business metrics.
func (c *Container) IdentityUseCase() (identityUseCase.IdentityUseCase, error) {
	var err error
	c.identityUseCaseInit.Do(func() {
		c.identityUseCase, err = c.initIdentityUseCase()
		if err != nil {
			c.initErrors["identityUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["identityUseCase"]; exists {
		return nil, storedErr
	}
	return c.identityUseCase, nil
}

// IdentityHandler returns the HTTP handler of the public identity endpoints.
func (c *Container) IdentityHandler() (*identityHTTP.IdentityHandler, error) {
	var err error
	c.identityHandlerInit.Do(func() {
		c.identityHandler, err = c.initIdentityHandler()
		if err != nil {
			c.initErrors["identityHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["identityHandler"]; exists {
		return nil, storedErr
	}
	return c.identityHandler, nil
}

func (c *Container) initRegistrationRepository() (identityUseCase.RegistrationRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for registration repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return identityRepository.NewMySQLRegistrationRepository(db), nil
	case "postgres":
		return identityRepository.NewPostgreSQLRegistrationRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRequestAuthenticator() (*identityService.RequestAuthenticator, error) {
	if c.config.EpochTolerance < 0 {
		return nil, fmt.Errorf("epoch tolerance must not be negative: %d", c.config.EpochTolerance)
	}

	registrationRepo, err := c.RegistrationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get registration repository for authenticator: %w", err)
	}

	return identityService.NewRequestAuthenticator(
		c.Clock(),
		c.IdentityCodec(),
		c.KeyWrapper(),
		registrationRepo,
		uint32(c.config.EpochTolerance),
		c.config.TimeTolerance,
		c.Logger(),
	), nil
}

func (c *Container) initContactValidator() (*identityService.ContactValidator, error) {
	if c.config.CountryCode < 0 || c.config.CountryCode > 0xFF {
		return nil, fmt.Errorf("country code must fit in one byte: %d", c.config.CountryCode)
	}

	authenticator, err := c.RequestAuthenticator()
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticator for contact validator: %w", err)
	}

	return identityService.NewContactValidator(
		authenticator,
		c.IdentityCodec(),
		c.Clock(),
		byte(c.config.CountryCode),
	), nil
}

func (c *Container) initIdentityUseCase() (identityUseCase.IdentityUseCase, error) {
	keyAlgorithm, err := cryptoDomain.ParseAlgorithm(c.config.KeyAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("invalid key algorithm %q: %w", c.config.KeyAlgorithm, err)
	}
	if c.config.TupleBundleDays < 1 {
		return nil, fmt.Errorf("tuple bundle days must be positive: %d", c.config.TupleBundleDays)
	}
	if c.config.CountryCode < 0 || c.config.CountryCode > 0xFF {
		return nil, fmt.Errorf("country code must fit in one byte: %d", c.config.CountryCode)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for identity use case: %w", err)
	}

	registrationRepo, err := c.RegistrationRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get registration repository for identity use case: %w", err)
	}

	keyStore, err := c.KeyStore(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get keystore for identity use case: %w", err)
	}

	authenticator, err := c.RequestAuthenticator()
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticator for identity use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for identity use case: %w", err)
	}

	useCase := identityUseCase.NewIdentityUseCase(
		txManager,
		registrationRepo,
		keyStore,
		authenticator,
		c.TupleBundleGenerator(),
		c.KeyWrapper(),
		c.Clock(),
		identityUseCase.Config{
			KeyAlgorithm:    keyAlgorithm,
			TupleBundleDays: c.config.TupleBundleDays,
		},
		c.Logger(),
	)

	return identityUseCase.NewIdentityUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initIdentityHandler() (*identityHTTP.IdentityHandler, error) {
	useCase, err := c.IdentityUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get identity use case for identity handler: %w", err)
	}
	return identityHTTP.NewIdentityHandler(useCase, c.config.AuthExposeUnknownIdentity, c.Logger()), nil
}
