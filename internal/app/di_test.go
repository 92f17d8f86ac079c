package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/robert/internal/config"
	cryptoService "github.com/allisson/robert/internal/crypto/service"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	keystoreUseCase "github.com/allisson/robert/internal/keystore/usecase"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	kmsKeyURI, err := cryptoService.NewLocalKeyURI()
	require.NoError(t, err)

	return &config.Config{
		LogLevel:             "info",
		DBDriver:             "invalid_driver",
		DBConnectionString:   "",
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		KeystoreProvider:     keystoreDomain.ProviderFile,
		KeystoreFilePath:     filepath.Join(t.TempDir(), "keystore.json"),
		KMSKeyURI:            kmsKeyURI,
		ServiceTimeStart:     3799958400,
		EpochDuration:        15 * time.Minute,
		CountryCode:          33,
		TupleBundleDays:      4,
		EpochTolerance:       1,
		TimeTolerance:        180 * time.Second,
		KeyAlgorithm:         "aes-gcm",
	}
}

func TestNewContainer(t *testing.T) {
	cfg := newTestConfig(t)

	container := NewContainer(cfg)

	require.NotNil(t, container)
	assert.Same(t, cfg, container.Config())
}

func TestContainerLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "invalid"} {
		t.Run(level, func(t *testing.T) {
			container := NewContainer(&config.Config{LogLevel: level})

			logger := container.Logger()
			require.NotNil(t, logger)
			assert.Same(t, logger, container.Logger())
		})
	}
}

func TestContainerInitializationErrors(t *testing.T) {
	container := NewContainer(newTestConfig(t))

	_, err := container.DB()
	assert.Error(t, err)

	// The stored error is returned on every later call.
	_, err = container.DB()
	assert.Error(t, err)

	_, err = container.RegistrationRepository()
	assert.Error(t, err)

	_, err = container.HTTPServer()
	assert.Error(t, err)

	_, err = container.ContactValidator()
	assert.Error(t, err)
}

func TestContainerLazyInitialization(t *testing.T) {
	container := NewContainer(newTestConfig(t))

	assert.Nil(t, container.logger)
	assert.Nil(t, container.clock)

	require.NotNil(t, container.Logger())
	assert.NotNil(t, container.logger)
	assert.Nil(t, container.keyStore)
}

func TestContainerClock(t *testing.T) {
	container := NewContainer(newTestConfig(t))

	clock := container.Clock()
	assert.Same(t, clock, container.Clock())
	assert.Equal(t, time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC), clock.ServiceTimeStart())
	assert.Equal(t, 96, clock.EpochsPerDay())
}

func TestContainerCryptoServices(t *testing.T) {
	container := NewContainer(newTestConfig(t))

	assert.NotNil(t, container.KMSService())
	assert.NotNil(t, container.AEADManager())
	assert.NotNil(t, container.KeyWrapper())
	assert.Same(t, container.IdentityCodec(), container.IdentityCodec())
	assert.Same(t, container.TupleBundleGenerator(), container.TupleBundleGenerator())
}

func TestContainerMetricsDisabled(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.MetricsEnabled = false
	container := NewContainer(cfg)

	provider, err := container.MetricsProvider()
	require.NoError(t, err)
	assert.Nil(t, provider)

	server, err := container.MetricsServer()
	require.NoError(t, err)
	assert.Nil(t, server)

	businessMetrics, err := container.BusinessMetrics()
	require.NoError(t, err)
	assert.NotNil(t, businessMetrics)
}

func TestContainerIdentityUseCaseConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
	}{
		{name: "unknown key algorithm", mutate: func(cfg *config.Config) { cfg.KeyAlgorithm = "des" }},
		{name: "empty tuple bundle", mutate: func(cfg *config.Config) { cfg.TupleBundleDays = 0 }},
		{name: "country code overflow", mutate: func(cfg *config.Config) { cfg.CountryCode = 256 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tt.mutate(cfg)
			container := NewContainer(cfg)

			_, err := container.IdentityUseCase()
			assert.Error(t, err)
		})
	}
}

func TestContainerKeyStoreFromProvisionedFile(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.MetricsEnabled = false
	container := NewContainer(cfg)

	provision, closeKeeper, err := container.ProvisionUseCase(ctx, container.KeystoreCredentials())
	require.NoError(t, err)
	output, err := provision.Provision(ctx, &keystoreUseCase.ProvisionInput{
		Start: time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC),
		Days:  2,
	})
	require.NoError(t, err)
	require.NoError(t, closeKeeper())
	assert.Len(t, output.Created, 5)

	keyStore, err := container.KeyStore(ctx)
	require.NoError(t, err)

	federationKey, err := keyStore.FederationKey(ctx)
	require.NoError(t, err)
	assert.Len(t, federationKey, 32)

	dayKey, err := keyStore.DayKey(ctx, time.Date(2020, time.June, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, dayKey, 24)

	reloadUseCase, err := container.ReloadUseCase()
	require.NoError(t, err)
	require.NoError(t, reloadUseCase.Reload(ctx, nil))

	require.NoError(t, container.Shutdown(ctx))
}

func TestContainerProvisionUnsupportedProvider(t *testing.T) {
	container := NewContainer(newTestConfig(t))

	_, _, err := container.ProvisionUseCase(context.Background(), keystoreDomain.Credentials{Provider: "vault"})
	assert.ErrorIs(t, err, keystoreDomain.ErrUnsupportedProvider)
}

func TestContainerShutdown(t *testing.T) {
	container := NewContainer(&config.Config{LogLevel: "info"})

	assert.NoError(t, container.Shutdown(context.TODO()))
}
