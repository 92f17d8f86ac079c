package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/robert/internal/epoch"
	apperrors "github.com/allisson/robert/internal/errors"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	"github.com/allisson/robert/internal/metrics"
)

// KeyStore serves keys from the current KeySet and rotates it on Reload.
//
// Cached lookups take only a read lock on the current generation. Reload swaps the
// generation pointer atomically, so a caller working from one Snapshot sees either
// only old or only new keys.
type KeyStore struct {
	factory keystoreDomain.ProviderFactory
	clock   *epoch.Clock
	logger  *slog.Logger
	metrics metrics.BusinessMetrics

	current  atomic.Pointer[KeySet]
	reloadMu sync.Mutex
	closed   bool
}

// NewKeyStore opens the provider described by credentials and warms the cache.
// Warm-up failures are logged but do not prevent startup; missing keys surface on
// first use as ErrKeyNotFound.
func NewKeyStore(
	ctx context.Context,
	factory keystoreDomain.ProviderFactory,
	credentials keystoreDomain.Credentials,
	clock *epoch.Clock,
	logger *slog.Logger,
	businessMetrics metrics.BusinessMetrics,
) (*KeyStore, error) {
	ks := &KeyStore{
		factory: factory,
		clock:   clock,
		logger:  logger,
		metrics: businessMetrics,
	}

	set, err := ks.open(ctx, credentials)
	if err != nil {
		return nil, err
	}
	ks.current.Store(set)
	ks.warm(ctx, set)

	return ks, nil
}

// Snapshot pins the current generation until release is called. Operations needing
// several keys should read all of them from one snapshot; a Reload in the meantime
// leaves the pinned provider open. release is safe to call more than once.
func (ks *KeyStore) Snapshot() (keystoreDomain.Keys, func()) {
	for {
		set := ks.current.Load()
		if set.acquire() {
			return set, sync.OnceFunc(set.release)
		}
		if ks.current.Load() == set {
			// closed store: reads fail on the closed provider unless cached
			return set, func() {}
		}
	}
}

// DayKey returns the day key for date's UTC day from the current generation.
func (ks *KeyStore) DayKey(ctx context.Context, date time.Time) ([]byte, error) {
	keys, release := ks.Snapshot()
	defer release()
	return keys.DayKey(ctx, date)
}

// FederationKey returns the federation key from the current generation.
func (ks *KeyStore) FederationKey(ctx context.Context) ([]byte, error) {
	keys, release := ks.Snapshot()
	defer release()
	return keys.FederationKey(ctx)
}

// KeyEncryptionKey returns the KEK from the current generation.
func (ks *KeyStore) KeyEncryptionKey(ctx context.Context) ([]byte, error) {
	keys, release := ks.Snapshot()
	defer release()
	return keys.KeyEncryptionKey(ctx)
}

// IdentityKeyPair returns the identity key pair from the current generation.
func (ks *KeyStore) IdentityKeyPair(ctx context.Context) (*keystoreDomain.IdentityKeyPair, error) {
	keys, release := ks.Snapshot()
	defer release()
	return keys.IdentityKeyPair(ctx)
}

// Reload opens a provider with new credentials, swaps it in, retires the previous
// one and re-warms the cache. The previous provider closes once no snapshot holds
// it. On failure the current generation stays in service.
func (ks *KeyStore) Reload(ctx context.Context, credentials keystoreDomain.Credentials) error {
	start := time.Now()

	ks.reloadMu.Lock()
	defer ks.reloadMu.Unlock()

	if ks.closed {
		return keystoreDomain.ErrKeystoreClosed
	}

	set, err := ks.open(ctx, credentials)
	if err != nil {
		ks.metrics.RecordOperation(ctx, metricsDomain, "reload", "error")
		ks.logger.Error("keystore reload failed", slog.String("provider", credentials.Provider), slog.Any("error", err))
		return err
	}

	previous := ks.current.Swap(set)
	if err := previous.retire(); err != nil {
		ks.logger.Warn("failed to close previous keystore provider", slog.Any("error", err))
	}

	ks.warm(ctx, set)

	ks.metrics.RecordOperation(ctx, metricsDomain, "reload", "success")
	ks.metrics.RecordDuration(ctx, metricsDomain, "reload", time.Since(start), "success")
	ks.logger.Info("keystore reloaded", slog.String("provider", credentials.Provider))
	return nil
}

// Close retires the current generation. Its provider closes once outstanding
// snapshots are released. Further reloads fail with ErrKeystoreClosed.
func (ks *KeyStore) Close() error {
	ks.reloadMu.Lock()
	defer ks.reloadMu.Unlock()

	if ks.closed {
		return nil
	}
	ks.closed = true
	return ks.current.Load().retire()
}

func (ks *KeyStore) open(ctx context.Context, credentials keystoreDomain.Credentials) (*KeySet, error) {
	provider, err := ks.factory(ctx, credentials)
	if err != nil {
		if apperrors.Is(err, keystoreDomain.ErrUnsupportedProvider) || apperrors.Is(err, keystoreDomain.ErrCryptoFailure) {
			return nil, err
		}
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	return newKeySet(provider, ks.logger, ks.metrics), nil
}

// warm preloads the keys every request path needs: federation key, KEK, identity
// key pair and the day keys of today and tomorrow.
func (ks *KeyStore) warm(ctx context.Context, set *KeySet) {
	today := ks.clock.Now().UTC()
	tomorrow := today.AddDate(0, 0, 1)

	loaders := map[string]func(context.Context) error{
		keystoreDomain.AliasFederationKey: func(ctx context.Context) error {
			_, err := set.FederationKey(ctx)
			return err
		},
		keystoreDomain.AliasKeyEncryptionKey: func(ctx context.Context) error {
			_, err := set.KeyEncryptionKey(ctx)
			return err
		},
		keystoreDomain.AliasIdentityKey: func(ctx context.Context) error {
			_, err := set.IdentityKeyPair(ctx)
			return err
		},
		keystoreDomain.DayKeyAlias(today): func(ctx context.Context) error {
			_, err := set.DayKey(ctx, today)
			return err
		},
		keystoreDomain.DayKeyAlias(tomorrow): func(ctx context.Context) error {
			_, err := set.DayKey(ctx, tomorrow)
			return err
		},
	}

	var g errgroup.Group
	for alias, load := range loaders {
		g.Go(func() error {
			if err := load(ctx); err != nil {
				ks.logger.Warn("keystore warm-up failed", slog.String("alias", alias), slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err == nil {
		ks.logger.Debug("keystore warm-up complete")
	}
}
