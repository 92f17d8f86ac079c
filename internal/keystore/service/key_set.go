// Package service implements the KeyStore: a concurrent, reloadable cache in front
// of a keystore provider serving day keys, the federation key, the
// key-encryption-key and the server identity key pair.
package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	apperrors "github.com/allisson/robert/internal/errors"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	"github.com/allisson/robert/internal/metrics"
)

const metricsDomain = "keystore"

// KeySet is one generation of keys: a provider plus the values already read from it.
//
// A KeySet never changes provider. Reload builds a new KeySet, so every key obtained
// through the same KeySet comes from the same generation. A retired KeySet keeps its
// provider open until the last holder releases it.
type KeySet struct {
	provider keystoreDomain.Provider
	logger   *slog.Logger
	metrics  metrics.BusinessMetrics

	mu    sync.RWMutex
	cache map[string]any

	group singleflight.Group

	refMu   sync.Mutex
	refs    int
	retired bool
}

func newKeySet(
	provider keystoreDomain.Provider,
	logger *slog.Logger,
	businessMetrics metrics.BusinessMetrics,
) *KeySet {
	return &KeySet{
		provider: provider,
		logger:   logger,
		metrics:  businessMetrics,
		cache:    make(map[string]any),
	}
}

// DayKey returns the 192-bit day key (K_S) for date's UTC day.
func (ks *KeySet) DayKey(ctx context.Context, date time.Time) ([]byte, error) {
	return ks.rawKey(ctx, keystoreDomain.DayKeyAlias(date), cryptoDomain.DayKeySize)
}

// FederationKey returns the AES-256 federation key (K_G).
func (ks *KeySet) FederationKey(ctx context.Context) ([]byte, error) {
	return ks.rawKey(ctx, keystoreDomain.AliasFederationKey, cryptoDomain.FederationKeySize)
}

// KeyEncryptionKey returns the key wrapping registration secrets at rest.
func (ks *KeySet) KeyEncryptionKey(ctx context.Context) ([]byte, error) {
	return ks.rawKey(ctx, keystoreDomain.AliasKeyEncryptionKey, cryptoDomain.AEADKeySize)
}

// IdentityKeyPair returns the server's P-256 identity key pair.
func (ks *KeySet) IdentityKeyPair(ctx context.Context) (*keystoreDomain.IdentityKeyPair, error) {
	v, err := ks.load(ctx, keystoreDomain.AliasIdentityKey, func(raw []byte) (any, error) {
		defer cryptoDomain.Zero(raw)
		return keystoreDomain.ParseIdentityKeyPair(raw)
	})
	if err != nil {
		return nil, err
	}
	return v.(*keystoreDomain.IdentityKeyPair), nil
}

// rawKey returns a copy of a symmetric key so callers may zero it.
func (ks *KeySet) rawKey(ctx context.Context, alias string, size int) ([]byte, error) {
	v, err := ks.load(ctx, alias, func(raw []byte) (any, error) {
		if len(raw) != size {
			cryptoDomain.Zero(raw)
			return nil, apperrors.Wrapf(keystoreDomain.ErrCryptoFailure, "%s has an invalid size", alias)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v.([]byte)), nil
}

// load returns the cached value for alias or reads it from the provider. Concurrent
// misses for one alias share a single provider call and no lock is held during it.
// Failures are never cached.
func (ks *KeySet) load(ctx context.Context, alias string, decode func([]byte) (any, error)) (any, error) {
	if v, ok := ks.cached(alias); ok {
		ks.metrics.RecordOperation(ctx, metricsDomain, "cache_lookup", "hit")
		return v, nil
	}
	ks.metrics.RecordOperation(ctx, metricsDomain, "cache_lookup", "miss")

	ch := ks.group.DoChan(alias, func() (any, error) {
		if v, ok := ks.cached(alias); ok {
			return v, nil
		}

		raw, err := ks.provider.GetKey(context.WithoutCancel(ctx), alias)
		if err != nil {
			if apperrors.Is(err, keystoreDomain.ErrKeyNotFound) {
				return nil, apperrors.Wrapf(keystoreDomain.ErrKeyNotFound, "alias %s", alias)
			}
			ks.logger.Error("keystore provider failure", slog.String("alias", alias), slog.Any("error", err))
			return nil, apperrors.Wrapf(keystoreDomain.ErrCryptoFailure, "alias %s", alias)
		}

		v, err := decode(raw)
		if err != nil {
			return nil, err
		}

		ks.mu.Lock()
		ks.cache[alias] = v
		ks.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, ctx.Err().Error())
	}
}

func (ks *KeySet) cached(alias string) (any, bool) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	v, ok := ks.cache[alias]
	return v, ok
}

// ContainsAlias reports whether the generation's provider holds alias.
func (ks *KeySet) ContainsAlias(ctx context.Context, alias string) (bool, error) {
	if _, ok := ks.cached(alias); ok {
		return true, nil
	}
	ok, err := ks.provider.ContainsAlias(ctx, alias)
	if err != nil {
		return false, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	return ok, nil
}

// acquire registers a holder. It fails once the generation is retired.
func (ks *KeySet) acquire() bool {
	ks.refMu.Lock()
	defer ks.refMu.Unlock()

	if ks.retired {
		return false
	}
	ks.refs++
	return true
}

// release drops a holder and closes the provider when it was the last one of a
// retired generation.
func (ks *KeySet) release() {
	ks.refMu.Lock()
	ks.refs--
	idle := ks.retired && ks.refs == 0
	ks.refMu.Unlock()

	if idle {
		if err := ks.provider.Close(); err != nil {
			ks.logger.Warn("failed to close retired keystore provider", slog.Any("error", err))
		}
	}
}

// retire stops new acquisitions. The provider is closed now when nobody holds the
// generation, otherwise by the last release.
func (ks *KeySet) retire() error {
	ks.refMu.Lock()
	if ks.retired {
		ks.refMu.Unlock()
		return nil
	}
	ks.retired = true
	inFlight := ks.refs
	ks.refMu.Unlock()

	if inFlight > 0 {
		ks.logger.Debug("keystore generation retired with requests in flight", slog.Int("holders", inFlight))
		return nil
	}
	return ks.provider.Close()
}
