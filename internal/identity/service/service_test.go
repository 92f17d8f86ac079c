package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	"github.com/allisson/robert/internal/epoch"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// 2020-06-03T10:00:00Z, epoch 232 for a service started on 2020-06-01.
var testNow = time.Date(2020, time.June, 3, 10, 0, 0, 0, time.UTC)

const testCountryCode byte = 0x21

func newTestClock() *epoch.Clock {
	return epoch.New(3799958400, 15*time.Minute, epoch.WithNow(func() time.Time { return testNow }))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func randomBytes(t *testing.T, size int) []byte {
	t.Helper()
	b := make([]byte, size)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

// fakeKeys is an in-memory keystoreDomain.Keys.
type fakeKeys struct {
	dayKeys       map[string][]byte
	federationKey []byte
	kek           []byte
	dayKeyReads   atomic.Int32
}

func newFakeKeys(t *testing.T, from time.Time, days int) *fakeKeys {
	t.Helper()
	k := &fakeKeys{
		dayKeys:       make(map[string][]byte),
		federationKey: randomBytes(t, cryptoDomain.FederationKeySize),
		kek:           randomBytes(t, cryptoDomain.AEADKeySize),
	}
	for i := 0; i < days; i++ {
		k.dayKeys[keystoreDomain.DayKeyAlias(from.AddDate(0, 0, i))] = randomBytes(t, cryptoDomain.DayKeySize)
	}
	return k
}

func (k *fakeKeys) DayKey(ctx context.Context, date time.Time) ([]byte, error) {
	k.dayKeyReads.Add(1)
	key, ok := k.dayKeys[keystoreDomain.DayKeyAlias(date)]
	if !ok {
		return nil, keystoreDomain.ErrKeyNotFound
	}
	return bytes.Clone(key), nil
}

func (k *fakeKeys) FederationKey(ctx context.Context) ([]byte, error) {
	return bytes.Clone(k.federationKey), nil
}

func (k *fakeKeys) KeyEncryptionKey(ctx context.Context) ([]byte, error) {
	return bytes.Clone(k.kek), nil
}

func (k *fakeKeys) IdentityKeyPair(ctx context.Context) (*keystoreDomain.IdentityKeyPair, error) {
	return nil, keystoreDomain.ErrKeyNotFound
}

func (k *fakeKeys) ContainsAlias(ctx context.Context, alias string) (bool, error) {
	_, ok := k.dayKeys[alias]
	return ok, nil
}

type mockRegistrationFinder struct {
	mock.Mock
}

func (m *mockRegistrationFinder) FindByIDA(
	ctx context.Context,
	idA identityDomain.IDA,
) (*identityDomain.Registration, error) {
	args := m.Called(ctx, idA)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.Registration), args.Error(1)
}
