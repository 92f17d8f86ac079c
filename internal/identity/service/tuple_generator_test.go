package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	cryptoService "github.com/allisson/robert/internal/crypto/service"
	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

func newTestGenerator() *TupleBundleGenerator {
	return NewTupleBundleGenerator(newTestClock(), NewIdentityCodec(), cryptoService.NewAEADManager(), testCountryCode)
}

func TestTupleBundleGenerator_BundleLength(t *testing.T) {
	g := newTestGenerator()

	assert.Equal(t, 96, g.BundleLength(0, 1))
	assert.Equal(t, 4*96, g.BundleLength(0, 4))
	assert.Equal(t, 56, g.BundleLength(232, 1))
	assert.Equal(t, 3*96+56, g.BundleLength(232, 4))
	assert.Equal(t, 1, g.BundleLength(95, 1))
}

func TestTupleBundleGenerator_Tuples(t *testing.T) {
	ctx := context.Background()
	g := newTestGenerator()
	clock := newTestClock()
	codec := NewIdentityCodec()
	keys := newFakeKeys(t, time.Date(2020, time.June, 3, 0, 0, 0, 0, time.UTC), 4)

	idA, err := identityDomain.NewIDA()
	require.NoError(t, err)

	tuples, err := g.Tuples(ctx, keys, idA, 232, 4)
	require.NoError(t, err)
	require.Len(t, tuples, 3*96+56)

	federationKey, err := keys.FederationKey(ctx)
	require.NoError(t, err)

	for i, tuple := range tuples {
		require.Equal(t, uint32(232+i), tuple.EpochID)

		dayKey, err := keys.DayKey(ctx, clock.DateOfEpoch(tuple.EpochID))
		require.NoError(t, err)

		decodedEpoch, decodedIDA, err := codec.DecodeEbid(tuple.EBID, dayKey)
		require.NoError(t, err)
		assert.Equal(t, tuple.EpochID, decodedEpoch)
		assert.Equal(t, idA, decodedIDA)

		cc, err := codec.DecodeEcc(tuple.EBID, tuple.ECC, federationKey)
		require.NoError(t, err)
		assert.Equal(t, testCountryCode, cc)
	}

	t.Run("last tuple is the last epoch of the last day", func(t *testing.T) {
		last := tuples[len(tuples)-1].EpochID
		assert.Equal(t, time.Date(2020, time.June, 6, 0, 0, 0, 0, time.UTC), clock.DateOfEpoch(last))
		assert.Equal(t, 1, clock.EpochsRemainingToday(last))
	})

	t.Run("missing day key fails the whole call", func(t *testing.T) {
		short := newFakeKeys(t, time.Date(2020, time.June, 3, 0, 0, 0, 0, time.UTC), 2)
		tuples, err := g.Tuples(ctx, short, idA, 232, 4)
		assert.Nil(t, tuples)
		assert.ErrorIs(t, err, keystoreDomain.ErrKeyNotFound)
	})

	t.Run("number of days must be positive", func(t *testing.T) {
		_, err := g.Tuples(ctx, keys, idA, 232, 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("epochs beyond the ebid range", func(t *testing.T) {
		_, err := g.Tuples(ctx, keys, idA, identityDomain.MaxEpochID-10, 1)
		assert.ErrorIs(t, err, identityDomain.ErrEpochOutOfRange)
	})
}

func TestTupleBundleGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	g := newTestGenerator()
	keys := newFakeKeys(t, time.Date(2020, time.June, 3, 0, 0, 0, 0, time.UTC), 4)
	tuplesKey := randomBytes(t, cryptoDomain.AEADKeySize)

	idA, err := identityDomain.NewIDA()
	require.NoError(t, err)

	bundle, err := g.Generate(ctx, keys, idA, tuplesKey, 232, 4)
	require.NoError(t, err)

	aead, err := cryptoService.NewAEADManager().CreateCipher(tuplesKey, cryptoDomain.AESGCM)
	require.NoError(t, err)
	plaintext, err := cryptoService.Open(aead, bundle, nil)
	require.NoError(t, err)

	decoded, err := UnmarshalTuples(plaintext)
	require.NoError(t, err)

	expected, err := g.Tuples(ctx, keys, idA, 232, 4)
	require.NoError(t, err)
	assert.Equal(t, expected, decoded)

	t.Run("bundle is bound to the tuples key", func(t *testing.T) {
		other, err := cryptoService.NewAEADManager().CreateCipher(
			randomBytes(t, cryptoDomain.AEADKeySize), cryptoDomain.AESGCM,
		)
		require.NoError(t, err)
		_, err = cryptoService.Open(other, bundle, nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("invalid tuples key", func(t *testing.T) {
		_, err := g.Generate(ctx, keys, idA, make([]byte, 8), 232, 1)
		assert.ErrorIs(t, err, keystoreDomain.ErrCryptoFailure)
	})
}

func TestMarshalTuples(t *testing.T) {
	ebid, err := identityDomain.EBIDFromBytes([]byte{0xca, 0xa7, 0xd5, 0xb0, 0xfb, 0xa7, 0xae, 0xa7})
	require.NoError(t, err)

	data, err := MarshalTuples([]identityDomain.EphemeralTuple{{EpochID: 232, EBID: ebid, ECC: 0x21}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"epochId":232,"key":{"ebid":"yqfVsPunrqc=","ecc":"IQ=="}}]`, string(data))

	t.Run("malformed documents", func(t *testing.T) {
		_, err := UnmarshalTuples([]byte(`{`))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = UnmarshalTuples([]byte(`[{"epochId":1,"key":{"ebid":"AAAA","ecc":"IQ=="}}]`))
		assert.ErrorIs(t, err, identityDomain.ErrInvalidLength)
	})
}
