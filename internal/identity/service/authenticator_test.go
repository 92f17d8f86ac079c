package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	cryptoService "github.com/allisson/robert/internal/crypto/service"
	"github.com/allisson/robert/internal/epoch"
	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

type authFixture struct {
	authenticator *RequestAuthenticator
	finder        *mockRegistrationFinder
	keys          *fakeKeys
	codec         *IdentityCodec
	clock         *epoch.Clock
	idA           identityDomain.IDA
	macKey        []byte
	registration  *identityDomain.Registration
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	clock := newTestClock()
	codec := NewIdentityCodec()
	keys := newFakeKeys(t, time.Date(2020, time.June, 2, 0, 0, 0, 0, time.UTC), 3)
	keyWrapper := cryptoService.NewKeyWrapper(cryptoService.NewAEADManager())

	idA, err := identityDomain.NewIDA()
	require.NoError(t, err)

	macKey := randomBytes(t, cryptoDomain.AEADKeySize)
	wrapped, err := keyWrapper.Wrap(keys.kek, cryptoDomain.AESGCM, macKey)
	require.NoError(t, err)

	finder := &mockRegistrationFinder{}
	return &authFixture{
		authenticator: NewRequestAuthenticator(
			clock, codec, keyWrapper, finder, 1, 3*time.Minute, newTestLogger(),
		),
		finder:       finder,
		keys:         keys,
		codec:        codec,
		clock:        clock,
		idA:          idA,
		macKey:       macKey,
		registration: &identityDomain.Registration{IDA: idA, KeyForMac: wrapped},
	}
}

// request builds a request signed the way a device would for epochID at instant at.
func (f *authFixture) request(
	t *testing.T,
	purpose identityDomain.Purpose,
	epochID uint32,
	at time.Time,
) *identityDomain.AuthRequest {
	t.Helper()
	ctx := context.Background()

	dayKey, err := f.keys.DayKey(ctx, f.clock.DateOfEpoch(epochID))
	require.NoError(t, err)
	ebid, err := f.codec.EncodeEbid(epochID, f.idA, dayKey)
	require.NoError(t, err)
	ecc, err := f.codec.EncodeEcc(ebid, testCountryCode, f.keys.federationKey)
	require.NoError(t, err)

	time16 := epoch.NTPTime16(at)
	return &identityDomain.AuthRequest{
		Purpose: purpose,
		EBID:    ebid,
		EpochID: epochID,
		Time:    time16,
		ECC:     ecc,
		MAC:     ComputeMAC(f.macKey, purpose, time16, ecc, ebid),
	}
}

func TestRequestAuthenticator_Accepts(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.finder.On("FindByIDA", mock.Anything, f.idA).Return(f.registration, nil)

	for _, purpose := range []identityDomain.Purpose{
		identityDomain.PurposeHello,
		identityDomain.PurposeStatus,
		identityDomain.PurposeUnregister,
		identityDomain.PurposeDeleteHistory,
	} {
		t.Run(purpose.String(), func(t *testing.T) {
			result, err := f.authenticator.Authenticate(ctx, f.keys, f.request(t, purpose, 232, testNow))
			require.NoError(t, err)
			assert.Equal(t, f.idA, result.IDA)
			assert.Equal(t, uint32(232), result.EpochID)
			assert.Equal(t, testCountryCode, result.CountryCode)
			assert.Same(t, f.registration, result.Registration)
		})
	}

	t.Run("neighbouring epochs within tolerance", func(t *testing.T) {
		_, err := f.authenticator.Authenticate(ctx, f.keys, f.request(t, identityDomain.PurposeStatus, 231, testNow))
		assert.NoError(t, err)
		_, err = f.authenticator.Authenticate(ctx, f.keys, f.request(t, identityDomain.PurposeStatus, 233, testNow))
		assert.NoError(t, err)
	})

	t.Run("reference time replaces the server clock", func(t *testing.T) {
		at := f.clock.AtEpoch(100)
		req := f.request(t, identityDomain.PurposeStatus, 100, at)
		req.ReferenceTime = at

		result, err := f.authenticator.Authenticate(ctx, f.keys, req)
		require.NoError(t, err)
		assert.Equal(t, uint32(100), result.EpochID)
	})
}

func TestRequestAuthenticator_TimeDrift(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	t.Run("request epoch too far from the server clock", func(t *testing.T) {
		_, err := f.authenticator.Authenticate(ctx, f.keys, f.request(t, identityDomain.PurposeStatus, 229, testNow))
		assert.ErrorIs(t, err, identityDomain.ErrTimeDriftExceeded)
	})

	t.Run("claimed epoch does not match the ebid", func(t *testing.T) {
		req := f.request(t, identityDomain.PurposeStatus, 200, testNow)
		req.EpochID = 232
		// Same day, so the ebid decodes under the right key and only the distance differs.
		_, err := f.authenticator.Authenticate(ctx, f.keys, req)
		assert.ErrorIs(t, err, identityDomain.ErrTimeDriftExceeded)
	})

	t.Run("far claimed epoch is rejected before any day key lookup", func(t *testing.T) {
		for _, claimed := range []uint32{229, 235, 1 << 20, identityDomain.MaxEpochID} {
			req := f.request(t, identityDomain.PurposeStatus, 232, testNow)
			req.EpochID = claimed
			reads := f.keys.dayKeyReads.Load()

			_, err := f.authenticator.Authenticate(ctx, f.keys, req)
			assert.ErrorIs(t, err, identityDomain.ErrTimeDriftExceeded, "epoch %d", claimed)
			assert.Equal(t, reads, f.keys.dayKeyReads.Load(), "epoch %d", claimed)
		}
	})

	t.Run("time field outside tolerance", func(t *testing.T) {
		req := f.request(t, identityDomain.PurposeStatus, 232, testNow.Add(-5*time.Minute))
		_, err := f.authenticator.Authenticate(ctx, f.keys, req)
		assert.ErrorIs(t, err, identityDomain.ErrTimeDriftExceeded)
		assert.ErrorIs(t, err, apperrors.ErrTimeDrift)
	})

	f.finder.AssertNotCalled(t, "FindByIDA", mock.Anything, mock.Anything)
}

func TestRequestAuthenticator_UnknownIdentity(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.finder.On("FindByIDA", mock.Anything, f.idA).Return(nil, identityDomain.ErrRegistrationNotFound)

	_, err := f.authenticator.Authenticate(ctx, f.keys, f.request(t, identityDomain.PurposeStatus, 232, testNow))
	assert.ErrorIs(t, err, identityDomain.ErrUnknownIdentity)
	assert.NotErrorIs(t, err, identityDomain.ErrMacMismatch)
}

func TestRequestAuthenticator_StoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	storeErr := errors.New("connection refused")
	f.finder.On("FindByIDA", mock.Anything, f.idA).Return(nil, storeErr)

	_, err := f.authenticator.Authenticate(ctx, f.keys, f.request(t, identityDomain.PurposeStatus, 232, testNow))
	assert.ErrorIs(t, err, storeErr)
}

func TestRequestAuthenticator_MacMismatch(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.finder.On("FindByIDA", mock.Anything, f.idA).Return(f.registration, nil)

	t.Run("wrong purpose", func(t *testing.T) {
		req := f.request(t, identityDomain.PurposeStatus, 232, testNow)
		req.Purpose = identityDomain.PurposeUnregister
		_, err := f.authenticator.Authenticate(ctx, f.keys, req)
		assert.ErrorIs(t, err, identityDomain.ErrMacMismatch)
	})

	t.Run("every single bit flip of the mac and ecc is rejected", func(t *testing.T) {
		base := f.request(t, identityDomain.PurposeStatus, 232, testNow)

		for i := 0; i < identityDomain.MACSize*8; i++ {
			req := *base
			req.MAC[i/8] ^= 1 << (i % 8)
			_, err := f.authenticator.Authenticate(ctx, f.keys, &req)
			require.ErrorIs(t, err, identityDomain.ErrMacMismatch, "mac bit %d", i)
		}
		for i := 0; i < 8; i++ {
			req := *base
			req.ECC ^= 1 << i
			_, err := f.authenticator.Authenticate(ctx, f.keys, &req)
			require.ErrorIs(t, err, identityDomain.ErrMacMismatch, "ecc bit %d", i)
		}
	})

	// A flipped EBID bit scrambles the whole Skinny block, so the decoded epoch and
	// idA are random. The state machine checks the epoch before resolving the idA and
	// both before the MAC, so such a request almost always fails as TimeDriftExceeded,
	// otherwise as UnknownIdentity, and is not expected to reach MacMismatch.
	t.Run("ebid bit flips never authenticate", func(t *testing.T) {
		base := f.request(t, identityDomain.PurposeStatus, 232, testNow)
		f.finder.On("FindByIDA", mock.Anything, mock.Anything).Return(nil, identityDomain.ErrRegistrationNotFound)

		for i := 0; i < identityDomain.EBIDSize*8; i++ {
			req := *base
			req.EBID[i/8] ^= 1 << (i % 8)
			_, err := f.authenticator.Authenticate(ctx, f.keys, &req)
			require.Error(t, err, "ebid bit %d", i)
			assert.True(t,
				errors.Is(err, apperrors.ErrUnauthorized) || errors.Is(err, apperrors.ErrTimeDrift),
				"ebid bit %d: %v", i, err,
			)
		}
	})
}

func TestRequestAuthenticator_KeyFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing day key", func(t *testing.T) {
		f := newAuthFixture(t)
		req := f.request(t, identityDomain.PurposeStatus, 232, testNow)
		f.keys.dayKeys = map[string][]byte{}

		_, err := f.authenticator.Authenticate(ctx, f.keys, req)
		assert.ErrorIs(t, err, keystoreDomain.ErrKeyNotFound)
	})

	t.Run("mac key wrapped under another kek", func(t *testing.T) {
		f := newAuthFixture(t)
		f.finder.On("FindByIDA", mock.Anything, f.idA).Return(f.registration, nil)
		req := f.request(t, identityDomain.PurposeStatus, 232, testNow)
		f.keys.kek = randomBytes(t, cryptoDomain.AEADKeySize)

		_, err := f.authenticator.Authenticate(ctx, f.keys, req)
		assert.ErrorIs(t, err, keystoreDomain.ErrCryptoFailure)
	})
}
