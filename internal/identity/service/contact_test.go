package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// hello converts a device-signed request into the contact a neighbour reports.
func hello(req *identityDomain.AuthRequest, receivedAt time.Time) *identityDomain.HelloMessage {
	return &identityDomain.HelloMessage{
		EBID:       req.EBID,
		ECC:        req.ECC,
		Time:       req.Time,
		MAC:        req.MAC,
		ReceivedAt: receivedAt,
	}
}

func newContactValidator(f *authFixture) *ContactValidator {
	return NewContactValidator(f.authenticator, f.codec, f.clock, testCountryCode)
}

func TestContactValidator_Accepts(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.finder.On("FindByIDA", mock.Anything, f.idA).Return(f.registration, nil)
	validator := newContactValidator(f)

	t.Run("received in the broadcast epoch", func(t *testing.T) {
		msg := hello(f.request(t, identityDomain.PurposeHello, 232, testNow), testNow.Add(time.Minute))

		result, err := validator.Validate(ctx, f.keys, msg)
		require.NoError(t, err)
		assert.Equal(t, f.idA, result.IDA)
		assert.Equal(t, uint32(232), result.EpochID)
		assert.Equal(t, testCountryCode, result.CountryCode)
		assert.Same(t, f.registration, result.Registration)
	})

	t.Run("received early in the next epoch", func(t *testing.T) {
		sentAt := f.clock.AtEpoch(232).Add(14 * time.Minute)
		msg := hello(f.request(t, identityDomain.PurposeHello, 232, sentAt), sentAt.Add(2*time.Minute))

		result, err := validator.Validate(ctx, f.keys, msg)
		require.NoError(t, err)
		assert.Equal(t, uint32(232), result.EpochID)
	})

	t.Run("reception time replaces the server clock", func(t *testing.T) {
		sentAt := f.clock.AtEpoch(100)
		msg := hello(f.request(t, identityDomain.PurposeHello, 100, sentAt), sentAt.Add(30*time.Second))

		result, err := validator.Validate(ctx, f.keys, msg)
		require.NoError(t, err)
		assert.Equal(t, uint32(100), result.EpochID)
	})
}

func TestContactValidator_Rejects(t *testing.T) {
	ctx := context.Background()

	t.Run("foreign country is not decoded", func(t *testing.T) {
		f := newAuthFixture(t)
		msg := hello(f.request(t, identityDomain.PurposeHello, 232, testNow), testNow)
		ecc, err := f.codec.EncodeEcc(msg.EBID, testCountryCode+1, f.keys.federationKey)
		require.NoError(t, err)
		msg.ECC = ecc
		reads := f.keys.dayKeyReads.Load()

		_, err = newContactValidator(f).Validate(ctx, f.keys, msg)
		assert.ErrorIs(t, err, identityDomain.ErrForeignContact)
		assert.Equal(t, reads, f.keys.dayKeyReads.Load())
		f.finder.AssertNotCalled(t, "FindByIDA", mock.Anything, mock.Anything)
	})

	t.Run("received long after the broadcast", func(t *testing.T) {
		f := newAuthFixture(t)
		msg := hello(f.request(t, identityDomain.PurposeHello, 232, testNow), testNow.Add(time.Hour))

		_, err := newContactValidator(f).Validate(ctx, f.keys, msg)
		assert.ErrorIs(t, err, identityDomain.ErrTimeDriftExceeded)
	})

	t.Run("mac computed under another salt", func(t *testing.T) {
		f := newAuthFixture(t)
		f.finder.On("FindByIDA", mock.Anything, f.idA).Return(f.registration, nil)
		msg := hello(f.request(t, identityDomain.PurposeStatus, 232, testNow), testNow)

		_, err := newContactValidator(f).Validate(ctx, f.keys, msg)
		assert.ErrorIs(t, err, identityDomain.ErrMacMismatch)
	})

	t.Run("unknown sender", func(t *testing.T) {
		f := newAuthFixture(t)
		f.finder.On("FindByIDA", mock.Anything, f.idA).Return(nil, identityDomain.ErrRegistrationNotFound)
		msg := hello(f.request(t, identityDomain.PurposeHello, 232, testNow), testNow)

		_, err := newContactValidator(f).Validate(ctx, f.keys, msg)
		assert.ErrorIs(t, err, identityDomain.ErrUnknownIdentity)
	})

	t.Run("missing day key", func(t *testing.T) {
		f := newAuthFixture(t)
		msg := hello(f.request(t, identityDomain.PurposeHello, 232, testNow), testNow)
		f.keys.dayKeys = map[string][]byte{}

		_, err := newContactValidator(f).Validate(ctx, f.keys, msg)
		assert.ErrorIs(t, err, keystoreDomain.ErrKeyNotFound)
	})
}
