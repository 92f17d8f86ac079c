package service

import (
	"context"
	"log/slog"
	"time"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	cryptoService "github.com/allisson/robert/internal/crypto/service"
	"github.com/allisson/robert/internal/epoch"
	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// RequestAuthenticator validates authenticated requests and recovers the identity
// behind them.
//
// States: RECEIVED -> EBID_DECODED -> EPOCH_CHECKED -> IDENTITY_RESOLVED ->
// MAC_VERIFIED -> ACCEPTED. Each rejection keeps its own error; the transport layer
// decides how much of the distinction to expose.
type RequestAuthenticator struct {
	clock          *epoch.Clock
	codec          *IdentityCodec
	keyWrapper     cryptoService.KeyWrapper
	registrations  RegistrationFinder
	epochTolerance uint32
	timeTolerance  time.Duration
	logger         *slog.Logger
}

// NewRequestAuthenticator creates a RequestAuthenticator.
func NewRequestAuthenticator(
	clock *epoch.Clock,
	codec *IdentityCodec,
	keyWrapper cryptoService.KeyWrapper,
	registrations RegistrationFinder,
	epochTolerance uint32,
	timeTolerance time.Duration,
	logger *slog.Logger,
) *RequestAuthenticator {
	return &RequestAuthenticator{
		clock:          clock,
		codec:          codec,
		keyWrapper:     keyWrapper,
		registrations:  registrations,
		epochTolerance: epochTolerance,
		timeTolerance:  timeTolerance,
		logger:         logger,
	}
}

// Authenticate runs req through every state, reading all keys from keys.
func (a *RequestAuthenticator) Authenticate(
	ctx context.Context,
	keys keystoreDomain.Keys,
	req *identityDomain.AuthRequest,
) (*identityDomain.AuthResult, error) {
	reference := req.ReferenceTime
	if reference.IsZero() {
		reference = a.clock.Now()
	}
	currentEpoch := a.clock.InstantToEpoch(reference)

	// A decoded epoch within tolerance of both the claimed and the current epoch
	// bounds the claimed one to twice the tolerance. Anything further is rejected
	// before it can select a day key.
	if uint64(epochDistance(req.EpochID, currentEpoch)) > 2*uint64(a.epochTolerance) {
		a.logger.Debug("claimed epoch rejected",
			slog.Uint64("claimed_epoch", uint64(req.EpochID)),
			slog.Uint64("current_epoch", uint64(currentEpoch)),
		)
		return nil, identityDomain.ErrTimeDriftExceeded
	}

	// EBID_DECODED
	dayKey, err := keys.DayKey(ctx, a.clock.DateOfEpoch(req.EpochID))
	if err != nil {
		return nil, err
	}
	decodedEpoch, idA, err := a.codec.DecodeEbid(req.EBID, dayKey)
	cryptoDomain.Zero(dayKey)
	if err != nil {
		return nil, err
	}

	// EPOCH_CHECKED
	if epochDistance(decodedEpoch, req.EpochID) > a.epochTolerance ||
		epochDistance(decodedEpoch, currentEpoch) > a.epochTolerance {
		a.logger.Debug("request epoch rejected",
			slog.Uint64("claimed_epoch", uint64(req.EpochID)),
			slog.Uint64("decoded_epoch", uint64(decodedEpoch)),
			slog.Uint64("current_epoch", uint64(currentEpoch)),
		)
		return nil, identityDomain.ErrTimeDriftExceeded
	}
	if epoch.Time16Distance(req.Time, epoch.NTPTime16(reference)) > a.timeTolerance {
		a.logger.Debug("request time rejected", slog.Uint64("time", uint64(req.Time)))
		return nil, identityDomain.ErrTimeDriftExceeded
	}

	// IDENTITY_RESOLVED
	registration, err := a.registrations.FindByIDA(ctx, idA)
	if err != nil {
		if apperrors.Is(err, identityDomain.ErrRegistrationNotFound) {
			return nil, identityDomain.ErrUnknownIdentity
		}
		return nil, err
	}

	// MAC_VERIFIED
	kek, err := keys.KeyEncryptionKey(ctx)
	if err != nil {
		return nil, err
	}
	macKey, err := a.keyWrapper.Unwrap(kek, registration.KeyForMac)
	cryptoDomain.Zero(kek)
	if err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, "failed to unwrap mac key")
	}
	ok := VerifyMAC(macKey, req.Purpose, req.Time, req.ECC, req.EBID, req.MAC)
	cryptoDomain.Zero(macKey)
	if !ok {
		return nil, identityDomain.ErrMacMismatch
	}

	// ACCEPTED
	federationKey, err := keys.FederationKey(ctx)
	if err != nil {
		return nil, err
	}
	countryCode, err := a.codec.DecodeEcc(req.EBID, req.ECC, federationKey)
	cryptoDomain.Zero(federationKey)
	if err != nil {
		return nil, err
	}

	return &identityDomain.AuthResult{
		IDA:          idA,
		EpochID:      decodedEpoch,
		CountryCode:  countryCode,
		Registration: registration,
	}, nil
}

func epochDistance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
