package service

import (
	"context"
	"encoding/json"
	"time"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	cryptoService "github.com/allisson/robert/internal/crypto/service"
	"github.com/allisson/robert/internal/epoch"
	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

type tupleKey struct {
	EBID []byte `json:"ebid"`
	ECC  []byte `json:"ecc"`
}

type tupleRecord struct {
	EpochID uint32   `json:"epochId"`
	Key     tupleKey `json:"key"`
}

// TupleBundleGenerator mints the ephemeral tuples of an identity and seals them for
// delivery under the identity's tuples key.
type TupleBundleGenerator struct {
	clock       *epoch.Clock
	codec       *IdentityCodec
	aeadManager cryptoService.AEADManager
	countryCode byte
}

// NewTupleBundleGenerator creates a TupleBundleGenerator embedding countryCode in
// every ECC.
func NewTupleBundleGenerator(
	clock *epoch.Clock,
	codec *IdentityCodec,
	aeadManager cryptoService.AEADManager,
	countryCode byte,
) *TupleBundleGenerator {
	return &TupleBundleGenerator{
		clock:       clock,
		codec:       codec,
		aeadManager: aeadManager,
		countryCode: countryCode,
	}
}

// BundleLength returns the number of tuples covering numberOfDays calendar days from
// startEpoch: the rest of the start day plus numberOfDays-1 full days.
func (g *TupleBundleGenerator) BundleLength(startEpoch uint32, numberOfDays int) int {
	return (numberOfDays-1)*g.clock.EpochsPerDay() + g.clock.EpochsRemainingToday(startEpoch)
}

// Tuples returns the ascending, gap-free tuples of idA starting at startEpoch. Every
// key is read from keys, and any missing day key fails the whole call.
func (g *TupleBundleGenerator) Tuples(
	ctx context.Context,
	keys keystoreDomain.Keys,
	idA identityDomain.IDA,
	startEpoch uint32,
	numberOfDays int,
) ([]identityDomain.EphemeralTuple, error) {
	if numberOfDays < 1 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "number of days must be positive")
	}

	count := g.BundleLength(startEpoch, numberOfDays)
	if uint64(startEpoch)+uint64(count)-1 > uint64(identityDomain.MaxEpochID) {
		return nil, identityDomain.ErrEpochOutOfRange
	}

	federationKey, err := keys.FederationKey(ctx)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(federationKey)

	var (
		dayKey     []byte
		dayKeyDate time.Time
	)
	defer func() { cryptoDomain.Zero(dayKey) }()

	tuples := make([]identityDomain.EphemeralTuple, 0, count)
	for i := 0; i < count; i++ {
		epochID := startEpoch + uint32(i)

		date := g.clock.DateOfEpoch(epochID)
		if dayKey == nil || !date.Equal(dayKeyDate) {
			cryptoDomain.Zero(dayKey)
			dayKey, err = keys.DayKey(ctx, date)
			if err != nil {
				return nil, err
			}
			dayKeyDate = date
		}

		ebid, err := g.codec.EncodeEbid(epochID, idA, dayKey)
		if err != nil {
			return nil, err
		}
		ecc, err := g.codec.EncodeEcc(ebid, g.countryCode, federationKey)
		if err != nil {
			return nil, err
		}

		tuples = append(tuples, identityDomain.EphemeralTuple{EpochID: epochID, EBID: ebid, ECC: ecc})
	}

	return tuples, nil
}

// Generate builds the tuples of idA and seals their JSON encoding with AES-256-GCM
// under tuplesKey. The bundle is nonce || ciphertext || tag.
func (g *TupleBundleGenerator) Generate(
	ctx context.Context,
	keys keystoreDomain.Keys,
	idA identityDomain.IDA,
	tuplesKey []byte,
	startEpoch uint32,
	numberOfDays int,
) (identityDomain.EncryptedTupleBundle, error) {
	tuples, err := g.Tuples(ctx, keys, idA, startEpoch, numberOfDays)
	if err != nil {
		return nil, err
	}

	plaintext, err := MarshalTuples(tuples)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	aead, err := g.aeadManager.CreateCipher(tuplesKey, cryptoDomain.AESGCM)
	if err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}

	sealed, err := cryptoService.Seal(aead, plaintext, nil)
	if err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	return sealed, nil
}

// MarshalTuples encodes tuples as [{"epochId":n,"key":{"ebid":b64,"ecc":b64}}].
func MarshalTuples(tuples []identityDomain.EphemeralTuple) ([]byte, error) {
	records := make([]tupleRecord, len(tuples))
	for i, t := range tuples {
		records[i] = tupleRecord{
			EpochID: t.EpochID,
			Key: tupleKey{
				EBID: t.EBID[:],
				ECC:  []byte{byte(t.ECC)},
			},
		}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode tuples")
	}
	return data, nil
}

// UnmarshalTuples decodes the output of MarshalTuples.
func UnmarshalTuples(data []byte) ([]identityDomain.EphemeralTuple, error) {
	var records []tupleRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid tuple encoding")
	}

	tuples := make([]identityDomain.EphemeralTuple, len(records))
	for i, r := range records {
		ebid, err := identityDomain.EBIDFromBytes(r.Key.EBID)
		if err != nil {
			return nil, err
		}
		if len(r.Key.ECC) != 1 {
			return nil, identityDomain.ErrInvalidLength
		}
		tuples[i] = identityDomain.EphemeralTuple{EpochID: r.EpochID, EBID: ebid, ECC: identityDomain.ECC(r.Key.ECC[0])}
	}
	return tuples, nil
}
