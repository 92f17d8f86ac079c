// Package service implements the identity engine: EBID and ECC codecs, tuple bundle
// generation and request authentication.
package service

import (
	"crypto/aes"
	"crypto/cipher"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	cryptoService "github.com/allisson/robert/internal/crypto/service"
	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// IdentityCodec packs identities into EBIDs and derives ECCs. It is stateless.
type IdentityCodec struct{}

// NewIdentityCodec creates an IdentityCodec.
func NewIdentityCodec() *IdentityCodec {
	return &IdentityCodec{}
}

// EncodeEbid encrypts the block epochID(24 bits) || idA(40 bits), big-endian, with
// Skinny-64-192 under dayKey. The result is deterministic.
func (c *IdentityCodec) EncodeEbid(epochID uint32, idA identityDomain.IDA, dayKey []byte) (identityDomain.EBID, error) {
	if epochID > identityDomain.MaxEpochID {
		return identityDomain.EBID{}, identityDomain.ErrEpochOutOfRange
	}

	block, err := newDayCipher(dayKey)
	if err != nil {
		return identityDomain.EBID{}, err
	}

	var plain [8]byte
	plain[0] = byte(epochID >> 16)
	plain[1] = byte(epochID >> 8)
	plain[2] = byte(epochID)
	copy(plain[3:], idA[:])

	var ebid identityDomain.EBID
	block.Encrypt(ebid[:], plain[:])
	return ebid, nil
}

// DecodeEbid reverses EncodeEbid. The decoded epoch must still be checked against
// the epoch the request claims.
func (c *IdentityCodec) DecodeEbid(
	ebid identityDomain.EBID,
	dayKey []byte,
) (uint32, identityDomain.IDA, error) {
	block, err := newDayCipher(dayKey)
	if err != nil {
		return 0, identityDomain.IDA{}, err
	}

	var plain [8]byte
	block.Decrypt(plain[:], ebid[:])

	var idA identityDomain.IDA
	copy(idA[:], plain[3:])
	epochID := uint32(plain[0])<<16 | uint32(plain[1])<<8 | uint32(plain[2])
	return epochID, idA, nil
}

// EncodeEcc XORs countryCode with the first byte of AES-256(federationKey, ebid || 0^64).
func (c *IdentityCodec) EncodeEcc(
	ebid identityDomain.EBID,
	countryCode byte,
	federationKey []byte,
) (identityDomain.ECC, error) {
	mask, err := eccMask(ebid, federationKey)
	if err != nil {
		return 0, err
	}
	return identityDomain.ECC(mask ^ countryCode), nil
}

// DecodeEcc recovers the country code carried by ecc.
func (c *IdentityCodec) DecodeEcc(
	ebid identityDomain.EBID,
	ecc identityDomain.ECC,
	federationKey []byte,
) (byte, error) {
	mask, err := eccMask(ebid, federationKey)
	if err != nil {
		return 0, err
	}
	return mask ^ byte(ecc), nil
}

func eccMask(ebid identityDomain.EBID, federationKey []byte) (byte, error) {
	if len(federationKey) != cryptoDomain.FederationKeySize {
		return 0, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, "invalid federation key size")
	}
	block, err := aes.NewCipher(federationKey)
	if err != nil {
		return 0, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}

	var in, out [aes.BlockSize]byte
	copy(in[:], ebid[:])
	block.Encrypt(out[:], in[:])
	return out[0], nil
}

func newDayCipher(dayKey []byte) (cipher.Block, error) {
	if len(dayKey) != cryptoDomain.DayKeySize {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, "invalid day key size")
	}
	block, err := cryptoService.NewSkinny64(dayKey)
	if err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	return block, nil
}
