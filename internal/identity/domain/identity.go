// Package domain defines the anonymous identity model: idA, EBIDs, ECCs, ephemeral
// tuples, registrations and authenticated requests, plus the identity error taxonomy.
package domain

import (
	"crypto/rand"
	"encoding/base64"

	apperrors "github.com/allisson/robert/internal/errors"
)

// Wire sizes in bytes.
const (
	IDASize  = 5
	EBIDSize = 8
	MACSize  = 5
)

// MaxEpochID is the largest epoch representable in an EBID (24 bits).
const MaxEpochID uint32 = 1<<24 - 1

// IDA is the permanent 40-bit anonymous identifier assigned at registration.
type IDA [IDASize]byte

// NewIDA returns a random idA.
func NewIDA() (IDA, error) {
	var id IDA
	if _, err := rand.Read(id[:]); err != nil {
		return IDA{}, apperrors.Wrap(err, "failed to generate idA")
	}
	return id, nil
}

// IDAFromBytes copies b into an IDA.
func IDAFromBytes(b []byte) (IDA, error) {
	var id IDA
	if len(b) != IDASize {
		return IDA{}, ErrInvalidLength
	}
	copy(id[:], b)
	return id, nil
}

// String returns the standard base64 encoding of the idA.
func (id IDA) String() string {
	return base64.StdEncoding.EncodeToString(id[:])
}

// EBID is an encrypted (epoch, idA) block.
type EBID [EBIDSize]byte

// EBIDFromBytes copies b into an EBID.
func EBIDFromBytes(b []byte) (EBID, error) {
	var e EBID
	if len(b) != EBIDSize {
		return EBID{}, ErrInvalidLength
	}
	copy(e[:], b)
	return e, nil
}

// String returns the standard base64 encoding of the EBID.
func (e EBID) String() string {
	return base64.StdEncoding.EncodeToString(e[:])
}

// ECC is the encrypted country code byte.
type ECC byte

// MAC is the truncated request authentication code.
type MAC [MACSize]byte

// MACFromBytes copies b into a MAC.
func MACFromBytes(b []byte) (MAC, error) {
	var m MAC
	if len(b) != MACSize {
		return MAC{}, ErrInvalidLength
	}
	copy(m[:], b)
	return m, nil
}

// EphemeralTuple is the (epoch, EBID, ECC) triple a device broadcasts during one epoch.
type EphemeralTuple struct {
	EpochID uint32
	EBID    EBID
	ECC     ECC
}

// EncryptedTupleBundle is an AEAD-sealed, serialized tuple list: nonce || ciphertext || tag.
type EncryptedTupleBundle []byte
