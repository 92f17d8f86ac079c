package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	identityDomain "github.com/allisson/robert/internal/identity/domain"
)

// ComputeMAC returns HMAC-SHA256(macKey, salt || time || ecc || ebid) truncated to
// the first MACSize bytes. time is big-endian.
func ComputeMAC(
	macKey []byte,
	purpose identityDomain.Purpose,
	time16 uint16,
	ecc identityDomain.ECC,
	ebid identityDomain.EBID,
) identityDomain.MAC {
	var payload [1 + 2 + 1 + identityDomain.EBIDSize]byte
	payload[0] = byte(purpose)
	binary.BigEndian.PutUint16(payload[1:3], time16)
	payload[3] = byte(ecc)
	copy(payload[4:], ebid[:])

	h := hmac.New(sha256.New, macKey)
	h.Write(payload[:])
	sum := h.Sum(nil)

	var mac identityDomain.MAC
	copy(mac[:], sum[:identityDomain.MACSize])
	return mac
}

// VerifyMAC compares the expected MAC with received in constant time.
func VerifyMAC(
	macKey []byte,
	purpose identityDomain.Purpose,
	time16 uint16,
	ecc identityDomain.ECC,
	ebid identityDomain.EBID,
	received identityDomain.MAC,
) bool {
	expected := ComputeMAC(macKey, purpose, time16, ecc, ebid)
	return hmac.Equal(expected[:], received[:])
}
