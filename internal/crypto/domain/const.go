// Package domain defines the cryptographic primitives shared by the keystore and the
// identity engine: AEAD algorithm identifiers, key sizes, wrapped keys and the
// memory hygiene helpers used for key material.
package domain

// Algorithm represents the AEAD algorithm used to wrap registration keys and to
// encrypt tuple bundles.
//
// Both algorithms use 256-bit keys, 12-byte nonces and 16-byte tags:
//   - AESGCM on servers with AES-NI (the protocol default)
//   - ChaCha20 where AES hardware acceleration is missing
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Key sizes, in bytes, of every symmetric key handled by the engine.
const (
	// AEADKeySize is the size of KEKs and per-identity MAC/tuples keys.
	AEADKeySize = 32
	// DayKeySize is the size of a Skinny-64-192 day key (K_S).
	DayKeySize = 24
	// FederationKeySize is the size of the AES-256 federation key (K_G).
	FederationKeySize = 32
)

// ParseAlgorithm converts a configuration string into an Algorithm.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch Algorithm(value) {
	case AESGCM:
		return AESGCM, nil
	case ChaCha20:
		return ChaCha20, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
