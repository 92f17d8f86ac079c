package domain

import (
	"github.com/allisson/robert/internal/errors"
)

// Cryptographic operation error definitions.
//
// These wrap ErrInvalidInput because each of them is caused by the material handed
// to a primitive (a key of the wrong size, a tampered ciphertext), never by the
// environment. Keystore and backing-store failures live in the keystore domain.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key does not have the size its primitive requires.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidBlockSize indicates a block handed to a block cipher has the wrong length.
	ErrInvalidBlockSize = errors.Wrap(errors.ErrInvalidInput, "invalid block size")

	// ErrDecryptionFailed indicates authenticated decryption failed.
	//
	// The cause (wrong key, tampered ciphertext, truncated nonce) is deliberately not
	// disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
