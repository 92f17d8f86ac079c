// Package service provides the cryptographic primitives of the engine: AEAD ciphers
// (AES-256-GCM, ChaCha20-Poly1305), KEK wrapping of registration secrets, the
// Skinny-64 block cipher used for EBIDs and the KMS keeper service that unwraps
// keystore entries.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)

	// NonceSize returns the nonce length expected by Decrypt.
	NonceSize() int
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyWrapper wraps per-identity secrets under the key-encryption-key.
type KeyWrapper interface {
	// Wrap encrypts secret under kek with the given algorithm.
	Wrap(kek []byte, alg cryptoDomain.Algorithm, secret []byte) (cryptoDomain.WrappedKey, error)

	// Unwrap recovers the secret protected by wrapped.
	Unwrap(kek []byte, wrapped cryptoDomain.WrappedKey) ([]byte, error)
}

// Keeper is the subset of *secrets.Keeper used to protect keystore entries at rest.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
