package service

import (
	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
)

// KeyWrapperService implements KeyWrapper on top of an AEADManager.
//
// Registration secrets (K_M, K_A) are only ever stored wrapped under the
// key-encryption-key held by the keystore.
type KeyWrapperService struct {
	aeadManager AEADManager
}

// NewKeyWrapper creates a KeyWrapperService.
func NewKeyWrapper(aeadManager AEADManager) *KeyWrapperService {
	return &KeyWrapperService{aeadManager: aeadManager}
}

// Wrap encrypts secret under kek.
func (w *KeyWrapperService) Wrap(
	kek []byte,
	alg cryptoDomain.Algorithm,
	secret []byte,
) (cryptoDomain.WrappedKey, error) {
	cipher, err := w.aeadManager.CreateCipher(kek, alg)
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}

	ciphertext, nonce, err := cipher.Encrypt(secret, []byte(alg))
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}

	return cryptoDomain.WrappedKey{
		Algorithm:  alg,
		Ciphertext: ciphertext,
		Nonce:      nonce,
	}, nil
}

// Unwrap decrypts wrapped with kek. Any authentication failure is reported as
// ErrDecryptionFailed.
func (w *KeyWrapperService) Unwrap(kek []byte, wrapped cryptoDomain.WrappedKey) ([]byte, error) {
	if wrapped.IsZero() {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	cipher, err := w.aeadManager.CreateCipher(kek, wrapped.Algorithm)
	if err != nil {
		return nil, err
	}

	secret, err := cipher.Decrypt(wrapped.Ciphertext, wrapped.Nonce, []byte(wrapped.Algorithm))
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return secret, nil
}
