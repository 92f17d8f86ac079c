package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
)

func TestKeyWrapperService(t *testing.T) {
	wrapper := NewKeyWrapper(NewAEADManager())
	kek := randomKey(t, 32)
	secret := randomKey(t, 32)

	for _, alg := range []cryptoDomain.Algorithm{cryptoDomain.AESGCM, cryptoDomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			wrapped, err := wrapper.Wrap(kek, alg, secret)
			require.NoError(t, err)
			assert.Equal(t, alg, wrapped.Algorithm)
			assert.NotEqual(t, secret, wrapped.Ciphertext)

			unwrapped, err := wrapper.Unwrap(kek, wrapped)
			require.NoError(t, err)
			assert.Equal(t, secret, unwrapped)
		})
	}

	t.Run("wrong KEK", func(t *testing.T) {
		wrapped, err := wrapper.Wrap(kek, cryptoDomain.AESGCM, secret)
		require.NoError(t, err)

		_, err = wrapper.Unwrap(randomKey(t, 32), wrapped)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("algorithm is authenticated", func(t *testing.T) {
		wrapped, err := wrapper.Wrap(kek, cryptoDomain.AESGCM, secret)
		require.NoError(t, err)

		wrapped.Algorithm = cryptoDomain.ChaCha20
		_, err = wrapper.Unwrap(kek, wrapped)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("empty wrapped key", func(t *testing.T) {
		_, err := wrapper.Unwrap(kek, cryptoDomain.WrappedKey{})
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("invalid KEK size", func(t *testing.T) {
		_, err := wrapper.Wrap(kek[:16], cryptoDomain.AESGCM, secret)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})
}
