// Package repository implements registration persistence for PostgreSQL and MySQL.
// Per-identity keys are stored only in KEK-wrapped form; exposed epochs are stored as
// a JSON array.
package repository

import (
	"encoding/json"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	apperrors "github.com/allisson/robert/internal/errors"
)

func encodeExposedEpochs(epochs []uint32) ([]byte, error) {
	if epochs == nil {
		epochs = []uint32{}
	}
	data, err := json.Marshal(epochs)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode exposed epochs")
	}
	return data, nil
}

func decodeExposedEpochs(data []byte) ([]uint32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var epochs []uint32
	if err := json.Unmarshal(data, &epochs); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode exposed epochs")
	}
	if len(epochs) == 0 {
		return nil, nil
	}
	return epochs, nil
}

// wrappedColumns holds the scanned columns of both wrapped keys.
type wrappedColumns struct {
	algorithm         string
	macCiphertext     []byte
	macNonce          []byte
	tuplesCiphertext  []byte
	tuplesNonce       []byte
	exposedEpochsJSON []byte
}

func (w *wrappedColumns) keys() (cryptoDomain.WrappedKey, cryptoDomain.WrappedKey) {
	alg := cryptoDomain.Algorithm(w.algorithm)
	return cryptoDomain.WrappedKey{Algorithm: alg, Ciphertext: w.macCiphertext, Nonce: w.macNonce},
		cryptoDomain.WrappedKey{Algorithm: alg, Ciphertext: w.tuplesCiphertext, Nonce: w.tuplesNonce}
}
