package domain

import (
	"github.com/allisson/robert/internal/errors"
)

// Keystore error definitions.
var (
	// ErrCryptoFailure covers every failure of the keystore or of its backing provider.
	// It maps to no base error and is always reported externally as an internal error.
	ErrCryptoFailure = errors.New("crypto failure")

	// ErrKeyNotFound indicates an alias is absent from the backing provider.
	ErrKeyNotFound = errors.Wrap(ErrCryptoFailure, "key not found")

	// ErrKeystoreClosed indicates the KeyStore was used after Close.
	ErrKeystoreClosed = errors.Wrap(ErrCryptoFailure, "keystore closed")

	// ErrUnsupportedProvider indicates reload credentials name an unknown provider kind.
	ErrUnsupportedProvider = errors.Wrap(errors.ErrInvalidInput, "unsupported keystore provider")

	// ErrInvalidAlias indicates an alias the keystore does not manage.
	ErrInvalidAlias = errors.Wrap(errors.ErrInvalidInput, "invalid key alias")

	// ErrAliasExists indicates a provisioning run tried to overwrite an existing alias.
	ErrAliasExists = errors.Wrap(errors.ErrConflict, "key alias already exists")
)
