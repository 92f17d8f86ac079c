package domain

import (
	apperrors "github.com/allisson/robert/internal/errors"
)

// Identity error definitions.
var (
	// ErrTimeDriftExceeded indicates the request epoch or time field is too far from
	// the server clock or from the epoch embedded in the EBID.
	ErrTimeDriftExceeded = apperrors.Wrap(apperrors.ErrTimeDrift, "time drift exceeded")

	// ErrUnknownIdentity indicates no registration exists for the recovered idA.
	ErrUnknownIdentity = apperrors.Wrap(apperrors.ErrUnauthorized, "unknown identity")

	// ErrMacMismatch indicates the request MAC does not verify.
	ErrMacMismatch = apperrors.Wrap(apperrors.ErrUnauthorized, "mac mismatch")

	// ErrForeignContact indicates a hello whose ECC carries another country's code.
	// It belongs to that country's back end and is not validated here.
	ErrForeignContact = apperrors.Wrap(apperrors.ErrInvalidInput, "contact from a foreign country")

	// ErrInvalidLength indicates a wire value of the wrong length.
	ErrInvalidLength = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid length")

	// ErrEpochOutOfRange indicates an epoch that does not fit in an EBID.
	ErrEpochOutOfRange = apperrors.Wrap(apperrors.ErrInvalidInput, "epoch out of range")

	// ErrInvalidPublicKey indicates a client public key that is not a P-256 point.
	ErrInvalidPublicKey = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid client public key")

	// ErrRegistrationNotFound indicates the registration store holds no record for an idA.
	ErrRegistrationNotFound = apperrors.Wrap(apperrors.ErrNotFound, "registration not found")

	// ErrIdentityExists indicates an idA collision when storing a registration.
	ErrIdentityExists = apperrors.Wrap(apperrors.ErrConflict, "identity already exists")
)
