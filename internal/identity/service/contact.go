package service

import (
	"context"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	"github.com/allisson/robert/internal/epoch"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// ContactValidator checks reported hello messages. A hello is authenticated like
// any other request under the hello salt, with the reception time standing in for
// the server clock and selecting the epoch.
type ContactValidator struct {
	authenticator *RequestAuthenticator
	codec         *IdentityCodec
	clock         *epoch.Clock
	countryCode   byte
}

// NewContactValidator creates a ContactValidator accepting hellos of countryCode.
func NewContactValidator(
	authenticator *RequestAuthenticator,
	codec *IdentityCodec,
	clock *epoch.Clock,
	countryCode byte,
) *ContactValidator {
	return &ContactValidator{
		authenticator: authenticator,
		codec:         codec,
		clock:         clock,
		countryCode:   countryCode,
	}
}

// Validate returns the sender behind hello. Hellos of another country fail with
// ErrForeignContact before their EBID is decoded; the rest fail like Authenticate.
func (v *ContactValidator) Validate(
	ctx context.Context,
	keys keystoreDomain.Keys,
	hello *identityDomain.HelloMessage,
) (*identityDomain.AuthResult, error) {
	federationKey, err := keys.FederationKey(ctx)
	if err != nil {
		return nil, err
	}
	countryCode, err := v.codec.DecodeEcc(hello.EBID, hello.ECC, federationKey)
	cryptoDomain.Zero(federationKey)
	if err != nil {
		return nil, err
	}
	if countryCode != v.countryCode {
		return nil, identityDomain.ErrForeignContact
	}

	return v.authenticator.Authenticate(ctx, keys, &identityDomain.AuthRequest{
		Purpose:       identityDomain.PurposeHello,
		EBID:          hello.EBID,
		EpochID:       v.clock.InstantToEpoch(hello.ReceivedAt),
		Time:          hello.Time,
		ECC:           hello.ECC,
		MAC:           hello.MAC,
		ReferenceTime: hello.ReceivedAt,
	})
}
