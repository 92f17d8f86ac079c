package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/robert/internal/errors"
)

// AdminTokenService issues and verifies the operator token guarding keystore
// administration. Only the Argon2id hash of the token is configured on servers.
type AdminTokenService interface {
	// Generate returns a new random token and its hash.
	Generate() (plainToken string, hashedToken string, err error)
	// Verify reports whether plainToken matches hashedToken.
	Verify(plainToken, hashedToken string) bool
}

type adminTokenService struct {
	hasher *pwdhash.PasswordHasher
}

// NewAdminTokenService creates an AdminTokenService using the moderate Argon2id policy.
func NewAdminTokenService() (AdminTokenService, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create token hasher")
	}
	return &adminTokenService{hasher: hasher}, nil
}

func (s *adminTokenService) Generate() (string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate admin token")
	}
	plainToken := base64.RawURLEncoding.EncodeToString(randomBytes)

	hashedToken, err := s.hasher.Hash([]byte(plainToken))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to hash admin token")
	}
	return plainToken, hashedToken, nil
}

func (s *adminTokenService) Verify(plainToken, hashedToken string) bool {
	if plainToken == "" || hashedToken == "" {
		return false
	}
	ok, err := s.hasher.Verify([]byte(plainToken), hashedToken)
	return err == nil && ok
}
