package domain

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"

	"github.com/allisson/robert/internal/errors"
)

// IdentityKeyPair is the server's long-term P-256 key pair used for ECDH key
// agreement at registration.
type IdentityKeyPair struct {
	Private *ecdh.PrivateKey
}

// PublicKey returns the uncompressed SEC1 encoding of the public key.
func (k *IdentityKeyPair) PublicKey() []byte {
	return k.Private.PublicKey().Bytes()
}

// GenerateIdentityKeyPair creates a fresh key pair and returns its PKCS#8 encoding.
func GenerateIdentityKeyPair() ([]byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(ErrCryptoFailure, err.Error())
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(ErrCryptoFailure, err.Error())
	}
	return der, nil
}

// ParseIdentityKeyPair decodes a PKCS#8 DER P-256 private key.
func ParseIdentityKeyPair(der []byte) (*IdentityKeyPair, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(ErrCryptoFailure, "invalid identity key encoding")
	}

	var private *ecdh.PrivateKey
	switch key := parsed.(type) {
	case *ecdsa.PrivateKey:
		if key.Curve != elliptic.P256() {
			return nil, errors.Wrap(ErrCryptoFailure, "identity key is not P-256")
		}
		private, err = key.ECDH()
	case *ecdh.PrivateKey:
		if key.Curve() != ecdh.P256() {
			return nil, errors.Wrap(ErrCryptoFailure, "identity key is not P-256")
		}
		private = key
	default:
		return nil, errors.Wrap(ErrCryptoFailure, "identity key is not an EC key")
	}
	if err != nil {
		return nil, errors.Wrap(ErrCryptoFailure, err.Error())
	}

	return &IdentityKeyPair{Private: private}, nil
}
