package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"
	"gocloud.dev/secrets/localsecrets"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
)

// KMSService opens the keeper that protects keystore entries at rest.
type KMSService interface {
	// OpenKeeper opens a keeper for the KMS key identified by keyURI.
	OpenKeeper(ctx context.Context, keyURI string) (Keeper, error)
}

type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper supports gcpkms://, awskms://, azurekeyvault://, hashivault:// and base64key://.
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// NewLocalKeyURI returns a base64key:// URI holding a fresh random key, suitable for
// development keystores.
func NewLocalKeyURI() (string, error) {
	key, err := localsecrets.NewRandomKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate local KMS key: %w", err)
	}
	return "base64key://" + base64.URLEncoding.EncodeToString(key[:]), nil
}
