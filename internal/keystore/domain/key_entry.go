package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// KeyEntry is a keystore record. EncryptedKey is the key material encrypted by the
// KMS keeper; plaintext keys are never persisted.
type KeyEntry struct {
	ID           uuid.UUID
	Alias        string
	EncryptedKey []byte
	CreatedAt    time.Time
}

// Provider is the capability backing a KeyStore generation. Implementations must be
// safe for concurrent use and return ErrKeyNotFound for absent aliases.
type Provider interface {
	GetKey(ctx context.Context, alias string) ([]byte, error)
	ContainsAlias(ctx context.Context, alias string) (bool, error)
	Close() error
}

// Keys is a consistent view of one keystore generation. Every key read through the
// same Keys value comes from the same provider.
type Keys interface {
	DayKey(ctx context.Context, date time.Time) ([]byte, error)
	FederationKey(ctx context.Context) ([]byte, error)
	KeyEncryptionKey(ctx context.Context) ([]byte, error)
	IdentityKeyPair(ctx context.Context) (*IdentityKeyPair, error)
	ContainsAlias(ctx context.Context, alias string) (bool, error)
}

// KeyEntryWriter persists provisioned entries into a backing store.
type KeyEntryWriter interface {
	ContainsAlias(ctx context.Context, alias string) (bool, error)
	Write(ctx context.Context, entries []*KeyEntry) error
}

// Provider kinds accepted in Credentials.
const (
	ProviderFile = "file"
	ProviderSQL  = "sql"
)

// Credentials select and unlock a backing provider. They are handed to
// KeyStore.Reload to rotate to a new provider without restarting the process.
type Credentials struct {
	Provider  string
	FilePath  string
	KMSKeyURI string
}

// ProviderFactory builds the provider described by credentials.
type ProviderFactory func(ctx context.Context, credentials Credentials) (Provider, error)
