// Package provider implements the keystore backing providers. Every provider stores
// key material encrypted by a KMS keeper and decrypts it on demand; caching is the
// KeyStore's concern.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	cryptoService "github.com/allisson/robert/internal/crypto/service"
	apperrors "github.com/allisson/robert/internal/errors"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// fileDocument is the on-disk keystore layout.
type fileDocument struct {
	Entries []fileEntry `json:"entries"`
}

type fileEntry struct {
	ID           string    `json:"id"`
	Alias        string    `json:"alias"`
	EncryptedKey []byte    `json:"encrypted_key"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileProvider serves keys from a JSON keystore document loaded once at construction.
type FileProvider struct {
	keeper  cryptoService.Keeper
	entries map[string][]byte
}

// NewFileProvider reads the keystore document at path. The provider takes ownership
// of keeper and closes it on Close.
func NewFileProvider(path string, keeper cryptoService.Keeper) (*FileProvider, error) {
	doc, err := readFileDocument(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Wrapf(keystoreDomain.ErrCryptoFailure, "keystore document %s not found", path)
		}
		return nil, err
	}

	entries := make(map[string][]byte, len(doc.Entries))
	for _, entry := range doc.Entries {
		entries[entry.Alias] = entry.EncryptedKey
	}

	return &FileProvider{keeper: keeper, entries: entries}, nil
}

// GetKey decrypts the entry stored under alias.
func (f *FileProvider) GetKey(ctx context.Context, alias string) ([]byte, error) {
	encrypted, ok := f.entries[alias]
	if !ok {
		return nil, keystoreDomain.ErrKeyNotFound
	}
	return unwrap(ctx, f.keeper, alias, encrypted)
}

// ContainsAlias reports whether the document holds alias.
func (f *FileProvider) ContainsAlias(_ context.Context, alias string) (bool, error) {
	_, ok := f.entries[alias]
	return ok, nil
}

// Close releases the KMS keeper.
func (f *FileProvider) Close() error {
	return f.keeper.Close()
}

// FileEntryWriter appends provisioned entries to a JSON keystore document.
type FileEntryWriter struct {
	path string
	mu   sync.Mutex
}

// NewFileEntryWriter creates a writer for the document at path. The file is created
// on first write.
func NewFileEntryWriter(path string) *FileEntryWriter {
	return &FileEntryWriter{path: path}
}

// ContainsAlias reports whether the document already holds alias. A missing document
// holds nothing.
func (w *FileEntryWriter) ContainsAlias(_ context.Context, alias string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, err := readFileDocument(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	for _, entry := range doc.Entries {
		if entry.Alias == alias {
			return true, nil
		}
	}
	return false, nil
}

// Write appends entries. The whole batch is rejected with ErrAliasExists if any alias
// is already present, and the document is replaced atomically.
func (w *FileEntryWriter) Write(_ context.Context, entries []*keystoreDomain.KeyEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, err := readFileDocument(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if doc == nil {
		doc = &fileDocument{}
	}

	existing := make(map[string]struct{}, len(doc.Entries))
	for _, entry := range doc.Entries {
		existing[entry.Alias] = struct{}{}
	}

	for _, entry := range entries {
		if _, ok := existing[entry.Alias]; ok {
			return apperrors.Wrapf(keystoreDomain.ErrAliasExists, "alias %s", entry.Alias)
		}
		existing[entry.Alias] = struct{}{}
		doc.Entries = append(doc.Entries, fileEntry{
			ID:           entry.ID.String(),
			Alias:        entry.Alias,
			EncryptedKey: entry.EncryptedKey,
			CreatedAt:    entry.CreatedAt,
		})
	}

	return writeFileDocument(w.path, doc)
}

func readFileDocument(path string) (*fileDocument, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied keystore path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, "invalid keystore document")
	}
	return &doc, nil
}

func writeFileDocument(path string, doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "failed to encode keystore document")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".keystore-*")
	if err != nil {
		return apperrors.Wrap(err, "failed to create keystore document")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return apperrors.Wrap(err, "failed to write keystore document")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return apperrors.Wrap(err, "failed to write keystore document")
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(err, "failed to write keystore document")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.Wrap(err, "failed to replace keystore document")
	}
	return nil
}

// unwrap decrypts encrypted with keeper, mapping any failure to ErrCryptoFailure.
func unwrap(ctx context.Context, keeper cryptoService.Keeper, alias string, encrypted []byte) ([]byte, error) {
	key, err := keeper.Decrypt(ctx, encrypted)
	if err != nil {
		return nil, apperrors.Wrapf(keystoreDomain.ErrCryptoFailure, "failed to unwrap %s", alias)
	}
	return key, nil
}
