package provider

import (
	"context"
	"errors"

	cryptoService "github.com/allisson/robert/internal/crypto/service"
	"github.com/allisson/robert/internal/database"
	apperrors "github.com/allisson/robert/internal/errors"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// KeyEntryRepository is the persistence used by the SQL provider and writer.
type KeyEntryRepository interface {
	Create(ctx context.Context, entry *keystoreDomain.KeyEntry) error
	GetByAlias(ctx context.Context, alias string) (*keystoreDomain.KeyEntry, error)
	ExistsByAlias(ctx context.Context, alias string) (bool, error)
}

// SQLProvider serves keys from the keystore_entries table.
type SQLProvider struct {
	keeper cryptoService.Keeper
	repo   KeyEntryRepository
}

// NewSQLProvider creates a provider reading through repo. The provider owns keeper;
// the database handle stays owned by the caller.
func NewSQLProvider(repo KeyEntryRepository, keeper cryptoService.Keeper) *SQLProvider {
	return &SQLProvider{keeper: keeper, repo: repo}
}

// GetKey loads and decrypts the entry stored under alias.
func (s *SQLProvider) GetKey(ctx context.Context, alias string) ([]byte, error) {
	entry, err := s.repo.GetByAlias(ctx, alias)
	if err != nil {
		if errors.Is(err, keystoreDomain.ErrKeyNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	return unwrap(ctx, s.keeper, alias, entry.EncryptedKey)
}

// ContainsAlias reports whether an entry exists for alias.
func (s *SQLProvider) ContainsAlias(ctx context.Context, alias string) (bool, error) {
	exists, err := s.repo.ExistsByAlias(ctx, alias)
	if err != nil {
		return false, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	return exists, nil
}

// Close releases the KMS keeper.
func (s *SQLProvider) Close() error {
	return s.keeper.Close()
}

// SQLEntryWriter inserts provisioned entries in a single transaction.
type SQLEntryWriter struct {
	repo      KeyEntryRepository
	txManager database.TxManager
}

// NewSQLEntryWriter creates a SQLEntryWriter.
func NewSQLEntryWriter(repo KeyEntryRepository, txManager database.TxManager) *SQLEntryWriter {
	return &SQLEntryWriter{repo: repo, txManager: txManager}
}

// ContainsAlias reports whether an entry exists for alias.
func (w *SQLEntryWriter) ContainsAlias(ctx context.Context, alias string) (bool, error) {
	return w.repo.ExistsByAlias(ctx, alias)
}

// Write inserts entries atomically; a duplicate alias rolls back the whole batch.
func (w *SQLEntryWriter) Write(ctx context.Context, entries []*keystoreDomain.KeyEntry) error {
	return w.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for _, entry := range entries {
			if err := w.repo.Create(txCtx, entry); err != nil {
				return apperrors.Wrapf(err, "alias %s", entry.Alias)
			}
		}
		return nil
	})
}
