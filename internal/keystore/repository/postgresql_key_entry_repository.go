// Package repository implements SQL persistence of keystore entries for PostgreSQL
// and MySQL. Entries hold KMS-encrypted key material indexed by alias; the SQL
// keystore provider reads them and the provisioning use case writes them.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/allisson/robert/internal/database"
	apperrors "github.com/allisson/robert/internal/errors"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

const pgUniqueViolation = "23505"

// PostgreSQLKeyEntryRepository stores keystore entries in PostgreSQL using a native
// UUID id and BYTEA key material.
type PostgreSQLKeyEntryRepository struct {
	db *sql.DB
}

// Create inserts entry. A duplicate alias yields ErrAliasExists.
func (p *PostgreSQLKeyEntryRepository) Create(ctx context.Context, entry *keystoreDomain.KeyEntry) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO keystore_entries (id, alias, encrypted_key, created_at) VALUES ($1, $2, $3, $4)`

	_, err := querier.ExecContext(ctx, query, entry.ID, entry.Alias, entry.EncryptedKey, entry.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return keystoreDomain.ErrAliasExists
		}
		return apperrors.Wrap(err, "failed to create keystore entry")
	}
	return nil
}

// GetByAlias returns the entry stored under alias or ErrKeyNotFound.
func (p *PostgreSQLKeyEntryRepository) GetByAlias(
	ctx context.Context,
	alias string,
) (*keystoreDomain.KeyEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, alias, encrypted_key, created_at FROM keystore_entries WHERE alias = $1`

	var entry keystoreDomain.KeyEntry
	err := querier.QueryRowContext(ctx, query, alias).Scan(
		&entry.ID,
		&entry.Alias,
		&entry.EncryptedKey,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keystoreDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get keystore entry")
	}
	return &entry, nil
}

// ExistsByAlias reports whether an entry is stored under alias.
func (p *PostgreSQLKeyEntryRepository) ExistsByAlias(ctx context.Context, alias string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS(SELECT 1 FROM keystore_entries WHERE alias = $1)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, alias).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check keystore entry")
	}
	return exists, nil
}

// NewPostgreSQLKeyEntryRepository creates a new PostgreSQL keystore entry repository.
func NewPostgreSQLKeyEntryRepository(db *sql.DB) *PostgreSQLKeyEntryRepository {
	return &PostgreSQLKeyEntryRepository{db: db}
}
