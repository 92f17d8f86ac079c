package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/robert/internal/database"
	apperrors "github.com/allisson/robert/internal/errors"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

const mysqlDuplicateEntry = 1062

// MySQLKeyEntryRepository stores keystore entries in MySQL using a BINARY(16) id
// and BLOB key material.
type MySQLKeyEntryRepository struct {
	db *sql.DB
}

// Create inserts entry. A duplicate alias yields ErrAliasExists.
func (m *MySQLKeyEntryRepository) Create(ctx context.Context, entry *keystoreDomain.KeyEntry) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO keystore_entries (id, alias, encrypted_key, created_at) VALUES (?, ?, ?, ?)`

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal keystore entry id")
	}

	_, err = querier.ExecContext(ctx, query, id, entry.Alias, entry.EncryptedKey, entry.CreatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return keystoreDomain.ErrAliasExists
		}
		return apperrors.Wrap(err, "failed to create keystore entry")
	}
	return nil
}

// GetByAlias returns the entry stored under alias or ErrKeyNotFound.
func (m *MySQLKeyEntryRepository) GetByAlias(
	ctx context.Context,
	alias string,
) (*keystoreDomain.KeyEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, alias, encrypted_key, created_at FROM keystore_entries WHERE alias = ?`

	var entry keystoreDomain.KeyEntry
	var id []byte
	err := querier.QueryRowContext(ctx, query, alias).Scan(
		&id,
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

	entry.ID, err = uuid.FromBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal keystore entry id")
	}
	return &entry, nil
}

// ExistsByAlias reports whether an entry is stored under alias.
func (m *MySQLKeyEntryRepository) ExistsByAlias(ctx context.Context, alias string) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS(SELECT 1 FROM keystore_entries WHERE alias = ?)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, alias).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check keystore entry")
	}
	return exists, nil
}

// NewMySQLKeyEntryRepository creates a new MySQL keystore entry repository.
func NewMySQLKeyEntryRepository(db *sql.DB) *MySQLKeyEntryRepository {
	return &MySQLKeyEntryRepository{db: db}
}
