package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newEntry() *keystoreDomain.KeyEntry {
	return &keystoreDomain.KeyEntry{
		ID:           uuid.Must(uuid.NewV7()),
		Alias:        "server-key-20200601",
		EncryptedKey: []byte("wrapped"),
		CreatedAt:    time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPostgreSQLKeyEntryRepository_Create(t *testing.T) {
	insert := regexp.QuoteMeta(`INSERT INTO keystore_entries (id, alias, encrypted_key, created_at) VALUES ($1, $2, $3, $4)`)

	t.Run("success", func(t *testing.T) {
		db, mock := newMockDB(t)
		entry := newEntry()
		mock.ExpectExec(insert).
			WithArgs(entry.ID, entry.Alias, entry.EncryptedKey, entry.CreatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := NewPostgreSQLKeyEntryRepository(db).Create(context.Background(), entry)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate alias", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(insert).WillReturnError(&pq.Error{Code: "23505"})

		err := NewPostgreSQLKeyEntryRepository(db).Create(context.Background(), newEntry())
		assert.ErrorIs(t, err, keystoreDomain.ErrAliasExists)
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(insert).WillReturnError(assert.AnError)

		err := NewPostgreSQLKeyEntryRepository(db).Create(context.Background(), newEntry())
		assert.ErrorIs(t, err, assert.AnError)
		assert.NotErrorIs(t, err, keystoreDomain.ErrAliasExists)
	})
}

func TestPostgreSQLKeyEntryRepository_GetByAlias(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT id, alias, encrypted_key, created_at FROM keystore_entries WHERE alias = $1`)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		entry := newEntry()
		rows := sqlmock.NewRows([]string{"id", "alias", "encrypted_key", "created_at"}).
			AddRow(entry.ID.String(), entry.Alias, entry.EncryptedKey, entry.CreatedAt)
		mock.ExpectQuery(query).WithArgs(entry.Alias).WillReturnRows(rows)

		got, err := NewPostgreSQLKeyEntryRepository(db).GetByAlias(context.Background(), entry.Alias)
		require.NoError(t, err)
		assert.Equal(t, entry, got)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(query).WillReturnError(sql.ErrNoRows)

		_, err := NewPostgreSQLKeyEntryRepository(db).GetByAlias(context.Background(), "federation-key")
		assert.ErrorIs(t, err, keystoreDomain.ErrKeyNotFound)
	})
}

func TestPostgreSQLKeyEntryRepository_ExistsByAlias(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM keystore_entries WHERE alias = $1)`)).
		WithArgs("federation-key").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := NewPostgreSQLKeyEntryRepository(db).ExistsByAlias(context.Background(), "federation-key")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMySQLKeyEntryRepository_Create(t *testing.T) {
	insert := regexp.QuoteMeta(`INSERT INTO keystore_entries (id, alias, encrypted_key, created_at) VALUES (?, ?, ?, ?)`)

	t.Run("success", func(t *testing.T) {
		db, mock := newMockDB(t)
		entry := newEntry()
		id, err := entry.ID.MarshalBinary()
		require.NoError(t, err)
		mock.ExpectExec(insert).
			WithArgs(id, entry.Alias, entry.EncryptedKey, entry.CreatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err = NewMySQLKeyEntryRepository(db).Create(context.Background(), entry)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate alias", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(insert).WillReturnError(&mysql.MySQLError{Number: 1062})

		err := NewMySQLKeyEntryRepository(db).Create(context.Background(), newEntry())
		assert.ErrorIs(t, err, keystoreDomain.ErrAliasExists)
	})
}

func TestMySQLKeyEntryRepository_GetByAlias(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT id, alias, encrypted_key, created_at FROM keystore_entries WHERE alias = ?`)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		entry := newEntry()
		id, err := entry.ID.MarshalBinary()
		require.NoError(t, err)
		rows := sqlmock.NewRows([]string{"id", "alias", "encrypted_key", "created_at"}).
			AddRow(id, entry.Alias, entry.EncryptedKey, entry.CreatedAt)
		mock.ExpectQuery(query).WithArgs(entry.Alias).WillReturnRows(rows)

		got, err := NewMySQLKeyEntryRepository(db).GetByAlias(context.Background(), entry.Alias)
		require.NoError(t, err)
		assert.Equal(t, entry, got)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(query).WillReturnError(sql.ErrNoRows)

		_, err := NewMySQLKeyEntryRepository(db).GetByAlias(context.Background(), "register-key")
		assert.ErrorIs(t, err, keystoreDomain.ErrKeyNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM keystore_entries WHERE alias = ?)`)).
			WithArgs("register-key").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := NewMySQLKeyEntryRepository(db).ExistsByAlias(context.Background(), "register-key")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
