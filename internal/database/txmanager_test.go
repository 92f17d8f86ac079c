package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestWithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM registrations").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			_, err := GetTx(ctx, db).ExecContext(ctx, "DELETE FROM registrations WHERE ida = $1", []byte("idA01"))
			return err
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := NewTxManager(db).WithTx(context.Background(), func(context.Context) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeps fn error when rollback fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		rbErr := errors.New("connection reset")
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(rbErr)

		err := NewTxManager(db).WithTx(context.Background(), func(context.Context) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorIs(t, err, rbErr)
	})

	t.Run("begin failure skips fn", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(assert.AnError)

		called := false
		err := NewTxManager(db).WithTx(context.Background(), func(context.Context) error {
			called = true
			return nil
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, called)
	})

	t.Run("commit failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(assert.AnError)

		err := NewTxManager(db).WithTx(context.Background(), func(context.Context) error { return nil })

		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("rolls back and repanics", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = NewTxManager(db).WithTx(context.Background(), func(context.Context) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins the outer transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		txManager := NewTxManager(db)
		err := txManager.WithTx(context.Background(), func(outer context.Context) error {
			return txManager.WithTx(outer, func(inner context.Context) error {
				assert.Same(t, GetTx(outer, db), GetTx(inner, db))
				return nil
			})
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetTxWithoutTransaction(t *testing.T) {
	db, _ := newMockDB(t)

	assert.Same(t, db, GetTx(context.Background(), db))
}
