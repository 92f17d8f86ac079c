package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/robert/internal/database"
	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
)

const mysqlDuplicateEntry = 1062

// MySQLRegistrationRepository stores registrations in MySQL using a BINARY(16) id and
// a unique BINARY(5) idA.
type MySQLRegistrationRepository struct {
	db *sql.DB
}

// Create inserts registration. An idA collision yields ErrIdentityExists.
func (m *MySQLRegistrationRepository) Create(
	ctx context.Context,
	registration *identityDomain.Registration,
) error {
	querier := database.GetTx(ctx, m.db)

	if registration.KeyForMac.Algorithm != registration.KeyForTuples.Algorithm {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "wrapped keys must share one algorithm")
	}
	id, err := registration.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal registration id")
	}
	exposed, err := encodeExposedEpochs(registration.ExposedEpochs)
	if err != nil {
		return err
	}

	query := `INSERT INTO registrations (id, ida, key_algorithm, key_for_mac, key_for_mac_nonce,
			  key_for_tuples, key_for_tuples_nonce, at_risk, exposed_epochs, last_status_epoch,
			  created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		registration.IDA[:],
		string(registration.KeyForMac.Algorithm),
		registration.KeyForMac.Ciphertext,
		registration.KeyForMac.Nonce,
		registration.KeyForTuples.Ciphertext,
		registration.KeyForTuples.Nonce,
		registration.AtRisk,
		exposed,
		registration.LastStatusEpoch,
		registration.CreatedAt,
		registration.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return identityDomain.ErrIdentityExists
		}
		return apperrors.Wrap(err, "failed to create registration")
	}
	return nil
}

// FindByIDA returns the registration of idA or ErrRegistrationNotFound.
func (m *MySQLRegistrationRepository) FindByIDA(
	ctx context.Context,
	idA identityDomain.IDA,
) (*identityDomain.Registration, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, key_algorithm, key_for_mac, key_for_mac_nonce, key_for_tuples,
			  key_for_tuples_nonce, at_risk, exposed_epochs, last_status_epoch, created_at, updated_at
			  FROM registrations WHERE ida = ?`

	registration := identityDomain.Registration{IDA: idA}
	var cols wrappedColumns
	var id []byte
	err := querier.QueryRowContext(ctx, query, idA[:]).Scan(
		&id,
		&cols.algorithm,
		&cols.macCiphertext,
		&cols.macNonce,
		&cols.tuplesCiphertext,
		&cols.tuplesNonce,
		&registration.AtRisk,
		&cols.exposedEpochsJSON,
		&registration.LastStatusEpoch,
		&registration.CreatedAt,
		&registration.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identityDomain.ErrRegistrationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to find registration")
	}

	registration.ID, err = uuid.FromBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal registration id")
	}
	registration.KeyForMac, registration.KeyForTuples = cols.keys()
	if registration.ExposedEpochs, err = decodeExposedEpochs(cols.exposedEpochsJSON); err != nil {
		return nil, err
	}
	return &registration, nil
}

// Update persists the mutable fields of registration: risk flag, exposed epochs and
// last status epoch.
func (m *MySQLRegistrationRepository) Update(
	ctx context.Context,
	registration *identityDomain.Registration,
) error {
	querier := database.GetTx(ctx, m.db)

	exposed, err := encodeExposedEpochs(registration.ExposedEpochs)
	if err != nil {
		return err
	}

	query := `UPDATE registrations SET at_risk = ?, exposed_epochs = ?, last_status_epoch = ?,
			  updated_at = ? WHERE ida = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		registration.AtRisk,
		exposed,
		registration.LastStatusEpoch,
		registration.UpdatedAt,
		registration.IDA[:],
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update registration")
	}

	// MySQL reports changed rows, not matched rows, so an unchanged record reads as zero.
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		if _, err := m.FindByIDA(ctx, registration.IDA); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByIDA removes the registration of idA.
func (m *MySQLRegistrationRepository) DeleteByIDA(ctx context.Context, idA identityDomain.IDA) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM registrations WHERE ida = ?`, idA[:])
	if err != nil {
		return apperrors.Wrap(err, "failed to delete registration")
	}
	return requireOneRow(result)
}

// NewMySQLRegistrationRepository creates a new MySQL registration repository.
func NewMySQLRegistrationRepository(db *sql.DB) *MySQLRegistrationRepository {
	return &MySQLRegistrationRepository{db: db}
}
