package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/allisson/robert/internal/database"
	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
)

const pgUniqueViolation = "23505"

// PostgreSQLRegistrationRepository stores registrations in PostgreSQL. The idA is a
// unique BYTEA column.
type PostgreSQLRegistrationRepository struct {
	db *sql.DB
}

// Create inserts registration. An idA collision yields ErrIdentityExists.
func (p *PostgreSQLRegistrationRepository) Create(
	ctx context.Context,
	registration *identityDomain.Registration,
) error {
	querier := database.GetTx(ctx, p.db)

	if registration.KeyForMac.Algorithm != registration.KeyForTuples.Algorithm {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "wrapped keys must share one algorithm")
	}
	exposed, err := encodeExposedEpochs(registration.ExposedEpochs)
	if err != nil {
		return err
	}

	query := `INSERT INTO registrations (id, ida, key_algorithm, key_for_mac, key_for_mac_nonce,
			  key_for_tuples, key_for_tuples_nonce, at_risk, exposed_epochs, last_status_epoch,
			  created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = querier.ExecContext(
		ctx,
		query,
		registration.ID,
		registration.IDA[:],
		string(registration.KeyForMac.Algorithm),
		registration.KeyForMac.Ciphertext,
		registration.KeyForMac.Nonce,
		registration.KeyForTuples.Ciphertext,
		registration.KeyForTuples.Nonce,
		registration.AtRisk,
		exposed,
		int64(registration.LastStatusEpoch),
		registration.CreatedAt,
		registration.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return identityDomain.ErrIdentityExists
		}
		return apperrors.Wrap(err, "failed to create registration")
	}
	return nil
}

// FindByIDA returns the registration of idA or ErrRegistrationNotFound.
func (p *PostgreSQLRegistrationRepository) FindByIDA(
	ctx context.Context,
	idA identityDomain.IDA,
) (*identityDomain.Registration, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, key_algorithm, key_for_mac, key_for_mac_nonce, key_for_tuples,
			  key_for_tuples_nonce, at_risk, exposed_epochs, last_status_epoch, created_at, updated_at
			  FROM registrations WHERE ida = $1`

	registration := identityDomain.Registration{IDA: idA}
	var cols wrappedColumns
	var lastStatusEpoch int64
	err := querier.QueryRowContext(ctx, query, idA[:]).Scan(
		&registration.ID,
		&cols.algorithm,
		&cols.macCiphertext,
		&cols.macNonce,
		&cols.tuplesCiphertext,
		&cols.tuplesNonce,
		&registration.AtRisk,
		&cols.exposedEpochsJSON,
		&lastStatusEpoch,
		&registration.CreatedAt,
		&registration.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identityDomain.ErrRegistrationNotFound
		}
		return nil, apperrors.Wrap(err, "failed to find registration")
	}

	registration.KeyForMac, registration.KeyForTuples = cols.keys()
	registration.LastStatusEpoch = uint32(lastStatusEpoch)
	if registration.ExposedEpochs, err = decodeExposedEpochs(cols.exposedEpochsJSON); err != nil {
		return nil, err
	}
	return &registration, nil
}

// Update persists the mutable fields of registration: risk flag, exposed epochs and
// last status epoch.
func (p *PostgreSQLRegistrationRepository) Update(
	ctx context.Context,
	registration *identityDomain.Registration,
) error {
	querier := database.GetTx(ctx, p.db)

	exposed, err := encodeExposedEpochs(registration.ExposedEpochs)
	if err != nil {
		return err
	}

	query := `UPDATE registrations SET at_risk = $1, exposed_epochs = $2, last_status_epoch = $3,
			  updated_at = $4 WHERE ida = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		registration.AtRisk,
		exposed,
		int64(registration.LastStatusEpoch),
		registration.UpdatedAt,
		registration.IDA[:],
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update registration")
	}
	return requireOneRow(result)
}

// DeleteByIDA removes the registration of idA.
func (p *PostgreSQLRegistrationRepository) DeleteByIDA(ctx context.Context, idA identityDomain.IDA) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM registrations WHERE ida = $1`, idA[:])
	if err != nil {
		return apperrors.Wrap(err, "failed to delete registration")
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if rows == 0 {
		return identityDomain.ErrRegistrationNotFound
	}
	return nil
}

// NewPostgreSQLRegistrationRepository creates a new PostgreSQL registration repository.
func NewPostgreSQLRegistrationRepository(db *sql.DB) *PostgreSQLRegistrationRepository {
	return &PostgreSQLRegistrationRepository{db: db}
}
