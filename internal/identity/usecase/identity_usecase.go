package usecase

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	cryptoService "github.com/allisson/robert/internal/crypto/service"
	"github.com/allisson/robert/internal/database"
	"github.com/allisson/robert/internal/epoch"
	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

// maxRegisterAttempts bounds the retries on idA collisions.
const maxRegisterAttempts = 5

// HKDF info labels separating the keys agreed through ECDH.
var (
	hkdfInfoMac    = []byte("mac")
	hkdfInfoTuples = []byte("tuples")
)

// Config holds the protocol parameters of the identity use cases.
type Config struct {
	KeyAlgorithm    cryptoDomain.Algorithm
	TupleBundleDays int
}

type identityUseCase struct {
	txManager     database.TxManager
	repo          RegistrationRepository
	keys          KeySource
	authenticator Authenticator
	generator     BundleGenerator
	keyWrapper    cryptoService.KeyWrapper
	clock         *epoch.Clock
	config        Config
	logger        *slog.Logger
}

// NewIdentityUseCase creates a new IdentityUseCase.
func NewIdentityUseCase(
	txManager database.TxManager,
	repo RegistrationRepository,
	keys KeySource,
	authenticator Authenticator,
	generator BundleGenerator,
	keyWrapper cryptoService.KeyWrapper,
	clock *epoch.Clock,
	config Config,
	logger *slog.Logger,
) IdentityUseCase {
	return &identityUseCase{
		txManager:     txManager,
		repo:          repo,
		keys:          keys,
		authenticator: authenticator,
		generator:     generator,
		keyWrapper:    keyWrapper,
		clock:         clock,
		config:        config,
		logger:        logger,
	}
}

// Register draws K_M and K_A (or agrees them through ECDH when the client sends a
// public key), stores them KEK-wrapped under a fresh idA and returns the first tuple
// bundle. The registration and the bundle succeed or fail together.
func (u *identityUseCase) Register(
	ctx context.Context,
	input *identityDomain.RegisterInput,
) (*identityDomain.RegisterOutput, error) {
	keys, release := u.keys.Snapshot()
	defer release()

	output := &identityDomain.RegisterOutput{
		ServiceTimeStart: epoch.NTPSeconds(u.clock.ServiceTimeStart()),
	}

	var macKey, tuplesKey []byte
	var err error
	if len(input.ClientPublicKey) > 0 {
		macKey, tuplesKey, output.ServerPublicKey, err = u.agreeKeys(ctx, keys, input.ClientPublicKey)
	} else {
		macKey, tuplesKey, err = randomKeys()
	}
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(tuplesKey)
	defer cryptoDomain.Zero(macKey)

	kek, err := keys.KeyEncryptionKey(ctx)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(kek)

	wrappedMac, err := u.keyWrapper.Wrap(kek, u.config.KeyAlgorithm, macKey)
	if err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	wrappedTuples, err := u.keyWrapper.Wrap(kek, u.config.KeyAlgorithm, tuplesKey)
	if err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}

	currentEpoch := u.clock.CurrentEpoch()
	for attempt := 1; ; attempt++ {
		idA, err := identityDomain.NewIDA()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		registration := &identityDomain.Registration{
			ID:              uuid.Must(uuid.NewV7()),
			IDA:             idA,
			KeyForMac:       wrappedMac,
			KeyForTuples:    wrappedTuples,
			LastStatusEpoch: currentEpoch,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
			if err := u.repo.Create(txCtx, registration); err != nil {
				return err
			}
			bundle, err := u.generator.Generate(
				txCtx, keys, idA, tuplesKey, currentEpoch, u.config.TupleBundleDays,
			)
			if err != nil {
				return err
			}
			output.TupleBundle = bundle
			return nil
		})
		if apperrors.Is(err, identityDomain.ErrIdentityExists) && attempt < maxRegisterAttempts {
			u.logger.Warn("idA collision, retrying registration", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		output.IDA = idA
		break
	}

	if output.ServerPublicKey == nil {
		output.KeyForMac = append([]byte(nil), macKey...)
		output.KeyForTuples = append([]byte(nil), tuplesKey...)
	}
	return output, nil
}

// agreeKeys runs ECDH between the server identity key and clientPublicKey and derives
// K_M and K_A with HKDF-SHA256.
func (u *identityUseCase) agreeKeys(
	ctx context.Context,
	keys keystoreDomain.Keys,
	clientPublicKey []byte,
) (macKey, tuplesKey, serverPublicKey []byte, err error) {
	peer, err := ecdh.P256().NewPublicKey(clientPublicKey)
	if err != nil {
		return nil, nil, nil, identityDomain.ErrInvalidPublicKey
	}

	keyPair, err := keys.IdentityKeyPair(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	shared, err := keyPair.Private.ECDH(peer)
	if err != nil {
		return nil, nil, nil, identityDomain.ErrInvalidPublicKey
	}
	defer cryptoDomain.Zero(shared)

	macKey, err = deriveKey(shared, hkdfInfoMac)
	if err != nil {
		return nil, nil, nil, err
	}
	tuplesKey, err = deriveKey(shared, hkdfInfoTuples)
	if err != nil {
		cryptoDomain.Zero(macKey)
		return nil, nil, nil, err
	}
	return macKey, tuplesKey, keyPair.PublicKey(), nil
}

func deriveKey(shared, info []byte) ([]byte, error) {
	key := make([]byte, cryptoDomain.AEADKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, info), key); err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	return key, nil
}

func randomKeys() ([]byte, []byte, error) {
	macKey := make([]byte, cryptoDomain.AEADKeySize)
	tuplesKey := make([]byte, cryptoDomain.AEADKeySize)
	if _, err := rand.Read(macKey); err != nil {
		return nil, nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	if _, err := rand.Read(tuplesKey); err != nil {
		return nil, nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
	}
	return macKey, tuplesKey, nil
}

// Status authenticates a status request, records the request epoch and returns the
// risk flag with a fresh tuple bundle.
func (u *identityUseCase) Status(
	ctx context.Context,
	req *identityDomain.AuthRequest,
) (*identityDomain.StatusOutput, error) {
	keys, release := u.keys.Snapshot()
	defer release()

	result, err := u.authenticate(ctx, keys, req, identityDomain.PurposeStatus)
	if err != nil {
		return nil, err
	}
	registration := result.Registration

	kek, err := keys.KeyEncryptionKey(ctx)
	if err != nil {
		return nil, err
	}
	tuplesKey, err := u.keyWrapper.Unwrap(kek, registration.KeyForTuples)
	cryptoDomain.Zero(kek)
	if err != nil {
		return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, "failed to unwrap tuples key")
	}
	defer cryptoDomain.Zero(tuplesKey)

	bundle, err := u.generator.Generate(
		ctx, keys, result.IDA, tuplesKey, u.clock.CurrentEpoch(), u.config.TupleBundleDays,
	)
	if err != nil {
		return nil, err
	}

	registration.LastStatusEpoch = result.EpochID
	registration.UpdatedAt = time.Now().UTC()
	if err := u.repo.Update(ctx, registration); err != nil {
		return nil, err
	}

	return &identityDomain.StatusOutput{
		AtRisk:      registration.AtRisk,
		TupleBundle: bundle,
	}, nil
}

// Unregister authenticates the request and deletes the registration.
func (u *identityUseCase) Unregister(ctx context.Context, req *identityDomain.AuthRequest) error {
	keys, release := u.keys.Snapshot()
	defer release()

	result, err := u.authenticate(ctx, keys, req, identityDomain.PurposeUnregister)
	if err != nil {
		return err
	}
	return u.repo.DeleteByIDA(ctx, result.IDA)
}

// DeleteHistory authenticates the request and clears the exposed epoch history.
func (u *identityUseCase) DeleteHistory(ctx context.Context, req *identityDomain.AuthRequest) error {
	keys, release := u.keys.Snapshot()
	defer release()

	result, err := u.authenticate(ctx, keys, req, identityDomain.PurposeDeleteHistory)
	if err != nil {
		return err
	}

	registration := result.Registration
	registration.ExposedEpochs = nil
	registration.UpdatedAt = time.Now().UTC()
	return u.repo.Update(ctx, registration)
}

// authenticate verifies req under the MAC salt of purpose, whatever the caller set.
func (u *identityUseCase) authenticate(
	ctx context.Context,
	keys keystoreDomain.Keys,
	req *identityDomain.AuthRequest,
	purpose identityDomain.Purpose,
) (*identityDomain.AuthResult, error) {
	pinned := *req
	pinned.Purpose = purpose

	result, err := u.authenticator.Authenticate(ctx, keys, &pinned)
	if err != nil {
		u.logger.Debug("request rejected",
			slog.String("purpose", purpose.String()),
			slog.String("reason", RejectionReason(err)),
		)
		return nil, err
	}
	return result, nil
}
