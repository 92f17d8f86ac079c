package usecase

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
	cryptoService "github.com/allisson/robert/internal/crypto/service"
	apperrors "github.com/allisson/robert/internal/errors"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
)

type provisionUseCase struct {
	writer keystoreDomain.KeyEntryWriter
	keeper cryptoService.Keeper
	logger *slog.Logger
}

// NewProvisionUseCase creates a ProvisionUseCase writing through writer with entries
// encrypted by keeper.
func NewProvisionUseCase(
	writer keystoreDomain.KeyEntryWriter,
	keeper cryptoService.Keeper,
	logger *slog.Logger,
) ProvisionUseCase {
	return &provisionUseCase{writer: writer, keeper: keeper, logger: logger}
}

// Provision creates the federation key, the KEK, the identity key pair and Days day
// keys from Start, skipping every alias already present. Entries are written in one
// batch.
func (p *provisionUseCase) Provision(ctx context.Context, input *ProvisionInput) (*ProvisionOutput, error) {
	if input.Days < 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "days must not be negative")
	}

	generators := []struct {
		alias    string
		generate func() ([]byte, error)
	}{
		{keystoreDomain.AliasFederationKey, randomKey(cryptoDomain.FederationKeySize)},
		{keystoreDomain.AliasKeyEncryptionKey, randomKey(cryptoDomain.AEADKeySize)},
		{keystoreDomain.AliasIdentityKey, keystoreDomain.GenerateIdentityKeyPair},
	}
	start := input.Start.UTC()
	for i := 0; i < input.Days; i++ {
		generators = append(generators, struct {
			alias    string
			generate func() ([]byte, error)
		}{keystoreDomain.DayKeyAlias(start.AddDate(0, 0, i)), randomKey(cryptoDomain.DayKeySize)})
	}

	output := &ProvisionOutput{}
	var entries []*keystoreDomain.KeyEntry

	for _, g := range generators {
		exists, err := p.writer.ContainsAlias(ctx, g.alias)
		if err != nil {
			return nil, err
		}
		if exists {
			output.Skipped = append(output.Skipped, g.alias)
			continue
		}

		entry, err := p.newEntry(ctx, g.alias, g.generate)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		output.Created = append(output.Created, g.alias)
	}

	if len(entries) > 0 {
		if err := p.writer.Write(ctx, entries); err != nil {
			return nil, err
		}
	}

	p.logger.Info("keystore provisioned",
		slog.Int("created", len(output.Created)),
		slog.Int("skipped", len(output.Skipped)),
	)
	return output, nil
}

func (p *provisionUseCase) newEntry(
	ctx context.Context,
	alias string,
	generate func() ([]byte, error),
) (*keystoreDomain.KeyEntry, error) {
	key, err := generate()
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	encrypted, err := p.keeper.Encrypt(ctx, key)
	if err != nil {
		return nil, apperrors.Wrapf(keystoreDomain.ErrCryptoFailure, "failed to wrap %s", alias)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate key entry id")
	}

	return &keystoreDomain.KeyEntry{
		ID:           id,
		Alias:        alias,
		EncryptedKey: encrypted,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func randomKey(size int) func() ([]byte, error) {
	return func() ([]byte, error) {
		key := make([]byte, size)
		if _, err := rand.Read(key); err != nil {
			return nil, apperrors.Wrap(keystoreDomain.ErrCryptoFailure, err.Error())
		}
		return key, nil
	}
}
