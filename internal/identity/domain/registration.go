package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/robert/internal/crypto/domain"
)

// Registration is the server-side record of an anonymous identity. Per-identity
// secrets are held only in KEK-wrapped form.
type Registration struct {
	ID              uuid.UUID
	IDA             IDA
	KeyForMac       cryptoDomain.WrappedKey
	KeyForTuples    cryptoDomain.WrappedKey
	AtRisk          bool
	ExposedEpochs   []uint32
	LastStatusEpoch uint32
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RegisterInput carries an optional client P-256 public key (uncompressed SEC1).
// Without it the server draws K_M and K_A at random and returns them.
type RegisterInput struct {
	ClientPublicKey []byte
}

// RegisterOutput is returned once to the registering client.
type RegisterOutput struct {
	IDA IDA
	// KeyForMac and KeyForTuples are nil when keys were agreed through ECDH.
	KeyForMac       []byte
	KeyForTuples    []byte
	ServerPublicKey []byte
	TupleBundle     EncryptedTupleBundle
	// ServiceTimeStart is epoch 0 in NTP seconds.
	ServiceTimeStart int64
}

// StatusOutput answers an authenticated status request.
type StatusOutput struct {
	AtRisk      bool
	TupleBundle EncryptedTupleBundle
}
