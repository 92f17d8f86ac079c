package usecase

import (
	"context"
	"time"

	apperrors "github.com/allisson/robert/internal/errors"
	identityDomain "github.com/allisson/robert/internal/identity/domain"
	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	"github.com/allisson/robert/internal/metrics"
)

const metricsDomain = "identity"

// RejectionReason maps an identity error to the status label used in metrics and logs.
// The label keeps the internal distinction even when the HTTP layer collapses it.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.Is(err, identityDomain.ErrTimeDriftExceeded):
		return "time_drift"
	case apperrors.Is(err, identityDomain.ErrUnknownIdentity):
		return "unknown_identity"
	case apperrors.Is(err, identityDomain.ErrMacMismatch):
		return "mac_mismatch"
	case apperrors.Is(err, keystoreDomain.ErrCryptoFailure):
		return "crypto_failure"
	default:
		return "error"
	}
}

// identityUseCaseWithMetrics decorates IdentityUseCase with metrics instrumentation.
type identityUseCaseWithMetrics struct {
	next    IdentityUseCase
	metrics metrics.BusinessMetrics
}

// NewIdentityUseCaseWithMetrics wraps an IdentityUseCase with metrics recording.
func NewIdentityUseCaseWithMetrics(useCase IdentityUseCase, m metrics.BusinessMetrics) IdentityUseCase {
	return &identityUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (d *identityUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := RejectionReason(err)
	d.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	d.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Register records metrics for registrations.
func (d *identityUseCaseWithMetrics) Register(
	ctx context.Context,
	input *identityDomain.RegisterInput,
) (*identityDomain.RegisterOutput, error) {
	start := time.Now()
	output, err := d.next.Register(ctx, input)
	d.record(ctx, "register", start, err)
	return output, err
}

// Status records metrics for status requests.
func (d *identityUseCaseWithMetrics) Status(
	ctx context.Context,
	req *identityDomain.AuthRequest,
) (*identityDomain.StatusOutput, error) {
	start := time.Now()
	output, err := d.next.Status(ctx, req)
	d.record(ctx, "status", start, err)
	return output, err
}

// Unregister records metrics for unregistrations.
func (d *identityUseCaseWithMetrics) Unregister(ctx context.Context, req *identityDomain.AuthRequest) error {
	start := time.Now()
	err := d.next.Unregister(ctx, req)
	d.record(ctx, "unregister", start, err)
	return err
}

// DeleteHistory records metrics for exposure history deletions.
func (d *identityUseCaseWithMetrics) DeleteHistory(ctx context.Context, req *identityDomain.AuthRequest) error {
	start := time.Now()
	err := d.next.DeleteHistory(ctx, req)
	d.record(ctx, "delete_history", start, err)
	return err
}
