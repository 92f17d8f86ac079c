package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	keystoreUseCase "github.com/allisson/robert/internal/keystore/usecase"
)

// RunProvisionKeys generates the federation key, the KEK, the identity key pair and a
// window of day keys, and stores them KMS-wrapped in the configured keystore. The
// window starts pastDays before startDate (YYYY-MM-DD, today when empty) and spans
// pastDays+days days. Aliases already present are left untouched, so the command can
// run on a schedule to extend the window.
//
// Requirements: KMS_KEY_URI must be set; the sql provider also needs a migrated database.
func RunProvisionKeys(
	ctx context.Context,
	provisionUseCase keystoreUseCase.ProvisionUseCase,
	logger *slog.Logger,
	writer io.Writer,
	now time.Time,
	startDate string,
	pastDays int,
	days int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if pastDays < 0 {
		return fmt.Errorf("past-days must not be negative, got: %d", pastDays)
	}
	if days < 1 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	start := now.UTC()
	if startDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", startDate, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid start date %q (expected YYYY-MM-DD): %w", startDate, err)
		}
		start = parsed
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -pastDays)

	logger.Info("provisioning keystore",
		slog.String("start", start.Format("2006-01-02")),
		slog.Int("days", pastDays+days),
	)

	output, err := provisionUseCase.Provision(ctx, &keystoreUseCase.ProvisionInput{
		Start: start,
		Days:  pastDays + days,
	})
	if err != nil {
		return fmt.Errorf("failed to provision keys: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"created": nonNil(output.Created),
			"skipped": nonNil(output.Skipped),
		})
	}

	_, _ = fmt.Fprintf(writer, "Created %d key(s)\n", len(output.Created))
	for _, alias := range output.Created {
		_, _ = fmt.Fprintf(writer, "  + %s\n", alias)
	}
	_, _ = fmt.Fprintf(writer, "Skipped %d existing key(s)\n", len(output.Skipped))
	return nil
}

func nonNil(aliases []string) []string {
	if aliases == nil {
		return []string{}
	}
	return aliases
}
