package commands

import (
	"fmt"
	"io"

	keystoreService "github.com/allisson/robert/internal/keystore/service"
)

// RunCreateAdminToken generates the operator token guarding the keystore reload
// endpoint. The plain token is shown once; servers are configured with its hash only.
func RunCreateAdminToken(tokenService keystoreService.AdminTokenService, writer io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	plainToken, hashedToken, err := tokenService.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate admin token: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]string{
			"token":      plainToken,
			"token_hash": hashedToken,
		})
	}

	_, _ = fmt.Fprintf(writer, "Token: %s\n", plainToken)
	_, _ = fmt.Fprintf(writer, "KEYSTORE_ADMIN_TOKEN_HASH='%s'\n", hashedToken)
	_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The token is shown only once. Store it securely.")
	return nil
}
