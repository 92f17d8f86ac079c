package commands

import (
	"fmt"
	"io"

	cryptoService "github.com/allisson/robert/internal/crypto/service"
)

// RunCreateKMSKey prints a base64key:// KMS key URI holding a fresh random key, for
// development keystores.
//
// Security: never use a local key in production; point KMS_KEY_URI at a cloud KMS
// (gcpkms://, awskms://, azurekeyvault://) or hashivault:// instead.
func RunCreateKMSKey(writer io.Writer, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	keyURI, err := cryptoService.NewLocalKeyURI()
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(writer, map[string]string{"kms_key_uri": keyURI})
	}

	_, _ = fmt.Fprintln(writer, "# Local KMS key for development only")
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", keyURI)
	return nil
}
