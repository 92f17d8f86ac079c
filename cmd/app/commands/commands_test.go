package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	keystoreService "github.com/allisson/robert/internal/keystore/service"
)

func TestRunCreateKMSKey(t *testing.T) {
	t.Run("text-output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunCreateKMSKey(&out, "text"))
		require.Contains(t, out.String(), `KMS_KEY_URI="base64key://`)
	})

	t.Run("json-output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunCreateKMSKey(&out, "json"))

		var result map[string]string
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.True(t, strings.HasPrefix(result["kms_key_uri"], "base64key://"))
	})

	t.Run("invalid-format", func(t *testing.T) {
		require.Error(t, RunCreateKMSKey(&bytes.Buffer{}, "xml"))
	})
}

func TestRunCreateAdminToken(t *testing.T) {
	tokenService, err := keystoreService.NewAdminTokenService()
	require.NoError(t, err)

	t.Run("json-output-verifies", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunCreateAdminToken(tokenService, &out, "json"))

		var result map[string]string
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.NotEmpty(t, result["token"])
		require.True(t, tokenService.Verify(result["token"], result["token_hash"]))
	})

	t.Run("text-output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunCreateAdminToken(tokenService, &out, "text"))
		require.Contains(t, out.String(), "KEYSTORE_ADMIN_TOKEN_HASH=")
		require.Contains(t, out.String(), "shown only once")
	})
}
