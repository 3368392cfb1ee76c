package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	blob, err := SealSecret("topsecret-client-secret", "hunter2")
	require.NoError(t, err)

	got, err := OpenSecret(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "topsecret-client-secret", got)
}

func TestOpenWrongPassword(t *testing.T) {
	blob, err := SealSecret("topsecret", "right")
	require.NoError(t, err)

	_, err = OpenSecret(blob, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestSealEmptyInputs(t *testing.T) {
	_, err := SealSecret("", "pw")
	require.Error(t, err)
	_, err = SealSecret("secret", "")
	require.Error(t, err)
}

func TestLoadSecretPrecedence(t *testing.T) {
	got, err := LoadSecret(SecretConfig{RawSecret: "raw-wins"})
	require.NoError(t, err)
	assert.Equal(t, "raw-wins", got)
}

func TestLoadSecretFromFile(t *testing.T) {
	blob, err := SealSecret("from-file", "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "secret.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadSecret(SecretConfig{SealedPath: path, Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)
}

func TestLoadSecretNoSource(t *testing.T) {
	_, err := LoadSecret(SecretConfig{})
	require.Error(t, err)
}
