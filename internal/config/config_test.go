package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.Ebay.ClientID = "client-id"
	cfg.Ebay.ClientSecret = "client-secret"
	cfg.Ebay.RedirectURI = "My-App-RuName"
	return &cfg
}

func TestDefaultsValidateWithCredentials(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.Ebay.ClientID = ""
	cfg.Fees.FeePercent = 120
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "client_id")
	assert.Contains(t, err.Error(), "fee_percent")
	assert.Contains(t, err.Error(), "port")
}

func TestValidateEncryptedSecretNeedsPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Ebay.ClientSecret = ""
	cfg.Ebay.EncryptedSecretPath = "secret.sealed"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_password")
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 12.9, cfg.Fees.FeePercent)
}

func TestLoadMergesTOMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "scan"

[ebay]
client_id = "from-toml"

[scanner]
scan_interval = "15m"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, "from-toml", cfg.Ebay.ClientID)
	assert.Equal(t, 15*time.Minute, cfg.Scanner.ScanInterval.Duration)
	// Untouched sections keep their defaults.
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestEnvOverridesWinOverTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[ebay]
client_id = "from-toml"
`), 0o600))

	t.Setenv("VALORISTE_EBAY_CLIENT_ID", "from-env")
	t.Setenv("VALORISTE_SERVER_PORT", "9001")
	t.Setenv("VALORISTE_SCANNER_SCAN_INTERVAL", "5m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Ebay.ClientID)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Scanner.ScanInterval.Duration)
}

func TestCompatibilityAliases(t *testing.T) {
	t.Setenv("EBAY_CLIENT_ID", "legacy-id")
	t.Setenv("EBAY_REFRESH_TOKEN", "legacy-refresh")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-id", cfg.Ebay.ClientID)
	assert.Equal(t, "legacy-refresh", cfg.Ebay.RefreshToken)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Ebay.RefreshToken = "very-secret"
	cfg.Postgres.Password = "pg-pass"
	cfg.Server.APIKey = "api-key"

	red := RedactedConfig(cfg)
	assert.Equal(t, "***", red.Ebay.ClientSecret)
	assert.Equal(t, "***", red.Ebay.RefreshToken)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Server.APIKey)

	// Original is untouched.
	assert.Equal(t, "very-secret", cfg.Ebay.RefreshToken)
}
