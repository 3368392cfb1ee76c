// Package config defines the top-level configuration for the valoriste
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by VALORISTE_* environment variables.
type Config struct {
	Ebay     EbayConfig     `toml:"ebay"`
	Fees     FeesConfig     `toml:"fees"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EbayConfig holds eBay application credentials, endpoints, and the seed
// token pair read at startup. Refreshed tokens are persisted back through the
// configured token store, not this struct.
type EbayConfig struct {
	ClientID            string   `toml:"client_id"`
	ClientSecret        string   `toml:"client_secret"`
	EncryptedSecretPath string   `toml:"encrypted_secret_path"`
	SecretPassword      string   `toml:"secret_password"`
	RedirectURI         string   `toml:"redirect_uri"`
	Scopes              []string `toml:"scopes"`
	APIHost             string   `toml:"api_host"`
	AuthHost            string   `toml:"auth_host"`
	TokenURL            string   `toml:"token_url"`
	AccessToken         string   `toml:"access_token"`
	RefreshToken        string   `toml:"refresh_token"`
	EnvFilePath         string   `toml:"env_file_path"`
	RequestsPerSecond   int      `toml:"requests_per_second"`
}

// FeesConfig holds the cost-basis parameters used by the deal scorer.
type FeesConfig struct {
	// FeePercent is the marketplace final-value fee as a percentage of the
	// estimated sale price.
	FeePercent float64 `toml:"fee_percent"`
	// FixedFee is the flat per-order fee added on top of the percentage.
	FixedFee float64 `toml:"fixed_fee"`
	// DefaultShipping is the shipping estimate applied when a listing does
	// not report a fixed shipping cost.
	DefaultShipping float64 `toml:"default_shipping"`
}

// PostgresConfig holds PostgreSQL connection parameters. When DSN and Host
// are both empty, Postgres is disabled and token state falls back to the
// env-file store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a Postgres connection is configured.
func (c PostgresConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

// RedisConfig holds Redis connection parameters. An empty Addr disables the
// Redis-backed caches, lock, rate limiter, and WebSocket fan-out.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for scan archival.
// An empty Bucket disables archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ScannerConfig holds periodic scan parameters.
type ScannerConfig struct {
	Enabled      bool     `toml:"enabled"`
	ScanInterval duration `toml:"scan_interval"`
	// SearchTTL bounds how long cached brand search results are reused.
	SearchTTL duration `toml:"search_ttl"`
	// ValueTTL bounds how long cached market-value estimates are reused.
	ValueTTL duration `toml:"value_ttl"`
	// MaxConcurrentSearches bounds the per-scan brand fan-out.
	MaxConcurrentSearches int `toml:"max_concurrent_searches"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimitPerMin throttles API clients per IP; 0 disables.
	RateLimitPerMin int `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Ebay: EbayConfig{
			APIHost:  "https://api.ebay.com",
			AuthHost: "https://auth.ebay.com",
			TokenURL: "https://api.ebay.com/identity/v1/oauth2/token",
			Scopes: []string{
				"https://api.ebay.com/oauth/api_scope",
			},
			EnvFilePath:       ".env",
			RequestsPerSecond: 4,
		},
		Fees: FeesConfig{
			FeePercent:      12.9,
			FixedFee:        0.30,
			DefaultShipping: 7.99,
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "valoriste",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         true,
			ForcePathStyle: true,
		},
		Scanner: ScannerConfig{
			Enabled:               true,
			ScanInterval:          duration{30 * time.Minute},
			SearchTTL:             duration{time.Hour},
			ValueTTL:              duration{6 * time.Hour},
			MaxConcurrentSearches: 4,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMin: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"deal_found", "scan_complete", "auth_required", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"scan":    true,
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, scan, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Ebay: client credentials are required in every mode; the secret may
	// come from plaintext config or from an encrypted file.
	if c.Ebay.ClientID == "" {
		errs = append(errs, "ebay: client_id must not be empty")
	}
	if c.Ebay.ClientSecret == "" && c.Ebay.EncryptedSecretPath == "" {
		errs = append(errs, "ebay: either client_secret or encrypted_secret_path must be set")
	}
	if c.Ebay.EncryptedSecretPath != "" && c.Ebay.SecretPassword == "" {
		errs = append(errs, "ebay: secret_password is required when encrypted_secret_path is set")
	}
	if c.Ebay.RedirectURI == "" {
		errs = append(errs, "ebay: redirect_uri must not be empty")
	}
	if c.Ebay.APIHost == "" {
		errs = append(errs, "ebay: api_host must not be empty")
	}
	if c.Ebay.TokenURL == "" {
		errs = append(errs, "ebay: token_url must not be empty")
	}
	if len(c.Ebay.Scopes) == 0 {
		errs = append(errs, "ebay: at least one OAuth scope is required")
	}
	if c.Ebay.RequestsPerSecond < 1 {
		errs = append(errs, "ebay: requests_per_second must be >= 1")
	}

	// Fees
	if c.Fees.FeePercent < 0 || c.Fees.FeePercent >= 100 {
		errs = append(errs, fmt.Sprintf("fees: fee_percent must be in [0, 100), got %v", c.Fees.FeePercent))
	}
	if c.Fees.FixedFee < 0 {
		errs = append(errs, "fees: fixed_fee must be >= 0")
	}
	if c.Fees.DefaultShipping < 0 {
		errs = append(errs, "fees: default_shipping must be >= 0")
	}

	// Postgres is only validated when enabled.
	if c.Postgres.Enabled() && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
	}

	// Redis
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only validated when a bucket is configured.
	if c.S3.Bucket != "" && c.S3.Region == "" {
		errs = append(errs, "s3: region must not be empty when bucket is set")
	}

	// Scanner
	if c.Scanner.Enabled {
		if c.Scanner.ScanInterval.Duration <= 0 {
			errs = append(errs, "scanner: scan_interval must be positive")
		}
		if c.Scanner.MaxConcurrentSearches < 1 {
			errs = append(errs, "scanner: max_concurrent_searches must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMin < 0 {
			errs = append(errs, "server: rate_limit_per_min must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
