package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies VALORISTE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
//
// A missing config file is not an error: the defaults plus environment
// overrides are returned, which matches the original env-only deployment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known VALORISTE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file. The EBAY_* aliases match the original deployment's variable names.
func applyEnvOverrides(cfg *Config) {
	// ── Ebay ──
	setStr(&cfg.Ebay.ClientID, "VALORISTE_EBAY_CLIENT_ID")
	setStr(&cfg.Ebay.ClientID, "EBAY_CLIENT_ID") // compatibility alias
	setStr(&cfg.Ebay.ClientSecret, "VALORISTE_EBAY_CLIENT_SECRET")
	setStr(&cfg.Ebay.ClientSecret, "EBAY_CLIENT_SECRET")
	setStr(&cfg.Ebay.EncryptedSecretPath, "VALORISTE_EBAY_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Ebay.SecretPassword, "VALORISTE_EBAY_SECRET_PASSWORD")
	setStr(&cfg.Ebay.RedirectURI, "VALORISTE_EBAY_REDIRECT_URI")
	setStr(&cfg.Ebay.RedirectURI, "EBAY_REDIRECT_URI")
	setStr(&cfg.Ebay.APIHost, "VALORISTE_EBAY_API_HOST")
	setStr(&cfg.Ebay.AuthHost, "VALORISTE_EBAY_AUTH_HOST")
	setStr(&cfg.Ebay.TokenURL, "VALORISTE_EBAY_TOKEN_URL")
	setStr(&cfg.Ebay.AccessToken, "VALORISTE_EBAY_ACCESS_TOKEN")
	setStr(&cfg.Ebay.AccessToken, "EBAY_AUTH_TOKEN")
	setStr(&cfg.Ebay.RefreshToken, "VALORISTE_EBAY_REFRESH_TOKEN")
	setStr(&cfg.Ebay.RefreshToken, "EBAY_REFRESH_TOKEN")
	setStr(&cfg.Ebay.EnvFilePath, "VALORISTE_EBAY_ENV_FILE_PATH")
	setInt(&cfg.Ebay.RequestsPerSecond, "VALORISTE_EBAY_REQUESTS_PER_SECOND")
	setStringSlice(&cfg.Ebay.Scopes, "VALORISTE_EBAY_SCOPES")

	// ── Fees ──
	setFloat64(&cfg.Fees.FeePercent, "VALORISTE_FEES_FEE_PERCENT")
	setFloat64(&cfg.Fees.FeePercent, "EBAY_FEE_PERCENTAGE")
	setFloat64(&cfg.Fees.FixedFee, "VALORISTE_FEES_FIXED_FEE")
	setFloat64(&cfg.Fees.DefaultShipping, "VALORISTE_FEES_DEFAULT_SHIPPING")
	setFloat64(&cfg.Fees.DefaultShipping, "AVERAGE_SHIPPING_COST")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "VALORISTE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "VALORISTE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "VALORISTE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "VALORISTE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "VALORISTE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "VALORISTE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "VALORISTE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "VALORISTE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "VALORISTE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "VALORISTE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "VALORISTE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "VALORISTE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "VALORISTE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "VALORISTE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "VALORISTE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "VALORISTE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "VALORISTE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "VALORISTE_S3_REGION")
	setStr(&cfg.S3.Bucket, "VALORISTE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "VALORISTE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "VALORISTE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "VALORISTE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "VALORISTE_S3_FORCE_PATH_STYLE")

	// ── Scanner ──
	setBool(&cfg.Scanner.Enabled, "VALORISTE_SCANNER_ENABLED")
	setDuration(&cfg.Scanner.ScanInterval, "VALORISTE_SCANNER_SCAN_INTERVAL")
	setDuration(&cfg.Scanner.SearchTTL, "VALORISTE_SCANNER_SEARCH_TTL")
	setDuration(&cfg.Scanner.ValueTTL, "VALORISTE_SCANNER_VALUE_TTL")
	setInt(&cfg.Scanner.MaxConcurrentSearches, "VALORISTE_SCANNER_MAX_CONCURRENT_SEARCHES")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "VALORISTE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "VALORISTE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "VALORISTE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "VALORISTE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "VALORISTE_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "VALORISTE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "VALORISTE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "VALORISTE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "VALORISTE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "VALORISTE_MODE")
	setStr(&cfg.LogLevel, "VALORISTE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
