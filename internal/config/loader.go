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
// built-in defaults, applies FLASHPOOL_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FLASHPOOL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Keys ──
	setStr(&cfg.Keys.OperatorPrivateKey, "FLASHPOOL_KEYS_OPERATOR_PRIVATE_KEY")
	setStr(&cfg.Keys.EncryptedKeyPath, "FLASHPOOL_KEYS_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Keys.KeyPassword, "FLASHPOOL_KEYS_KEY_PASSWORD")
	setStr(&cfg.Keys.TokenSecret, "FLASHPOOL_KEYS_TOKEN_SECRET")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "FLASHPOOL_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "FLASHPOOL_POSTGRES_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "FLASHPOOL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FLASHPOOL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FLASHPOOL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FLASHPOOL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FLASHPOOL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FLASHPOOL_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FLASHPOOL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FLASHPOOL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FLASHPOOL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FLASHPOOL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FLASHPOOL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FLASHPOOL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FLASHPOOL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FLASHPOOL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FLASHPOOL_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.CacheTTL, "FLASHPOOL_REDIS_CACHE_TTL")
	setDuration(&cfg.Redis.LockTTL, "FLASHPOOL_REDIS_LOCK_TTL")
	setInt64(&cfg.Redis.StreamMaxLen, "FLASHPOOL_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FLASHPOOL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FLASHPOOL_S3_REGION")
	setStr(&cfg.S3.Bucket, "FLASHPOOL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FLASHPOOL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FLASHPOOL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FLASHPOOL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FLASHPOOL_S3_FORCE_PATH_STYLE")

	// ── Assets ──
	setBool(&cfg.Assets.Enforce, "FLASHPOOL_ASSETS_ENFORCE")

	// ── Arbitrage ──
	setStringSlice(&cfg.Arbitrage.Pairs, "FLASHPOOL_ARBITRAGE_PAIRS")
	setUint64(&cfg.Arbitrage.MaxLoanAmount, "FLASHPOOL_ARBITRAGE_MAX_LOAN_AMOUNT")
	setUint64(&cfg.Arbitrage.MinProfit, "FLASHPOOL_ARBITRAGE_MIN_PROFIT")
	setDuration(&cfg.Arbitrage.Deadline, "FLASHPOOL_ARBITRAGE_DEADLINE")
	setBool(&cfg.Arbitrage.AutoExecute, "FLASHPOOL_ARBITRAGE_AUTO_EXECUTE")

	// ── Monitor ──
	setBool(&cfg.Monitor.Enabled, "FLASHPOOL_MONITOR_ENABLED")
	setDuration(&cfg.Monitor.HealthInterval, "FLASHPOOL_MONITOR_HEALTH_INTERVAL")
	setDuration(&cfg.Monitor.ScanInterval, "FLASHPOOL_MONITOR_SCAN_INTERVAL")
	setDuration(&cfg.Monitor.ArchiveInterval, "FLASHPOOL_MONITOR_ARCHIVE_INTERVAL")
	setDuration(&cfg.Monitor.ArchiveLookback, "FLASHPOOL_MONITOR_ARCHIVE_LOOKBACK")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FLASHPOOL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FLASHPOOL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FLASHPOOL_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "FLASHPOOL_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "FLASHPOOL_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FLASHPOOL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FLASHPOOL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FLASHPOOL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FLASHPOOL_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "FLASHPOOL_MODE")
	setStr(&cfg.LogLevel, "FLASHPOOL_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
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
