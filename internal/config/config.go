// Package config defines the top-level configuration for the flashpool
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FLASHPOOL_* environment
// variables.
type Config struct {
	Keys      KeysConfig      `toml:"keys"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Assets    AssetsConfig    `toml:"assets"`
	Pools     []PoolConfig    `toml:"pools"`
	Venues    VenuesConfig    `toml:"venues"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// KeysConfig holds the operator signing key and the API token secret.
type KeysConfig struct {
	OperatorPrivateKey string `toml:"operator_private_key"`
	EncryptedKeyPath   string `toml:"encrypted_key_path"`
	KeyPassword        string `toml:"key_password"`
	// TokenSecret keys the HMAC under which server.api_tokens digests are
	// stored, so raw bearer tokens never appear in configuration.
	TokenSecret string `toml:"token_secret"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// RedisConfig holds Redis connection and coordination parameters.
type RedisConfig struct {
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	CacheTTL     duration `toml:"cache_ttl"`
	LockTTL      duration `toml:"lock_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// AssetsConfig holds the asset whitelist. Enforce gates whether services
// consult it; the pool core never does.
type AssetsConfig struct {
	Enforce   bool                `toml:"enforce"`
	Whitelist []AssetPolicyConfig `toml:"whitelist"`
}

// AssetPolicyConfig is one whitelist entry. MaxLoan 0 means no upper bound.
type AssetPolicyConfig struct {
	Symbol  string `toml:"symbol"`
	MinLoan uint64 `toml:"min_loan"`
	MaxLoan uint64 `toml:"max_loan"`
}

// PoolConfig bootstraps one flash-loan pool at startup.
type PoolConfig struct {
	ID           string `toml:"id"`
	Asset        string `toml:"asset"`
	Liquidity    uint64 `toml:"liquidity"`
	FeeBps       uint64 `toml:"fee_bps"`
	MaxLoanRatio uint64 `toml:"max_loan_ratio"`
}

// VenuesConfig seeds the route registry and the simulator's rate overrides.
type VenuesConfig struct {
	Routes []RouteConfig `toml:"routes"`
	Rates  []RateConfig  `toml:"rates"`
}

// RouteConfig is one registry route.
type RouteConfig struct {
	Venue   string `toml:"venue"`
	PoolID  string `toml:"pool_id"`
	TokenA  string `toml:"token_a"`
	TokenB  string `toml:"token_b"`
	FeeTier uint64 `toml:"fee_tier"`
}

// RateConfig overrides the simulator's output scaling for one venue pool
// and direction, as Num/Den applied after the fee tier.
type RateConfig struct {
	PoolID   string `toml:"pool_id"`
	TokenIn  string `toml:"token_in"`
	TokenOut string `toml:"token_out"`
	Num      uint64 `toml:"num"`
	Den      uint64 `toml:"den"`
}

// ArbitrageConfig holds the engine's search and execution parameters.
type ArbitrageConfig struct {
	// Pairs lists the asset pairs the scanner watches, as "SUI/USDC".
	Pairs         []string `toml:"pairs"`
	MaxLoanAmount uint64   `toml:"max_loan_amount"`
	MinProfit     uint64   `toml:"min_profit"`
	// Deadline is the execution window granted to each submission.
	Deadline    duration `toml:"deadline"`
	AutoExecute bool     `toml:"auto_execute"`
}

// MonitorConfig holds the background loop intervals.
type MonitorConfig struct {
	Enabled         bool     `toml:"enabled"`
	HealthInterval  duration `toml:"health_interval"`
	ScanInterval    duration `toml:"scan_interval"`
	ArchiveInterval duration `toml:"archive_interval"`
	// ArchiveLookback bounds how far back each archive pass reaches.
	ArchiveLookback duration `toml:"archive_lookback"`
}

// ServerConfig holds HTTP server parameters. APITokens maps an identity
// name to the hex HMAC-SHA256 digest of its bearer token under
// keys.token_secret; an empty map disables authentication.
type ServerConfig struct {
	Enabled     bool              `toml:"enabled"`
	Port        int               `toml:"port"`
	CORSOrigins []string          `toml:"cors_origins"`
	APITokens   map[string]string `toml:"api_tokens"`
	RateLimit   int               `toml:"rate_limit"`
	RateWindow  duration          `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials. Events filters which
// event types are dispatched; "pool_unhealthy" additionally enables health
// transition alerts.
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
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "flashpool",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			TLSEnabled:   false,
			CacheTTL:     duration{5 * time.Minute},
			LockTTL:      duration{30 * time.Second},
			StreamMaxLen: 10_000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "flashpool-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Assets: AssetsConfig{
			Enforce: false,
			Whitelist: []AssetPolicyConfig{
				{Symbol: "SUI", MinLoan: 1_000},
				{Symbol: "USDC", MinLoan: 1_000},
			},
		},
		Pools: []PoolConfig{
			{ID: "sui-main", Asset: "SUI", Liquidity: 1_000_000, FeeBps: 100, MaxLoanRatio: 5_000},
		},
		Arbitrage: ArbitrageConfig{
			Pairs:         []string{"SUI/USDC"},
			MaxLoanAmount: 100_000,
			MinProfit:     100,
			Deadline:      duration{30 * time.Second},
			AutoExecute:   false,
		},
		Monitor: MonitorConfig{
			Enabled:         true,
			HealthInterval:  duration{30 * time.Second},
			ScanInterval:    duration{10 * time.Second},
			ArchiveInterval: duration{time.Hour},
			ArchiveLookback: duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   60,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"arbitrage_executed", "arbitrage_failed", "pool_paused", "pool_unhealthy"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"monitor": true,
	"scan":    true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validVenues mirrors the closed venue set routes may name.
var validVenues = map[string]bool{
	"cetus":     true,
	"turbos":    true,
	"aftermath": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, monitor, scan, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Keys. Modes that submit units need an operator key.
	mode := strings.ToLower(c.Mode)
	needsKey := mode == "server" || mode == "full" || (mode == "scan" && c.Arbitrage.AutoExecute)
	if needsKey {
		if c.Keys.OperatorPrivateKey == "" && c.Keys.EncryptedKeyPath == "" {
			errs = append(errs, "keys: either operator_private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Keys.EncryptedKeyPath != "" && c.Keys.KeyPassword == "" {
			errs = append(errs, "keys: key_password is required when encrypted_key_path is set")
		}
	}
	if len(c.Server.APITokens) > 0 && c.Keys.TokenSecret == "" {
		errs = append(errs, "keys: token_secret is required when server.api_tokens is set")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
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
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.LockTTL.Duration <= 0 {
		errs = append(errs, "redis: lock_ttl must be > 0")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Assets
	for i, a := range c.Assets.Whitelist {
		if strings.TrimSpace(a.Symbol) == "" {
			errs = append(errs, fmt.Sprintf("assets: whitelist[%d]: symbol must not be empty", i))
		}
		if a.MaxLoan > 0 && a.MinLoan > a.MaxLoan {
			errs = append(errs, fmt.Sprintf("assets: whitelist[%d] (%s): min_loan exceeds max_loan", i, a.Symbol))
		}
	}

	// Pools
	seen := make(map[string]bool, len(c.Pools))
	for i, p := range c.Pools {
		if p.ID == "" {
			errs = append(errs, fmt.Sprintf("pools[%d]: id must not be empty", i))
		} else if seen[p.ID] {
			errs = append(errs, fmt.Sprintf("pools[%d]: duplicate id %q", i, p.ID))
		} else {
			seen[p.ID] = true
		}
		if p.Asset == "" {
			errs = append(errs, fmt.Sprintf("pools[%d]: asset must not be empty", i))
		}
		if p.FeeBps > 1000 {
			errs = append(errs, fmt.Sprintf("pools[%d]: fee_bps must be <= 1000, got %d", i, p.FeeBps))
		}
		if p.MaxLoanRatio > 10_000 {
			errs = append(errs, fmt.Sprintf("pools[%d]: max_loan_ratio must be <= 10000, got %d", i, p.MaxLoanRatio))
		}
	}

	// Venues
	for i, r := range c.Venues.Routes {
		if !validVenues[strings.ToLower(r.Venue)] {
			errs = append(errs, fmt.Sprintf("venues: routes[%d]: unknown venue %q (valid: cetus, turbos, aftermath)", i, r.Venue))
		}
		if r.PoolID == "" {
			errs = append(errs, fmt.Sprintf("venues: routes[%d]: pool_id must not be empty", i))
		}
		if r.TokenA == "" || r.TokenB == "" {
			errs = append(errs, fmt.Sprintf("venues: routes[%d]: token_a and token_b must not be empty", i))
		}
		if r.FeeTier > 10_000 {
			errs = append(errs, fmt.Sprintf("venues: routes[%d]: fee_tier must be <= 10000, got %d", i, r.FeeTier))
		}
	}
	for i, r := range c.Venues.Rates {
		if r.Den == 0 {
			errs = append(errs, fmt.Sprintf("venues: rates[%d]: den must be > 0", i))
		}
		if r.PoolID == "" {
			errs = append(errs, fmt.Sprintf("venues: rates[%d]: pool_id must not be empty", i))
		}
	}

	// Arbitrage
	if c.Arbitrage.MaxLoanAmount == 0 {
		errs = append(errs, "arbitrage: max_loan_amount must be > 0")
	}
	for i, pair := range c.Arbitrage.Pairs {
		if !strings.Contains(pair, "/") {
			errs = append(errs, fmt.Sprintf("arbitrage: pairs[%d]: %q must be TOKEN_A/TOKEN_B", i, pair))
		}
	}

	// Monitor
	if c.Monitor.Enabled {
		if c.Monitor.HealthInterval.Duration <= 0 {
			errs = append(errs, "monitor: health_interval must be > 0")
		}
		if c.Monitor.ScanInterval.Duration <= 0 {
			errs = append(errs, "monitor: scan_interval must be > 0")
		}
		if c.Monitor.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "monitor: archive_interval must be > 0")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
