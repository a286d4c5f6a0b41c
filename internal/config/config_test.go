package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func validConfig() Config {
	cfg := Defaults()
	cfg.Keys.OperatorPrivateKey = testKey
	return cfg
}

func TestDefaultsValidateWithOperatorKey(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "bogus"
	cfg.Redis.Addr = ""
	cfg.Pools[0].FeeBps = 2_000
	cfg.Venues.Rates = []RateConfig{{PoolID: "cetus-1", TokenIn: "SUI", TokenOut: "USDC", Num: 1, Den: 0}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate: expected error")
	}
	for _, want := range []string{
		`unknown mode "bogus"`,
		"redis: addr must not be empty",
		"fee_bps must be <= 1000",
		"den must be > 0",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateOperatorKeyPerMode(t *testing.T) {
	tests := []struct {
		mode        string
		autoExecute bool
		wantErr     bool
	}{
		{"monitor", false, false},
		{"scan", false, false},
		{"scan", true, true},
		{"server", false, true},
		{"full", false, true},
	}
	for _, tt := range tests {
		cfg := Defaults()
		cfg.Mode = tt.mode
		cfg.Arbitrage.AutoExecute = tt.autoExecute
		err := cfg.Validate()
		if tt.wantErr && err == nil {
			t.Errorf("mode %s (auto_execute=%v): expected key requirement error", tt.mode, tt.autoExecute)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("mode %s (auto_execute=%v): Validate: %v", tt.mode, tt.autoExecute, err)
		}
	}
}

func TestValidateAPITokensRequireSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Server.APITokens = map[string]string{"ops": "deadbeef"}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token_secret is required") {
		t.Fatalf("Validate: err = %v, want token_secret requirement", err)
	}

	cfg.Keys.TokenSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with token_secret: %v", err)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d duration
	if err := d.UnmarshalText([]byte("90s")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if d.Duration != 90*time.Second {
		t.Fatalf("duration = %v, want 90s", d.Duration)
	}
	if err := d.UnmarshalText([]byte("not-a-duration")); err == nil {
		t.Fatal("UnmarshalText: expected error for invalid input")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flashpool.toml")
	data := `
mode = "monitor"
log_level = "debug"

[redis]
addr = "redis.internal:6379"
cache_ttl = "2m"

[[pools]]
id = "sui-main"
asset = "SUI"
liquidity = 5000000
fee_bps = 30
max_loan_ratio = 5000

[server]
port = 9000
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("FLASHPOOL_SERVER_PORT", "9100")
	t.Setenv("FLASHPOOL_ARBITRAGE_MAX_LOAN_AMOUNT", "250000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "monitor" {
		t.Errorf("Mode = %q, want monitor", cfg.Mode)
	}
	if cfg.Redis.Addr != "redis.internal:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Redis.CacheTTL.Duration != 2*time.Minute {
		t.Errorf("Redis.CacheTTL = %v, want 2m", cfg.Redis.CacheTTL.Duration)
	}
	if len(cfg.Pools) != 1 || cfg.Pools[0].Liquidity != 5_000_000 {
		t.Errorf("Pools = %+v", cfg.Pools)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Arbitrage.MaxLoanAmount != 250_000 {
		t.Errorf("Arbitrage.MaxLoanAmount = %d, want 250000", cfg.Arbitrage.MaxLoanAmount)
	}
	// Defaults survive where neither file nor env speaks.
	if cfg.Postgres.PoolMaxConns != 10 {
		t.Errorf("Postgres.PoolMaxConns = %d, want default 10", cfg.Postgres.PoolMaxConns)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate after Load: %v", err)
	}
}

func TestApplyEnvOverridesTypedHelpers(t *testing.T) {
	t.Setenv("FLASHPOOL_REDIS_ADDR", "redis:7000")
	t.Setenv("FLASHPOOL_POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("FLASHPOOL_MONITOR_SCAN_INTERVAL", "45s")
	t.Setenv("FLASHPOOL_NOTIFY_EVENTS", "arbitrage_executed, pool_paused")
	t.Setenv("FLASHPOOL_REDIS_STREAM_MAX_LEN", "5000")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	if cfg.Redis.Addr != "redis:7000" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Postgres.RunMigrations {
		t.Error("Postgres.RunMigrations = true, want false")
	}
	if cfg.Monitor.ScanInterval.Duration != 45*time.Second {
		t.Errorf("Monitor.ScanInterval = %v", cfg.Monitor.ScanInterval.Duration)
	}
	want := []string{"arbitrage_executed", "pool_paused"}
	if len(cfg.Notify.Events) != len(want) {
		t.Fatalf("Notify.Events = %v, want %v", cfg.Notify.Events, want)
	}
	for i := range want {
		if cfg.Notify.Events[i] != want[i] {
			t.Errorf("Notify.Events[%d] = %q, want %q", i, cfg.Notify.Events[i], want[i])
		}
	}
	if cfg.Redis.StreamMaxLen != 5_000 {
		t.Errorf("Redis.StreamMaxLen = %d, want 5000", cfg.Redis.StreamMaxLen)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Keys.TokenSecret = "hmac-key"
	cfg.Postgres.Password = "pg-pass"
	cfg.Redis.Password = "redis-pass"
	cfg.S3.AccessKey = "AKIA123"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APITokens = map[string]string{"ops": "deadbeef"}
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"Keys.OperatorPrivateKey": red.Keys.OperatorPrivateKey,
		"Keys.TokenSecret":        red.Keys.TokenSecret,
		"Postgres.Password":       red.Postgres.Password,
		"Redis.Password":          red.Redis.Password,
		"S3.AccessKey":            red.S3.AccessKey,
		"S3.SecretKey":            red.S3.SecretKey,
		"Server.APITokens[ops]":   red.Server.APITokens["ops"],
		"Notify.TelegramToken":    red.Notify.TelegramToken,
	} {
		if got != "***" {
			t.Errorf("%s = %q, want ***", name, got)
		}
	}

	// The original must be untouched and isolated from the copy.
	if cfg.Keys.OperatorPrivateKey != testKey {
		t.Error("original operator key mutated")
	}
	if cfg.Server.APITokens["ops"] != "deadbeef" {
		t.Error("original api_tokens mutated")
	}
	red.Pools[0].Liquidity = 1
	if cfg.Pools[0].Liquidity == 1 {
		t.Error("redacted copy shares Pools backing array with original")
	}
}
