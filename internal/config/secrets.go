package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Keys
	out.Keys = cfg.Keys
	redact(&out.Keys.OperatorPrivateKey)
	redact(&out.Keys.KeyPassword)
	redact(&out.Keys.TokenSecret)

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Pools != nil {
		out.Pools = make([]PoolConfig, len(cfg.Pools))
		copy(out.Pools, cfg.Pools)
	}
	if cfg.Assets.Whitelist != nil {
		out.Assets.Whitelist = make([]AssetPolicyConfig, len(cfg.Assets.Whitelist))
		copy(out.Assets.Whitelist, cfg.Assets.Whitelist)
	}
	if cfg.Venues.Routes != nil {
		out.Venues.Routes = make([]RouteConfig, len(cfg.Venues.Routes))
		copy(out.Venues.Routes, cfg.Venues.Routes)
	}
	if cfg.Venues.Rates != nil {
		out.Venues.Rates = make([]RateConfig, len(cfg.Venues.Rates))
		copy(out.Venues.Rates, cfg.Venues.Rates)
	}
	if cfg.Arbitrage.Pairs != nil {
		out.Arbitrage.Pairs = make([]string, len(cfg.Arbitrage.Pairs))
		copy(out.Arbitrage.Pairs, cfg.Arbitrage.Pairs)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	// Copy maps so mutations to the redacted copy do not affect the original.
	// Token digests are already hashes, but they still identify callers, so
	// redact the values as well.
	if cfg.Server.APITokens != nil {
		out.Server.APITokens = make(map[string]string, len(cfg.Server.APITokens))
		for name := range cfg.Server.APITokens {
			out.Server.APITokens[name] = redacted
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
