package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/solvios/flashpool/internal/blob/s3"
	"github.com/solvios/flashpool/internal/cache/redis"
	"github.com/solvios/flashpool/internal/config"
	"github.com/solvios/flashpool/internal/crypto"
	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/notify"
	"github.com/solvios/flashpool/internal/store/postgres"
)

// Dependencies bundles every infrastructure dependency the application modes
// compose services from. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	Executions domain.ExecutionStore
	Events     domain.EventStore
	Snapshots  domain.SnapshotStore

	// Caches and coordination
	PoolCache  domain.PoolCache
	RouteCache domain.RouteCache
	Limiter    domain.RateLimiter
	Locks      domain.LockManager
	Bus        domain.EventBus

	// Blob storage (nil unless the mode archives)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Keys. Signer is nil when no operator key is configured; submissions
	// are then rejected but every read path still works.
	Signer    *crypto.Signer
	Authority *crypto.TokenAuthority

	// Notifications
	Notifier *notify.Notifier

	// Raw clients, kept for the health endpoint probes.
	PG  *postgres.Client
	RDB *redis.Client
	S3  *s3blob.Client
}

// needsS3 reports whether the configured mode runs the archiver and thus
// needs object storage.
func needsS3(cfg *config.Config) bool {
	switch strings.ToLower(cfg.Mode) {
	case "monitor", "full":
		return cfg.Monitor.Enabled && cfg.Monitor.ArchiveInterval.Duration > 0
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL: the execution ledger, event history, and snapshot
	// trail back every mode ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pgPool := pgClient.Pool()
	executionStore := postgres.NewExecutionStore(pgPool)
	eventStore := postgres.NewEventStore(pgPool)
	deps.PG = pgClient
	deps.Executions = executionStore
	deps.Events = eventStore
	deps.Snapshots = postgres.NewSnapshotStore(pgPool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	cacheTTL := cfg.Redis.CacheTTL.Duration
	deps.RDB = redisClient
	deps.PoolCache = redis.NewPoolCache(redisClient, cacheTTL)
	deps.RouteCache = redis.NewRouteCache(redisClient, cacheTTL)
	deps.Limiter = redis.NewRateLimiter(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.Bus = redis.NewEventBus(redisClient, cfg.Redis.StreamMaxLen)

	// --- S3 blob storage (only for modes that archive) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.S3 = s3Client
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, executionStore, eventStore)
	}

	// --- Keys ---
	if cfg.Keys.OperatorPrivateKey != "" || cfg.Keys.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Keys.OperatorPrivateKey,
			EncryptedKeyPath: cfg.Keys.EncryptedKeyPath,
			KeyPassword:      cfg.Keys.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: operator key: %w", err)
		}
		signer, err := crypto.NewSigner(keyHex)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: operator key: %w", err)
		}
		deps.Signer = signer
		logger.Info("operator key loaded",
			slog.String("address", signer.Address().Hex()),
		)
	}
	if cfg.Keys.TokenSecret != "" {
		deps.Authority = crypto.NewTokenAuthority(cfg.Keys.TokenSecret)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
