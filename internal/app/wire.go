package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/HobanSearch/Tonsurance-sub007/internal/blob/s3"
	"github.com/HobanSearch/Tonsurance-sub007/internal/cache/failover"
	"github.com/HobanSearch/Tonsurance-sub007/internal/cache/memory"
	"github.com/HobanSearch/Tonsurance-sub007/internal/cache/redis"
	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/crypto"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/notify"
	"github.com/HobanSearch/Tonsurance-sub007/internal/server/middleware"
	"github.com/HobanSearch/Tonsurance-sub007/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the operating modes need.
// It is constructed by Wire and torn down by the returned cleanup function.
// Store fields are nil in modes that run without Postgres; consumers degrade
// accordingly.
type Dependencies struct {
	// Stores
	Policies       domain.PolicyStore
	Triggers       domain.TriggerStateStore
	HedgePositions domain.HedgePositionStore
	APIKeys        domain.APIKeyStore
	BridgeTxs      domain.BridgeTxStore

	// Caches and coordination
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Cold storage
	Archiver domain.Archiver

	// Auth
	Keyring  *crypto.Keyring
	Resolver middleware.KeyResolver

	// Operator notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that run the monitoring loops and
// therefore require persisted trigger and hedge state. The serve mode runs
// without a database; write endpoints answer 503.
func needsPostgres(mode string) bool {
	switch mode {
	case "monitor", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that archive payouts and hedge reports.
func needsS3(mode string) bool {
	return needsPostgres(mode)
}

// chainResolver resolves API keys from the encrypted keyring first, falling
// back to the database-backed key store for keys provisioned at runtime.
type chainResolver struct {
	keyring *crypto.Keyring
	store   domain.APIKeyStore
}

func (r chainResolver) Resolve(ctx context.Context, keyHash string) (domain.APIKeyInfo, error) {
	info, err := r.keyring.Resolve(ctx, keyHash)
	if err == nil {
		return info, nil
	}
	if r.store == nil {
		return domain.APIKeyInfo{}, err
	}
	return r.store.GetByHash(ctx, keyHash)
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsPostgres(cfg.Mode) {
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

		pool := pgClient.Pool()
		deps.Policies = postgres.NewPolicyStore(pool)
		deps.Triggers = postgres.NewTriggerStore(pool)
		deps.HedgePositions = postgres.NewHedgePositionStore(pool)
		deps.APIKeys = postgres.NewAPIKeyStore(pool)
		deps.BridgeTxs = postgres.NewBridgeTxStore(pool)
	}

	// --- Redis ---
	// Unreachable Redis at boot is survivable: the limiter runs on its
	// in-process fallback, while the price cache and lock manager stay nil
	// and their consumers degrade.
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		logger.Warn("wire: redis unreachable, rate limiting falls back to memory",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()))
		deps.RateLimiter = failover.New(nil, memory.NewRateLimiter(), logger)
	} else {
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)

		// Redis-backed limiter with an in-process fallback so an outage never
		// fails the request path open or closed.
		deps.RateLimiter = failover.New(
			redis.NewRateLimiter(redisClient),
			memory.NewRateLimiter(),
			logger,
		)
	}

	// --- S3 cold storage (only for modes that archive) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, cfg.S3)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client, logger)
	}

	// --- API keys ---
	if cfg.Security.APIKeyFile != "" {
		kr, err := crypto.LoadKeyring(cfg.Security.APIKeyFile, cfg.Security.KeyPassword)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: keyring: %w", err)
		}
		deps.Keyring = kr
	} else {
		deps.Keyring = crypto.NewKeyring()
	}
	deps.Resolver = chainResolver{keyring: deps.Keyring, store: deps.APIKeys}

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
