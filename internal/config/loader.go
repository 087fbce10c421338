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
// built-in defaults, applies TONSURANCE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			// Missing file is fine; defaults + env cover containerized deploys.
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TONSURANCE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. The bare
// PORT variable is honoured for platform compatibility.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.Port, "TONSURANCE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TONSURANCE_SERVER_CORS_ORIGINS")
	setInt64(&cfg.Server.MaxBodyBytes, "TONSURANCE_SERVER_MAX_BODY_BYTES")

	// ── Security ──
	setStr(&cfg.Security.APIKeyFile, "TONSURANCE_SECURITY_API_KEY_FILE")
	setStr(&cfg.Security.KeyPassword, "TONSURANCE_SECURITY_KEY_PASSWORD")
	setInt(&cfg.Security.AuthedPerMin, "TONSURANCE_SECURITY_AUTHED_PER_MIN")
	setInt(&cfg.Security.AnonPerMin, "TONSURANCE_SECURITY_ANON_PER_MIN")
	setInt(&cfg.Security.WindowSeconds, "TONSURANCE_SECURITY_WINDOW_SECONDS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "TONSURANCE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TONSURANCE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TONSURANCE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TONSURANCE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TONSURANCE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TONSURANCE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TONSURANCE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TONSURANCE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TONSURANCE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TONSURANCE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "TONSURANCE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TONSURANCE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TONSURANCE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TONSURANCE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TONSURANCE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TONSURANCE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TONSURANCE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TONSURANCE_S3_REGION")
	setStr(&cfg.S3.Bucket, "TONSURANCE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TONSURANCE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TONSURANCE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TONSURANCE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TONSURANCE_S3_FORCE_PATH_STYLE")

	// ── Oracle ──
	setStr(&cfg.Oracle.BaseURL, "TONSURANCE_ORACLE_BASE_URL")
	setDuration(&cfg.Oracle.Timeout, "TONSURANCE_ORACLE_TIMEOUT")

	// ── Claims ──
	setDuration(&cfg.Claims.SampleInterval, "TONSURANCE_CLAIMS_SAMPLE_INTERVAL")
	setInt(&cfg.Claims.ConfirmationSamples, "TONSURANCE_CLAIMS_CONFIRMATION_SAMPLES")

	// ── Hedge ──
	setFloat64(&cfg.Hedge.PolymarketWeight, "TONSURANCE_HEDGE_POLYMARKET_WEIGHT")
	setFloat64(&cfg.Hedge.PerpetualsWeight, "TONSURANCE_HEDGE_PERPETUALS_WEIGHT")
	setFloat64(&cfg.Hedge.DefiPerpsWeight, "TONSURANCE_HEDGE_DEFI_PERPS_WEIGHT")
	setFloat64(&cfg.Hedge.AllianzWeight, "TONSURANCE_HEDGE_ALLIANZ_WEIGHT")
	setFloat64(&cfg.Hedge.TotalHedgeRatio, "TONSURANCE_HEDGE_TOTAL_HEDGE_RATIO")
	setInt64(&cfg.Hedge.MinHedgeCents, "TONSURANCE_HEDGE_MIN_HEDGE_CENTS")
	setFloat64(&cfg.Hedge.RebalanceThreshold, "TONSURANCE_HEDGE_REBALANCE_THRESHOLD")
	setBool(&cfg.Hedge.RebalanceEnabled, "TONSURANCE_HEDGE_REBALANCE_ENABLED")
	setDuration(&cfg.Hedge.CheckInterval, "TONSURANCE_HEDGE_CHECK_INTERVAL")
	setInt(&cfg.Hedge.Leverage, "TONSURANCE_HEDGE_LEVERAGE")

	// ── Monitor ──
	setDuration(&cfg.Monitor.BridgeInterval, "TONSURANCE_MONITOR_BRIDGE_INTERVAL")
	setDuration(&cfg.Monitor.RiskInterval, "TONSURANCE_MONITOR_RISK_INTERVAL")
	setDuration(&cfg.Monitor.ProductsInterval, "TONSURANCE_MONITOR_PRODUCTS_INTERVAL")
	setDuration(&cfg.Monitor.APYInterval, "TONSURANCE_MONITOR_APY_INTERVAL")
	setDuration(&cfg.Monitor.BridgeTxInterval, "TONSURANCE_MONITOR_BRIDGE_TX_INTERVAL")

	// ── Venues ──
	setStr(&cfg.Venues.Polymarket.Host, "TONSURANCE_VENUES_POLYMARKET_HOST")
	setStr(&cfg.Venues.Binance.Host, "TONSURANCE_VENUES_BINANCE_HOST")
	setStr(&cfg.Venues.Binance.APIKey, "TONSURANCE_VENUES_BINANCE_API_KEY")
	setStr(&cfg.Venues.Binance.APISecret, "TONSURANCE_VENUES_BINANCE_API_SECRET")
	setStr(&cfg.Venues.Hyperliquid.Host, "TONSURANCE_VENUES_HYPERLIQUID_HOST")
	setStr(&cfg.Venues.Allianz.Host, "TONSURANCE_VENUES_ALLIANZ_HOST")
	setStr(&cfg.Venues.Allianz.APIKey, "TONSURANCE_VENUES_ALLIANZ_API_KEY")
	setDuration(&cfg.Venues.Timeout, "TONSURANCE_VENUES_TIMEOUT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TONSURANCE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TONSURANCE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TONSURANCE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TONSURANCE_NOTIFY_EVENTS")

	// ── Pool ──
	setInt64(&cfg.Pool.InitialCapitalCents, "TONSURANCE_POOL_INITIAL_CAPITAL_CENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "TONSURANCE_MODE")
	setStr(&cfg.LogLevel, "TONSURANCE_LOG_LEVEL")
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
