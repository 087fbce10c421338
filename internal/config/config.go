// Package config defines the top-level configuration for the Tonsurance
// coordination plane and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TONSURANCE_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Security SecurityConfig `toml:"security"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Oracle   OracleConfig   `toml:"oracle"`
	Bridges  BridgesConfig  `toml:"bridges"`
	Claims   ClaimsConfig   `toml:"claims"`
	Hedge    HedgeConfig    `toml:"hedge"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Venues   VenuesConfig   `toml:"venues"`
	Pool     PoolConfig     `toml:"pool"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// MaxBodyBytes caps request bodies; requests over the limit get a 413.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// SecurityConfig holds auth and rate-limit parameters.
type SecurityConfig struct {
	// APIKeyFile is an encrypted JSON document of APIKeyInfo records.
	APIKeyFile    string `toml:"api_key_file"`
	KeyPassword   string `toml:"key_password"`
	AuthedPerMin  int    `toml:"authed_per_min"`
	AnonPerMin    int    `toml:"anon_per_min"`
	WindowSeconds int    `toml:"window_seconds"`
	// EndpointLimits tightens specific path prefixes further, e.g.
	// "/api/v2/claims" = 10.
	EndpointLimits map[string]int `toml:"endpoint_limits"`
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// OracleConfig holds the price oracle endpoint.
type OracleConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// BridgeEndpoint describes one monitored bridge.
type BridgeEndpoint struct {
	ID          string `toml:"id"`
	SourceChain string `toml:"source_chain"`
	DestChain   string `toml:"dest_chain"`
	StatusURL   string `toml:"status_url"`
}

// BridgesConfig holds the bridge monitor parameters.
type BridgesConfig struct {
	Endpoints []BridgeEndpoint `toml:"endpoints"`
	Timeout   duration         `toml:"timeout"`
}

// ClaimsConfig holds the claims monitor parameters.
type ClaimsConfig struct {
	SampleInterval      duration `toml:"sample_interval"`
	ConfirmationSamples int      `toml:"confirmation_samples"`
}

// HedgeConfig holds hedge orchestrator knobs. The four venue weights must sum
// to 1.0.
type HedgeConfig struct {
	PolymarketWeight   float64  `toml:"polymarket_weight"`
	PerpetualsWeight   float64  `toml:"perpetuals_weight"`
	DefiPerpsWeight    float64  `toml:"defi_perps_weight"`
	AllianzWeight      float64  `toml:"allianz_weight"`
	TotalHedgeRatio    float64  `toml:"total_hedge_ratio"`
	MinHedgeCents      int64    `toml:"min_hedge_cents"`
	RebalanceThreshold float64  `toml:"rebalance_threshold"`
	RebalanceEnabled   bool     `toml:"rebalance_enabled"`
	CheckInterval      duration `toml:"check_interval"`
	Leverage           int      `toml:"leverage"`
	DurationDays       int      `toml:"duration_days"`
	SlippageBps        float64  `toml:"slippage_bps"`
}

// MonitorConfig holds the cadences of the background loops.
type MonitorConfig struct {
	BridgeInterval   duration `toml:"bridge_interval"`
	RiskInterval     duration `toml:"risk_interval"`
	ProductsInterval duration `toml:"products_interval"`
	APYInterval      duration `toml:"apy_interval"`
	BridgeTxInterval duration `toml:"bridge_tx_interval"`
}

// VenueConfig holds one external venue's endpoint and credentials.
type VenueConfig struct {
	Host      string `toml:"host"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

// VenuesConfig holds all four hedge venue endpoints.
type VenuesConfig struct {
	Polymarket  VenueConfig `toml:"polymarket"`
	Binance     VenueConfig `toml:"binance"`
	Hyperliquid VenueConfig `toml:"hyperliquid"`
	Allianz     VenueConfig `toml:"allianz"`
	Timeout     duration    `toml:"timeout"`
}

// PoolConfig seeds the unified capital pool. The seed only applies when no
// persisted policies exist yet; restarts rebuild the book from the store.
type PoolConfig struct {
	InitialCapitalCents int64 `toml:"initial_capital_cents"`
}

// NotifyConfig holds operator notification channels. Events filters which
// event types are forwarded, e.g. ["bridge_critical", "claim_paid"].
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

// Defaults returns the built-in configuration defaults. Load layers the TOML
// file and environment overrides on top of these.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			CORSOrigins:  []string{"*"},
			MaxBodyBytes: 10 << 20, // 10 MiB
		},
		Security: SecurityConfig{
			AuthedPerMin:  500,
			AnonPerMin:    100,
			WindowSeconds: 60,
			EndpointLimits: map[string]int{
				"/api/v2/claims": 10,
			},
		},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "tonsurance",
			User:         "tonsurance",
			SSLMode:      "disable",
			PoolMaxConns: 8,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		Oracle: OracleConfig{
			Timeout: duration{10 * time.Second},
		},
		Bridges: BridgesConfig{
			Timeout: duration{10 * time.Second},
		},
		Claims: ClaimsConfig{
			SampleInterval:      duration{60 * time.Second},
			ConfirmationSamples: 1,
		},
		Hedge: HedgeConfig{
			PolymarketWeight:   0.30,
			PerpetualsWeight:   0.30,
			DefiPerpsWeight:    0.30,
			AllianzWeight:      0.10,
			TotalHedgeRatio:    0.20,
			MinHedgeCents:      10_000, // $100
			RebalanceThreshold: 0.10,
			CheckInterval:      duration{300 * time.Second},
			Leverage:           5,
			DurationDays:       30,
			SlippageBps:        7.5,
		},
		Monitor: MonitorConfig{
			BridgeInterval:   duration{60 * time.Second},
			RiskInterval:     duration{60 * time.Second},
			ProductsInterval: duration{120 * time.Second},
			APYInterval:      duration{60 * time.Second},
			BridgeTxInterval: duration{5 * time.Second},
		},
		Venues: VenuesConfig{
			Timeout: duration{10 * time.Second},
		},
		Pool: PoolConfig{
			InitialCapitalCents: 1_000_000_000, // $10M
		},
		Notify: NotifyConfig{
			Events: []string{"bridge_critical", "claim_paid", "risk_breach"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency. It is called
// once at startup after Load.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: max_body_bytes must be positive")
	}
	if c.Security.AuthedPerMin <= 0 || c.Security.AnonPerMin <= 0 {
		return fmt.Errorf("config: rate limits must be positive")
	}
	if c.Security.WindowSeconds <= 0 {
		return fmt.Errorf("config: window_seconds must be positive")
	}
	weightSum := c.Hedge.PolymarketWeight + c.Hedge.PerpetualsWeight +
		c.Hedge.DefiPerpsWeight + c.Hedge.AllianzWeight
	if math.Abs(weightSum-1.0) > 1e-9 {
		return fmt.Errorf("config: hedge venue weights sum to %.6f, want 1.0", weightSum)
	}
	if c.Hedge.TotalHedgeRatio <= 0 || c.Hedge.TotalHedgeRatio > 1 {
		return fmt.Errorf("config: total_hedge_ratio %.4f out of (0,1]", c.Hedge.TotalHedgeRatio)
	}
	if c.Hedge.RebalanceThreshold < 0 {
		return fmt.Errorf("config: rebalance_threshold must be non-negative")
	}
	if c.Pool.InitialCapitalCents < 0 {
		return fmt.Errorf("config: initial_capital_cents must be non-negative")
	}
	if c.Claims.ConfirmationSamples < 1 {
		return fmt.Errorf("config: confirmation_samples must be >= 1")
	}
	for _, iv := range []time.Duration{
		c.Monitor.BridgeInterval.Duration,
		c.Monitor.RiskInterval.Duration,
		c.Monitor.ProductsInterval.Duration,
		c.Monitor.APYInterval.Duration,
		c.Monitor.BridgeTxInterval.Duration,
		c.Claims.SampleInterval.Duration,
		c.Hedge.CheckInterval.Duration,
	} {
		if iv <= 0 {
			return fmt.Errorf("config: loop intervals must be positive")
		}
	}
	switch strings.ToLower(c.Mode) {
	case "serve", "monitor", "full":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}
	return nil
}
