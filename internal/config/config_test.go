package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, int64(1_000_000_000), cfg.Pool.InitialCapitalCents)
	assert.Equal(t, 60*time.Second, cfg.Claims.SampleInterval.Duration)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"zero body cap", func(c *Config) { c.Server.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"zero rate limit", func(c *Config) { c.Security.AnonPerMin = 0 }, "rate limits"},
		{"zero window", func(c *Config) { c.Security.WindowSeconds = 0 }, "window_seconds"},
		{"weights off by one tenth", func(c *Config) { c.Hedge.AllianzWeight = 0.20 }, "weights sum"},
		{"hedge ratio above one", func(c *Config) { c.Hedge.TotalHedgeRatio = 1.5 }, "total_hedge_ratio"},
		{"negative rebalance threshold", func(c *Config) { c.Hedge.RebalanceThreshold = -0.1 }, "rebalance_threshold"},
		{"negative capital", func(c *Config) { c.Pool.InitialCapitalCents = -1 }, "initial_capital_cents"},
		{"zero confirmation samples", func(c *Config) { c.Claims.ConfirmationSamples = 0 }, "confirmation_samples"},
		{"zero loop interval", func(c *Config) { c.Monitor.BridgeInterval.Duration = 0 }, "loop intervals"},
		{"unknown mode", func(c *Config) { c.Mode = "hybrid" }, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ModeCaseInsensitive(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "SERVE"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "monitor"
log_level = "debug"

[server]
port = 9090
cors_origins = ["https://app.tonsurance.io"]

[claims]
sample_interval = "30s"
confirmation_samples = 3

[bridges]
timeout = "5s"

[[bridges.endpoints]]
id = "ton-eth"
source_chain = "TON"
dest_chain = "Ethereum"
status_url = "https://bridge.example/status"

[pool]
initial_capital_cents = 500000000
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.tonsurance.io"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Claims.SampleInterval.Duration)
	assert.Equal(t, 3, cfg.Claims.ConfirmationSamples)
	require.Len(t, cfg.Bridges.Endpoints, 1)
	assert.Equal(t, "ton-eth", cfg.Bridges.Endpoints[0].ID)
	assert.Equal(t, int64(500_000_000), cfg.Pool.InitialCapitalCents)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, 0.30, cfg.Hedge.PolymarketWeight)
	assert.Equal(t, 500, cfg.Security.AuthedPerMin)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TONSURANCE_MODE", "serve")
	t.Setenv("TONSURANCE_SERVER_PORT", "7070")
	t.Setenv("TONSURANCE_POOL_INITIAL_CAPITAL_CENTS", "250000")
	t.Setenv("TONSURANCE_CLAIMS_SAMPLE_INTERVAL", "15s")
	t.Setenv("TONSURANCE_NOTIFY_EVENTS", "claim_paid, bridge_critical")
	t.Setenv("TONSURANCE_POSTGRES_RUN_MIGRATIONS", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, int64(250_000), cfg.Pool.InitialCapitalCents)
	assert.Equal(t, 15*time.Second, cfg.Claims.SampleInterval.Duration)
	assert.Equal(t, []string{"claim_paid", "bridge_critical"}, cfg.Notify.Events)
	assert.True(t, cfg.Postgres.RunMigrations)
}

func TestLoad_BarePortHonoured(t *testing.T) {
	t.Setenv("PORT", "3000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoad_MalformedEnvValueIgnored(t *testing.T) {
	t.Setenv("TONSURANCE_SERVER_PORT", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
