package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "placemap.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.InDelta(t, 20, cfg.Server.RateLimit, 1e-9)
	assert.Equal(t, 40, cfg.Server.RateBurst)
	assert.Equal(t, 10, cfg.Map.MaxTradeAreas)
	assert.Equal(t, []int{30, 50, 70}, cfg.Map.TradeAreaLevels)
	assert.Equal(t, 5, cfg.Map.DensityBuckets)
	assert.InDelta(t, 1800, cfg.Map.DefaultRadiusMeters, 1e-9)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/placemap
log:
  level: debug
  format: console
server:
  port: 9090
map:
  max_trade_areas: 4
  trade_area_levels: [25, 75]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Map.MaxTradeAreas)
	assert.Equal(t, []int{25, 75}, cfg.Map.TradeAreaLevels)
	// Defaults still apply for unset values
	assert.Equal(t, "memory", cfg.Cache.Driver)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/placemap
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PLACEMAP_STORE_DRIVER", "sqlite")
	t.Setenv("PLACEMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PLACEMAP_SERVER_PORT", "3000")
	t.Setenv("PLACEMAP_MAP_MAX_TRADE_AREAS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Map.MaxTradeAreas)
}

func TestLoadInvalid(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PLACEMAP_MAP_DENSITY_BUCKETS", "7")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map.density_buckets must be 5")
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Store:  StoreConfig{Driver: "sqlite", DatabaseURL: "placemap.db"},
		Server: ServerConfig{Port: 8080},
		Map: MapConfig{
			MaxTradeAreas:       10,
			TradeAreaLevels:     []int{30, 50, 70},
			DensityBuckets:      5,
			DefaultRadiusMeters: 1800,
		},
		Cache: CacheConfig{Driver: "memory"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"missing url", func(c *Config) { c.Store.DatabaseURL = "" }, "store.database_url is required"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"zero capacity", func(c *Config) { c.Map.MaxTradeAreas = 0 }, "map.max_trade_areas"},
		{"no levels", func(c *Config) { c.Map.TradeAreaLevels = nil }, "at least one level"},
		{"level out of range", func(c *Config) { c.Map.TradeAreaLevels = []int{30, 150} }, "percentages"},
		{"negative radius", func(c *Config) { c.Map.DefaultRadiusMeters = -1 }, "default_radius_meters"},
		{"nan radius", func(c *Config) { c.Map.DefaultRadiusMeters = math.NaN() }, "default_radius_meters"},
		{"redis without url", func(c *Config) { c.Cache.Driver = "redis" }, "cache.redis_url"},
		{"bad cache driver", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	cfg.Map.MaxTradeAreas = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "map.max_trade_areas must be positive")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
