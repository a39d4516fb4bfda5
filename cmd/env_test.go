package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placemap/internal/cache"
	"github.com/sells-group/placemap/internal/config"
)

func TestInitStore(t *testing.T) {
	ctx := context.Background()

	st, err := initStore(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "env.db")})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = initStore(ctx, config.StoreConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "unsupported store driver")
}

func TestInitCache(t *testing.T) {
	ctx := context.Background()

	c, err := initCache(ctx, config.CacheConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = initCache(ctx, config.CacheConfig{Driver: "memory", MaxEntries: 8, TTLMinutes: 1})
	require.NoError(t, err)
	assert.IsType(t, &cache.Memory{}, c)
	assert.Equal(t, 8, c.Stats().MaxEntries)

	c, err = initCache(ctx, config.CacheConfig{Driver: "redis", RedisURL: "not a url"})
	assert.Error(t, err)
	assert.Nil(t, c)

	_, err = initCache(ctx, config.CacheConfig{Driver: "memcached"})
	assert.ErrorContains(t, err, "unsupported cache driver")
}

func TestControllerOptions(t *testing.T) {
	opts := controllerOptions(config.MapConfig{
		MaxTradeAreas:       4,
		TradeAreaLevels:     []int{25, 75},
		DensityBuckets:      5,
		DefaultRadiusMeters: 900,
	})
	assert.Equal(t, 4, opts.MaxTradeAreas)
	assert.Equal(t, []int{25, 75}, opts.Levels)
	assert.Equal(t, 5, opts.Buckets)
	assert.InDelta(t, 900, opts.DefaultRadiusMeters, 1e-9)
}

func TestInitMapEnv(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)
	seedStore(t, c)

	env, err := initMapEnv(ctx, c, true)
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Cache)
	assert.Len(t, env.Controller.Places(), 3)
	ref, ok := env.Controller.Reference()
	require.True(t, ok)
	assert.Equal(t, "REF", ref.ID)
}

// testConfig returns a valid config backed by a temp SQLite file.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "placemap.db")},
		Map: config.MapConfig{
			MaxTradeAreas:       10,
			TradeAreaLevels:     []int{30, 50, 70},
			DensityBuckets:      5,
			DefaultRadiusMeters: 1800,
		},
		Cache: config.CacheConfig{Driver: "memory", MaxEntries: 16, TTLMinutes: 5},
	}
}

const square = `{"type":"Polygon","coordinates":[[[0,0],[0.01,0],[0.01,0.01],[0,0.01],[0,0]]]}`

// seedStore imports a small fixture through the import path.
func seedStore(t *testing.T, c *config.Config) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	paths := importPaths{
		Places:       writeFile(t, dir, "places.json", `[
			{"id":"REF","name":"Mine","sub_category":"Cafe","ismyplace":true,"istradeareaavailable":true,"ishomezipcodesavailable":true},
			{"id":"A","name":"Alpha","sub_category":"Cafe","latitude":0.001,"istradeareaavailable":true},
			{"id":"B","name":"Beta","sub_category":"Bakery","latitude":0.002}
		]`),
		TradeAreas: writeFile(t, dir, "trade_areas.json", `[
			{"pid":"A","trade_area":"30","polygon":`+square+`},
			{"pid":"A","trade_area":50,"polygon":`+square+`}
		]`),
		HomeZipcodes: writeFile(t, dir, "home_zipcodes.yaml", `
- place_id: REF
  locations:
    "10001": "40"
    "10002": 60
`),
		Zipcodes: writeFile(t, dir, "zipcodes.json", `[
			{"id":"10001","polygon":`+square+`},
			{"id":"10002","polygon":`+square+`}
		]`),
	}

	st, err := initStore(ctx, c.Store)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	_, err = importFiles(ctx, st, paths)
	require.NoError(t, err)
}
