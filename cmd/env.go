package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/cache"
	"github.com/sells-group/placemap/internal/config"
	"github.com/sells-group/placemap/internal/store"
	"github.com/sells-group/placemap/internal/viewer"
)

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		return store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// initCache returns a nil Cache for the "none" driver.
func initCache(ctx context.Context, cc config.CacheConfig) (cache.Cache, error) {
	switch cc.Driver {
	case "none":
		return nil, nil
	case "memory", "":
		return cache.NewMemory(cc.MaxEntries, cc.TTL()), nil
	case "redis":
		r, err := cache.NewRedis(ctx, cc.RedisURL, cc.TTL())
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, eris.Errorf("unsupported cache driver: %s", cc.Driver)
	}
}

func controllerOptions(mc config.MapConfig) viewer.Options {
	return viewer.Options{
		MaxTradeAreas:       mc.MaxTradeAreas,
		Levels:              mc.TradeAreaLevels,
		Buckets:             mc.DensityBuckets,
		DefaultRadiusMeters: mc.DefaultRadiusMeters,
	}
}

// mapEnv bundles the collaborators a loaded controller needs.
type mapEnv struct {
	Store      store.Store
	Cache      cache.Cache
	Controller *viewer.Controller
}

func initMapEnv(ctx context.Context, c *config.Config, withCache bool) (*mapEnv, error) {
	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	env := &mapEnv{Store: st}
	if withCache {
		env.Cache, err = initCache(ctx, c.Cache)
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "init cache")
		}
	}

	env.Controller = viewer.New(st, env.Cache, controllerOptions(c.Map))
	if err := env.Controller.Load(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "load places")
	}
	zap.L().Info("places loaded", zap.Int("places", len(env.Controller.Places())))
	return env, nil
}

func (e *mapEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}
