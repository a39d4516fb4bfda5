package viewer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/cache"
	"github.com/sells-group/placemap/internal/layer"
	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/resilience"
	"github.com/sells-group/placemap/internal/store"
)

// ToggleTradeArea removes the trade-area layer of placeID if it is shown or
// being fetched. Otherwise it fetches the place's trade areas and adds them,
// returning true. A full registry fails with layer.ErrCapacityExceeded before
// anything is fetched.
func (c *Controller) ToggleTradeArea(ctx context.Context, placeID string) (bool, error) {
	id := layer.EntryID(layer.TypeTradeArea, placeID)

	place, gen, off, err := c.begin(layer.TypeTradeArea, placeID, func(p model.Place) bool {
		return p.TradeAreaAvailable
	})
	if err != nil || off {
		return false, err
	}

	areas, err := c.fetchTradeAreas(ctx, placeID)
	return c.finish(gen, id, err, len(areas) == 0, layer.Entry{
		ID:         id,
		Type:       layer.TypeTradeArea,
		PlaceID:    placeID,
		PlaceName:  place.Name,
		TradeAreas: areas,
		Color:      layer.PlaceColor(placeID),
		Visible:    true,
		Timestamp:  now(),
	})
}

// ToggleHomeZipcodes removes the home-zipcode layer of placeID if it is shown
// or being fetched. Otherwise it fetches the place's weights and the matching
// zipcode polygons and adds the joined layer in place of any other
// home-zipcode layer, returning true.
func (c *Controller) ToggleHomeZipcodes(ctx context.Context, placeID string) (bool, error) {
	id := layer.EntryID(layer.TypeHomeZipcodes, placeID)

	place, gen, off, err := c.begin(layer.TypeHomeZipcodes, placeID, func(p model.Place) bool {
		return p.HomeZipcodesAvailable
	})
	if err != nil || off {
		return false, err
	}

	areas, err := c.fetchHomeZipcodes(ctx, placeID)
	return c.finish(gen, id, err, len(areas) == 0, layer.Entry{
		ID:           id,
		Type:         layer.TypeHomeZipcodes,
		PlaceID:      placeID,
		PlaceName:    place.Name,
		HomeZipcodes: areas,
		Color:        layer.HomeZipcodeColor,
		Visible:      true,
		Timestamp:    now(),
	})
}

// begin performs the synchronous half of a toggle. off reports that the
// layer was toggled off and nothing needs fetching.
func (c *Controller) begin(t layer.Type, placeID string, available func(model.Place) bool) (model.Place, uint64, bool, error) {
	id := layer.EntryID(t, placeID)

	c.mu.Lock()
	defer c.mu.Unlock()

	place, ok := model.FindPlace(c.places, placeID)
	if !ok {
		return model.Place{}, 0, false, eris.Wrapf(ErrUnknownPlace, "place %s", placeID)
	}

	_, inFlight := c.pending[id]
	if c.registry.Has(id) || inFlight {
		c.registry.Remove(id)
		delete(c.pending, id)
		c.log.Debug("viewer: layer toggled off", zap.String("layer", id))
		return place, 0, true, nil
	}

	if !available(place) {
		return place, 0, false, eris.Wrapf(ErrUnavailable, "%s for place %s", t, placeID)
	}

	switch t {
	case layer.TypeTradeArea:
		fetching := 0
		for _, p := range c.pending {
			if p.typ == layer.TypeTradeArea {
				fetching++
			}
		}
		if c.registry.Count(layer.TypeTradeArea)+fetching >= c.registry.MaxTradeAreas() {
			return place, 0, false, eris.Wrapf(layer.ErrCapacityExceeded,
				"viewer: at most %d trade areas", c.registry.MaxTradeAreas())
		}
	case layer.TypeHomeZipcodes:
		// Only the latest home-zipcode request may land.
		for pid, p := range c.pending {
			if p.typ == layer.TypeHomeZipcodes {
				delete(c.pending, pid)
			}
		}
	}

	c.gen++
	c.pending[id] = pendingFetch{typ: t, gen: c.gen}
	return place, c.gen, false, nil
}

// finish applies a fetch result unless the fetch was superseded.
func (c *Controller) finish(gen uint64, id string, fetchErr error, empty bool, entry layer.Entry) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pending[id]; !ok || p.gen != gen {
		c.log.Debug("viewer: discarding superseded fetch", zap.String("layer", id))
		return false, nil
	}
	delete(c.pending, id)

	if fetchErr != nil {
		return false, fetchErr
	}
	if empty {
		return false, eris.Wrapf(ErrNoData, "layer %s", id)
	}
	if err := c.registry.Add(entry); err != nil {
		return false, eris.Wrapf(err, "viewer: add %s", id)
	}
	c.log.Info("viewer: layer added", zap.String("layer", id), zap.Int("layers", c.registry.Len()))
	return true, nil
}

func (c *Controller) fetchTradeAreas(ctx context.Context, placeID string) ([]model.TradeArea, error) {
	key := cache.TradeAreaKey(placeID)
	if c.cache != nil {
		if areas, ok := cache.GetJSON[[]model.TradeArea](ctx, c.cache, key); ok {
			return areas, nil
		}
	}

	areas, err := resilience.Do(ctx, c.retryConfig("trade_areas", placeID), func(ctx context.Context) ([]model.TradeArea, error) {
		return c.store.TradeAreas(ctx, placeID)
	})
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "viewer: fetch trade areas for %s", placeID)
	}
	if c.cache != nil && len(areas) > 0 {
		cache.SetJSON(ctx, c.cache, key, areas)
	}
	return areas, nil
}

func (c *Controller) fetchHomeZipcodes(ctx context.Context, placeID string) ([]model.HomeZipcodeArea, error) {
	key := cache.HomeZipcodesKey(placeID)
	if c.cache != nil {
		if areas, ok := cache.GetJSON[[]model.HomeZipcodeArea](ctx, c.cache, key); ok {
			return areas, nil
		}
	}

	hz, err := resilience.Do(ctx, c.retryConfig("home_zipcodes", placeID), func(ctx context.Context) (*model.HomeZipcodes, error) {
		return c.store.HomeZipcodes(ctx, placeID)
	})
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "viewer: fetch home zipcodes for %s", placeID)
	}

	ids := hz.Locations.IDs()
	zipcodes, err := resilience.Do(ctx, c.retryConfig("zipcode_polygons", placeID), func(ctx context.Context) ([]model.Zipcode, error) {
		return c.store.ZipcodePolygons(ctx, ids)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "viewer: fetch zipcode polygons for %s", placeID)
	}

	areas := model.JoinHomeZipcodes(hz.Locations, zipcodes)
	if dropped := len(hz.Locations) - len(areas); dropped > 0 {
		c.log.Debug("viewer: dropped home zipcodes without weight or polygon",
			zap.String("place_id", placeID), zap.Int("dropped", dropped))
	}
	if c.cache != nil && len(areas) > 0 {
		cache.SetJSON(ctx, c.cache, key, areas)
	}
	return areas, nil
}

func (c *Controller) retryConfig(operation, placeID string) resilience.RetryConfig {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(operation, placeID)
	}
	return cfg
}
