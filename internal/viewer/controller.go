// Package viewer owns the map state of one viewer session: the loaded places,
// the layer registry, filters, selection and level selection. It fetches
// overlays on demand and composes the render-ready layer list.
package viewer

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/placemap/internal/cache"
	"github.com/sells-group/placemap/internal/layer"
	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/resilience"
	"github.com/sells-group/placemap/internal/store"
)

// Options configures a Controller.
type Options struct {
	MaxTradeAreas       int
	Levels              []int
	Buckets             int
	DefaultRadiusMeters float64

	// Retry governs store reads for overlay fetches. The zero value uses
	// resilience.DefaultRetryConfig.
	Retry resilience.RetryConfig
}

// DefaultOptions returns the stock map configuration.
func DefaultOptions() Options {
	return Options{
		MaxTradeAreas:       layer.DefaultMaxTradeAreas,
		Levels:              layer.DefaultLevels,
		Buckets:             5,
		DefaultRadiusMeters: layer.DefaultRadiusMeters,
	}
}

// pendingFetch marks an overlay fetch in flight. A result is applied only if
// its generation is still the pending one when it returns.
type pendingFetch struct {
	typ layer.Type
	gen uint64
}

// Controller serializes every state mutation behind one mutex. Store and
// cache I/O happen outside the lock.
type Controller struct {
	store      store.Store
	cache      cache.Cache
	compositor *layer.Compositor
	registry   *layer.Registry
	retry      resilience.RetryConfig
	log        *zap.Logger

	mu         sync.Mutex
	places     []model.Place
	reference  *model.Place
	categories []string
	filters    layer.Filters
	selection  layer.Selection
	levels     []layer.Level
	pending    map[string]pendingFetch
	gen        uint64
}

// New creates a Controller over st. c may be nil to disable caching.
func New(st store.Store, c cache.Cache, opts Options) *Controller {
	compositor := layer.NewCompositor()
	if opts.Buckets > 0 {
		compositor.Buckets = opts.Buckets
	}
	levels := opts.Levels
	if len(levels) == 0 {
		levels = layer.DefaultLevels
	}
	filters := layer.DefaultFilters()
	if opts.DefaultRadiusMeters > 0 {
		filters.RadiusMeters = opts.DefaultRadiusMeters
	}

	return &Controller{
		store:      st,
		cache:      c,
		compositor: compositor,
		registry:   layer.NewRegistry(opts.MaxTradeAreas),
		retry:      opts.Retry,
		log:        zap.L().With(zap.String("component", "viewer")),
		filters:    filters,
		selection:  layer.DefaultSelection(),
		levels:     layer.NewLevels(levels),
		pending:    make(map[string]pendingFetch),
	}
}

// Load reads the place set, the reference place and the categories from the
// store. It replaces any previously loaded places but keeps the registry.
func (c *Controller) Load(ctx context.Context) error {
	var (
		places     []model.Place
		reference  *model.Place
		categories []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		places, err = c.store.ListPlaces(gctx)
		return eris.Wrap(err, "viewer: load places")
	})
	g.Go(func() error {
		ref, err := c.store.ReferencePlace(gctx)
		if eris.Is(err, store.ErrNotFound) {
			return nil
		}
		reference = ref
		return eris.Wrap(err, "viewer: load reference place")
	})
	g.Go(func() error {
		var err error
		categories, err = c.store.ListCategories(gctx)
		return eris.Wrap(err, "viewer: load categories")
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if reference == nil {
		if p, ok := model.ReferencePlace(places); ok {
			reference = &p
		}
	}
	if categories == nil {
		categories = categoriesOf(places)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.places = places
	c.reference = reference
	c.categories = categories

	fields := []zap.Field{zap.Int("places", len(places)), zap.Int("categories", len(categories))}
	if reference != nil {
		fields = append(fields, zap.String("reference", reference.ID))
	}
	c.log.Info("viewer: loaded places", fields...)
	return nil
}

// Places returns the loaded place set.
func (c *Controller) Places() []model.Place {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.places
}

// Reference returns the reference place, if one is loaded.
func (c *Controller) Reference() (model.Place, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reference == nil {
		return model.Place{}, false
	}
	return *c.reference, true
}

// Categories returns the distinct place categories, sorted.
func (c *Controller) Categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.categories
}

// Filters returns the current nearby-place filters.
func (c *Controller) Filters() layer.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Selection returns the selected data type and show toggles.
func (c *Controller) Selection() layer.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

// Levels returns a copy of the trade-area level selection.
func (c *Controller) Levels() []layer.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]layer.Level(nil), c.levels...)
}

// SetFilters replaces the nearby-place filters. The radius must be finite and
// non-negative.
func (c *Controller) SetFilters(f layer.Filters) error {
	if math.IsNaN(f.RadiusMeters) || math.IsInf(f.RadiusMeters, 0) || f.RadiusMeters < 0 {
		return eris.Wrapf(ErrInvalidFilter, "radius %v", f.RadiusMeters)
	}
	f.Categories = append([]string(nil), f.Categories...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = f
	return nil
}

// SetSelectedDataType switches the overlay class in view. Switching to home
// zipcodes drops every trade area and every home-zipcode layer that does not
// belong to the reference place, including fetches still in flight.
func (c *Controller) SetSelectedDataType(t layer.Type) error {
	if t != layer.TypeTradeArea && t != layer.TypeHomeZipcodes {
		return eris.Wrapf(ErrInvalidFilter, "data type %q", t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.selection.DataType
	c.selection.DataType = t
	if t != layer.TypeHomeZipcodes || prev == layer.TypeHomeZipcodes {
		return nil
	}

	refID := ""
	if c.reference != nil {
		refID = c.reference.ID
	}
	c.registry.RetainReferenceHomeZipcodes(refID)
	for id, p := range c.pending {
		if p.typ == layer.TypeTradeArea || id != layer.EntryID(layer.TypeHomeZipcodes, refID) {
			delete(c.pending, id)
		}
	}
	c.log.Debug("viewer: switched to home zipcodes", zap.Int("layers", c.registry.Len()))
	return nil
}

// SetShowTradeAreas shows or hides every trade-area layer.
func (c *Controller) SetShowTradeAreas(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.ShowTradeAreas = show
}

// SetShowHomeZipcodes shows or hides the home-zipcode layer.
func (c *Controller) SetShowHomeZipcodes(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.ShowHomeZipcodes = show
}

// ToggleShowTradeAreas flips trade-area visibility and returns the new value.
func (c *Controller) ToggleShowTradeAreas() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.ShowTradeAreas = !c.selection.ShowTradeAreas
	return c.selection.ShowTradeAreas
}

// ToggleShowHomeZipcodes flips home-zipcode visibility and returns the new value.
func (c *Controller) ToggleShowHomeZipcodes() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.ShowHomeZipcodes = !c.selection.ShowHomeZipcodes
	return c.selection.ShowHomeZipcodes
}

// SetLevelSelected selects or deselects one configured trade-area level.
func (c *Controller) SetLevelSelected(level int, selected bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.levels {
		if l.Level == level {
			c.levels = layer.SetLevelSelected(c.levels, level, selected)
			return nil
		}
	}
	return eris.Wrapf(ErrInvalidFilter, "level %d is not configured", level)
}

// SetAllLevels selects or deselects every trade-area level.
func (c *Controller) SetAllLevels(selected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.levels = layer.SetAllLevels(c.levels, selected)
}

// RemoveLayer drops a registry entry and abandons its pending fetch.
func (c *Controller) RemoveLayer(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.Remove(id)
	delete(c.pending, id)
}

// ToggleVisibility flips the visible flag of a registry entry.
func (c *Controller) ToggleVisibility(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.ToggleVisibility(id)
}

// ClearByType drops every entry of type t and its pending fetches.
func (c *Controller) ClearByType(t layer.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.ClearByType(t)
	for id, p := range c.pending {
		if p.typ == t {
			delete(c.pending, id)
		}
	}
}

// ClearAll empties the registry and abandons every pending fetch.
func (c *Controller) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.ClearAll()
	clear(c.pending)
}

// Entries returns a snapshot of the registry.
func (c *Controller) Entries() []layer.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Snapshot()
}

// Layers composes the current state into render-ready descriptors.
func (c *Controller) Layers() []layer.Descriptor {
	return c.compositor.Compose(c.snapshot())
}

// Legend describes the colors of the current composition.
func (c *Controller) Legend() layer.Legend {
	return c.compositor.Legend(c.snapshot())
}

// snapshot captures a consistent compositor input.
func (c *Controller) snapshot() layer.Input {
	c.mu.Lock()
	defer c.mu.Unlock()

	in := layer.Input{
		Places:    c.places,
		Entries:   c.registry.Snapshot(),
		Filters:   c.filters,
		Selection: c.selection,
		Levels:    append([]layer.Level(nil), c.levels...),
	}
	if c.reference != nil {
		ref := *c.reference
		in.Reference = &ref
	}
	return in
}

func categoriesOf(places []model.Place) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range places {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out
}

func now() time.Time { return time.Now().UTC() }
