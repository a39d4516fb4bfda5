package layer

import (
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/geometry"
	"github.com/sells-group/placemap/internal/model"
	"github.com/sells-group/placemap/internal/percentile"
)

// Marker sizes for the places layer.
const (
	ReferenceMarkerSize = 60
	PlaceMarkerSize     = 40
)

// HomeZipcodeOpacity is the fill opacity of home-zipcode polygons.
const HomeZipcodeOpacity = 0.5

// Marker is one place on the places layer.
type Marker struct {
	Place       model.Place `json:"place"`
	IsReference bool        `json:"is_reference"`
	Size        int         `json:"size"`
}

// Feature is one validated polygon of an overlay layer.
type Feature struct {
	ID     string        `json:"id"`
	Ring   geometry.Ring `json:"ring"`
	Color  Color         `json:"color"`
	Level  int           `json:"level,omitempty"`
	Weight float64       `json:"weight,omitempty"`
	Bucket int           `json:"bucket"`
}

// Descriptor is a render-ready layer. Its ID is stable across compositions as
// long as the underlying registry entry and place are unchanged.
type Descriptor struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	PlaceID   string    `json:"place_id,omitempty"`
	PlaceName string    `json:"place_name,omitempty"`
	Visible   bool      `json:"visible"`
	Color     Color     `json:"color"`
	Opacity   float64   `json:"opacity"`
	Level     int       `json:"level,omitempty"`
	Markers   []Marker  `json:"markers,omitempty"`
	Features  []Feature `json:"features,omitempty"`
}

// Input is everything a composition depends on. Entries should come from a
// single Registry.Snapshot.
type Input struct {
	Places    []model.Place
	Reference *model.Place
	Entries   []Entry
	Filters   Filters
	Selection Selection
	Levels    []Level
}

// Compositor turns registry state into layer descriptors. Its zero value is
// not usable; use NewCompositor.
type Compositor struct {
	TradeAreaPalette []Color
	DensityPalette   []Color
	Buckets          int
}

// NewCompositor returns a Compositor with the default palettes and five
// density buckets.
func NewCompositor() *Compositor {
	return &Compositor{
		TradeAreaPalette: TradeAreaPalette,
		DensityPalette:   DensityPalette,
		Buckets:          percentile.DefaultBuckets,
	}
}

// Compose builds the layer list for in. Polygon layers come first (trade areas
// then home zipcodes) so place markers are drawn on top. The result depends
// only on in; malformed polygons are dropped without affecting siblings.
func (c *Compositor) Compose(in Input) []Descriptor {
	var out []Descriptor
	if in.Selection.ShowTradeAreas {
		out = append(out, c.tradeAreaLayers(in.Entries, in.Levels)...)
	}
	if in.Selection.ShowHomeZipcodes {
		if d, ok := c.homeZipcodeLayer(in.Entries); ok {
			out = append(out, d)
		}
	}
	out = append(out, c.placesLayer(in))
	return out
}

func (c *Compositor) tradeAreaLayers(entries []Entry, levels []Level) []Descriptor {
	var out []Descriptor
	for _, e := range entries {
		if e.Type != TypeTradeArea || len(e.TradeAreas) == 0 {
			continue
		}

		byLevel := make(map[int][]model.TradeArea)
		for _, ta := range e.TradeAreas {
			byLevel[ta.Level] = append(byLevel[ta.Level], ta)
		}
		present := make([]int, 0, len(byLevel))
		for lvl := range byLevel {
			present = append(present, lvl)
		}
		sort.Ints(present)

		color := e.Color
		if color.IsZero() {
			color = c.placeColor(e.PlaceID)
		}

		for _, lvl := range present {
			sel, ok := findLevel(levels, lvl)
			if !ok || !sel.Selected {
				continue
			}

			features := make([]Feature, 0, len(byLevel[lvl]))
			for i, ta := range byLevel[lvl] {
				ring := geometry.Normalize(ta.Polygon)
				if ring == nil {
					zap.L().Debug("layer: dropping invalid trade area polygon",
						zap.String("place_id", e.PlaceID), zap.Int("level", lvl), zap.Int("index", i))
					continue
				}
				features = append(features, Feature{
					ID:    featureID(TradeAreaLayerID(e.PlaceID, lvl), i),
					Ring:  ring,
					Color: color,
					Level: lvl,
				})
			}
			if len(features) == 0 {
				continue
			}

			out = append(out, Descriptor{
				ID:        TradeAreaLayerID(e.PlaceID, lvl),
				Type:      TypeTradeArea,
				PlaceID:   e.PlaceID,
				PlaceName: e.PlaceName,
				Visible:   e.Visible,
				Color:     color,
				Opacity:   sel.Opacity,
				Level:     lvl,
				Features:  features,
			})
		}
	}
	return out
}

func (c *Compositor) homeZipcodeLayer(entries []Entry) (Descriptor, bool) {
	var entry *Entry
	for i := range entries {
		if entries[i].Type == TypeHomeZipcodes {
			entry = &entries[i]
			break
		}
	}
	if entry == nil || len(entry.HomeZipcodes) == 0 {
		return Descriptor{}, false
	}

	weights := make([]float64, len(entry.HomeZipcodes))
	for i, z := range entry.HomeZipcodes {
		weights[i] = z.Weight
	}
	buckets := percentile.Classify(weights, c.Buckets)

	features := make([]Feature, 0, len(entry.HomeZipcodes))
	for i, z := range entry.HomeZipcodes {
		if buckets[i] == percentile.Invalid {
			continue
		}
		ring := geometry.Normalize(z.Polygon)
		if ring == nil {
			zap.L().Debug("layer: dropping invalid zipcode polygon",
				zap.String("place_id", entry.PlaceID), zap.String("zipcode", z.ZipcodeID))
			continue
		}
		features = append(features, Feature{
			ID:     z.ZipcodeID,
			Ring:   ring,
			Color:  c.densityColor(buckets[i]),
			Weight: z.Weight,
			Bucket: buckets[i],
		})
	}
	if len(features) == 0 {
		return Descriptor{}, false
	}

	color := entry.Color
	if color.IsZero() {
		color = HomeZipcodeColor
	}
	return Descriptor{
		ID:        entry.ID,
		Type:      TypeHomeZipcodes,
		PlaceID:   entry.PlaceID,
		PlaceName: entry.PlaceName,
		Visible:   entry.Visible,
		Color:     color,
		Opacity:   HomeZipcodeOpacity,
		Features:  features,
	}, true
}

func (c *Compositor) placesLayer(in Input) Descriptor {
	d := Descriptor{
		ID:      PlacesLayerID,
		Type:    TypePlaces,
		Visible: true,
		Color:   ReferencePlaceColor,
		Opacity: 1,
		Markers: []Marker{},
	}
	ref := in.Reference
	if ref == nil {
		return d
	}
	d.Markers = append(d.Markers, Marker{Place: *ref, IsReference: true, Size: ReferenceMarkerSize})
	if !in.Filters.ShowNearbyPlaces {
		return d
	}

	radius := in.Filters.RadiusMeters
	search := geometry.NewSearchCap(ref.Latitude, ref.Longitude, radius)
	categories := make(map[string]bool, len(in.Filters.Categories))
	for _, cat := range in.Filters.Categories {
		categories[cat] = true
	}

	for _, p := range in.Places {
		if p.IsReferencePlace || p.ID == ref.ID {
			continue
		}
		if len(categories) > 0 && !categories[p.Category] {
			continue
		}
		if !search.MayContain(p.Latitude, p.Longitude) {
			continue
		}
		if geometry.HaversineMeters(ref.Latitude, ref.Longitude, p.Latitude, p.Longitude) <= radius {
			d.Markers = append(d.Markers, Marker{Place: p, Size: PlaceMarkerSize})
		}
	}
	return d
}

func (c *Compositor) placeColor(placeID string) Color {
	if len(c.TradeAreaPalette) == 0 {
		return PlaceColor(placeID)
	}
	return c.TradeAreaPalette[PaletteIndex(placeID, len(c.TradeAreaPalette))]
}

func (c *Compositor) densityColor(bucket int) Color {
	palette := c.DensityPalette
	if len(palette) == 0 {
		palette = DensityPalette
	}
	return palette[max(0, min(bucket, len(palette)-1))]
}

func featureID(layerID string, i int) string {
	return layerID + "#" + strconv.Itoa(i)
}
