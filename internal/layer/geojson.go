package layer

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// View is the wire form of a Descriptor: its styling plus a GeoJSON feature
// collection holding the markers or polygons.
type View struct {
	ID        string                     `json:"id"`
	Type      Type                       `json:"type"`
	PlaceID   string                     `json:"place_id,omitempty"`
	PlaceName string                     `json:"place_name,omitempty"`
	Visible   bool                       `json:"visible"`
	Color     Color                      `json:"color"`
	Opacity   float64                    `json:"opacity"`
	Level     int                        `json:"level,omitempty"`
	Data      *geojson.FeatureCollection `json:"data"`
}

// Views renders descriptors for a map client, preserving their order.
func Views(ds []Descriptor) []View {
	out := make([]View, len(ds))
	for i, d := range ds {
		out[i] = d.View()
	}
	return out
}

// View renders d as GeoJSON. Markers become points, features polygons.
func (d Descriptor) View() View {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(d.Markers)+len(d.Features))}
	for _, m := range d.Markers {
		fc.Features = append(fc.Features, markerFeature(m))
	}
	for _, f := range d.Features {
		fc.Features = append(fc.Features, polygonFeature(f))
	}
	return View{
		ID:        d.ID,
		Type:      d.Type,
		PlaceID:   d.PlaceID,
		PlaceName: d.PlaceName,
		Visible:   d.Visible,
		Color:     d.Color,
		Opacity:   d.Opacity,
		Level:     d.Level,
		Data:      fc,
	}
}

func markerFeature(m Marker) *geojson.Feature {
	p := m.Place
	return &geojson.Feature{
		ID:       p.ID,
		Geometry: geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}),
		Properties: map[string]any{
			"name":                    p.Name,
			"street_address":          p.StreetAddress,
			"city":                    p.City,
			"state":                   p.State,
			"category":                p.Category,
			"is_reference":            m.IsReference,
			"size":                    m.Size,
			"trade_area_available":    p.TradeAreaAvailable,
			"home_zipcodes_available": p.HomeZipcodesAvailable,
		},
	}
}

func polygonFeature(f Feature) *geojson.Feature {
	props := map[string]any{
		"color":  f.Color,
		"bucket": f.Bucket,
	}
	if f.Level != 0 {
		props["level"] = f.Level
	} else {
		props["weight"] = f.Weight
	}
	return &geojson.Feature{
		ID:         f.ID,
		Geometry:   f.Ring.Polygon(),
		Properties: props,
	}
}
