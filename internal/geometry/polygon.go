// Package geometry normalizes polygon records from the data store and measures
// great-circle distances between places.
package geometry

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Kind tags the shape a polygon record arrived in.
type Kind int

// Polygon kinds.
const (
	KindInvalid Kind = iota
	KindPolygon
	KindMultiPolygon
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindPolygon:
		return "Polygon"
	case KindMultiPolygon:
		return "MultiPolygon"
	case KindRaw:
		return "Raw"
	default:
		return "Invalid"
	}
}

// maxEncodingDepth bounds how many times a polygon may be wrapped in a JSON
// string before it is treated as undecodable.
const maxEncodingDepth = 3

// Polygon is a polygon record as delivered by the store. Coordinates are kept
// undecoded until a ring is extracted so a single bad point cannot fail the
// whole record.
type Polygon struct {
	Kind        Kind
	Coordinates json.RawMessage
}

// ParsePolygon decodes a polygon record. The input may be a GeoJSON-style
// object, a bare coordinate array, or either of those serialized as a JSON
// string. Undecodable input yields a KindInvalid polygon.
func ParsePolygon(data []byte) Polygon {
	for depth := 0; depth < maxEncodingDepth; depth++ {
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			return Polygon{}
		}
		switch data[0] {
		case '"':
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return Polygon{}
			}
			data = []byte(s)
		case '[':
			if !json.Valid(data) {
				return Polygon{}
			}
			return Polygon{Kind: KindRaw, Coordinates: append(json.RawMessage(nil), data...)}
		case '{':
			return parseTagged(data)
		default:
			return Polygon{}
		}
	}
	return Polygon{}
}

func parseTagged(data []byte) Polygon {
	var g geojson.Geometry
	if err := json.Unmarshal(data, &g); err != nil || g.Coordinates == nil {
		return Polygon{}
	}
	coords := append(json.RawMessage(nil), (*g.Coordinates)...)
	switch g.Type {
	case "Polygon":
		return Polygon{Kind: KindPolygon, Coordinates: coords}
	case "MultiPolygon":
		return Polygon{Kind: KindMultiPolygon, Coordinates: coords}
	default:
		return Polygon{Kind: KindRaw, Coordinates: coords}
	}
}

// Valid reports whether the record decoded to a recognized shape. It says
// nothing about the ring itself; see Normalize.
func (p Polygon) Valid() bool {
	return p.Kind != KindInvalid && len(p.Coordinates) > 0
}

// UnmarshalJSON implements json.Unmarshaler. It never fails; malformed input
// decodes to a KindInvalid polygon.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	*p = ParsePolygon(data)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Polygon) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case KindPolygon, KindMultiPolygon:
		raw := p.Coordinates
		return json.Marshal(geojson.Geometry{Type: p.Kind.String(), Coordinates: &raw})
	case KindRaw:
		return p.Coordinates, nil
	default:
		return []byte("null"), nil
	}
}

// Ring is an ordered sequence of (longitude, latitude) coordinates.
type Ring []geom.Coord

// Closed reports whether the ring's first and last points coincide.
func (r Ring) Closed() bool {
	if len(r) < 2 {
		return false
	}
	first, last := r[0], r[len(r)-1]
	return first.X() == last.X() && first.Y() == last.Y()
}

// Polygon converts the ring into a single-ring go-geom polygon.
func (r Ring) Polygon() *geom.Polygon {
	flat := make([]float64, 0, len(r)*2)
	for _, c := range r {
		flat = append(flat, c.X(), c.Y())
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// ExtractRing returns the working ring of a polygon record: the first ring of
// the first polygon for multi-polygons, the exterior ring for polygons, and for
// untagged coordinates either the first ring or the point list itself. Points
// that are not numeric pairs are kept as NaN coordinates for ValidateRing to
// drop. Unrecognized shapes yield an empty ring.
func ExtractRing(p Polygon) Ring {
	if !p.Valid() {
		return nil
	}
	top := decodeArray(p.Coordinates)
	if len(top) == 0 {
		return nil
	}

	switch p.Kind {
	case KindMultiPolygon:
		rings := decodeArray(top[0])
		if len(rings) == 0 {
			return nil
		}
		return decodeRing(rings[0])
	case KindPolygon:
		return decodeRing(top[0])
	case KindRaw:
		first := decodeArray(top[0])
		if len(first) > 0 && isArray(first[0]) {
			return decodeRing(top[0])
		}
		return decodePoints(top)
	}
	return nil
}

// ValidateRing drops points outside valid longitude/latitude bounds and closes
// the ring. Rings with fewer than three valid points yield nil.
func ValidateRing(r Ring) Ring {
	valid := make(Ring, 0, len(r)+1)
	for _, c := range r {
		if len(c) < 2 || !inBounds(c.X(), c.Y()) {
			continue
		}
		valid = append(valid, geom.Coord{c.X(), c.Y()})
	}
	if len(valid) < 3 {
		return nil
	}
	if !valid.Closed() {
		first := valid[0]
		valid = append(valid, geom.Coord{first.X(), first.Y()})
	}
	return valid
}

// Normalize extracts and validates the working ring of p.
func Normalize(p Polygon) Ring {
	return ValidateRing(ExtractRing(p))
}

func inBounds(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

func decodeRing(data json.RawMessage) Ring {
	return decodePoints(decodeArray(data))
}

func decodePoints(points []json.RawMessage) Ring {
	if len(points) == 0 {
		return nil
	}
	ring := make(Ring, 0, len(points))
	for _, raw := range points {
		ring = append(ring, decodePoint(raw))
	}
	return ring
}

func decodePoint(data json.RawMessage) geom.Coord {
	var vals []any
	if err := json.Unmarshal(data, &vals); err != nil || len(vals) < 2 {
		return geom.Coord{math.NaN(), math.NaN()}
	}
	lon, okLon := vals[0].(float64)
	lat, okLat := vals[1].(float64)
	if !okLon || !okLat {
		return geom.Coord{math.NaN(), math.NaN()}
	}
	return geom.Coord{lon, lat}
}

func decodeArray(data json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func isArray(data json.RawMessage) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '['
}
