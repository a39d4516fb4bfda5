package model

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/placemap/internal/geometry"
)

// Locations maps a zipcode id to the share of a place's customers living there.
type Locations map[string]float64

// UnmarshalJSON accepts an object or an array of objects, optionally encoded
// as a JSON string, with numeric or string weights. Weights that cannot be
// read are stored as NaN.
func (l *Locations) UnmarshalJSON(data []byte) error {
	out := make(Locations)
	decodeLocations(data, out, 0)
	*l = out
	return nil
}

func decodeLocations(data []byte, out Locations, depth int) {
	if depth > 2 {
		return
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		for id, raw := range obj {
			out[id] = parseWeight(raw)
		}
		return
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		for _, item := range arr {
			decodeLocations(item, out, depth+1)
		}
		return
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		decodeLocations([]byte(s), out, depth+1)
	}
}

func parseWeight(data json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return math.NaN()
}

// MarshalJSON writes the weights as an object, omitting non-finite ones.
func (l Locations) MarshalJSON() ([]byte, error) {
	finite := make(map[string]float64, len(l))
	for id, w := range l {
		if !math.IsNaN(w) && !math.IsInf(w, 0) {
			finite[id] = w
		}
	}
	return json.Marshal(finite)
}

// IDs returns the zipcode ids in ascending order.
func (l Locations) IDs() []string {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HomeZipcodes is the customer-origin breakdown of one place.
type HomeZipcodes struct {
	PlaceID   string    `json:"place_id"`
	Locations Locations `json:"locations"`
}

// Zipcode is a postal-code boundary.
type Zipcode struct {
	ID      string           `json:"id"`
	Polygon geometry.Polygon `json:"polygon"`
}

// HomeZipcodeArea is a zipcode boundary joined with a place's customer weight.
type HomeZipcodeArea struct {
	ZipcodeID string           `json:"zipcode_id"`
	Weight    float64          `json:"weight"`
	Polygon   geometry.Polygon `json:"polygon"`
}

// JoinHomeZipcodes pairs weights with zipcode polygons. Zipcodes without a
// finite weight or a decodable polygon are dropped. The result is ordered by
// weight descending, then zipcode id.
func JoinHomeZipcodes(weights Locations, zipcodes []Zipcode) []HomeZipcodeArea {
	out := make([]HomeZipcodeArea, 0, len(zipcodes))
	seen := make(map[string]bool, len(zipcodes))
	for _, z := range zipcodes {
		if seen[z.ID] || !z.Polygon.Valid() {
			continue
		}
		w, ok := weights[z.ID]
		if !ok || math.IsNaN(w) || math.IsInf(w, 0) {
			continue
		}
		seen[z.ID] = true
		out = append(out, HomeZipcodeArea{ZipcodeID: z.ID, Weight: w, Polygon: z.Polygon})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].ZipcodeID < out[j].ZipcodeID
	})
	return out
}
