package model

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sells-group/placemap/internal/geometry"
)

// DefaultTradeAreaLevel is assigned to trade areas whose level cannot be read.
const DefaultTradeAreaLevel = 30

// TradeArea is the region from which a place draws Level percent of its
// customers.
type TradeArea struct {
	PlaceID string           `json:"pid"`
	Level   int              `json:"trade_area"`
	Polygon geometry.Polygon `json:"polygon"`
}

// UnmarshalJSON accepts the level as a number or a numeric string.
func (t *TradeArea) UnmarshalJSON(data []byte) error {
	var raw struct {
		PlaceID string           `json:"pid"`
		Level   json.RawMessage  `json:"trade_area"`
		Polygon geometry.Polygon `json:"polygon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.PlaceID = raw.PlaceID
	t.Level = ParseLevel(raw.Level)
	t.Polygon = raw.Polygon
	return nil
}

// ParseLevel reads a trade-area level from a JSON number or string. Anything
// unreadable yields DefaultTradeAreaLevel.
func ParseLevel(data json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if v, err := strconv.ParseFloat(n.String(), 64); err == nil && v > 0 {
			return int(v)
		}
		return DefaultTradeAreaLevel
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v > 0 {
			return v
		}
	}
	return DefaultTradeAreaLevel
}
