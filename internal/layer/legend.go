package layer

import (
	"fmt"

	"github.com/sells-group/placemap/internal/percentile"
)

// LegendItem is one swatch of the map legend.
type LegendItem struct {
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Color       Color   `json:"color"`
	Opacity     float64 `json:"opacity,omitempty"`
}

// Legend explains the colors of the current composition.
type Legend struct {
	Places       []LegendItem `json:"places"`
	TradeAreas   []LegendItem `json:"trade_areas,omitempty"`
	HomeZipcodes []LegendItem `json:"home_zipcodes,omitempty"`
}

var staticDensityDescriptions = []string{
	"Low density",
	"Low-medium density",
	"Medium density",
	"Medium-high density",
	"High density",
}

// Legend describes the layers Compose would produce for in. Only the section
// of the selected data type is filled in.
func (c *Compositor) Legend(in Input) Legend {
	lg := Legend{Places: []LegendItem{{Label: "My Place", Color: ReferencePlaceColor}}}
	if in.Filters.ShowNearbyPlaces {
		lg.Places = append(lg.Places, LegendItem{
			Label:       "Nearby Places",
			Description: fmt.Sprintf("within %.0f m", in.Filters.RadiusMeters),
			Color:       NearbyPlaceColor,
		})
	}

	switch in.Selection.DataType {
	case TypeTradeArea:
		lg.TradeAreas = c.tradeAreaLegend(in)
	case TypeHomeZipcodes:
		lg.HomeZipcodes = c.homeZipcodeLegend(in.Entries)
	}
	return lg
}

func (c *Compositor) tradeAreaLegend(in Input) []LegendItem {
	var items []LegendItem
	for _, e := range in.Entries {
		if e.Type != TypeTradeArea {
			continue
		}
		color := e.Color
		if color.IsZero() {
			color = c.placeColor(e.PlaceID)
		}
		label := e.PlaceName
		if label == "" {
			label = e.PlaceID
		}
		items = append(items, LegendItem{Label: label, Color: color})
	}
	for _, l := range in.Levels {
		if !l.Selected {
			continue
		}
		items = append(items, LegendItem{
			Label:       fmt.Sprintf("%d%%", l.Level),
			Description: fmt.Sprintf("%d%% of customers", l.Level),
			Opacity:     l.Opacity,
		})
	}
	return items
}

func (c *Compositor) homeZipcodeLegend(entries []Entry) []LegendItem {
	buckets := c.Buckets
	if buckets < 1 {
		buckets = percentile.DefaultBuckets
	}

	var weights []float64
	for _, e := range entries {
		if e.Type == TypeHomeZipcodes && e.Visible {
			for _, z := range e.HomeZipcodes {
				weights = append(weights, z.Weight)
			}
			break
		}
	}

	items := make([]LegendItem, buckets)
	if len(weights) == 0 {
		for k := range items {
			desc := ""
			if k < len(staticDensityDescriptions) && buckets == len(staticDensityDescriptions) {
				desc = staticDensityDescriptions[k]
			}
			items[k] = LegendItem{Label: percentile.Label(k, buckets), Description: desc, Color: c.densityColor(k)}
		}
		return items
	}

	for k, r := range percentile.Ranges(weights, buckets) {
		desc := "no zipcodes"
		if r.Count > 0 {
			desc = fmt.Sprintf("%.1f%%-%.1f%%", r.Min, r.Max)
		}
		items[k] = LegendItem{Label: r.Label, Description: desc, Color: c.densityColor(k)}
	}
	return items
}
