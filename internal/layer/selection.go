package layer

import "sort"

// DefaultRadiusMeters is the nearby-place radius used until the user picks one.
const DefaultRadiusMeters = 1800.0

// DefaultLevels are the trade-area percentile levels offered by default.
var DefaultLevels = []int{30, 50, 70}

// Filters narrow the places shown around the reference place. RadiusMeters is
// assumed finite and non-negative; callers validate it first.
type Filters struct {
	RadiusMeters     float64  `json:"radius"`
	Categories       []string `json:"categories"`
	ShowNearbyPlaces bool     `json:"show_nearby_places"`
}

// DefaultFilters returns the filters in effect at startup.
func DefaultFilters() Filters {
	return Filters{RadiusMeters: DefaultRadiusMeters, Categories: []string{}}
}

// Selection is the customer-analysis view state.
type Selection struct {
	DataType         Type `json:"selected_data_type"`
	ShowTradeAreas   bool `json:"show_trade_areas"`
	ShowHomeZipcodes bool `json:"show_home_zipcodes"`
}

// DefaultSelection returns the view state at startup.
func DefaultSelection() Selection {
	return Selection{DataType: TypeTradeArea, ShowTradeAreas: true, ShowHomeZipcodes: true}
}

// Level is one selectable trade-area percentile level.
type Level struct {
	Level    int     `json:"level"`
	Selected bool    `json:"selected"`
	Opacity  float64 `json:"opacity"`
}

// Fill opacity bounds for trade-area levels. Higher levels cover a smaller,
// denser area and are drawn more opaque.
const (
	minLevelOpacity = 0.3
	maxLevelOpacity = 0.7
)

// NewLevels returns the level selection state for the given levels, sorted
// ascending, deduplicated and all selected.
func NewLevels(levels []int) []Level {
	sorted := append([]int(nil), levels...)
	sort.Ints(sorted)

	uniq := sorted[:0]
	for i, l := range sorted {
		if i == 0 || l != sorted[i-1] {
			uniq = append(uniq, l)
		}
	}

	out := make([]Level, len(uniq))
	for i, l := range uniq {
		out[i] = Level{Level: l, Selected: true, Opacity: LevelOpacity(i, len(uniq))}
	}
	return out
}

// LevelOpacity spreads opacities evenly from the lowest to the highest level.
// With three levels this yields 0.3, 0.5 and 0.7.
func LevelOpacity(rank, count int) float64 {
	if count <= 1 {
		return (minLevelOpacity + maxLevelOpacity) / 2
	}
	return minLevelOpacity + (maxLevelOpacity-minLevelOpacity)*float64(rank)/float64(count-1)
}

// SetLevelSelected returns a copy of levels with the given level's selection
// changed. Unknown levels leave the state as is.
func SetLevelSelected(levels []Level, level int, selected bool) []Level {
	out := append([]Level(nil), levels...)
	for i := range out {
		if out[i].Level == level {
			out[i].Selected = selected
		}
	}
	return out
}

// SetAllLevels returns a copy of levels with every level's selection set.
func SetAllLevels(levels []Level, selected bool) []Level {
	out := append([]Level(nil), levels...)
	for i := range out {
		out[i].Selected = selected
	}
	return out
}

func findLevel(levels []Level, level int) (Level, bool) {
	for _, l := range levels {
		if l.Level == level {
			return l, true
		}
	}
	return Level{}, false
}
