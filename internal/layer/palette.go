package layer

import "unicode/utf16"

// Color is an RGB triple.
type Color [3]uint8

// IsZero reports whether no color has been assigned.
func (c Color) IsZero() bool {
	return c == Color{}
}

// TradeAreaPalette holds the per-place trade-area colors.
var TradeAreaPalette = []Color{
	{255, 99, 71},   // red
	{54, 162, 235},  // blue
	{75, 192, 192},  // teal
	{255, 206, 84},  // yellow
	{153, 102, 255}, // purple
	{255, 159, 64},  // orange
	{199, 199, 199}, // grey
	{83, 102, 255},  // indigo
	{255, 99, 132},  // pink
	{54, 235, 162},  // green
}

// DensityPalette colors home-zipcode density buckets, lowest first.
var DensityPalette = []Color{
	{255, 206, 84},
	{255, 159, 64},
	{255, 99, 132},
	{153, 102, 255},
	{201, 203, 207},
}

// HomeZipcodeColor is the outline color of the home-zipcode layer.
var HomeZipcodeColor = Color{54, 162, 235}

// Legend colors of place markers.
var (
	ReferencePlaceColor = Color{255, 0, 0}
	NearbyPlaceColor    = Color{255, 140, 0}
)

// PlaceHash is a 31-multiplier string hash over UTF-16 code units with 32-bit
// wraparound. It is stable across runs and platforms.
func PlaceHash(id string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(id)) {
		h = (h << 5) - h + int32(u)
	}
	return h
}

// PaletteIndex maps a place id onto a palette of size n.
func PaletteIndex(id string, n int) int {
	if n <= 0 {
		return 0
	}
	h := int64(PlaceHash(id))
	if h < 0 {
		h = -h
	}
	return int(h % int64(n))
}

// PlaceColor returns the trade-area color of a place.
func PlaceColor(id string) Color {
	return TradeAreaPalette[PaletteIndex(id, len(TradeAreaPalette))]
}
