package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceHash_MatchesCharCodeAccumulation(t *testing.T) {
	// "ab": ((0*31)+97)*31 + 98 = 3105
	assert.Equal(t, int32(3105), PlaceHash("ab"))
	assert.Equal(t, int32(0), PlaceHash(""))
}

func TestPlaceHash_Wraps(t *testing.T) {
	h := PlaceHash("a-rather-long-place-identifier-that-overflows-int32")
	assert.Equal(t, h, PlaceHash("a-rather-long-place-identifier-that-overflows-int32"))
}

func TestPaletteIndex_InRangeAndStable(t *testing.T) {
	ids := []string{"", "p1", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "ümlaut-ø", "🙂-emoji"}
	for _, id := range ids {
		idx := PaletteIndex(id, len(TradeAreaPalette))
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(TradeAreaPalette))
		assert.Equal(t, idx, PaletteIndex(id, len(TradeAreaPalette)))
	}
	assert.Equal(t, 0, PaletteIndex("p1", 0))
}

func TestPaletteIndex_SpreadsAcrossPalette(t *testing.T) {
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seen[PaletteIndex(string(rune('A'+i%26))+string(rune('a'+i/26)), len(TradeAreaPalette))] = true
	}
	assert.Len(t, seen, len(TradeAreaPalette))
}

func TestPlaceColor(t *testing.T) {
	assert.Equal(t, TradeAreaPalette[PaletteIndex("p1", 10)], PlaceColor("p1"))
	assert.Len(t, TradeAreaPalette, 10)
	assert.Len(t, DensityPalette, 5)
	assert.True(t, Color{}.IsZero())
	assert.False(t, PlaceColor("p1").IsZero())
}
