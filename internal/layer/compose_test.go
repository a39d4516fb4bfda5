package layer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placemap/internal/geometry"
	"github.com/sells-group/placemap/internal/model"
)

const metersPerDegreeLat = 111194.92664455873

const squareRing = `{"type":"Polygon","coordinates":[[[0,0],[0.01,0],[0.01,0.01],[0,0.01],[0,0]]]}`

func squarePolygon() geometry.Polygon {
	return geometry.ParsePolygon([]byte(squareRing))
}

func reference() *model.Place {
	return &model.Place{ID: "ref", Name: "Mine", Latitude: 0, Longitude: 0, IsReferencePlace: true, Category: "Cafe"}
}

func baseInput() Input {
	return Input{
		Reference: reference(),
		Filters:   DefaultFilters(),
		Selection: DefaultSelection(),
		Levels:    NewLevels(DefaultLevels),
	}
}

func descriptorIDs(ds []Descriptor) []string {
	ids := make([]string, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	return ids
}

func TestCompose_PlacesLayerAlwaysPresent(t *testing.T) {
	c := NewCompositor()

	ds := c.Compose(Input{})
	require.Len(t, ds, 1)
	assert.Equal(t, PlacesLayerID, ds[0].ID)
	assert.NotNil(t, ds[0].Markers)
	assert.Empty(t, ds[0].Markers)

	ds = c.Compose(baseInput())
	require.Len(t, ds, 1)
	require.Len(t, ds[0].Markers, 1)
	assert.True(t, ds[0].Markers[0].IsReference)
	assert.Equal(t, ReferenceMarkerSize, ds[0].Markers[0].Size)
}

func TestCompose_RadiusFilter(t *testing.T) {
	in := baseInput()
	in.Filters.RadiusMeters = 1000
	in.Filters.ShowNearbyPlaces = true
	in.Places = []model.Place{
		*in.Reference,
		{ID: "near", Latitude: 500 / metersPerDegreeLat, Longitude: 0, Category: "Cafe"},
		{ID: "far", Latitude: 1500 / metersPerDegreeLat, Longitude: 0, Category: "Cafe"},
	}

	ds := NewCompositor().Compose(in)
	places := ds[len(ds)-1]
	require.Len(t, places.Markers, 2)
	assert.Equal(t, "ref", places.Markers[0].Place.ID)
	assert.Equal(t, "near", places.Markers[1].Place.ID)
	assert.Equal(t, PlaceMarkerSize, places.Markers[1].Size)
	assert.False(t, places.Markers[1].IsReference)
}

func TestCompose_NearbyHiddenByDefault(t *testing.T) {
	in := baseInput()
	in.Places = []model.Place{{ID: "near", Latitude: 0.001}}
	ds := NewCompositor().Compose(in)
	assert.Len(t, ds[len(ds)-1].Markers, 1)
}

func TestCompose_CategoryFilter(t *testing.T) {
	in := baseInput()
	in.Filters.ShowNearbyPlaces = true
	in.Filters.Categories = []string{"Bakery"}
	in.Places = []model.Place{
		{ID: "a", Latitude: 0.001, Category: "Bakery"},
		{ID: "b", Latitude: 0.001, Category: "Cafe"},
		{ID: "c", Latitude: 0.001, Category: "bakery"},
	}

	markers := NewCompositor().Compose(in)[0].Markers
	require.Len(t, markers, 2)
	assert.Equal(t, "a", markers[1].Place.ID)
}

func TestCompose_NonFiniteCoordinatesExcluded(t *testing.T) {
	in := baseInput()
	in.Filters.ShowNearbyPlaces = true
	in.Places = []model.Place{{ID: "bad", Latitude: math.NaN()}}
	assert.Len(t, NewCompositor().Compose(in)[0].Markers, 1)
}

func TestCompose_TradeAreaLevelsGrouped(t *testing.T) {
	in := baseInput()
	in.Levels = SetLevelSelected(in.Levels, 50, false)
	in.Levels = SetLevelSelected(in.Levels, 70, false)
	in.Entries = []Entry{{
		ID: "trade-area-p1", Type: TypeTradeArea, PlaceID: "p1", Visible: true,
		TradeAreas: []model.TradeArea{
			{PlaceID: "p1", Level: 30, Polygon: squarePolygon()},
			{PlaceID: "p1", Level: 30, Polygon: squarePolygon()},
			{PlaceID: "p1", Level: 50, Polygon: squarePolygon()},
		},
	}}

	ds := NewCompositor().Compose(in)
	require.Len(t, ds, 2)
	ta := ds[0]
	assert.Equal(t, "trade-area-p1-level-30", ta.ID)
	assert.Equal(t, TypeTradeArea, ta.Type)
	assert.Equal(t, 30, ta.Level)
	assert.InDelta(t, 0.3, ta.Opacity, 1e-9)
	assert.Equal(t, PlaceColor("p1"), ta.Color)
	require.Len(t, ta.Features, 2)
	assert.Equal(t, "trade-area-p1-level-30#0", ta.Features[0].ID)
	assert.True(t, ta.Features[0].Ring.Closed())
	assert.Equal(t, PlacesLayerID, ds[1].ID)
}

func TestCompose_TradeAreaLevelOrderAndColorOverride(t *testing.T) {
	in := baseInput()
	in.Entries = []Entry{{
		ID: "trade-area-p1", Type: TypeTradeArea, PlaceID: "p1", Visible: false, Color: Color{1, 2, 3},
		TradeAreas: []model.TradeArea{
			{Level: 70, Polygon: squarePolygon()},
			{Level: 30, Polygon: squarePolygon()},
			{Level: 90, Polygon: squarePolygon()},
		},
	}}

	ds := NewCompositor().Compose(in)
	assert.Equal(t, []string{"trade-area-p1-level-30", "trade-area-p1-level-70", PlacesLayerID}, descriptorIDs(ds))
	assert.Equal(t, Color{1, 2, 3}, ds[0].Color)
	assert.False(t, ds[0].Visible)
}

func TestCompose_InvalidPolygonsDropped(t *testing.T) {
	in := baseInput()
	in.Entries = []Entry{{
		ID: "trade-area-p1", Type: TypeTradeArea, PlaceID: "p1", Visible: true,
		TradeAreas: []model.TradeArea{
			{Level: 30, Polygon: geometry.ParsePolygon([]byte(`"garbage"`))},
			{Level: 30, Polygon: squarePolygon()},
			{Level: 50, Polygon: geometry.ParsePolygon([]byte(`[[1,2]]`))},
		},
	}}

	ds := NewCompositor().Compose(in)
	require.Len(t, ds, 2)
	require.Len(t, ds[0].Features, 1)
	assert.Equal(t, "trade-area-p1-level-30#1", ds[0].Features[0].ID)
}

func TestCompose_HomeZipcodeLayer(t *testing.T) {
	in := baseInput()
	in.Selection.DataType = TypeHomeZipcodes
	in.Entries = []Entry{{
		ID: "home-zipcodes-ref", Type: TypeHomeZipcodes, PlaceID: "ref", Visible: true,
		HomeZipcodes: []model.HomeZipcodeArea{
			{ZipcodeID: "z1", Weight: 50, Polygon: squarePolygon()},
			{ZipcodeID: "z2", Weight: 10, Polygon: squarePolygon()},
			{ZipcodeID: "z3", Weight: 30, Polygon: geometry.ParsePolygon([]byte(`null`))},
		},
	}}

	ds := NewCompositor().Compose(in)
	require.Len(t, ds, 2)
	hz := ds[0]
	assert.Equal(t, "home-zipcodes-ref", hz.ID)
	assert.Equal(t, HomeZipcodeColor, hz.Color)
	assert.InDelta(t, HomeZipcodeOpacity, hz.Opacity, 1e-9)
	require.Len(t, hz.Features, 2)
	assert.Equal(t, "z1", hz.Features[0].ID)
	assert.Equal(t, 3, hz.Features[0].Bucket)
	assert.Equal(t, DensityPalette[3], hz.Features[0].Color)
	assert.Equal(t, 0, hz.Features[1].Bucket)
}

func TestCompose_ShowToggles(t *testing.T) {
	in := baseInput()
	in.Entries = []Entry{
		{ID: "trade-area-p1", Type: TypeTradeArea, PlaceID: "p1", Visible: true,
			TradeAreas: []model.TradeArea{{Level: 30, Polygon: squarePolygon()}}},
		{ID: "home-zipcodes-ref", Type: TypeHomeZipcodes, PlaceID: "ref", Visible: true,
			HomeZipcodes: []model.HomeZipcodeArea{{ZipcodeID: "z1", Weight: 1, Polygon: squarePolygon()}}},
	}

	assert.Equal(t, []string{"trade-area-p1-level-30", "home-zipcodes-ref", PlacesLayerID},
		descriptorIDs(NewCompositor().Compose(in)))

	in.Selection.ShowTradeAreas = false
	assert.Equal(t, []string{"home-zipcodes-ref", PlacesLayerID}, descriptorIDs(NewCompositor().Compose(in)))

	in.Selection.ShowHomeZipcodes = false
	assert.Equal(t, []string{PlacesLayerID}, descriptorIDs(NewCompositor().Compose(in)))
}

func TestCompose_Deterministic(t *testing.T) {
	in := baseInput()
	in.Filters.ShowNearbyPlaces = true
	in.Places = []model.Place{{ID: "a", Latitude: 0.001}, {ID: "b", Longitude: 0.002}}
	in.Entries = []Entry{
		{ID: "trade-area-a", Type: TypeTradeArea, PlaceID: "a", Visible: true, TradeAreas: []model.TradeArea{
			{Level: 50, Polygon: squarePolygon()}, {Level: 30, Polygon: squarePolygon()}, {Level: 70, Polygon: squarePolygon()},
		}},
		{ID: "trade-area-b", Type: TypeTradeArea, PlaceID: "b", Visible: true, TradeAreas: []model.TradeArea{
			{Level: 30, Polygon: squarePolygon()},
		}},
	}

	c := NewCompositor()
	first := c.Compose(in)
	second := c.Compose(in)
	assert.Equal(t, first, second)
	assert.Len(t, first, 5)
}

