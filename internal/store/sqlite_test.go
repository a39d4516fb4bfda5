package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placemap/internal/geometry"
	"github.com/sells-group/placemap/internal/model"
)

const testSquare = `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testPlaces() []model.Place {
	return []model.Place{
		{ID: "b", Name: "Bakery", Longitude: -73.99, Latitude: 40.73, Category: "Bakery", TradeAreaAvailable: true},
		{ID: "a", Name: "Mine", Longitude: -74.0, Latitude: 40.7, Category: "Cafe", IsReferencePlace: true, HomeZipcodesAvailable: true},
		{ID: "c", Name: "Other Cafe", Longitude: -74.01, Latitude: 40.71, Category: "Cafe"},
	}
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Ping(context.Background()))
}

func TestSQLite_Places(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.ImportPlaces(ctx, testPlaces())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	places, err := st.ListPlaces(ctx)
	require.NoError(t, err)
	require.Len(t, places, 3)
	assert.Equal(t, "a", places[0].ID)
	assert.True(t, places[0].IsReferencePlace)
	assert.True(t, places[0].HomeZipcodesAvailable)
	assert.InDelta(t, 40.7, places[0].Latitude, 1e-9)
	assert.True(t, places[1].TradeAreaAvailable)

	ref, err := st.ReferencePlace(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mine", ref.Name)

	cats, err := st.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bakery", "Cafe"}, cats)
}

func TestSQLite_ImportPlacesReplaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ImportPlaces(ctx, testPlaces())
	require.NoError(t, err)
	_, err = st.ImportPlaces(ctx, []model.Place{{ID: "b", Name: "Renamed"}})
	require.NoError(t, err)

	places, err := st.ListPlaces(ctx)
	require.NoError(t, err)
	require.Len(t, places, 3)
	assert.Equal(t, "Renamed", places[1].Name)
}

func TestSQLite_ReferencePlaceMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.ReferencePlace(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_TradeAreas(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	square := geometry.ParsePolygon([]byte(testSquare))

	_, err := st.ImportTradeAreas(ctx, []model.TradeArea{
		{PlaceID: "a", Level: 50, Polygon: square},
		{PlaceID: "a", Level: 30, Polygon: square},
		{PlaceID: "b", Level: 30, Polygon: geometry.Polygon{}},
	})
	require.NoError(t, err)

	areas, err := st.TradeAreas(ctx, "a")
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, 30, areas[0].Level)
	assert.Equal(t, geometry.KindPolygon, areas[0].Polygon.Kind)
	assert.Len(t, geometry.Normalize(areas[0].Polygon), 5)

	areas, err = st.TradeAreas(ctx, "b")
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.False(t, areas[0].Polygon.Valid())

	// Re-importing a place replaces its areas.
	_, err = st.ImportTradeAreas(ctx, []model.TradeArea{{PlaceID: "a", Level: 70, Polygon: square}})
	require.NoError(t, err)
	areas, err = st.TradeAreas(ctx, "a")
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, 70, areas[0].Level)

	areas, err = st.TradeAreas(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, areas)
}

func TestSQLite_HomeZipcodes(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ImportHomeZipcodes(ctx, []model.HomeZipcodes{
		{PlaceID: "a", Locations: model.Locations{"10001": 12.5, "10002": 3}},
	})
	require.NoError(t, err)

	hz, err := st.HomeZipcodes(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", hz.PlaceID)
	assert.Equal(t, []string{"10001", "10002"}, hz.Locations.IDs())
	assert.InDelta(t, 12.5, hz.Locations["10001"], 1e-9)

	_, err = st.HomeZipcodes(ctx, "b")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ZipcodePolygons(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	square := geometry.ParsePolygon([]byte(testSquare))

	_, err := st.ImportZipcodes(ctx, []model.Zipcode{
		{ID: "10002", Polygon: square},
		{ID: "10001", Polygon: square},
		{ID: "10003", Polygon: square},
	})
	require.NoError(t, err)

	zips, err := st.ZipcodePolygons(ctx, []string{"10002", "10001", "99999"})
	require.NoError(t, err)
	require.Len(t, zips, 2)
	assert.Equal(t, "10001", zips[0].ID)
	assert.True(t, zips[0].Polygon.Valid())

	zips, err = st.ZipcodePolygons(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, zips)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
