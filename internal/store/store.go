// Package store persists places and their customer-geography overlays.
package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placemap/internal/geometry"
	"github.com/sells-group/placemap/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// Store is the data-access collaborator of the map viewer.
type Store interface {
	// Places
	ListPlaces(ctx context.Context) ([]model.Place, error)
	ReferencePlace(ctx context.Context) (*model.Place, error)
	ListCategories(ctx context.Context) ([]string, error)

	// Overlays
	TradeAreas(ctx context.Context, placeID string) ([]model.TradeArea, error)
	HomeZipcodes(ctx context.Context, placeID string) (*model.HomeZipcodes, error)
	ZipcodePolygons(ctx context.Context, ids []string) ([]model.Zipcode, error)

	// Import
	ImportPlaces(ctx context.Context, places []model.Place) (int64, error)
	ImportTradeAreas(ctx context.Context, areas []model.TradeArea) (int64, error)
	ImportHomeZipcodes(ctx context.Context, records []model.HomeZipcodes) (int64, error)
	ImportZipcodes(ctx context.Context, zipcodes []model.Zipcode) (int64, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// placeColumns is the column order shared by both backends.
var placeColumns = []string{
	"id", "name", "street_address", "city", "state", "logo",
	"longitude", "latitude", "sub_category",
	"istradeareaavailable", "ishomezipcodesavailable", "ismyplace",
}

func placeRow(p model.Place) []any {
	return []any{
		p.ID, p.Name, p.StreetAddress, p.City, p.State, p.Logo,
		p.Longitude, p.Latitude, p.Category,
		p.TradeAreaAvailable, p.HomeZipcodesAvailable, p.IsReferencePlace,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPlace(row scannable) (model.Place, error) {
	var p model.Place
	err := row.Scan(&p.ID, &p.Name, &p.StreetAddress, &p.City, &p.State, &p.Logo,
		&p.Longitude, &p.Latitude, &p.Category,
		&p.TradeAreaAvailable, &p.HomeZipcodesAvailable, &p.IsReferencePlace)
	return p, err
}

// encodePolygon renders a polygon for a JSON/TEXT column.
func encodePolygon(p geometry.Polygon) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "store: encode polygon")
	}
	return string(data), nil
}

func encodeLocations(l model.Locations) (string, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return "", eris.Wrap(err, "store: encode locations")
	}
	return string(data), nil
}

// distinctPlaceIDs returns the sorted set of place ids owning areas.
func distinctPlaceIDs(areas []model.TradeArea) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, a := range areas {
		if !seen[a.PlaceID] {
			seen[a.PlaceID] = true
			ids = append(ids, a.PlaceID)
		}
	}
	sort.Strings(ids)
	return ids
}
