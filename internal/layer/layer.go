// Package layer keeps the overlays a user has requested and composes them,
// together with the loaded places and the active filters, into render-ready
// map layers.
package layer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Type identifies the kind of a layer.
type Type string

// Layer types.
const (
	TypePlaces       Type = "places"
	TypeTradeArea    Type = "trade-area"
	TypeHomeZipcodes Type = "home-zipcodes"
)

// ParseType converts a string into a Type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.TrimSpace(s)); t {
	case TypePlaces, TypeTradeArea, TypeHomeZipcodes:
		return t, nil
	default:
		return "", eris.Errorf("layer: unknown type %q", s)
	}
}

// EntryID is the registry id of the overlay of type t for a place. Requesting
// the same overlay twice yields the same id.
func EntryID(t Type, placeID string) string {
	return string(t) + "-" + placeID
}

// PlacesLayerID is the identity of the single places layer.
const PlacesLayerID = "places-layer"

// TradeAreaLayerID is the identity of one trade-area level of a place.
func TradeAreaLayerID(placeID string, level int) string {
	return fmt.Sprintf("%s-level-%d", EntryID(TypeTradeArea, placeID), level)
}
