// Package model defines the records exchanged with the place data store.
package model

// Place is a business location shown on the map.
type Place struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	StreetAddress         string  `json:"street_address"`
	City                  string  `json:"city"`
	State                 string  `json:"state"`
	Logo                  string  `json:"logo,omitempty"`
	Longitude             float64 `json:"longitude"`
	Latitude              float64 `json:"latitude"`
	Category              string  `json:"sub_category"`
	TradeAreaAvailable    bool    `json:"istradeareaavailable"`
	HomeZipcodesAvailable bool    `json:"ishomezipcodesavailable"`
	IsReferencePlace      bool    `json:"ismyplace"`
}

// FindPlace returns the place with the given id.
func FindPlace(places []Place, id string) (Place, bool) {
	for _, p := range places {
		if p.ID == id {
			return p, true
		}
	}
	return Place{}, false
}

// ReferencePlace returns the first place flagged as the reference place.
func ReferencePlace(places []Place) (Place, bool) {
	for _, p := range places {
		if p.IsReferencePlace {
			return p, true
		}
	}
	return Place{}, false
}
