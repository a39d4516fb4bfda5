package viewer

import "github.com/rotisserie/eris"

var (
	// ErrInvalidFilter is returned for filter or selection input the
	// compositor cannot accept, such as a negative or non-finite radius.
	ErrInvalidFilter = eris.New("viewer: invalid filter")
	// ErrNoData is returned when the store has no overlay data for a place.
	ErrNoData = eris.New("viewer: no data for place")
	// ErrUnknownPlace is returned for a place id that is not loaded.
	ErrUnknownPlace = eris.New("viewer: unknown place")
	// ErrUnavailable is returned when a place does not offer the requested overlay.
	ErrUnavailable = eris.New("viewer: overlay unavailable for place")
)
