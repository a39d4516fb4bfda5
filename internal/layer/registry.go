package layer

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/placemap/internal/model"
)

// DefaultMaxTradeAreas caps the trade-area overlays held at once.
const DefaultMaxTradeAreas = 10

// ErrCapacityExceeded is returned by Add when the trade-area limit is reached.
var ErrCapacityExceeded = eris.New("layer: maximum trade areas reached")

// Entry is an overlay the user requested, with the data fetched for it.
type Entry struct {
	ID           string                  `json:"id"`
	Type         Type                    `json:"type"`
	PlaceID      string                  `json:"place_id"`
	PlaceName    string                  `json:"place_name,omitempty"`
	TradeAreas   []model.TradeArea       `json:"trade_areas,omitempty"`
	HomeZipcodes []model.HomeZipcodeArea `json:"home_zipcodes,omitempty"`
	Color        Color                   `json:"color"`
	Visible      bool                    `json:"visible"`
	Timestamp    time.Time               `json:"timestamp"`
}

// Registry is the ordered set of requested overlays. At most maxTradeAreas
// trade-area entries and one home-zipcodes entry exist at any time. It is safe
// for concurrent use; Snapshot gives composition a consistent view.
type Registry struct {
	mu            sync.RWMutex
	entries       []Entry
	maxTradeAreas int
}

// NewRegistry creates an empty registry. A non-positive limit falls back to
// DefaultMaxTradeAreas.
func NewRegistry(maxTradeAreas int) *Registry {
	if maxTradeAreas <= 0 {
		maxTradeAreas = DefaultMaxTradeAreas
	}
	return &Registry{maxTradeAreas: maxTradeAreas}
}

// MaxTradeAreas returns the trade-area limit.
func (r *Registry) MaxTradeAreas() int {
	return r.maxTradeAreas
}

// Add inserts e. A trade-area entry is rejected with ErrCapacityExceeded when
// the limit is reached, leaving the registry untouched. A home-zipcodes entry
// replaces every existing home-zipcodes entry. Any other entry replaces the
// entry with the same id. Entries without an id get EntryID(type, place).
func (r *Registry) Add(e Entry) error {
	if e.ID == "" {
		e.ID = EntryID(e.Type, e.PlaceID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Type == TypeTradeArea && r.countLocked(TypeTradeArea) >= r.maxTradeAreas {
		return ErrCapacityExceeded
	}

	if e.Type == TypeHomeZipcodes {
		r.entries = r.filterLocked(func(x Entry) bool { return x.Type != TypeHomeZipcodes })
	} else {
		r.entries = r.filterLocked(func(x Entry) bool { return x.ID != e.ID })
	}
	r.entries = append(r.entries, e)
	return nil
}

// Remove deletes the entry with the given id, if any.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.filterLocked(func(x Entry) bool { return x.ID != id })
}

// ToggleVisibility flips the visible flag of the entry with the given id.
func (r *Registry) ToggleVisibility(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			r.entries[i].Visible = !r.entries[i].Visible
		}
	}
}

// ClearByType removes every entry of type t.
func (r *Registry) ClearByType(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.filterLocked(func(x Entry) bool { return x.Type != t })
}

// ClearAll removes every entry.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// RetainReferenceHomeZipcodes drops all trade-area entries and every
// home-zipcodes entry that does not belong to referenceID. It runs when the
// view switches to home zipcodes.
func (r *Registry) RetainReferenceHomeZipcodes(referenceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.filterLocked(func(x Entry) bool {
		switch x.Type {
		case TypeTradeArea:
			return false
		case TypeHomeZipcodes:
			return referenceID != "" && x.PlaceID == referenceID
		}
		return true
	})
}

// Get returns the entry with the given id.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Has reports whether an entry with the given id exists.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Count returns the number of entries of type t.
func (r *Registry) Count(t Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(t)
}

// Full reports whether another trade-area entry would be rejected.
func (r *Registry) Full() bool {
	return r.Count(TypeTradeArea) >= r.maxTradeAreas
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns a copy of the entries in insertion order.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) countLocked(t Type) int {
	n := 0
	for _, e := range r.entries {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (r *Registry) filterLocked(keep func(Entry) bool) []Entry {
	out := make([]Entry, 0, len(r.entries)+1)
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
