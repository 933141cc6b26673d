package board

import (
	"sync"
	"time"

	"kanban/internal/model"
)

// Snapshot is a copy of the mirror at one instant.
type Snapshot struct {
	Zones      []model.Zone
	Bookings   []model.Booking
	LastUpdate time.Time
}

// Mirror is the in-memory copy of the remote zones and bookings. The lock
// guards state only and is never held across a network call, so a poll and
// a handler may interleave; the last write wins.
type Mirror struct {
	mu         sync.RWMutex
	zones      []model.Zone
	bookings   []model.Booking
	lastUpdate time.Time
}

func (m *Mirror) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Zones:      append([]model.Zone(nil), m.zones...),
		Bookings:   append([]model.Booking(nil), m.bookings...),
		LastUpdate: m.lastUpdate,
	}
}

// Replace swaps both lists at once.
func (m *Mirror) Replace(zones []model.Zone, bookings []model.Booking, at time.Time) {
	m.mu.Lock()
	m.zones = zones
	m.bookings = bookings
	m.lastUpdate = at
	m.mu.Unlock()
}

func (m *Mirror) Zone(id int64) (model.Zone, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.FindZone(m.zones, id)
}

func (m *Mirror) Booking(id string) (model.Booking, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.ID == id {
			return b, true
		}
	}
	return model.Booking{}, false
}

// PutBooking replaces the booking with the same id, or appends it.
func (m *Mirror) PutBooking(b model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bookings {
		if m.bookings[i].ID == b.ID {
			m.bookings[i] = b
			return
		}
	}
	m.bookings = append(m.bookings, b)
}

func (m *Mirror) RemoveBookings(match func(model.Booking) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.bookings[:0:0]
	for _, b := range m.bookings {
		if !match(b) {
			kept = append(kept, b)
		}
	}
	m.bookings = kept
}

// PutZone replaces the zone with the same id, or appends it.
func (m *Mirror) PutZone(z model.Zone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.zones {
		if m.zones[i].ID == z.ID {
			m.zones[i] = z
			return
		}
	}
	m.zones = append(m.zones, z)
}

// RemoveZone drops the zone and every booking that references it.
func (m *Mirror) RemoveZone(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	zones := m.zones[:0:0]
	for _, z := range m.zones {
		if z.ID != id {
			zones = append(zones, z)
		}
	}
	bookings := m.bookings[:0:0]
	for _, b := range m.bookings {
		if b.TableID != id {
			bookings = append(bookings, b)
		}
	}
	m.zones = zones
	m.bookings = bookings
}
