package model

// Source is how a booking was taken.
type Source string

const (
	SourceInPerson Source = "Лично"
	SourcePhone    Source = "Звонок"
	SourceOnline   Source = "Онлайн"
)

// Booking is a reservation of a zone for a named guest.
type Booking struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Time         string `json:"time"` // HH:MM local text
	Guests       int    `json:"guests"`
	Phone        string `json:"phone"`
	Source       Source `json:"source"`
	TableID      int64  `json:"tableId"`
	Branch       Branch `json:"branch"`
	IsActive     bool   `json:"isActive"`
	Comment      string `json:"comment,omitempty"`
	HasVR        bool   `json:"hasVR,omitempty"`
	HasShisha    bool   `json:"hasShisha,omitempty"`
	IsHappyHours bool   `json:"isHappyHours,omitempty"`
}

// BookingsOf returns the bookings of a branch in input order.
func BookingsOf(bookings []Booking, branch Branch) []Booking {
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Branch == branch {
			out = append(out, b)
		}
	}
	return out
}

// BookingsAt returns the bookings assigned to a zone.
func BookingsAt(bookings []Booking, zoneID int64) []Booking {
	var out []Booking
	for _, b := range bookings {
		if b.TableID == zoneID {
			out = append(out, b)
		}
	}
	return out
}

// HasActiveGuests reports whether any booking at the zone is seated.
func HasActiveGuests(bookings []Booking, zoneID int64) bool {
	for _, b := range bookings {
		if b.TableID == zoneID && b.IsActive {
			return true
		}
	}
	return false
}

// BranchCounts summarizes a branch for the board header.
type BranchCounts struct {
	Active  int
	Waiting int
	Zones   int
}

// CountBranch computes active/waiting bookings and zone count for a branch.
func CountBranch(zones []Zone, bookings []Booking, branch Branch) BranchCounts {
	var c BranchCounts
	for _, b := range bookings {
		if b.Branch != branch {
			continue
		}
		if b.IsActive {
			c.Active++
		} else {
			c.Waiting++
		}
	}
	for _, z := range zones {
		if z.Branch == branch {
			c.Zones++
		}
	}
	return c
}
