package model

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Branch is a physical venue managed by the board.
type Branch string

const (
	BranchMSK      Branch = "МСК"
	BranchPolevaya Branch = "Полевая"
)

// Branches returns the fixed set of branches in display order.
func Branches() []Branch {
	return []Branch{BranchMSK, BranchPolevaya}
}

// Valid reports whether b is one of the known branches.
func (b Branch) Valid() bool {
	for _, known := range Branches() {
		if b == known {
			return true
		}
	}
	return false
}

// Address returns the street address shown on the guest page.
func (b Branch) Address() string {
	switch b {
	case BranchMSK:
		return "Московское шоссе 43-47"
	case BranchPolevaya:
		return "Полевая 72"
	default:
		return string(b)
	}
}

// Zone is a bookable table or area at a branch.
type Zone struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Capacity     int    `json:"capacity"`
	Branch       Branch `json:"branch"`
	IsNotCleaned *bool  `json:"isNotCleaned,omitempty"`
}

// NeedsCleaning reports whether the zone is marked as not cleaned.
// An absent flag means clean.
func (z Zone) NeedsCleaning() bool {
	return z.IsNotCleaned != nil && *z.IsNotCleaned
}

// ZoneNumber extracts the number embedded in a zone name ("Зона 12" -> 12).
// All digits are concatenated; names without digits yield 0.
func ZoneNumber(name string) int {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// SortZones orders zones by the number in their names, keeping the input
// order for equal numbers.
func SortZones(zones []Zone) {
	sort.SliceStable(zones, func(i, j int) bool {
		return ZoneNumber(zones[i].Name) < ZoneNumber(zones[j].Name)
	})
}

// ZonesOf returns the zones of a branch sorted for display.
func ZonesOf(zones []Zone, branch Branch) []Zone {
	out := make([]Zone, 0, len(zones))
	for _, z := range zones {
		if z.Branch == branch {
			out = append(out, z)
		}
	}
	SortZones(out)
	return out
}

// FindZone returns the zone with the given id.
func FindZone(zones []Zone, id int64) (Zone, bool) {
	for _, z := range zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}
