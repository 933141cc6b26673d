package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when an identifier cannot be coerced.
var ErrInvalidID = errors.New("invalid identifier")

// ParseNumericID coerces a JSON number or numeric string to int64.
// Some endpoints send tableId as "12", others as 12.
func ParseNumericID(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidID, s)
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return 0, nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidID, s)
	}
	return int64(f), nil
}

// ParseOpaqueID reads an identifier that is treated as text, accepting
// either a JSON string or a JSON number.
func ParseOpaqueID(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidID, s)
		}
		return str, nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidID, s)
	}
	return s, nil
}

type zoneWire struct {
	ID           json.RawMessage `json:"id"`
	Name         string          `json:"name"`
	Capacity     json.RawMessage `json:"capacity"`
	Branch       Branch          `json:"branch"`
	IsNotCleaned *bool           `json:"isNotCleaned"`
}

type bookingWire struct {
	ID           json.RawMessage `json:"id"`
	Name         string          `json:"name"`
	Time         string          `json:"time"`
	Guests       json.RawMessage `json:"guests"`
	Phone        string          `json:"phone"`
	Source       Source          `json:"source"`
	TableID      json.RawMessage `json:"tableId"`
	Branch       Branch          `json:"branch"`
	IsActive     bool            `json:"isActive"`
	Comment      string          `json:"comment"`
	HasVR        bool            `json:"hasVR"`
	HasShisha    bool            `json:"hasShisha"`
	IsHappyHours bool            `json:"isHappyHours"`
}

type staffWire struct {
	ID         json.RawMessage `json:"id"`
	Name       string          `json:"name"`
	TelegramID json.RawMessage `json:"telegramId"`
}

func (w zoneWire) normalize() (Zone, error) {
	id, err := ParseNumericID(w.ID)
	if err != nil {
		return Zone{}, fmt.Errorf("zone id: %w", err)
	}
	capacity, err := ParseNumericID(w.Capacity)
	if err != nil {
		return Zone{}, fmt.Errorf("zone %d capacity: %w", id, err)
	}
	return Zone{
		ID:           id,
		Name:         w.Name,
		Capacity:     int(capacity),
		Branch:       w.Branch,
		IsNotCleaned: w.IsNotCleaned,
	}, nil
}

func (w bookingWire) normalize() (Booking, error) {
	id, err := ParseOpaqueID(w.ID)
	if err != nil {
		return Booking{}, fmt.Errorf("booking id: %w", err)
	}
	tableID, err := ParseNumericID(w.TableID)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s tableId: %w", id, err)
	}
	guests, err := ParseNumericID(w.Guests)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s guests: %w", id, err)
	}
	return Booking{
		ID:           id,
		Name:         w.Name,
		Time:         w.Time,
		Guests:       int(guests),
		Phone:        w.Phone,
		Source:       w.Source,
		TableID:      tableID,
		Branch:       w.Branch,
		IsActive:     w.IsActive,
		Comment:      w.Comment,
		HasVR:        w.HasVR,
		HasShisha:    w.HasShisha,
		IsHappyHours: w.IsHappyHours,
	}, nil
}

func (w staffWire) normalize() (Staff, error) {
	id, err := ParseOpaqueID(w.ID)
	if err != nil {
		return Staff{}, fmt.Errorf("staff id: %w", err)
	}
	tg, err := ParseOpaqueID(w.TelegramID)
	if err != nil {
		return Staff{}, fmt.Errorf("staff %s telegramId: %w", id, err)
	}
	return Staff{ID: id, Name: w.Name, TelegramID: tg}, nil
}

// DecodeZones decodes and normalizes a zone list body.
func DecodeZones(data []byte) ([]Zone, error) {
	var wires []zoneWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, err
	}
	out := make([]Zone, 0, len(wires))
	for _, w := range wires {
		z, err := w.normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, nil
}

// DecodeZone decodes and normalizes a single zone body.
func DecodeZone(data []byte) (Zone, error) {
	var w zoneWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Zone{}, err
	}
	return w.normalize()
}

// DecodeBookings decodes and normalizes a booking list body.
func DecodeBookings(data []byte) ([]Booking, error) {
	var wires []bookingWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, err
	}
	out := make([]Booking, 0, len(wires))
	for _, w := range wires {
		b, err := w.normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// DecodeBooking decodes and normalizes a single booking body.
func DecodeBooking(data []byte) (Booking, error) {
	var w bookingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Booking{}, err
	}
	return w.normalize()
}

// DecodeStaffList decodes and normalizes a staff list body.
func DecodeStaffList(data []byte) ([]Staff, error) {
	var wires []staffWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, err
	}
	out := make([]Staff, 0, len(wires))
	for _, w := range wires {
		s, err := w.normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// DecodeStaff decodes and normalizes a single staff body.
func DecodeStaff(data []byte) (Staff, error) {
	var w staffWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Staff{}, err
	}
	return w.normalize()
}

// DecodeTasks decodes a task list body. A record that does not decode is
// left out of tasks and reported in skipped; err is set only when the body
// is not a list.
func DecodeTasks(data []byte) (tasks []Task, skipped []error, err error) {
	var raw []json.RawMessage
	if err = json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	tasks = make([]Task, 0, len(raw))
	for _, r := range raw {
		var t Task
		if err := json.Unmarshal(r, &t); err != nil {
			skipped = append(skipped, err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, skipped, nil
}

// DecodeTask decodes a single task body.
func DecodeTask(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}
