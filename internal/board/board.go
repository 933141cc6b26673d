// Package board keeps a local mirror of the remote zones and bookings in
// sync by polling, and applies staff actions to both.
package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"kanban/internal/clock"
	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/remote"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownBooking = errors.New("booking not found")
	ErrUnknownZone    = errors.New("zone not found")
	ErrInvalidInput   = errors.New("invalid input")
)

// MaxZoneCapacity bounds capacity in the zone editor.
const MaxZoneCapacity = 20

// Store is the part of the remote client the board uses.
type Store interface {
	ListZones(ctx context.Context) ([]model.Zone, error)
	CreateZone(ctx context.Context, z model.Zone) (model.Zone, error)
	UpdateZone(ctx context.Context, id int64, patch any) (model.Zone, error)
	UpdateZoneRaw(ctx context.Context, id int64, patch any) ([]byte, error)
	DeleteZone(ctx context.Context, id int64) error

	ListBookings(ctx context.Context) ([]model.Booking, error)
	CreateBooking(ctx context.Context, b model.Booking) (model.Booking, error)
	UpdateBooking(ctx context.Context, id string, patch any) (model.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// Options configure a Board.
type Options struct {
	// Layout is the zone count per branch created when the store is empty.
	Layout          map[model.Branch]int
	DefaultCapacity int
	// CascadeDeletes deletes a zone's bookings before the zone itself.
	CascadeDeletes bool
	Clock          clock.Clock
}

// Board applies staff actions to the remote store and the local mirror.
type Board struct {
	store  Store
	mirror Mirror
	opts   Options
	logger zerolog.Logger
}

func New(store Store, opts Options, logger zerolog.Logger) *Board {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.DefaultCapacity <= 0 {
		opts.DefaultCapacity = 4
	}
	return &Board{
		store:  store,
		opts:   opts,
		logger: logger.With().Str("component", "board").Logger(),
	}
}

// Snapshot returns a copy of the mirror.
func (b *Board) Snapshot() Snapshot {
	return b.mirror.Snapshot()
}

// Zones returns the zones of a branch in display order.
func (b *Board) Zones(branch model.Branch) []model.Zone {
	return model.ZonesOf(b.mirror.Snapshot().Zones, branch)
}

// Zone looks a zone up in the mirror.
func (b *Board) Zone(id int64) (model.Zone, bool) {
	return b.mirror.Zone(id)
}

// Bookings returns the bookings of a branch.
func (b *Board) Bookings(branch model.Branch) []model.Booking {
	return model.BookingsOf(b.mirror.Snapshot().Bookings, branch)
}

// Counts summarizes a branch for the header.
func (b *Board) Counts(branch model.Branch) model.BranchCounts {
	s := b.mirror.Snapshot()
	return model.CountBranch(s.Zones, s.Bookings, branch)
}

// Load performs the initial refresh, creating the default layout first when
// the store has no zones.
func (b *Board) Load(ctx context.Context) error {
	zones, err := b.store.ListZones(ctx)
	if err != nil {
		metrics.ObserveRefresh(err)
		return fmt.Errorf("list zones: %w", err)
	}
	if len(zones) == 0 {
		b.logger.Info().Msg("no zones found, creating default layout")
		if err := b.Bootstrap(ctx); err != nil {
			return err
		}
	}
	return b.Refresh(ctx)
}

// Bootstrap creates the default zones sequentially, branch by branch.
func (b *Board) Bootstrap(ctx context.Context) error {
	for _, branch := range model.Branches() {
		n := b.opts.Layout[branch]
		for i := 1; i <= n; i++ {
			z := model.Zone{Name: fmt.Sprintf("Зона %d", i), Capacity: b.opts.DefaultCapacity, Branch: branch}
			if _, err := b.store.CreateZone(ctx, z); err != nil {
				return fmt.Errorf("bootstrap %s zone %d: %w", branch, i, err)
			}
		}
		if n > 0 {
			b.logger.Info().Str("branch", string(branch)).Int("zones", n).Msg("default zones created")
		}
	}
	return nil
}

// Refresh fetches zones, then bookings, and replaces the mirror. On any
// failure the mirror keeps its previous contents.
func (b *Board) Refresh(ctx context.Context) error {
	zones, err := b.store.ListZones(ctx)
	if err != nil {
		metrics.ObserveRefresh(err)
		return fmt.Errorf("list zones: %w", err)
	}
	bookings, err := b.store.ListBookings(ctx)
	if err != nil {
		metrics.ObserveRefresh(err)
		return fmt.Errorf("list bookings: %w", err)
	}
	b.mirror.Replace(zones, bookings, b.opts.Clock.Now())
	metrics.ObserveRefresh(nil)
	return nil
}

// reconcile re-fetches after a confirmed write. Failures only log: the
// next poll tick retries.
func (b *Board) reconcile(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("refresh after write failed")
	}
}

// NewBooking is the add-booking form.
type NewBooking struct {
	Name         string
	Time         string
	Guests       int
	Phone        string
	Source       model.Source
	TableID      int64
	Comment      string
	HasVR        bool
	HasShisha    bool
	IsHappyHours bool
}

// CreateBooking creates a waiting booking at a zone. The branch is taken
// from the zone.
func (b *Board) CreateBooking(ctx context.Context, in NewBooking) (model.Booking, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Time = strings.TrimSpace(in.Time)
	if in.Name == "" || in.Time == "" || in.Guests <= 0 {
		return model.Booking{}, fmt.Errorf("%w: name, time and guests are required", ErrInvalidInput)
	}
	zone, ok := b.mirror.Zone(in.TableID)
	if !ok {
		return model.Booking{}, fmt.Errorf("create booking: %w: %d", ErrUnknownZone, in.TableID)
	}
	if in.Source == "" {
		in.Source = model.SourceInPerson
	}

	created, err := b.store.CreateBooking(ctx, model.Booking{
		Name:         in.Name,
		Time:         in.Time,
		Guests:       in.Guests,
		Phone:        strings.TrimSpace(in.Phone),
		Source:       in.Source,
		TableID:      zone.ID,
		Branch:       zone.Branch,
		IsActive:     false,
		Comment:      strings.TrimSpace(in.Comment),
		HasVR:        in.HasVR,
		HasShisha:    in.HasShisha,
		IsHappyHours: in.IsHappyHours,
	})
	metrics.ObserveMutation("create", err)
	if err != nil {
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	b.mirror.PutBooking(created)
	b.logger.Info().Str("booking_id", created.ID).Int64("zone_id", zone.ID).Str("branch", string(zone.Branch)).Msg("booking created")
	b.reconcile(ctx)
	return created, nil
}

// BookingEdit holds the editable booking fields. Zone and branch change only
// through MoveBooking.
type BookingEdit struct {
	Name         string
	Time         string
	Guests       int
	Phone        string
	Source       model.Source
	Comment      string
	HasVR        bool
	HasShisha    bool
	IsHappyHours bool
}

// EditBooking replaces the editable fields of a booking.
func (b *Board) EditBooking(ctx context.Context, id string, in BookingEdit) (model.Booking, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Time = strings.TrimSpace(in.Time)
	if in.Name == "" || in.Time == "" || in.Guests <= 0 {
		return model.Booking{}, fmt.Errorf("%w: name, time and guests are required", ErrInvalidInput)
	}
	current, ok := b.mirror.Booking(id)
	if !ok {
		return model.Booking{}, fmt.Errorf("edit booking: %w: %s", ErrUnknownBooking, id)
	}
	if in.Source == "" {
		in.Source = current.Source
	}

	next := current
	next.Name = in.Name
	next.Time = in.Time
	next.Guests = in.Guests
	next.Phone = strings.TrimSpace(in.Phone)
	next.Source = in.Source
	next.Comment = strings.TrimSpace(in.Comment)
	next.HasVR = in.HasVR
	next.HasShisha = in.HasShisha
	next.IsHappyHours = in.IsHappyHours

	updated, err := b.store.UpdateBooking(ctx, id, next)
	metrics.ObserveMutation("edit", err)
	if err != nil {
		return model.Booking{}, fmt.Errorf("edit booking %s: %w", id, err)
	}
	b.mirror.PutBooking(updated)
	b.reconcile(ctx)
	return updated, nil
}

// ToggleActive flips a booking between waiting and seated.
func (b *Board) ToggleActive(ctx context.Context, id string) (model.Booking, error) {
	current, ok := b.mirror.Booking(id)
	if !ok {
		return model.Booking{}, fmt.Errorf("toggle booking: %w: %s", ErrUnknownBooking, id)
	}
	next := current
	next.IsActive = !current.IsActive

	updated, err := b.store.UpdateBooking(ctx, id, next)
	metrics.ObserveMutation("toggle_active", err)
	if err != nil {
		return model.Booking{}, fmt.Errorf("toggle booking %s: %w", id, err)
	}
	b.mirror.PutBooking(updated)
	b.reconcile(ctx)
	return updated, nil
}

// MoveBooking moves a booking to another zone. The mirror changes before
// the write; if the write fails the previous record is restored as it was.
func (b *Board) MoveBooking(ctx context.Context, id string, zoneID int64) error {
	prev, ok := b.mirror.Booking(id)
	if !ok {
		return fmt.Errorf("move booking: %w: %s", ErrUnknownBooking, id)
	}
	zone, ok := b.mirror.Zone(zoneID)
	if !ok {
		return fmt.Errorf("move booking %s: %w: %d", id, ErrUnknownZone, zoneID)
	}
	if prev.TableID == zoneID {
		return nil
	}

	moved := prev
	moved.TableID = zone.ID
	moved.Branch = zone.Branch
	b.mirror.PutBooking(moved)

	updated, err := b.store.UpdateBooking(ctx, id, moved)
	metrics.ObserveMutation("move", err)
	if err != nil {
		b.mirror.PutBooking(prev)
		metrics.IncRollback()
		b.logger.Warn().Err(err).Str("booking_id", id).Int64("zone_id", zoneID).Msg("move failed, rolled back")
		return fmt.Errorf("move booking %s: %w", id, err)
	}
	b.mirror.PutBooking(updated)
	return nil
}

// DeleteBooking removes a booking.
func (b *Board) DeleteBooking(ctx context.Context, id string) error {
	err := b.store.DeleteBooking(ctx, id)
	metrics.ObserveMutation("delete", err)
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", id, err)
	}
	b.mirror.RemoveBookings(func(bk model.Booking) bool { return bk.ID == id })
	b.reconcile(ctx)
	return nil
}

// ClearBranch deletes every booking of a branch. Bookings whose delete
// failed stay in the mirror and their errors are joined.
func (b *Board) ClearBranch(ctx context.Context, branch model.Branch) (int, error) {
	targets := model.BookingsOf(b.mirror.Snapshot().Bookings, branch)
	deleted := make(map[string]struct{}, len(targets))
	var errs []error
	for _, bk := range targets {
		err := b.store.DeleteBooking(ctx, bk.ID)
		metrics.ObserveMutation("delete", err)
		if err != nil && !remote.IsNotFound(err) {
			errs = append(errs, fmt.Errorf("delete booking %s: %w", bk.ID, err))
			continue
		}
		deleted[bk.ID] = struct{}{}
	}
	b.mirror.RemoveBookings(func(bk model.Booking) bool {
		_, ok := deleted[bk.ID]
		return ok
	})
	b.logger.Info().Str("branch", string(branch)).Int("deleted", len(deleted)).Msg("branch cleared")
	b.reconcile(ctx)
	return len(deleted), errors.Join(errs...)
}

// ToggleCleanliness flips a zone's not-cleaned flag; an absent flag counts
// as clean. It returns the new flag value.
func (b *Board) ToggleCleanliness(ctx context.Context, zoneID int64) (bool, error) {
	zone, ok := b.mirror.Zone(zoneID)
	if !ok {
		return false, fmt.Errorf("toggle cleanliness: %w: %d", ErrUnknownZone, zoneID)
	}
	next := !zone.NeedsCleaning()
	body := zone
	body.IsNotCleaned = &next

	raw, err := b.store.UpdateZoneRaw(ctx, zoneID, body)
	if err == nil {
		zone, err = decodeCleanliness(raw)
	}
	metrics.ObserveMutation("toggle_clean", err)
	if err != nil {
		return false, fmt.Errorf("toggle cleanliness of zone %d: %w", zoneID, err)
	}
	b.mirror.PutZone(zone)
	b.reconcile(ctx)
	return zone.NeedsCleaning(), nil
}

func decodeCleanliness(raw []byte) (model.Zone, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.Zone{}, fmt.Errorf("%w: %v", remote.ErrMalformed, err)
	}
	flag, ok := fields["isNotCleaned"]
	if !ok || bytes.Equal(bytes.TrimSpace(flag), []byte("null")) {
		return model.Zone{}, fmt.Errorf("%w: response has no isNotCleaned", remote.ErrMalformed)
	}
	z, err := model.DecodeZone(raw)
	if err != nil {
		return model.Zone{}, fmt.Errorf("%w: %v", remote.ErrMalformed, err)
	}
	return z, nil
}

func validZone(name string, capacity int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: zone name is required", ErrInvalidInput)
	}
	if capacity < 1 || capacity > MaxZoneCapacity {
		return fmt.Errorf("%w: capacity must be 1..%d", ErrInvalidInput, MaxZoneCapacity)
	}
	return nil
}

// AddZone creates a zone at a branch.
func (b *Board) AddZone(ctx context.Context, branch model.Branch, name string, capacity int) (model.Zone, error) {
	if !branch.Valid() {
		return model.Zone{}, fmt.Errorf("%w: unknown branch %q", ErrInvalidInput, branch)
	}
	if err := validZone(name, capacity); err != nil {
		return model.Zone{}, err
	}
	created, err := b.store.CreateZone(ctx, model.Zone{Name: strings.TrimSpace(name), Capacity: capacity, Branch: branch})
	metrics.ObserveMutation("add_zone", err)
	if err != nil {
		return model.Zone{}, fmt.Errorf("add zone: %w", err)
	}
	b.mirror.PutZone(created)
	b.reconcile(ctx)
	return created, nil
}

// EditZone renames a zone and changes its capacity.
func (b *Board) EditZone(ctx context.Context, id int64, name string, capacity int) (model.Zone, error) {
	if err := validZone(name, capacity); err != nil {
		return model.Zone{}, err
	}
	name = strings.TrimSpace(name)
	updated, err := b.store.UpdateZone(ctx, id, remote.ZonePatch{Name: &name, Capacity: &capacity})
	metrics.ObserveMutation("edit_zone", err)
	if err != nil {
		return model.Zone{}, fmt.Errorf("edit zone %d: %w", id, err)
	}
	b.mirror.PutZone(updated)
	b.reconcile(ctx)
	return updated, nil
}

// DeleteZone deletes a zone. With CascadeDeletes the zone's bookings are
// deleted first; either way none of them remain in the mirror afterwards.
func (b *Board) DeleteZone(ctx context.Context, id int64) error {
	if b.opts.CascadeDeletes {
		for _, bk := range model.BookingsAt(b.mirror.Snapshot().Bookings, id) {
			err := b.store.DeleteBooking(ctx, bk.ID)
			if err != nil && !remote.IsNotFound(err) {
				metrics.ObserveMutation("delete_zone", err)
				return fmt.Errorf("delete zone %d: booking %s: %w", id, bk.ID, err)
			}
		}
	}
	err := b.store.DeleteZone(ctx, id)
	if remote.IsNotFound(err) {
		err = nil
	}
	metrics.ObserveMutation("delete_zone", err)
	if err != nil {
		return fmt.Errorf("delete zone %d: %w", id, err)
	}
	b.mirror.RemoveZone(id)
	b.reconcile(ctx)
	b.mirror.RemoveBookings(func(bk model.Booking) bool { return bk.TableID == id })
	b.logger.Info().Int64("zone_id", id).Msg("zone deleted")
	return nil
}

// LastUpdate is when the mirror was last replaced by a refresh.
func (b *Board) LastUpdate() time.Time {
	return b.mirror.Snapshot().LastUpdate
}
