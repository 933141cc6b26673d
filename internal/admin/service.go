// Package admin implements the password-gated admin operations: zone and
// staff management, Telegram notices and the test clock.
package admin

import (
	"context"
	"fmt"
	"io"

	"kanban/internal/board"
	"kanban/internal/clock"
	"kanban/internal/export"
	"kanban/internal/model"
	"kanban/internal/remote"
	"kanban/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Store is the remote staff collection and the Telegram endpoints.
type Store interface {
	ListStaff(ctx context.Context) ([]model.Staff, error)
	CreateStaff(ctx context.Context, s model.Staff) (model.Staff, error)
	UpdateStaff(ctx context.Context, id string, patch any) (model.Staff, error)
	DeleteStaff(ctx context.Context, id string) error

	NotifyDirtyZone(ctx context.Context, n remote.DirtyZoneNotice) error
	NotifyStaffOnShift(ctx context.Context, n remote.ShiftNotice) error
	SendMessage(ctx context.Context, m remote.Message) error
}

// Zones is the zone editing surface of the board.
type Zones interface {
	AddZone(ctx context.Context, branch model.Branch, name string, capacity int) (model.Zone, error)
	EditZone(ctx context.Context, id int64, name string, capacity int) (model.Zone, error)
	DeleteZone(ctx context.Context, id int64) error
	ClearBranch(ctx context.Context, branch model.Branch) (int, error)
	Zone(id int64) (model.Zone, bool)
	Snapshot() board.Snapshot
}

type Service struct {
	store        Store
	zones        Zones
	session      *session.Context
	passwordHash []byte
	clock        clock.Clock
	logger       zerolog.Logger
}

func NewService(store Store, zones Zones, sess *session.Context, passwordHash string, logger zerolog.Logger) *Service {
	return &Service{
		store:        store,
		zones:        zones,
		session:      sess,
		passwordHash: []byte(passwordHash),
		clock:        clock.NewSession(sess, clock.Real{}),
		logger:       logger.With().Str("component", "admin").Logger(),
	}
}

// Login checks the password against the configured bcrypt hash and marks
// the session authenticated.
func (s *Service) Login(ctx context.Context, password string) error {
	if len(s.passwordHash) == 0 || bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
		s.logger.Warn().Msg("admin login failed")
		return &AccessDeniedError{Reason: "Неверный пароль"}
	}
	if err := s.session.SetAuthenticated(ctx, true); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.logger.Info().Msg("admin logged in")
	return nil
}

func (s *Service) Logout(ctx context.Context) error {
	return s.session.SetAuthenticated(ctx, false)
}

func (s *Service) requireLogin() error {
	if !s.session.Authenticated() {
		return &AccessDeniedError{Reason: "Требуется вход администратора"}
	}
	return nil
}

// SelectBranch switches the branch shown in the admin view.
func (s *Service) SelectBranch(ctx context.Context, b model.Branch) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	if !b.Valid() {
		return fmt.Errorf("%w: unknown branch %q", ErrInvalidInput, b)
	}
	return s.session.SetAdminBranch(ctx, b)
}

func (s *Service) AddZone(ctx context.Context, name string, capacity int) (model.Zone, error) {
	if err := s.requireLogin(); err != nil {
		return model.Zone{}, err
	}
	return s.zones.AddZone(ctx, s.session.AdminBranch(), name, capacity)
}

func (s *Service) EditZone(ctx context.Context, id int64, name string, capacity int) (model.Zone, error) {
	if err := s.requireLogin(); err != nil {
		return model.Zone{}, err
	}
	return s.zones.EditZone(ctx, id, name, capacity)
}

func (s *Service) DeleteZone(ctx context.Context, id int64) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	return s.zones.DeleteZone(ctx, id)
}

// ClearBookings deletes every booking of the admin branch.
func (s *Service) ClearBookings(ctx context.Context) (int, error) {
	if err := s.requireLogin(); err != nil {
		return 0, err
	}
	return s.zones.ClearBranch(ctx, s.session.AdminBranch())
}

// Export writes the board workbook.
func (s *Service) Export(w io.Writer) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	snap := s.zones.Snapshot()
	return export.Write(w, snap.Zones, snap.Bookings, s.clock.Now())
}
