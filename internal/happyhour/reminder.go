package happyhour

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kanban/internal/clock"
	"kanban/internal/metrics"
	"kanban/internal/model"
	"kanban/internal/notify"

	"github.com/rs/zerolog"
)

const testPrefix = "[ТЕСТ] "

// Session is the slice of the session context the reminder needs.
type Session interface {
	BoardBranch() model.Branch
	TestMode() bool
	Marked(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// BookingSource returns the mirrored bookings of a branch.
type BookingSource interface {
	Bookings(branch model.Branch) []model.Booking
}

// Config holds reminder settings.
type Config struct {
	Message       string
	CheckInterval time.Duration
}

// Reminder polls the rules and fires the daily alert at most once per day.
type Reminder struct {
	config   Config
	session  Session
	bookings BookingSource
	clock    clock.Clock
	alerter  notify.Alerter
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

func NewReminder(cfg Config, session Session, bookings BookingSource, clk clock.Clock, alerter notify.Alerter, logger zerolog.Logger) *Reminder {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Reminder{
		config:   cfg,
		session:  session,
		bookings: bookings,
		clock:    clk,
		alerter:  alerter,
		logger:   logger.With().Str("component", "happy_hour").Logger(),
	}
}

// Start begins the check loop. It returns immediately. The reminder can be
// started again after Stop or after ctx is cancelled.
func (r *Reminder) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})

	r.logger.Info().Dur("interval", r.config.CheckInterval).Msg("happy hour reminder started")
	go r.loop(ctx, r.stopCh, r.done)
}

func (r *Reminder) loop(ctx context.Context, stop, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		if r.done == done {
			r.running = false
		}
		r.mu.Unlock()
		close(done)
	}()
	ticker := time.NewTicker(r.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := r.Check(ctx); err != nil {
				r.logger.Error().Err(err).Msg("happy hour check failed")
			}
		}
	}
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (r *Reminder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	done := r.done
	r.mu.Unlock()
	<-done
	r.logger.Info().Msg("happy hour reminder stopped")
}

// Check evaluates the rule once and fires the alert if it is due and has
// not fired today. The marker is recorded once the alerter accepts the
// alert; remote channels are expected to be wrapped in notify.BestEffort.
func (r *Reminder) Check(ctx context.Context) (bool, error) {
	now := r.clock.Now()
	branch := r.session.BoardBranch()
	key := ReminderKey(now)
	text := r.config.Message
	if r.session.TestMode() {
		key = "test_" + key
		text = testPrefix + text
	}

	if !ReminderDue(now, r.bookings.Bookings(branch), branch) {
		return false, nil
	}

	marked, err := r.session.Marked(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read reminder marker: %w", err)
	}
	if marked {
		metrics.IncReminder("duplicate")
		return false, nil
	}

	if err := r.alerter.Alert(ctx, text); err != nil {
		metrics.IncReminder("failed")
		return false, fmt.Errorf("send reminder: %w", err)
	}
	if err := r.session.Mark(ctx, key); err != nil {
		return true, fmt.Errorf("record reminder marker: %w", err)
	}
	metrics.IncReminder("sent")
	r.logger.Info().Str("branch", string(branch)).Str("key", key).Msg("happy hour reminder sent")
	return true, nil
}
