// Package notify delivers board alerts to staff.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Alerter delivers a one-off alert text.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// LogAlerter writes alerts to the log. Used when no bot token is configured.
type LogAlerter struct {
	logger zerolog.Logger
}

func NewLogAlerter(logger zerolog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.With().Str("component", "alert").Logger()}
}

func (a *LogAlerter) Alert(_ context.Context, text string) error {
	a.logger.Warn().Str("alert", text).Msg("board alert")
	return nil
}

// Recorder keeps alerts in memory.
type Recorder struct {
	ch chan string
}

func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan string, size)}
}

func (r *Recorder) Alert(ctx context.Context, text string) error {
	select {
	case r.ch <- text:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Alerts exposes delivered alerts, for consumers such as the terminal UI.
func (r *Recorder) Alerts() <-chan string {
	return r.ch
}

// Fanout delivers to every alerter and returns the first error.
type Fanout []Alerter

func (f Fanout) Alert(ctx context.Context, text string) error {
	var first error
	for _, a := range f {
		if err := a.Alert(ctx, text); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BestEffort wraps an alerter whose failures must not fail the caller, such
// as a remote chat that other alerters already back up. Errors are logged.
type BestEffort struct {
	next   Alerter
	logger zerolog.Logger
}

func NewBestEffort(next Alerter, logger zerolog.Logger) *BestEffort {
	return &BestEffort{next: next, logger: logger.With().Str("component", "alert").Logger()}
}

func (b *BestEffort) Alert(ctx context.Context, text string) error {
	if err := b.next.Alert(ctx, text); err != nil {
		b.logger.Error().Err(err).Str("alert", text).Msg("alert delivery failed")
	}
	return nil
}
