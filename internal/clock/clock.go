// Package clock provides the override-aware source of "now" used by the
// time-gated board rules.
package clock

import "time"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// OverrideSource reports a persisted override, if one is set.
type OverrideSource interface {
	TimeOverride() (time.Time, bool)
}

// Session returns the session override when present, otherwise the base clock.
type Session struct {
	source OverrideSource
	base   Clock
}

// NewSession wraps base with the override held by source.
func NewSession(source OverrideSource, base Clock) *Session {
	if base == nil {
		base = Real{}
	}
	return &Session{source: source, base: base}
}

func (s *Session) Now() time.Time {
	if s.source != nil {
		if t, ok := s.source.TimeOverride(); ok {
			return t
		}
	}
	return s.base.Now()
}
