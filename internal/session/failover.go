package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStore reads and writes the primary store and switches to the
// fallback when the primary errors. While the primary is down it is retried
// at most once per recoveryInterval.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{primary: primary, fallback: fallback, logger: logger}
}

func (f *FailoverStore) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) < recoveryInterval {
		return false
	}
	f.lastCheck = time.Now()
	return true
}

func (f *FailoverStore) markDown(err error) {
	if !f.isDown.Swap(true) {
		f.logger.Warn().Err(err).Msg("session primary store failed, switching to fallback")
	}
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
}

func (f *FailoverStore) markUp() {
	if f.isDown.Swap(false) {
		f.logger.Info().Msg("session primary store recovered")
	}
}

func (f *FailoverStore) Get(ctx context.Context, key string) (string, error) {
	if f.usePrimary() {
		v, err := f.primary.Get(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) {
			f.markUp()
			return v, err
		}
		f.markDown(err)
	}
	return f.fallback.Get(ctx, key)
}

func (f *FailoverStore) Set(ctx context.Context, key, value string) error {
	if f.usePrimary() {
		err := f.primary.Set(ctx, key, value)
		if err == nil {
			f.markUp()
			return nil
		}
		f.markDown(err)
	}
	return f.fallback.Set(ctx, key, value)
}

func (f *FailoverStore) Delete(ctx context.Context, key string) error {
	if f.usePrimary() {
		err := f.primary.Delete(ctx, key)
		if err == nil {
			f.markUp()
			return nil
		}
		f.markDown(err)
	}
	return f.fallback.Delete(ctx, key)
}

// Ping succeeds while either store is reachable.
func (f *FailoverStore) Ping(ctx context.Context) error {
	if err := f.primary.Ping(ctx); err == nil {
		return nil
	}
	return f.fallback.Ping(ctx)
}
