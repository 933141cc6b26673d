package board

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	loads     atomic.Int32
	refreshes atomic.Int32
	fail      atomic.Bool
	onLoad    func()
}

func (c *countingRefresher) Load(context.Context) error {
	c.loads.Add(1)
	if c.onLoad != nil {
		c.onLoad()
	}
	return nil
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.refreshes.Add(1)
	if c.fail.Load() {
		return errors.New("backend down")
	}
	return nil
}

func TestPollerTicksWhileEnabled(t *testing.T) {
	target := &countingRefresher{}
	target.fail.Store(true)
	p := NewPoller(target, 10*time.Millisecond, true, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	defer p.Stop()

	assert.Equal(t, int32(1), target.loads.Load())
	require.Eventually(t, func() bool { return target.refreshes.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, p.Running())
}

func TestPollerToggle(t *testing.T) {
	target := &countingRefresher{}
	p := NewPoller(target, 10*time.Millisecond, false, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	assert.False(t, p.Running())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), target.refreshes.Load())

	p.SetEnabled(true)
	require.Eventually(t, func() bool { return target.refreshes.Load() >= 1 }, time.Second, 5*time.Millisecond)

	p.SetEnabled(false)
	p.SetEnabled(false)
	stopped := target.refreshes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, target.refreshes.Load())
	assert.False(t, p.Enabled())
}

func TestPollerStopIsIdempotent(t *testing.T) {
	target := &countingRefresher{}
	p := NewPoller(target, 10*time.Millisecond, true, zerolog.Nop())

	p.Start(context.Background())
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())

	require.NoError(t, p.RefreshNow(context.Background()))
	assert.GreaterOrEqual(t, target.refreshes.Load(), int32(1))
}

func TestPollerStopDuringInitialLoad(t *testing.T) {
	target := &countingRefresher{}
	p := NewPoller(target, 10*time.Millisecond, true, zerolog.Nop())
	target.onLoad = p.Stop
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.Start(ctx)
	assert.False(t, p.Running())

	p.SetEnabled(true)
	assert.False(t, p.Running())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), target.refreshes.Load())
}
