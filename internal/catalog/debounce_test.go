package catalog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_RunsLastTrigger(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(clock, 400*time.Millisecond)

	var got []string
	d.Trigger(func() { got = append(got, "prod") })
	clock.Advance(100 * time.Millisecond)
	d.Trigger(func() { got = append(got, "production") })

	assert.Equal(t, 1, clock.Active(), "only one timer may be outstanding")
	clock.Advance(399 * time.Millisecond)
	assert.Empty(t, got)
	assert.True(t, d.Pending())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"production"}, got)
	assert.False(t, d.Pending())
}

func TestDebouncer_Stop(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(clock, time.Second)

	assert.False(t, d.Stop())

	fired := false
	d.Trigger(func() { fired = true })
	assert.True(t, d.Stop())
	clock.Advance(2 * time.Second)
	assert.False(t, fired)
}

// A timer whose callback already started must not run after Stop.
func TestDebouncer_StopBeatsLateTimer(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(clock, time.Second)

	fired := false
	d.Trigger(func() { fired = true })
	clock.mu.Lock()
	late := clock.timers[0]
	clock.mu.Unlock()

	d.Stop()
	late.f()
	assert.False(t, fired)
}

func TestDebouncer_RealClock(t *testing.T) {
	d := NewDebouncer(nil, 10*time.Millisecond)
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { n.Add(1) })
	}
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())
}
