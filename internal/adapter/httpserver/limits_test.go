package httpserver

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionLimits_Global(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 2, 10, 100, 100)

	ok, _ := l.Acquire("10.0.0.1")
	require.True(t, ok)
	ok, _ = l.Acquire("10.0.0.2")
	require.True(t, ok)

	ok, reason := l.Acquire("10.0.0.3")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)
	assert.Equal(t, http.StatusServiceUnavailable, reason.StatusCode())

	l.Release("10.0.0.1")
	ok, _ = l.Acquire("10.0.0.3")
	assert.True(t, ok)
	assert.Equal(t, int64(2), l.Current())
}

func TestConnectionLimits_PerIP(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewFakeClock(), 100, 2, 100, 100)

	for range 2 {
		ok, _ := l.Acquire("10.0.0.1")
		require.True(t, ok)
	}

	ok, reason := l.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)
	assert.Equal(t, http.StatusTooManyRequests, reason.StatusCode())
	assert.Equal(t, int64(2), l.Current(), "global slot is rolled back")

	ok, _ = l.Acquire("10.0.0.2")
	assert.True(t, ok, "other IPs are unaffected")

	l.Release("10.0.0.1")
	l.Release("10.0.0.1")
	assert.Equal(t, 0, l.CountIP("10.0.0.1"))
}

func TestConnectionLimits_RateRefillsWithClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionLimits(clock, 100, 100, 1, 2)

	for range 2 {
		ok, _ := l.Acquire("10.0.0.1")
		require.True(t, ok)
	}

	ok, reason := l.Acquire("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)

	clock.Advance(time.Second)
	ok, _ = l.Acquire("10.0.0.1")
	assert.True(t, ok)
}

func TestConnectionLimits_IdleLimitersExpire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionLimits(clock, 100, 100, 10, 10)

	l.Acquire("10.0.0.1")
	l.Acquire("10.0.0.2")
	assert.Equal(t, 2, l.trackedIPs())

	clock.Advance(11 * time.Minute)
	l.Acquire("10.0.0.3")
	assert.Equal(t, 1, l.trackedIPs())
}

func TestConnectionLimits_ConcurrentAcquireRespectsGlobal(t *testing.T) {
	l := NewConnectionLimits(clockwork.NewRealClock(), 10, 1000, 1000, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Acquire("10.0.0.1"); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, granted)
	assert.Equal(t, int64(10), l.Current())
}
