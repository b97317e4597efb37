package rate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_AllowBurst(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 1, Burst: 5})

	allowed := 0
	for i := 0; i < 10; i++ {
		if lim.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed, "only the burst is available immediately")
}

func TestLimiter_Refill(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 10, Burst: 1})
	base := time.Now()
	lim.now = func() time.Time { return base }
	lim.last = base

	require.True(t, lim.Allow())
	require.False(t, lim.Allow())

	lim.now = func() time.Time { return base.Add(150 * time.Millisecond) }
	assert.True(t, lim.Allow(), "a token is refilled after 100ms at 10 rps")
}

func TestLimiter_BurstCap(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 1000, Burst: 3})
	base := time.Now()
	lim.last = base
	lim.now = func() time.Time { return base.Add(time.Hour) }

	allowed := 0
	for i := 0; i < 10; i++ {
		if lim.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed, "tokens never exceed burst")
}

func TestLimiter_Disabled(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 0, Burst: 0})
	for i := 0; i < 100; i++ {
		require.True(t, lim.Allow())
	}
}

func TestLimiter_WaitContextCanceled(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 0.001, Burst: 1})
	require.True(t, lim.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := lim.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_WaitSucceeds(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 100, Burst: 1})
	require.True(t, lim.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, lim.Wait(ctx))
}

func TestManager_SharesLimiterPerKey(t *testing.T) {
	m := NewManager(Config{RequestsPerSecond: 1, Burst: 1})

	var wg sync.WaitGroup
	got := make([]*Limiter, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = m.GetLimiter("keeper")
		}(i)
	}
	wg.Wait()

	for _, lim := range got {
		assert.Same(t, got[0], lim)
	}
	assert.NotSame(t, got[0], m.GetLimiter("other"))
}
