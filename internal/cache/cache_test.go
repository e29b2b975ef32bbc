package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/pueblos-core/internal/cache"
)

func TestGetOrFetch_CachesValue(t *testing.T) {
	c := cache.New[string](10, time.Minute)
	var calls int32
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "Frías", nil
	}

	first, err := c.GetOrFetch(context.Background(), "1", fetch)
	require.NoError(t, err)
	second, err := c.GetOrFetch(context.Background(), "1", fetch)
	require.NoError(t, err)

	assert.Equal(t, "Frías", first)
	assert.Equal(t, "Frías", second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGetOrFetch_ErrorNotCached(t *testing.T) {
	c := cache.New[string](10, time.Minute)
	boom := errors.New("boom")
	var calls int32
	fetch := func(context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", boom
		}
		return "ok", nil
	}

	_, err := c.GetOrFetch(context.Background(), "k", fetch)
	assert.ErrorIs(t, err, boom)

	got, err := c.GetOrFetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGetOrFetch_ExpiresAfterTTL(t *testing.T) {
	c := cache.New[int](10, 20*time.Millisecond)
	var calls int32
	fetch := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	first, _ := c.GetOrFetch(context.Background(), "k", fetch)
	time.Sleep(60 * time.Millisecond)
	second, _ := c.GetOrFetch(context.Background(), "k", fetch)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

// TestGetOrFetch_SingleFlight verifies that concurrent misses for the same key
// share one in-flight fetch.
func TestGetOrFetch_SingleFlight(t *testing.T) {
	c := cache.New[string](10, time.Minute)
	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrFetch(context.Background(), "k", fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Give every goroutine time to join the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestGetOrFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c := cache.New[string](10, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchErr atomic.Value
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			fetchErr.Store(err)
			return "", err
		}
		return "shared", nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(firstCtx, "k", fetch)
		firstDone <- err
	}()
	<-started

	secondDone := make(chan string, 1)
	go func() {
		v, err := c.GetOrFetch(context.Background(), "k", fetch)
		assert.NoError(t, err)
		secondDone <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	assert.Equal(t, "shared", <-secondDone)
	assert.Nil(t, fetchErr.Load(), "shared fetch must not inherit the first caller's cancellation")

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "shared", v)
}

func TestGetOrFetch_FetchTimeout(t *testing.T) {
	c := cache.New[string](10, time.Minute, cache.WithFetchTimeout(20*time.Millisecond))
	fetch := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	_, err := c.GetOrFetch(context.Background(), "k", fetch)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	c := cache.New[int](10, time.Minute)
	var calls int32
	fetch := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	_, _ = c.GetOrFetch(context.Background(), "k", fetch)
	c.Invalidate("k")
	got, _ := c.GetOrFetch(context.Background(), "k", fetch)

	assert.Equal(t, 2, got)
}

func TestSetAndPurge(t *testing.T) {
	c := cache.New[string](10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, c.Len())

	c.Purge()

	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestNew_EvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.New[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}
