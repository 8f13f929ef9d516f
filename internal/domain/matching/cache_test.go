package matching

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRefreshCacheReusesSnapshotWithinEpoch(t *testing.T) {
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	loads := 0
	cache := newRefreshCache(time.Hour, func() time.Time { return clock },
		func(context.Context) (int, error) {
			loads++
			return loads, nil
		}, discardLogger())

	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)

	clock = clock.Add(10 * time.Minute)
	v, err = cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.Equal(t, 1, loads)
}

func TestRefreshCacheReloadsOnEpochRollover(t *testing.T) {
	clock := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	loads := 0
	cache := newRefreshCache(time.Hour, func() time.Time { return clock },
		func(context.Context) (int, error) {
			loads++
			return loads, nil
		}, discardLogger())

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, 2, loads)
}

func TestRefreshCacheZeroTTLAlwaysReloads(t *testing.T) {
	loads := 0
	cache := newRefreshCache(0, time.Now,
		func(context.Context) (int, error) {
			loads++
			return loads, nil
		}, discardLogger())

	for i := 1; i <= 3; i++ {
		v, err := cache.Get(context.Background())
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
}

func TestRefreshCacheServesStaleOnFailure(t *testing.T) {
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fail := false
	cache := newRefreshCache(time.Hour, func() time.Time { return clock },
		func(context.Context) (int, error) {
			if fail {
				return 0, errors.New("db down")
			}
			return 7, nil
		}, discardLogger())

	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)

	fail = true
	clock = clock.Add(2 * time.Hour)
	v, err = cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestRefreshCacheColdStartFailure(t *testing.T) {
	cache := newRefreshCache(time.Hour, time.Now,
		func(context.Context) (int, error) {
			return 0, errors.New("db down")
		}, discardLogger())

	_, err := cache.Get(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "storage_error"))
}

func TestRefreshCacheInvalidateForcesReload(t *testing.T) {
	loads := 0
	cache := newRefreshCache(time.Hour, time.Now,
		func(context.Context) (int, error) {
			loads++
			return loads, nil
		}, discardLogger())

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestRefreshCacheInvalidateRetainsSnapshotOnFailure(t *testing.T) {
	fail := false
	cache := newRefreshCache(time.Hour, time.Now,
		func(context.Context) (int, error) {
			if fail {
				return 0, errors.New("db down")
			}
			return 7, nil
		}, discardLogger())

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	fail = true
	cache.Invalidate()
	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestRefreshCacheRefreshFailureKeepsSnapshot(t *testing.T) {
	fail := false
	cache := newRefreshCache(time.Hour, time.Now,
		func(context.Context) (int, error) {
			if fail {
				return 0, errors.New("db down")
			}
			return 7, nil
		}, discardLogger())

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = cache.Refresh(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "storage_error"))

	v, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestRefreshCacheRefreshReplacesSnapshot(t *testing.T) {
	loads := 0
	cache := newRefreshCache(time.Hour, time.Now,
		func(context.Context) (int, error) {
			loads++
			return loads, nil
		}, discardLogger())

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	v, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)

	v, err = cache.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestRefreshCacheSingleFlight(t *testing.T) {
	loads := 0
	release := make(chan struct{})
	cache := newRefreshCache(time.Hour, time.Now,
		func(context.Context) (int, error) {
			loads++
			<-release
			return loads, nil
		}, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Get(context.Background())
		}()
	}
	close(release)
	wg.Wait()
	require.Equal(t, 1, loads)
}
