package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FloorEpoch buckets a wall-clock instant into a coarse epoch of size ttl.
// A non-positive ttl collapses every instant into epoch zero; callers treat
// that as always stale.
func FloorEpoch(t time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return t.UnixNano() / int64(ttl)
}
