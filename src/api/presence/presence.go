package presence

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastseenPrefix = "lastseen:"

// Online reports whether a user last seen at seen counts as online at now.
// Monotonic in now: once a user falls offline they stay offline until a
// fresh heartbeat arrives.
func Online(seen, now time.Time, window time.Duration) bool {
	return now.Sub(seen) < window
}

// Tracker keeps per-user heartbeats in Redis. The middleware touches the
// key on every authenticated request; the key TTL matches the online
// window so an expired key simply reads as offline.
type Tracker struct {
	rdb    *redis.Client
	window time.Duration
}

func NewTracker(rdb *redis.Client, window time.Duration) *Tracker {
	return &Tracker{rdb: rdb, window: window}
}

func (t *Tracker) Touch(ctx context.Context, username string) error {
	now := time.Now().Unix()
	return t.rdb.Set(ctx, lastseenPrefix+username, strconv.FormatInt(now, 10), t.window).Err()
}

// LastSeen returns the recorded heartbeat; ok is false when none exists.
func (t *Tracker) LastSeen(ctx context.Context, username string) (time.Time, bool, error) {
	v, err := t.rdb.Get(ctx, lastseenPrefix+username).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(sec, 0), true, nil
}

// IsOnline answers whether the user heartbeated within the online window.
func (t *Tracker) IsOnline(ctx context.Context, username string) (bool, error) {
	seen, ok, err := t.LastSeen(ctx, username)
	if err != nil || !ok {
		return false, err
	}
	return Online(seen, time.Now(), t.window), nil
}
