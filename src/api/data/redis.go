package data

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const latestDayKey = "posts:latestday"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// SetLatestDay caches the most recent feed day seen by ingest, so the
// posts listing can default to it without a MAX(day) scan.
func SetLatestDay(ctx context.Context, rdb *redis.Client, day string) error {
	return rdb.Set(ctx, latestDayKey, day, 0).Err()
}

// LatestDay returns the cached feed day; empty when none is cached.
func LatestDay(ctx context.Context, rdb *redis.Client) (string, error) {
	day, err := rdb.Get(ctx, latestDayKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	return day, err
}
