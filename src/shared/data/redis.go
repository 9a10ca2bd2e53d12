package data

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dayLockPrefix    = "leetbot:daylock:"
	dailyCachePrefix = "leetbot:daily:"
	dailyCacheExpiry = 10 * time.Minute
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// DayGuard coordinates day-boundary job firings through redis: a per-day
// lock so a job's externally visible work happens at most once per UTC day,
// and a short-lived cache of the daily-challenge payload so jobs firing
// around the boundary share one upstream fetch.
type DayGuard struct {
	RDB *redis.Client
}

func dayLockKey(jobID string, day time.Time) string {
	return dayLockPrefix + jobID + ":" + day.UTC().Format("2006-01-02")
}

// AcquireDayLock marks a job id as having fired for the given UTC day.
// Returns false when the lock is already held, meaning another firing (or a
// pre-restart one) already handled this day.
func (g *DayGuard) AcquireDayLock(ctx context.Context, jobID string, day time.Time) (bool, error) {
	return g.RDB.SetNX(ctx, dayLockKey(jobID, day), "1", 48*time.Hour).Result()
}

// ReleaseDayLock drops a previously acquired day lock, used when the run it
// guarded failed before doing any externally visible work.
func (g *DayGuard) ReleaseDayLock(ctx context.Context, jobID string, day time.Time) error {
	return g.RDB.Del(ctx, dayLockKey(jobID, day)).Err()
}

func dailyCacheKey(day time.Time) string {
	return dailyCachePrefix + day.UTC().Format("2006-01-02")
}

// CacheDaily stores the serialized daily-challenge payload briefly, under the
// UTC day it belongs to. Keying by day means a payload cached just before
// midnight can never be served for the next day's challenge.
func (g *DayGuard) CacheDaily(ctx context.Context, day time.Time, payload []byte) error {
	return g.RDB.Set(ctx, dailyCacheKey(day), payload, dailyCacheExpiry).Err()
}

// CachedDaily returns the cached payload for the given UTC day, or nil on miss.
func (g *DayGuard) CachedDaily(ctx context.Context, day time.Time) ([]byte, error) {
	b, err := g.RDB.Get(ctx, dailyCacheKey(day)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return b, err
}
