// Package cache provides a small read-through cache for feature flags.
// Flags are stored in the database, cached in Redis when one is
// configured, and in memory otherwise. Reads within the TTL serve the
// cached value; writes invalidate.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentdesk/database"
)

const flagKeyPrefix = "rentdesk:flag:"

type cachedFlag struct {
	enabled   bool
	fetchedAt time.Time
}

// FlagCache answers feature-flag lookups with a bounded staleness.
type FlagCache struct {
	db    *gorm.DB
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	local map[string]cachedFlag
}

// NewFlagCache builds a cache over db. redisClient may be nil, in
// which case the in-memory map is used alone.
func NewFlagCache(db *gorm.DB, redisClient *redis.Client, ttl time.Duration) *FlagCache {
	return &FlagCache{
		db:    db,
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
		local: make(map[string]cachedFlag),
	}
}

// NewRedisClient connects to Redis using the configured address and
// returns nil when the address is empty or the server is unreachable.
func NewRedisClient(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Warnf("Redis unavailable, feature flags fall back to in-memory cache: %v", err)
		return nil
	}
	return client
}

// Enabled reports whether the named flag is on. Unknown flags are off.
// Redis or database errors degrade to the last cached value, then to
// false.
func (f *FlagCache) Enabled(ctx context.Context, name string) bool {
	if f.redis != nil {
		if val, err := f.redis.Get(ctx, flagKeyPrefix+name).Result(); err == nil {
			return val == "1"
		} else if err != redis.Nil {
			logrus.Warnf("Redis flag read failed for %s: %v", name, err)
		}
	}

	f.mu.RLock()
	entry, ok := f.local[name]
	f.mu.RUnlock()
	if ok && f.now().Sub(entry.fetchedAt) < f.ttl {
		return entry.enabled
	}

	enabled, err := f.load(ctx, name)
	if err != nil {
		logrus.Warnf("Flag lookup failed for %s: %v", name, err)
		if ok {
			return entry.enabled
		}
		return false
	}
	return enabled
}

func (f *FlagCache) load(ctx context.Context, name string) (bool, error) {
	var flag database.FeatureFlag
	err := f.db.WithContext(ctx).Where("name = ?", name).First(&flag).Error
	enabled := err == nil && flag.Enabled
	if err != nil && err != gorm.ErrRecordNotFound {
		return false, err
	}

	f.mu.Lock()
	f.local[name] = cachedFlag{enabled: enabled, fetchedAt: f.now()}
	f.mu.Unlock()

	if f.redis != nil {
		val := "0"
		if enabled {
			val = "1"
		}
		if err := f.redis.Set(ctx, flagKeyPrefix+name, val, f.ttl).Err(); err != nil {
			logrus.Warnf("Redis flag write failed for %s: %v", name, err)
		}
	}
	return enabled, nil
}

// SetFlag upserts the flag row and invalidates both cache layers so
// the next read observes the new value.
func (f *FlagCache) SetFlag(ctx context.Context, name string, enabled bool) error {
	var flag database.FeatureFlag
	err := f.db.WithContext(ctx).Where("name = ?", name).First(&flag).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		flag = database.FeatureFlag{Name: name, Enabled: enabled}
		err = f.db.WithContext(ctx).Create(&flag).Error
	case err == nil:
		err = f.db.WithContext(ctx).Model(&flag).Update("enabled", enabled).Error
	}
	if err != nil {
		return err
	}
	f.Invalidate(ctx, name)
	return nil
}

// Invalidate drops the cached value for a flag.
func (f *FlagCache) Invalidate(ctx context.Context, name string) {
	f.mu.Lock()
	delete(f.local, name)
	f.mu.Unlock()

	if f.redis != nil {
		if err := f.redis.Del(ctx, flagKeyPrefix+name).Err(); err != nil {
			logrus.Warnf("Redis flag invalidation failed for %s: %v", name, err)
		}
	}
}
