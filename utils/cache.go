package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Hour
	cacheTimeout    = 2 * time.Second
)

// The helpers below are no-ops when rc is nil, so callers never branch on Redis being configured.

// CacheGetBytes returns cached bytes for a key from Redis.
func CacheGetBytes(rc *redis.Client, key string) ([]byte, bool) {
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			Sugar.Debugf("cache miss key=%s", key)
		} else {
			Sugar.Warnf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// CacheGetJSON decodes a cached JSON value into out.
func CacheGetJSON(rc *redis.Client, key string, out interface{}) bool {
	b, ok := CacheGetBytes(rc, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// CacheSetBytes stores bytes with the given TTL, one hour when ttl is not positive.
func CacheSetBytes(rc *redis.Client, key string, b []byte, ttl time.Duration) {
	if rc == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(rc *redis.Client, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(rc, key, b, ttl)
}

// CacheDelete removes a single key.
func CacheDelete(rc *redis.Client, key string) {
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := rc.Del(ctx, key).Err(); err != nil {
		Sugar.Warnf("cache delete failed key=%s err=%v", key, err)
	}
}
