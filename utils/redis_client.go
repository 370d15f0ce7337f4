package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/sharebox/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
	redisMu     sync.RWMutex
)

// GetRedis returns a singleton Redis client based on loaded config.
// It returns nil when no Redis host is configured; callers then use their fallback path.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		if !cfg.RedisEnabled() {
			return
		}
		client := redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			Sugar.Warnf("redis ping failed addr=%s err=%v", client.Options().Addr, err)
		}
		redisMu.Lock()
		if redisClient == nil {
			redisClient = client
		}
		redisMu.Unlock()
	})
	redisMu.RLock()
	defer redisMu.RUnlock()
	return redisClient
}

// SetRedis replaces the shared client; nil switches every helper to its in-memory fallback.
func SetRedis(client *redis.Client) {
	redisOnce.Do(func() {})
	redisMu.Lock()
	redisClient = client
	redisMu.Unlock()
}
