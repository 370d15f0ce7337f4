package utils

import (
	"context"
	"sync"
	"time"
)

// expiringSet is the single-instance fallback used when Redis is not configured.
type expiringSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newExpiringSet() *expiringSet {
	return &expiringSet{entries: map[string]time.Time{}}
}

func (s *expiringSet) add(key string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = expiresAt
}

func (s *expiringSet) has(key string, consume bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[key]
	if !ok {
		return false
	}
	if consume || time.Now().After(exp) {
		delete(s.entries, key)
	}
	return time.Now().Before(exp)
}

var blacklist = newExpiringSet()

// BlacklistToken revokes a session token ID until its natural expiration.
func BlacklistToken(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "jwt:blacklist:"+tokenID, "1", ttl).Err(); err == nil {
			return
		}
	}
	blacklist.add(tokenID, expiresAt)
}

// IsTokenBlacklisted checks if a token ID was revoked before natural expiration.
func IsTokenBlacklisted(tokenID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, "jwt:blacklist:"+tokenID).Result()
		if err == nil && n > 0 {
			return true
		}
	}
	return blacklist.has(tokenID, false)
}
