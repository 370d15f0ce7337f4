package utils

import (
	"context"
	"time"
)

var oauthStates = newExpiringSet()

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "oauth:state:"+state, "1", ttl).Err(); err == nil {
			return
		}
	}
	oauthStates.add(state, time.Now().Add(ttl))
}

// ConsumeState validates and removes a state token; each state is accepted once.
func ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, "oauth:state:"+state).Result(); err == nil {
			return v != ""
		}
	}
	return oauthStates.has(state, true)
}
