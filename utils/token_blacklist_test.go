package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestBlacklistInMemory(t *testing.T) {
	BlacklistToken("jti-memory", time.Now().Add(time.Minute))
	assert.True(t, IsTokenBlacklisted("jti-memory"))
	assert.False(t, IsTokenBlacklisted("jti-other"))

	// already expired tokens are not worth remembering
	BlacklistToken("jti-old", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("jti-old"))
}

func TestBlacklistRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetRedis(rc)
	t.Cleanup(func() {
		SetRedis(nil)
		_ = rc.Close()
	})

	BlacklistToken("jti-redis", time.Now().Add(time.Minute))
	assert.True(t, mr.Exists("jwt:blacklist:jti-redis"))
	assert.True(t, IsTokenBlacklisted("jti-redis"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, IsTokenBlacklisted("jti-redis"))
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	SaveState("state-1", time.Minute)
	assert.True(t, ConsumeState("state-1"))
	assert.False(t, ConsumeState("state-1"))
	assert.False(t, ConsumeState(""))

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetRedis(rc)
	t.Cleanup(func() {
		SetRedis(nil)
		_ = rc.Close()
	})
	SaveState("state-2", time.Minute)
	assert.True(t, ConsumeState("state-2"))
	assert.False(t, ConsumeState("state-2"))
}
