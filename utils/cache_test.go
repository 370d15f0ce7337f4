package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHelpers(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	type payload struct{ Name string }
	CacheSetJSON(rc, "k", payload{Name: "x"}, time.Minute)
	var out payload
	assert.True(t, CacheGetJSON(rc, "k", &out))
	assert.Equal(t, "x", out.Name)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	CacheDelete(rc, "k")
	assert.False(t, CacheGetJSON(rc, "k", &out))
}

func TestCacheDefaultTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	CacheSetBytes(rc, "b", []byte("v"), 0)
	b, ok := CacheGetBytes(rc, "b")
	require.True(t, ok)
	assert.Equal(t, "v", string(b))
	assert.Equal(t, time.Hour, mr.TTL("b"))
}

func TestCacheWithoutRedis(t *testing.T) {
	CacheSetBytes(nil, "k", []byte("v"), time.Minute)
	_, ok := CacheGetBytes(nil, "k")
	assert.False(t, ok)
	CacheDelete(nil, "k")
}

func TestCacheUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	mr.Close()

	var out struct{}
	assert.False(t, CacheGetJSON(rc, "k", &out))
}
