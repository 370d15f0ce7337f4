package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerIP(t *testing.T) {
	l := NewRateLimiter(4)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", NewRateLimiter(2).Middleware(), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, call(r, "/", nil).Code)
	w := call(r, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "42901")
}
