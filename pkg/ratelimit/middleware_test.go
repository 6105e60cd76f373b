package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingLimiter struct {
	limit int64
	seen  map[string]int64
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.seen[key]++
	return l.seen[key] <= l.limit, nil
}

func (l *countingLimiter) GetRemaining(_ context.Context, key string) (int64, error) {
	remaining := l.limit - l.seen[key]
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func newRouter(limiter Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(limiter, IPKeyFunc, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestMiddleware_RejectsOverQuota(t *testing.T) {
	router := newRouter(&countingLimiter{limit: 2, seen: map[string]int64{}})

	codes := make([]int, 0, 3)
	var lastRemaining string
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusOK {
			lastRemaining = w.Header().Get("X-RateLimit-Remaining")
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "0", lastRemaining)
}

func TestMiddleware_KeysByClientIP(t *testing.T) {
	router := newRouter(&countingLimiter{limit: 1, seen: map[string]int64{}})

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, addr)
	}
}

func TestMiddleware_FailsOpen(t *testing.T) {
	router := newRouter(&countingLimiter{err: errors.New("redis down"), seen: map[string]int64{}})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
