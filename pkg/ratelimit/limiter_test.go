package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestResultBoundaries(t *testing.T) {
	l := NewLimiter(nil, "auth", 3, time.Minute)
	now := time.Now()

	assert.True(t, l.result(0, now).Allowed)
	assert.Equal(t, 2, l.result(0, now).Remaining)
	assert.True(t, l.result(2, now).Allowed)
	assert.Equal(t, 0, l.result(2, now).Remaining)
	assert.False(t, l.result(3, now).Allowed)
	assert.Equal(t, 0, l.result(7, now).Remaining)
}

func TestMiddlewarePassesThroughWithoutLimiter(t *testing.T) {
	rec := httptest.NewRecorder()
	Middleware(nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddlewareFailsOpenWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewLimiter(client, "auth", 1, time.Minute)
	rec := httptest.NewRecorder()
	Middleware(l)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestClientIPIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	l := NewLimiter(nil, "auth", 5, time.Minute)
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.RemoteAddr = "198.51.100.4:41234"
	assert.Equal(t, "198.51.100.4", l.ClientIP(r))

	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2"} {
		r.Header.Set("X-Forwarded-For", spoofed)
		assert.Equal(t, "198.51.100.4", l.ClientIP(r))
	}
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	l := NewLimiter(nil, "auth", 5, time.Minute)
	require.NoError(t, l.TrustProxies([]string{"10.0.0.0/8", "192.168.1.7"}))

	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.RemoteAddr = "10.0.0.5:41234"
	assert.Equal(t, "10.0.0.5", l.ClientIP(r))

	// a client-supplied first hop is skipped in favour of what the proxies saw
	r.Header.Set("X-Forwarded-For", "1.2.3.4, 203.0.113.9, 192.168.1.7")
	assert.Equal(t, "203.0.113.9", l.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "172.16.0.9")
	assert.Equal(t, "172.16.0.9", l.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "10.1.1.1")
	assert.Equal(t, "10.0.0.5", l.ClientIP(r))
}

func TestTrustProxiesRejectsGarbage(t *testing.T) {
	l := NewLimiter(nil, "auth", 5, time.Minute)
	assert.Error(t, l.TrustProxies([]string{"not-an-ip"}))
}
