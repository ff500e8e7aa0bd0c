package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/movie-review/pkg/logger"
)

// Result describes the outcome of one rate limit check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter is a Redis sliding-window rate limiter
type Limiter struct {
	redis       *redis.Client
	prefix      string
	maxRequests int
	window      time.Duration
	trusted     []netip.Prefix
}

// NewLimiter creates a limiter allowing maxRequests per window per identifier
func NewLimiter(client *redis.Client, prefix string, maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		redis:       client,
		prefix:      prefix,
		maxRequests: maxRequests,
		window:      window,
	}
}

// TrustProxies makes the limiter read X-Forwarded-For when the request comes
// from one of proxies. Entries are CIDRs or single addresses.
func (l *Limiter) TrustProxies(proxies []string) error {
	trusted := make([]netip.Prefix, 0, len(proxies))
	for _, p := range proxies {
		if prefix, err := netip.ParsePrefix(p); err == nil {
			trusted = append(trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		addr = addr.Unmap()
		trusted = append(trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	l.trusted = trusted
	return nil
}

func (l *Limiter) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP is the address requests are counted against: the remote host, or
// behind a trusted proxy the nearest X-Forwarded-For hop that is not itself
// a trusted proxy.
func (l *Limiter) ClientIP(r *http.Request) string {
	remote, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remote = r.RemoteAddr
	}
	if !l.isTrusted(remote) {
		return remote
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !l.isTrusted(hop) {
			return hop
		}
	}
	return remote
}

// Allow records a request for identifier and reports whether it is within the limit
func (l *Limiter) Allow(ctx context.Context, identifier string) (Result, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", l.prefix, identifier)
	now := time.Now()
	windowStart := now.Add(-l.window)

	pipe := l.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, key, l.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	return l.result(countCmd.Val(), now), nil
}

func (l *Limiter) result(count int64, now time.Time) Result {
	remaining := l.maxRequests - int(count) - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count < int64(l.maxRequests),
		Limit:     l.maxRequests,
		Remaining: remaining,
		ResetAt:   now.Add(l.window),
	}
}

// SetHeaders writes the X-RateLimit-* headers
func (r Result) SetHeaders(h http.Header) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
}

// Middleware limits requests by client IP. A nil limiter or a Redis failure lets requests through.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			identifier := l.ClientIP(r)
			res, err := l.Allow(r.Context(), identifier)
			if err != nil {
				logger.Error(r.Context()).
					Err(err).
					Str("identifier", identifier).
					Msg("Rate limiter error")
				next.ServeHTTP(w, r)
				return
			}

			res.SetHeaders(w.Header())
			if !res.Allowed {
				logger.Warn(r.Context()).
					Str("identifier", identifier).
					Int("limit", res.Limit).
					Msg("Rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(res.ResetAt).Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
