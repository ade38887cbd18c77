package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "odp_http_rate_limited_total",
	Help: "Requests rejected by the token bucket limiter.",
}, []string{"scope"})

type RateConfig struct {
	// Rate is the refill rate in tokens per second.
	Rate  float64
	Burst float64
}

// RateLimiter is a Redis-backed token bucket shared by every replica.
type RateLimiter struct {
	client redis.Scripter
	scope  string
	cfg    RateConfig
	script *redis.Script
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter returns nil when client is nil; a nil limiter passes every request.
func NewRateLimiter(client redis.Scripter, scope string, cfg RateConfig, logger *zap.Logger) *RateLimiter {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		client: client,
		scope:  scope,
		cfg:    cfg,
		script: redis.NewScript(tokenBucketLua),
		logger: logger,
		now:    time.Now,
	}
}

// Middleware enforces the bucket per client. Redis failures let the request
// through and are logged.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.cfg.Rate <= 0 || l.cfg.Burst <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := clientIdentifier(r)
		if identifier == "" {
			identifier = "anonymous"
		}
		allowed, retryAfter, err := l.allow(r.Context(), identifier)
		if err != nil {
			l.logger.Warn("rate limiter unavailable", zap.String("scope", l.scope), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			rateLimitedTotal.WithLabelValues(l.scope).Inc()
			w.Header().Set("Retry-After", formatRetryAfter(retryAfter))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(ctx context.Context, identifier string) (bool, time.Duration, error) {
	key := strings.Join([]string{"rl", l.scope, identifier}, ":")
	result, err := l.script.Run(ctx, l.client, []string{key}, l.now().UnixMilli(), l.cfg.Rate, l.cfg.Burst, 1).Result()
	if err != nil {
		return false, 0, err
	}
	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, errors.New("invalid redis response")
	}
	allowed, err := toInt64(values[0])
	if err != nil {
		return false, 0, err
	}
	waitMillis, err := toInt64(values[1])
	if err != nil {
		return false, 0, err
	}
	if allowed != 1 {
		return false, time.Duration(waitMillis) * time.Millisecond, nil
	}
	return true, 0, nil
}

func clientIdentifier(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-ID")); id != "" {
		return id
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func formatRetryAfter(d time.Duration) string {
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func toInt64(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, errors.New("unsupported type")
	}
}

// tokenBucketLua returns {allowed, wait_ms}. Integer replies keep the wait
// exact because Redis truncates Lua floats.
const tokenBucketLua = `
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local capacity = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'timestamp')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil then
  tokens = capacity
end
if last == nil then
  last = now_ms
end

local delta = now_ms - last
if delta < 0 then
  delta = 0
end
tokens = math.min(capacity, tokens + delta * rate / 1000)

local wait_ms = 0
local allowed = 0
if tokens >= requested then
  tokens = tokens - requested
  allowed = 1
else
  wait_ms = math.ceil((requested - tokens) * 1000 / rate)
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'timestamp', tostring(now_ms))
redis.call('PEXPIRE', key, math.ceil(capacity * 1000 / rate))
return {allowed, wait_ms}
`
