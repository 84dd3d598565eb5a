// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the edge rate limiter: per-caller token buckets from
// golang.org/x/time/rate, keyed by user id after authentication and by
// client IP before it. It guards the process against bursts; message quotas
// are enforced separately by the usage service. Buckets are process-local.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tbourn/llm-chat-backend/internal/observability"
)

// keyFunc selects the bucket for a request.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys by "user:<id>" when Authenticate resolved a caller and
// by "ip:<addr>" otherwise.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get(ctxKeyUserID); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// idleBucketTTL is how long an unused bucket is kept. A bucket idle that
// long has refilled completely, so dropping it loses nothing.
const idleBucketTTL = 10 * time.Minute

// RateLimiter is a set of per-key token buckets held in an expiring cache.
// Safe for concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	buckets *gocache.Cache
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	return newRateLimiter(rps, burst, keyFn, idleBucketTTL)
}

func newRateLimiter(rps float64, burst int, keyFn keyFunc, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   max(burst, 1),
		keyFn:   keyFn,
		buckets: gocache.New(idle, idle),
	}
}

// bucket returns the limiter for key, creating it on first use. Every hit
// pushes the bucket's expiry back.
func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		rl.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	if err := rl.buckets.Add(key, lim, gocache.DefaultExpiration); err != nil {
		// A concurrent request created it first.
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay, which does not spend tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler rejects requests over the bucket rate with 429 and a Retry-After
// header holding the whole seconds until the next token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.bucket(rl.keyFn(c))
		now := time.Now()
		res := lim.ReserveN(now, 1)
		delay := res.DelayFrom(now)
		if res.OK() && delay == 0 {
			c.Next()
			return
		}
		res.CancelAt(now)

		retry := 1
		if res.OK() {
			retry = max(int(math.Ceil(delay.Seconds())), 1)
		}
		observability.ObserveLimitRejection("rate_limited")
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
