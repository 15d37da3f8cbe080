package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/mutsasns/mutsasns/backend/go-services/pkg/logger"
	"github.com/mutsasns/mutsasns/backend/go-services/pkg/metrics"
)

// limiter decides whether one more request for key fits the budget.
// retryAfter is only meaningful when ok is false.
type limiter interface {
	allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
	name() string
}

// RateLimitMiddleware enforces a per-process token bucket per caller.
// Authenticated callers are keyed by username, everyone else by client IP.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return limit(&bucketLimiter{rps: rate.Limit(rps), burst: burst})
}

// RedisRateLimitMiddleware is a fixed-window limiter shared by all replicas.
// Each window allows floor(rps*window)+burst requests per caller. Redis
// errors let the request through. A nil client falls back to
// RateLimitMiddleware.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	if window < time.Second {
		window = time.Second
	}
	return limit(&windowLimiter{
		client: client,
		window: window,
		max:    int64(rps*window.Seconds()) + int64(burst),
		now:    time.Now,
	})
}

func limit(l limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry, err := l.allow(c.Request.Context(), rateKey(c))
		if err != nil {
			logger.Errorf("rate limit (%s): %v", l.name(), err)
			ok = true
		}
		if !ok {
			secs := int(retry.Round(time.Second).Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			metrics.RateLimitRejected.WithLabelValues(l.name()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues(l.name()).Inc()
		c.Next()
	}
}

type bucketLimiter struct {
	buckets sync.Map // key -> *rate.Limiter
	rps     rate.Limit
	burst   int
}

func (b *bucketLimiter) name() string { return "memory" }

func (b *bucketLimiter) allow(_ context.Context, key string) (bool, time.Duration, error) {
	v, ok := b.buckets.Load(key)
	if !ok {
		v, _ = b.buckets.LoadOrStore(key, rate.NewLimiter(b.rps, b.burst))
	}
	r := v.(*rate.Limiter).Reserve()
	if d := r.Delay(); d > 0 || !r.OK() {
		r.Cancel()
		return false, d, nil
	}
	return true, 0, nil
}

type windowLimiter struct {
	client *redis.Client
	window time.Duration
	max    int64
	now    func() time.Time
}

func (w *windowLimiter) name() string { return "redis" }

func (w *windowLimiter) allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := w.now()
	start := now.Truncate(w.window)
	redisKey := fmt.Sprintf("rl:%s:%d", key, start.Unix())

	var incr *redis.IntCmd
	_, err := w.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		p.Expire(ctx, redisKey, w.window+time.Second)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if incr.Val() > w.max {
		return false, start.Add(w.window).Sub(now), nil
	}
	return true, 0, nil
}
