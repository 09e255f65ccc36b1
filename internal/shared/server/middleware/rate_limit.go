package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"talentranker/internal/shared/server/respond"
)

// SubmissionLimiter meters ranking submissions per subscriber with a token
// bucket that refills perMinute tokens every minute. A zero allowance disables it.
type SubmissionLimiter struct {
	perMinute int
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*submissionBucket
}

type submissionBucket struct {
	tokens float64
	seen   time.Time
}

func NewSubmissionLimiter(perMinute int, now func() time.Time) *SubmissionLimiter {
	if now == nil {
		now = time.Now
	}
	return &SubmissionLimiter{
		perMinute: perMinute,
		now:       now,
		buckets:   make(map[string]*submissionBucket),
	}
}

func (l *SubmissionLimiter) enabled() bool {
	return l != nil && l.perMinute > 0
}

// Take spends one submission for key. When none is left it reports how long
// until the next token.
func (l *SubmissionLimiter) Take(key string) (bool, time.Duration) {
	if !l.enabled() {
		return true, 0
	}
	capacity := float64(l.perMinute)
	perSecond := capacity / 60
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &submissionBucket{tokens: capacity, seen: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+elapsed*perSecond)
		b.seen = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := (1 - b.tokens) / perSecond
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// RankingsRateLimit guards ranking submissions. Requests are keyed by the
// authenticated subscriber, or by client IP when no identity is attached.
func RankingsRateLimit(l *SubmissionLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.enabled() {
			c.Next()
			return
		}
		key := SubscriberIDFromContext(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		ok, wait := l.Take(key)
		if ok {
			c.Next()
			return
		}
		retryAfterMs := wait.Milliseconds()
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		c.Header("Retry-After", strconv.FormatInt((retryAfterMs+999)/1000, 10))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many ranking requests", gin.H{
			"retryAfterMs": retryAfterMs,
		})
	}
}
