package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiterConfig defines rate limiting configuration
type RateLimiterConfig struct {
	// RequestsPerMinute is the sustained refill rate per client.
	RequestsPerMinute int
	// Burst is the bucket capacity, the most requests a client may fire
	// back to back.
	Burst int
	// KeyFunc derives the rate limit key from the request. Defaults to the
	// client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	ResetTime  time.Time
	RetryAfter int
}

// RateLimiter implements per-client token bucket rate limiting with
// in-memory storage.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	config  RateLimiterConfig

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter and starts its bucket cleanup
// loop. Call Close to stop it.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 600
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute
	}
	if config.KeyFunc == nil {
		config.KeyFunc = clientIPKey
	}

	rl := &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		config:  config,
		stop:    make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.cleanupLoop()

	return rl
}

// Close stops the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	rl.wg.Wait()
}

// cleanupLoop periodically removes stale token buckets
func (rl *RateLimiter) cleanupLoop() {
	defer rl.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.removeStaleBuckets()
		}
	}
}

func (rl *RateLimiter) removeStaleBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		// Idle buckets are full anyway, nothing is lost by dropping them.
		if now.Sub(bucket.lastRefill) > 10*time.Minute {
			delete(rl.buckets, key)
		}
	}
}

// Middleware returns a Gin middleware function for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.config.KeyFunc(c)
		result := rl.take(key)

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(result.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": result.RetryAfter,
			})
			return
		}

		c.Next()
	}
}

// take refills the client's bucket and spends one token from it.
func (rl *RateLimiter) take(key string) RateLimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &tokenBucket{
			tokens:     float64(rl.config.Burst),
			lastRefill: now,
		}
		rl.buckets[key] = bucket
	}

	refill := now.Sub(bucket.lastRefill).Minutes() * float64(rl.config.RequestsPerMinute)
	bucket.tokens = math.Min(float64(rl.config.Burst), bucket.tokens+refill)
	bucket.lastRefill = now

	result := RateLimitResult{ResetTime: now.Add(time.Minute)}
	if bucket.tokens >= 1 {
		bucket.tokens--
		result.Allowed = true
	} else {
		retryAfter := int(math.Ceil(60.0 / float64(rl.config.RequestsPerMinute)))
		if retryAfter < 1 {
			retryAfter = 1
		}
		result.RetryAfter = retryAfter
	}
	result.Remaining = int(bucket.tokens)
	return result
}

// clientIPKey generates a rate limit key based on the client IP address.
func clientIPKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
