package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// maxFallbackEntries is the size at which idle in-memory buckets are pruned
const maxFallbackEntries = 10000

// RateLimiter counts requests per user in fixed Redis windows. Without Redis,
// or when Redis fails, it uses a per-user token bucket held in memory.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig

	mu         sync.Mutex
	fallback   map[string]*fallbackEntry
	maxEntries int
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter instance; redisClient may be nil
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		redis:      redisClient,
		config:     config,
		fallback:   make(map[string]*fallbackEntry),
		maxEntries: maxFallbackEntries,
	}
}

// NewQueryRateLimiter limits free-text queries, each of which costs model calls
func NewQueryRateLimiter(redisClient *redis.Client) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Minute,
		Limit:     20,
		KeyPrefix: "rate_limit:query",
	})
}

// RateLimitMiddleware returns a Gin middleware that enforces rate limiting
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		allowed, remaining, resetTime := rl.Allow(c.Request.Context(), fmt.Sprintf("%v", userID))

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per %v", rl.config.Limit, rl.config.Window),
				"retry_after": int(time.Until(resetTime).Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// Allow records a request and reports whether it fits in the limit
func (rl *RateLimiter) Allow(ctx context.Context, userID string) (bool, int, time.Time) {
	if rl.redis != nil {
		allowed, remaining, resetTime, err := rl.IsAllowed(ctx, userID)
		if err == nil {
			return allowed, remaining, resetTime
		}
		log.Printf("Rate limit check failed, using in-memory limiter: %v", err)
	}
	return rl.allowFallback(userID)
}

// IsAllowed checks if a request from the given user is allowed
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, userID string) (bool, int, time.Time, error) {
	windowStart := time.Now().Truncate(rl.config.Window)
	key := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, userID, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), nil
}

// allowFallback applies the in-memory bucket. A limit of zero or less
// denies every request, as the Redis counter does.
func (rl *RateLimiter) allowFallback(userID string) (bool, int, time.Time) {
	now := time.Now()
	if rl.config.Limit <= 0 {
		return false, 0, now.Add(rl.config.Window)
	}

	rl.mu.Lock()
	entry, ok := rl.fallback[userID]
	if !ok {
		if len(rl.fallback) >= rl.maxEntries {
			rl.evictIdle(now)
		}
		every := rl.config.Window / time.Duration(rl.config.Limit)
		entry = &fallbackEntry{limiter: rate.NewLimiter(rate.Every(every), rl.config.Limit)}
		rl.fallback[userID] = entry
	}
	entry.lastSeen = now
	rl.mu.Unlock()

	allowed := entry.limiter.AllowN(now, 1)
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, now.Add(rl.config.Window)
}

// evictIdle drops buckets unused for a full window. Such a bucket has
// refilled to its burst, so a fresh one behaves the same. Callers hold rl.mu.
func (rl *RateLimiter) evictIdle(now time.Time) {
	before := len(rl.fallback)
	for userID, entry := range rl.fallback {
		if now.Sub(entry.lastSeen) >= rl.config.Window {
			delete(rl.fallback, userID)
		}
	}
	log.Printf("Pruned %d idle in-memory rate limiters", before-len(rl.fallback))
}
