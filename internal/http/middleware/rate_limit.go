package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig holds rate limiting configuration. Redirects and API reads
// share MaxRequests; API writes are capped by WriteMaxRequests.
type RateLimitConfig struct {
	MaxRequests      int
	WriteMaxRequests int
	Window           time.Duration
	KeyPrefix        string
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests:      300,
		WriteMaxRequests: 30,
		Window:           time.Minute,
		KeyPrefix:        "keyward:ratelimit",
	}
}

// RateLimit creates a per-IP rate limiting middleware using Redis. Health and
// metrics probes are never limited.
func RateLimit(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/health" || path == "/metrics" {
			return c.Next()
		}

		limit := config.MaxRequests
		key := config.KeyPrefix + ":" + c.IP()
		if c.Method() != fiber.MethodGet && strings.HasPrefix(path, "/api") {
			limit = config.WriteMaxRequests
			key += ":write"
		}

		ctx := c.Context()
		result, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			logger.Error("rate limit redis error", zap.Error(err))
			// Fail open: allow request if Redis is unavailable
			return c.Next()
		}

		// Set expiration on first request
		if result == 1 {
			redisClient.Expire(ctx, key, config.Window)
		}

		remaining := limit - int(result)
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, remaining)))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(config.Window).Unix(), 10))

		if result > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
