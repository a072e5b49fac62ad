package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
)

// rateLimitCheckTimeout bounds the Redis round trip so an unreachable
// server fails open quickly.
const rateLimitCheckTimeout = 100 * time.Millisecond

// ErrRateLimited is returned to the error handler when a limit is hit.
var ErrRateLimited = fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")

// rateLimitBypassed disables throttling in test and development environments.
func rateLimitBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit checks if a resource has exceeded its rate limit.
// Returns true if allowed, false if limit exceeded.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, errors.New("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

func rateLimitKey(c *fiber.Ctx) string {
	if uid := c.Locals(LocalUserID); uid != nil {
		return fmt.Sprintf("user:%v", uid)
	}
	return "ip:" + c.IP()
}

// RateLimit allows limit requests per window for each user (or IP when
// anonymous). Redis counts when available; otherwise Fiber's in-process
// limiter does. Redis errors let the request through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name string) fiber.Handler {
	if rdb == nil {
		return limiter.New(limiter.Config{
			Max:        limit,
			Expiration: window,
			Next: func(c *fiber.Ctx) bool {
				return rateLimitBypassed()
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return name + ":" + rateLimitKey(c)
			},
			LimitReached: func(c *fiber.Ctx) error {
				return ErrRateLimited
			},
		})
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), rateLimitCheckTimeout)
		allowed, err := CheckRateLimit(ctx, rdb, name, rateLimitKey(c), limit, window)
		cancel()
		if err != nil {
			observability.Logger.WarnContext(c.UserContext(), "rate limit check failed", "resource", name, "error", err)
			return c.Next()
		}
		if !allowed {
			return ErrRateLimited
		}
		return c.Next()
	}
}
