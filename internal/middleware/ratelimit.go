package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/framecut/api/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimiter is a fixed-window per-user limiter kept in Redis
type RateLimiter struct {
	redis  *redis.Client
	logger zerolog.Logger
}

func NewRateLimiter(redisClient *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		logger: logger,
	}
}

// Limit allows maxRequests per window for each authenticated user.
// Requests pass when Redis is unavailable.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" || maxRequests <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, userID)
		ctx := c.UserContext()

		// TTL rides along so a window whose EXPIRE was lost gets one now
		var incr *redis.IntCmd
		var ttlCmd *redis.DurationCmd
		_, err := rl.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttlCmd = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			rl.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
			return c.Next()
		}
		count, ttl := incr.Val(), ttlCmd.Val()

		if ttl < 0 {
			if err := rl.redis.Expire(ctx, key, window).Err(); err != nil {
				rl.logger.Warn().Err(err).Str("key", key).Msg("failed to set rate limit window")
			}
			ttl = window
		}

		if count > int64(maxRequests) {
			c.Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(maxRequests-int(count)))

		return c.Next()
	}
}

// RenderLimit limits render job submissions per hour
func (rl *RateLimiter) RenderLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("render", maxPerHour, time.Hour)
}

// PreviewLimit limits preview frame requests per minute
func (rl *RateLimiter) PreviewLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("preview", maxPerMin, time.Minute)
}
