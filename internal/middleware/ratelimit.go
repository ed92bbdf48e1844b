package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/http/dto"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware counts requests per caller (or IP before auth) in a
// fixed window. Redis errors fail open.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rateLimitKey(c)

		ctx, cancel := context.WithTimeout(c.UserContext(), 200*time.Millisecond)
		defer cancel()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:     "rate limit exceeded",
				RequestID: requestID(c),
			})
		}

		return c.Next()
	}
}

// rateLimitKey buckets by method and request path. Inside group middleware
// c.Route() is still the group's prefix route, so it cannot tell endpoints apart.
func rateLimitKey(c *fiber.Ctx) string {
	who := c.IP()
	if caller := GetCaller(c); caller.UserID != uuid.Nil {
		who = caller.UserID.String()
	}
	return fmt.Sprintf("rl:%s:%s:%s", c.Method(), c.Path(), who)
}
