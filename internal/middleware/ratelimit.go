package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// LoginRateLimit limits authentication attempts per email or IP using Redis
// if available. Fails open when Redis is unreachable or not configured.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}

		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)

		key := strings.ToLower(strings.TrimSpace(req.Email))
		if key == "" {
			key = c.IP()
		}

		counterKey := "rl:auth:" + key
		cnt, err := cache.Incr(c.UserContext(), counterKey).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), counterKey, time.Minute)
		}

		if cnt > int64(maxPerMin) {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many attempts, try again later")
		}

		return c.Next()
	}
}
