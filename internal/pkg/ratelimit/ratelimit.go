package ratelimit

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/FitLifeApp/FitLife/internal/pkg/cache"
	"github.com/FitLifeApp/FitLife/internal/pkg/env"
)

// NewAPILimiter builds the rate limiter applied to the API group. Counters
// live in Redis so limits hold across instances; if the cache client is not
// set up the limiter falls back to fiber's in-memory storage.
func NewAPILimiter(max int, window time.Duration) fiber.Handler {
	cfg := limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests, slow down",
			})
		},
	}

	if storage := newRedisStorage(); storage != nil {
		cfg.Storage = storage
	}

	return limiter.New(cfg)
}

func newRedisStorage() *redis.Storage {
	cacheClient := cache.GetClient()
	if cacheClient == nil {
		return nil
	}

	host := "localhost"
	port := 6379
	if h, p, err := net.SplitHostPort(cacheClient.Options().Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	password := cacheClient.Options().Password
	if password == "" {
		password = env.GetEnv("CACHE_PASSWORD", "")
	}

	// Database 1 keeps limiter counters out of the status cache (DB 0).
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
