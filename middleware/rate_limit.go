package middleware

import (
	"context"
	"errors"
	"time"

	"boardroom/utils"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimiter caps requests per caller per minute. Authenticated callers
// are keyed by user id, anonymous ones by IP. A nil storage keeps counters
// in process memory.
func RateLimiter(max int, storage fiber.Storage) fiber.Handler {
	if max <= 0 {
		max = 120
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID := CurrentUserID(c); userID != "" {
				return "rl:user:" + userID
			}
			return "rl:ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			utils.LogEvent("rate_limit_hit", map[string]interface{}{
				"user_id":    CurrentUserID(c),
				"endpoint":   c.Path(),
				"ip":         c.IP(),
				"user_agent": c.Get(fiber.HeaderUserAgent),
			})
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(utils.ErrorEnvelope{
				StatusCode: fiber.StatusTooManyRequests,
				Message:    "too many requests, please retry later",
				Error:      "RATE_LIMITED",
				Path:       c.Path(),
				Timestamp:  time.Now().UTC().Format(time.RFC3339),
			})
		},
		Storage: storage,
	})
}

// RedisStorage implements fiber.Storage for Redis so limits hold across
// instances.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client, prefix: "boardroom:"}
}

// Get returns nil, nil for a missing key as fiber.Storage requires.
func (r *RedisStorage) Get(key string) ([]byte, error) {
	val, err := r.client.Get(context.Background(), r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return r.client.Set(context.Background(), r.prefix+key, val, exp).Err()
}

func (r *RedisStorage) Delete(key string) error {
	return r.client.Del(context.Background(), r.prefix+key).Err()
}

// Reset removes only keys under this storage's prefix.
func (r *RedisStorage) Reset() error {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
