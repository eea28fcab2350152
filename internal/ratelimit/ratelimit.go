package ratelimit

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const defaultPrefix = "guideelbac:ratelimit"

// creates a limiter backed by redis when a URL is configured, memory otherwise
func New(ctx context.Context, cfg Config) (*Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", cfg.Rate, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	if cfg.RedisURL == "" {
		store := memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: time.Minute,
		})

		return &Limiter{limiter: limiter.New(store, rate), backend: "memory"}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   prefix,
		MaxRetry: 3,
	})
	if err != nil {
		client.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}

	logger.Info("connected to redis for rate limiting")

	return &Limiter{limiter: limiter.New(store, rate), redis: client, backend: "redis"}, nil
}

// returns "memory" or "redis"
func (l *Limiter) Backend() string {
	return l.backend
}

// returns a gin middleware keyed on the client IP
func (l *Limiter) Middleware() gin.HandlerFunc {
	return mgin.NewMiddleware(l.limiter,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.FromContext(c.Request.Context()).Warn("rate limit exceeded", "ip", c.ClientIP())
			errors.TooManyRequests(c, "too many questions, please slow down")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// fail open: an unreachable counter store must not block questions
			logger.FromContext(c.Request.Context()).Error("rate limiter unavailable", "error", err)
			c.Next()
		}),
	)
}

func (l *Limiter) Close() error {
	if l.redis == nil {
		return nil
	}

	return l.redis.Close()
}
