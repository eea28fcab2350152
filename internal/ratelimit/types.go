package ratelimit

import (
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
)

// Config selects the rate and where counters live
type Config struct {
	// ulule/limiter format, e.g. "30-M" for thirty requests per minute
	Rate string

	// counters are kept in process memory when empty
	RedisURL string

	// key prefix, lets several limiters share one redis
	Prefix string
}

// Limiter throttles requests per client IP
type Limiter struct {
	limiter *limiter.Limiter
	redis   *redis.Client
	backend string
}
