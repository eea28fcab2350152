package main

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/guideelbac/server/internal/config"
	"codeberg.org/guideelbac/server/internal/logger"
	"codeberg.org/guideelbac/server/internal/ratelimit"
	"codeberg.org/guideelbac/server/internal/storage"
	"github.com/gin-gonic/gin"
)

const storeConnectTimeout = 30 * time.Second

// creates and configures a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	defer cancel()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}

	services, err := InitializeServices(ctx, cfg, store)
	if err != nil {
		store.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	limiterConfig := ratelimit.Config{
		Rate:     cfg.ChatRateLimit,
		RedisURL: cfg.RedisURL,
		Prefix:   "guideelbac:chat",
	}

	limiter, err := ratelimit.New(ctx, limiterConfig)
	if err != nil && limiterConfig.RedisURL != "" {
		// don't fail startup - per-process counters are good enough without redis
		logger.ErrorErr(err, "failed to initialize redis rate limiter, falling back to memory")

		limiterConfig.RedisURL = ""
		limiter, err = ratelimit.New(ctx, limiterConfig)
	}

	if err != nil {
		store.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	logger.Info("rate limiter initialized", "rate", cfg.ChatRateLimit, "backend", limiter.Backend())

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:   cfg,
		store:    store,
		services: services,
		limiter:  limiter,
		router:   router,
	}

	RegisterRoutes(router, server)

	return server, nil
}

// releases the store and limiter connections
func (s *Server) Close() {
	if err := s.limiter.Close(); err != nil {
		logger.ErrorErr(err, "failed to close rate limiter")
	}

	if err := s.store.Close(); err != nil {
		logger.ErrorErr(err, "failed to close knowledge store")
	}
}
