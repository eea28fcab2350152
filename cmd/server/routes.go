package main

import (
	"fmt"
	"time"

	"codeberg.org/guideelbac/server/api/rest/chat"
	"codeberg.org/guideelbac/server/api/rest/health"
	"codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(logger.Middleware())
	router.Use(gin.CustomRecovery(recoveryHandler))
	router.Use(CORSMiddleware(server.config.CORSOrigins))

	router.GET("/health", health.Handler(server.store))

	limit := server.limiter.Middleware()

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)

		chat.RegisterRoutes(v1, server.services.Agent, limit)
	}

	// unversioned alias kept for existing clients
	chat.RegisterRoutes(router.Group("/api"), server.services.Agent, limit)

	router.NoRoute(func(c *gin.Context) {
		errors.NotFound(c, "route")
	})
}

// allows any origin unless CORS_ORIGINS lists them
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}

// turns a panic into a 500 that still carries an apology answer
func recoveryHandler(c *gin.Context, recovered any) {
	if c.Writer.Written() {
		// a stream is already in flight; nothing sensible can be appended
		c.Abort()
		return
	}

	errors.InternalError(c, "unexpected failure while answering", fmt.Errorf("panic: %v", recovered))
	c.Abort()
}
