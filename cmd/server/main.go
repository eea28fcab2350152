package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/guideelbac/server/internal/config"
	"codeberg.org/guideelbac/server/internal/logger"
)

// @title Guide El Bac API
// @version 1.0
// @description Question answering over the Tunisian post-bac orientation guides
// @description
// @description Features:
// @description - Answers grounded in the indexed guides and score tables
// @description - Token-by-token delivery over server-sent events
// @description - Degrades to keyword search, one-shot generation and apologies instead of failing

// @contact.name API Support
// @contact.url https://codeberg.org/guideelbac/server

func main() {
	logger.Info("starting guide el bac server")

	// load configuration from environment
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	// create server with all dependencies
	srv, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     srv.router,
		ReadTimeout: 15 * time.Second,
		// answers are streamed; leave room for the whole streaming session
		WriteTimeout: cfg.StreamTimeout + cfg.GenerateTimeout + cfg.EmbedTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// start server in goroutine
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	// wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// in-flight answers get a short grace period
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	srv.Close()

	logger.Info("server stopped")
}
