package health

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/guideelbac/server/internal/logger"
	"github.com/gin-gonic/gin"
)

const (
	serviceName  = "guide-el-bac"
	version      = "1.0.0"
	checkTimeout = 3 * time.Second
)

// Handler godoc
// @Summary Health check
// @Description Reports server status and whether the knowledge store answers
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func Handler(store Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		defer cancel()

		resp := Response{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
			Store:   "up",
		}

		if err := store.Ping(ctx); err != nil {
			logger.FromContext(ctx).Warn("knowledge store ping failed", "error", err)
			resp.Status = "degraded"
			resp.Store = "down"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}

		// chunk count is informational only
		if n, err := store.ChunkCount(ctx); err == nil {
			resp.Chunks = &n
		}

		c.JSON(http.StatusOK, resp)
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}
