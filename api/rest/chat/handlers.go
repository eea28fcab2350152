package chat

import (
	"net/http"
	"time"

	"codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/logger"
	"github.com/gin-gonic/gin"
)

// ChatHandler godoc
// @Summary Ask a question
// @Description Answers an orientation question from the indexed guides. Tokens are streamed as server-sent events ending with [DONE]; when streaming is unavailable the full answer is returned as JSON.
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Produce json
// @Param request body ChatRequest true "Question"
// @Success 200 {object} AnswerResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/chat [post]
func ChatHandler(answerer Answerer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			errors.InvalidQuestion(c, ReasonBadJSON)
			return
		}

		question, reason := parseQuestion(body)
		if reason != "" {
			errors.InvalidQuestion(c, reason)
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		start := time.Now()

		r := &responder{c: c}
		out := answerer.Respond(ctx, question, r.emit)

		log.Info("question answered",
			"mode", out.Mode,
			"tokens", out.Tokens,
			"context_source", out.Resolution.Source,
			"context_fallback", out.Resolution.UsedFallback,
			"passages", len(out.Resolution.Passages),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		for _, f := range out.Resolution.Failures {
			log.Warn("context step failed", "step", f.Step, "category", f.Category, "error", f.Err)
		}
	}
}

// InfoHandler godoc
// @Summary Chat endpoint capabilities
// @Tags chat
// @Produce json
// @Success 200 {object} InfoResponse
// @Router /api/v1/chat [get]
func InfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		Message:   "Guide El Bac chat API. POST a JSON body {\"question\": \"...\"} to get a streamed answer.",
		Streaming: true,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
