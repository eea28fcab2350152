package errors

import (
	"net/http"

	"codeberg.org/guideelbac/server/internal/logger"
	"github.com/gin-gonic/gin"
)

// Error Handling Guidelines:
//
// For HTTP handlers:
//   - Use errors.InvalidQuestion() for a rejected question, errors.NotFound() for
//     unknown routes, errors.InternalError() for anything that escaped the pipeline
//     These helpers log (when relevant) and write the response
//   - Never call both logger.ErrorErr() and errors.InternalError() for the same error
//
// For the question pipeline (retriever, agent):
//   - Failures are values, not returns: record an Outcome and keep going
//   - Only request validation is allowed to stop a question from being answered
//
// For services/repositories/internal packages:
//   - Return wrapped errors with context using fmt.Errorf("context: %w", err)
//   - Wrap with one of the sentinels below so callers can Classify them
//   - Do not log errors in non-handler code (avoid double logging)

// standard error codes
const (
	CodeNotFound        = "not_found"
	CodeValidationError = "validation_error"
	CodeTooManyRequests = "too_many_requests"
)

// returns a 400 for a rejected question; error carries the human-readable reason
func InvalidQuestion(c *gin.Context, reason string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   reason,
		Message: CodeValidationError,
	})
}

// returns a 404 not found error
func NotFound(c *gin.Context, resource string) {
	message := "resource not found"

	if resource != "" {
		message = resource + " not found"
	}

	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   CodeNotFound,
		Message: message,
	})
}

// returns a 500 carrying a categorised apology the client can show as the answer.
// the underlying error is logged, never sent.
func InternalError(c *gin.Context, message string, err error) {
	if message == "" {
		message = "an error occurred"
	}

	logger.FromContext(c.Request.Context()).Error(message,
		"error", err,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   TemporaryFailure,
		Message: message,
		Answer:  Apology(Classify(err)),
	})
}

// returns a 429 too many requests error
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "too many requests"
	}

	c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Error:   CodeTooManyRequests,
		Message: message,
	})
}
