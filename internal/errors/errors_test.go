package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"wrapped embedding", fmt.Errorf("question: %w", ErrEmbedding), CategoryEmbedding},
		{"dimension mismatch", fmt.Errorf("insert: %w", ErrDimensionMismatch), CategoryStore},
		{"retrieval", fmt.Errorf("search: %w", ErrRetrieval), CategoryStore},
		{"generation", fmt.Errorf("stream: %w", ErrGeneration), CategoryGeneration},
		{"pg error", &pgconn.PgError{Code: "42P01"}, CategoryStore},
		{"deadline", context.DeadlineExceeded, CategoryTimeout},
		{"azure keyword", errors.New("Azure OpenAI returned 503"), CategoryGeneration},
		{"database keyword", errors.New("database unreachable"), CategoryStore},
		{"unknown", errors.New("boom"), CategoryUnspecified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestApologyNeverEmpty(t *testing.T) {
	for _, cat := range []Category{CategoryEmbedding, CategoryStore, CategoryGeneration, CategoryUnspecified, CategoryTimeout, ""} {
		assert.NotEmpty(t, Apology(cat), string(cat))
	}

	assert.Equal(t, Apology(CategoryUnspecified), Apology(CategoryTimeout))
	assert.Contains(t, Apology(CategoryStore), "base de données")
}

func TestNewOutcome(t *testing.T) {
	ok := NewOutcome("embed", nil)
	assert.True(t, ok.OK())

	failed := NewOutcome("embed", fmt.Errorf("x: %w", ErrEmbedding))
	assert.False(t, failed.OK())
	assert.Equal(t, CategoryEmbedding, failed.Category)
	assert.Equal(t, "embed", failed.Step)
}

func TestInternalErrorCarriesApology(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)

	InternalError(c, "failed to answer", fmt.Errorf("lookup: %w", ErrRetrieval))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TemporaryFailure, body.Error)
	assert.Equal(t, Apology(CategoryStore), body.Answer)
}

func TestInternalErrorHidesUnderlyingError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("ENVIRONMENT", "development")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)

	InternalError(c, "unexpected failure while answering", errors.New("panic: azure key sk-secret rejected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-secret")
	assert.NotContains(t, w.Body.String(), "details")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, Apology(CategoryGeneration), body.Answer)
}

func TestNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	NotFound(c, "route")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"route not found"}`, w.Body.String())
}

func TestInvalidQuestion(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	InvalidQuestion(c, "question missing")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"question missing","message":"validation_error"}`, w.Body.String())
}
