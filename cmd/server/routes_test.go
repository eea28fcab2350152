package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/guideelbac/server/internal/config"
	"codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/ratelimit"
	"codeberg.org/guideelbac/server/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewSQLiteStore(":memory:", 3)
	require.NoError(t, err)

	limiter, err := ratelimit.New(context.Background(), ratelimit.Config{Rate: "100-M"})
	require.NoError(t, err)

	srv := &Server{
		config:   &config.Config{},
		store:    store,
		services: &Services{},
		limiter:  limiter,
		router:   gin.New(),
	}
	t.Cleanup(srv.Close)

	RegisterRoutes(srv.router, srv)

	return srv
}

func TestRoutesHealthAndPing(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/ping", "/api/v1/chat", "/api/chat"} {
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/chat", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errors.CodeNotFound, resp.Error)
	assert.Equal(t, "route not found", resp.Message)
}

func TestRecoveryHandlerReturnsApology(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(gin.CustomRecovery(recoveryHandler))
	router.POST("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errors.TemporaryFailure, resp.Error)
	assert.NotEmpty(t, resp.Answer)
}
