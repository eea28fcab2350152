package main

import (
	"codeberg.org/guideelbac/server/internal/agent"
	"codeberg.org/guideelbac/server/internal/config"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/ratelimit"
	"codeberg.org/guideelbac/server/internal/retriever"
	"codeberg.org/guideelbac/server/internal/storage"
	"github.com/gin-gonic/gin"
)

// holds all dependencies and state for the API server
type Server struct {
	config   *config.Config
	store    storage.Store
	services *Services
	limiter  *ratelimit.Limiter
	router   *gin.Engine
}

// holds the clients of the question pipeline
type Services struct {
	Agent     *agent.Agent
	LLM       llm.LLM
	Retriever *retriever.Client
}
