package main

import (
	"context"
	"fmt"

	"codeberg.org/guideelbac/server/internal/agent"
	"codeberg.org/guideelbac/server/internal/config"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/retriever"
	"codeberg.org/guideelbac/server/internal/storage"
)

// creates and configures all service clients
func InitializeServices(ctx context.Context, cfg *config.Config, store storage.Store) (*Services, error) {
	llmClient, err := llm.NewLLM(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	retrieverConfig := retriever.DefaultConfig()
	retrieverConfig.EmbedTimeout = cfg.EmbedTimeout

	retrieverClient := retriever.New(store, llmClient, retrieverConfig)

	agentClient := agent.New(retrieverClient, llmClient, agent.Config{
		GenerateTimeout: cfg.GenerateTimeout,
		StreamTimeout:   cfg.StreamTimeout,
	})

	return &Services{
		Agent:     agentClient,
		LLM:       llmClient,
		Retriever: retrieverClient,
	}, nil
}
