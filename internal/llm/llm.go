package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// combines an Embedder and a TextGenerator into a single LLM
type CompositeLLM struct {
	Embedder
	TextGenerator
}

// creates a new LLM with auto-configuration from environment variables
func NewLLM(ctx context.Context) (LLM, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load LLM config: %w", err)
	}

	return NewLLMWithConfig(ctx, config)
}

// creates a new LLM with explicit configuration
func NewLLMWithConfig(_ context.Context, config *Config) (LLM, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	clients := map[Provider]openai.Client{}
	clientFor := func(p Provider) openai.Client {
		if c, ok := clients[p]; ok {
			return c
		}

		c := newOpenAIClient(p, config)
		clients[p] = c

		return c
	}

	var embedder Embedder

	switch config.EmbedderProvider {
	case ProviderOpenAI, ProviderAzure:
		embedder = NewOpenAIEmbedder(clientFor(config.EmbedderProvider), config.EmbedderModel)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", config.EmbedderProvider)
	}

	var generator TextGenerator

	switch config.GeneratorProvider {
	case ProviderOpenAI, ProviderAzure:
		generator = NewOpenAIGenerator(clientFor(config.GeneratorProvider), OpenAIGeneratorConfig{
			Model:       config.GeneratorModel,
			MaxTokens:   config.GeneratorMaxTokens,
			Temperature: config.GeneratorTemperature,
		})
	case ProviderAnthropic:
		generator = NewAnthropicGenerator(AnthropicConfig{
			APIKey:      config.AnthropicKey,
			Model:       config.GeneratorModel,
			MaxTokens:   config.GeneratorMaxTokens,
			Temperature: config.GeneratorTemperature,
		})
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", config.GeneratorProvider)
	}

	return &CompositeLLM{
		Embedder:      embedder,
		TextGenerator: generator,
	}, nil
}
