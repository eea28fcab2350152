package llm

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultEmbedderModel        = "text-embedding-3-small"
	defaultOpenAIChatModel      = "gpt-4o-mini"
	defaultAnthropicModel       = "claude-3-5-haiku-20241022"
	defaultAzureAPIVersion      = "2024-06-01"
	defaultGeneratorMaxTokens   = 1000
	defaultGeneratorTemperature = 0.7
)

// loads LLM configuration from environment variables
func loadConfig() (*Config, error) {
	cfg := &Config{
		EmbedderProvider:  Provider(os.Getenv("EMBEDDER_PROVIDER")),
		GeneratorProvider: Provider(os.Getenv("GENERATOR_PROVIDER")),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		AzureKey:          os.Getenv("AZURE_OPENAI_API_KEY"),
		AzureEndpoint:     os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureAPIVersion:   os.Getenv("AZURE_OPENAI_API_VERSION"),
		AnthropicKey:      os.Getenv("ANTHROPIC_API_KEY"),
	}

	// azure is picked automatically when only azure credentials are present
	defaultProvider := ProviderOpenAI
	if cfg.OpenAIKey == "" && cfg.AzureKey != "" {
		defaultProvider = ProviderAzure
	}

	if cfg.EmbedderProvider == "" {
		cfg.EmbedderProvider = defaultProvider
	}

	if cfg.GeneratorProvider == "" {
		cfg.GeneratorProvider = defaultProvider
	}

	if cfg.AzureAPIVersion == "" {
		cfg.AzureAPIVersion = defaultAzureAPIVersion
	}

	cfg.EmbedderModel = firstNonEmpty(
		os.Getenv("EMBEDDER_MODEL"),
		azureOnly(cfg.EmbedderProvider, os.Getenv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT")),
		defaultEmbedderModel,
	)

	cfg.GeneratorModel = os.Getenv("GENERATOR_MODEL")
	if cfg.GeneratorModel == "" {
		switch cfg.GeneratorProvider {
		case ProviderAzure:
			cfg.GeneratorModel = os.Getenv("AZURE_OPENAI_CHAT_DEPLOYMENT")
		case ProviderAnthropic:
			cfg.GeneratorModel = defaultAnthropicModel
		default:
			cfg.GeneratorModel = defaultOpenAIChatModel
		}
	}

	cfg.GeneratorMaxTokens = defaultGeneratorMaxTokens
	if maxTokensStr := os.Getenv("GENERATOR_MAX_TOKENS"); maxTokensStr != "" {
		if val, err := strconv.Atoi(maxTokensStr); err == nil {
			cfg.GeneratorMaxTokens = val
		}
	}

	cfg.GeneratorTemperature = defaultGeneratorTemperature
	if tempStr := os.Getenv("GENERATOR_TEMPERATURE"); tempStr != "" {
		if val, err := strconv.ParseFloat(tempStr, 32); err == nil {
			cfg.GeneratorTemperature = float32(val)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	for _, p := range []Provider{c.EmbedderProvider, c.GeneratorProvider} {
		switch p {
		case ProviderOpenAI:
			if c.OpenAIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY environment variable is required")
			}
		case ProviderAzure:
			if c.AzureKey == "" || c.AzureEndpoint == "" {
				return fmt.Errorf("AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT environment variables are required")
			}
		case ProviderAnthropic:
			if c.AnthropicKey == "" {
				return fmt.Errorf("ANTHROPIC_API_KEY environment variable is required")
			}
		default:
			return fmt.Errorf("unsupported provider: %s", p)
		}
	}

	if c.EmbedderProvider == ProviderAnthropic {
		return fmt.Errorf("anthropic does not provide embeddings")
	}

	if c.GeneratorModel == "" {
		return fmt.Errorf("generator model is not configured")
	}

	return nil
}

func azureOnly(p Provider, v string) string {
	if p == ProviderAzure {
		return v
	}

	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
