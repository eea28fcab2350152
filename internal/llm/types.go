package llm

import "context"

// combines embedding and text generation
type LLM interface {
	Embedder
	TextGenerator
}

// represents different LLM providers
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAzure     Provider = "azure"
	ProviderAnthropic Provider = "anthropic"
)

// generates embeddings from text
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// generates answers, either in one piece or token by token
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextGenerationRequest) (*TextGenerationResponse, error)
	StreamText(ctx context.Context, req TextGenerationRequest) (TokenStream, error)
}

// TokenStream yields generated text fragments in order.
// Callers must Close it, also after Next returns false.
type TokenStream interface {
	Next() bool
	Token() string
	Err() error
	Close() error
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TextGenerationRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
}

type TextGenerationResponse struct {
	Text  string
	Usage Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// holds configuration for LLM initialization
type Config struct {
	// embedder configuration
	EmbedderProvider Provider
	EmbedderModel    string // model name, or deployment name on azure

	// generator configuration
	GeneratorProvider    Provider
	GeneratorModel       string
	GeneratorMaxTokens   int
	GeneratorTemperature float32

	OpenAIKey     string
	OpenAIBaseURL string

	AzureKey        string
	AzureEndpoint   string
	AzureAPIVersion string

	AnthropicKey string
}
