package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// shared HTTP client for OpenAI and Azure OpenAI calls.
// no client-wide timeout: answer streams outlive any fixed deadline, callers bound calls with their context
var openaiHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

func newOpenAIClient(provider Provider, config *Config) openai.Client {
	opts := []option.RequestOption{
		option.WithHTTPClient(openaiHTTPClient),
		option.WithMaxRetries(0),
	}

	if provider == ProviderAzure {
		// on azure the request model doubles as the deployment name
		opts = append(opts,
			azure.WithEndpoint(config.AzureEndpoint, config.AzureAPIVersion),
			azure.WithAPIKey(config.AzureKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(config.OpenAIKey))

		if config.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(config.OpenAIBaseURL))
		}
	}

	return openai.NewClient(opts...)
}

type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

func NewOpenAIEmbedder(client openai.Client, model string) *OpenAIEmbedder {
	if model == "" {
		model = defaultEmbedderModel
	}

	return &OpenAIEmbedder{client: client, model: model}
}

func (e *OpenAIEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("no embeddings returned: %w", apperrors.ErrEmbedding)
	}

	return embeddings[0], nil
}

func (e *OpenAIEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided: %w", apperrors.ErrEmbedding)
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrEmbedding, err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(embeddings) {
			continue
		}

		embeddings[data.Index] = toFloat32(data.Embedding)
	}

	return embeddings, nil
}

type OpenAIGeneratorConfig struct {
	Model       string // model, or deployment name on azure
	MaxTokens   int
	Temperature float32
}

type OpenAIGenerator struct {
	client openai.Client
	config OpenAIGeneratorConfig
}

func NewOpenAIGenerator(client openai.Client, config OpenAIGeneratorConfig) *OpenAIGenerator {
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultGeneratorMaxTokens
	}

	return &OpenAIGenerator{client: client, config: config}
}

func (g *OpenAIGenerator) GenerateText(ctx context.Context, req TextGenerationRequest) (*TextGenerationResponse, error) {
	resp, err := g.client.Chat.Completions.New(ctx, g.params(req))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGeneration, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response: %w", apperrors.ErrGeneration)
	}

	return &TextGenerationResponse{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}, nil
}

func (g *OpenAIGenerator) StreamText(ctx context.Context, req TextGenerationRequest) (TokenStream, error) {
	s := g.client.Chat.Completions.NewStreaming(ctx, g.params(req))

	// a failed request surfaces immediately, before the first Next
	if err := s.Err(); err != nil {
		s.Close() //nolint:errcheck,gosec // G104: error path cleanup
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGeneration, err)
	}

	return &openaiTokenStream{stream: s}, nil
}

func (g *OpenAIGenerator) params(req TextGenerationRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.config.Model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(float64(g.config.Temperature)),
	}
}

type openaiTokenStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	token  string
}

func (s *openaiTokenStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		s.token = chunk.Choices[0].Delta.Content
		return true
	}

	return false
}

func (s *openaiTokenStream) Token() string {
	return s.token
}

func (s *openaiTokenStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrGeneration, err)
	}

	return nil
}

func (s *openaiTokenStream) Close() error {
	return s.stream.Close()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}

	return out
}
