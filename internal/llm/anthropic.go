package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/stream"
	"golang.org/x/time/rate"
)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
)

// shared HTTP client for Anthropic API calls; deadlines come from the caller's context
var anthropicHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// rate limiter for Anthropic API calls (50 requests/second with burst capacity of 10)
var anthropicRateLimiter = rate.NewLimiter(50, 10)

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

type messagesResponse struct {
	Content []content `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// one streamed event; only the fields the generator reads
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32

	// overrides the messages endpoint, used by tests
	BaseURL string
}

type AnthropicGenerator struct {
	config     AnthropicConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewAnthropicGenerator(config AnthropicConfig) *AnthropicGenerator {
	if config.MaxTokens == 0 {
		config.MaxTokens = defaultGeneratorMaxTokens
	}

	if config.BaseURL == "" {
		config.BaseURL = anthropicMessagesURL
	}

	return &AnthropicGenerator{
		config:     config,
		httpClient: anthropicHTTPClient,
		limiter:    anthropicRateLimiter,
	}
}

func (g *AnthropicGenerator) GenerateText(ctx context.Context, req TextGenerationRequest) (*TextGenerationResponse, error) {
	resp, err := g.send(ctx, req, false)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close() //nolint:errcheck

	var apiResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w: %w", apperrors.ErrGeneration, err)
	}

	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("no content in response: %w", apperrors.ErrGeneration)
	}

	return &TextGenerationResponse{
		Text: strings.TrimSpace(apiResp.Content[0].Text),
		Usage: Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}, nil
}

func (g *AnthropicGenerator) StreamText(ctx context.Context, req TextGenerationRequest) (TokenStream, error) {
	resp, err := g.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	ts := &anthropicTokenStream{
		body:   resp.Body,
		tokens: make(chan string),
		done:   make(chan struct{}),
	}

	go ts.pump()

	return ts, nil
}

func (g *AnthropicGenerator) send(ctx context.Context, req TextGenerationRequest, streaming bool) (*http.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxTokens
	}

	reqBody := messagesRequest{
		Model:       g.config.Model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Temperature: g.config.Temperature,
		Messages:    req.Messages,
		Stream:      streaming,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	if streaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w: %w", apperrors.ErrGeneration, err)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w: %w", apperrors.ErrGeneration, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()          //nolint:errcheck
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck
		return nil, fmt.Errorf("anthropic request failed with status %d: %s: %w", resp.StatusCode, string(body), apperrors.ErrGeneration)
	}

	return resp, nil
}

// anthropicTokenStream turns the SSE body into a pull-style stream
type anthropicTokenStream struct {
	body   io.ReadCloser
	tokens chan string
	done   chan struct{}
	token  string
	err    error
}

func (s *anthropicTokenStream) pump() {
	defer close(s.tokens)

	err := stream.Read(s.body, func(ev stream.Event) error {
		var payload streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return fmt.Errorf("failed to decode stream event: %w", err)
		}

		switch payload.Type {
		case "content_block_delta":
			if payload.Delta.Text == "" {
				return nil
			}

			select {
			case s.tokens <- payload.Delta.Text:
				return nil
			case <-s.done:
				return stream.ErrStop
			}
		case "message_stop":
			return stream.ErrStop
		case "error":
			return fmt.Errorf("anthropic stream error %s: %s", payload.Error.Type, payload.Error.Message)
		}

		return nil
	})

	if err != nil {
		// read by Err only after tokens is closed
		s.err = fmt.Errorf("%w: %w", apperrors.ErrGeneration, err)
	}
}

func (s *anthropicTokenStream) Next() bool {
	tok, ok := <-s.tokens
	if !ok {
		return false
	}

	s.token = tok
	return true
}

func (s *anthropicTokenStream) Token() string {
	return s.token
}

func (s *anthropicTokenStream) Err() error {
	return s.err
}

func (s *anthropicTokenStream) Close() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	return s.body.Close()
}
