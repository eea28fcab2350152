package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"codeberg.org/guideelbac/server/internal/stream"
)

// creates a client for the server at endpoint (scheme and host)
func NewChatClient(endpoint string) *ChatClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	return &ChatClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		// no client timeout: streams are bounded by the request context
		httpClient: &http.Client{},
	}
}

// Ask sends a question and hands every piece of the answer to onChunk, in
// order, until the stream ends. A JSON answer arrives as a single chunk.
func (c *ChatClient) Ask(ctx context.Context, question string, onChunk func(ChunkMsg)) error {
	payload, err := json.Marshal(chatRequest{Question: question})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v1/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusOK && strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return readStream(resp.Body, onChunk)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	// a 500 still carries an apology worth showing
	if result.Answer != "" {
		onChunk(ChunkMsg{Text: result.Answer, Replace: true})
		return nil
	}

	if result.Error != "" {
		return fmt.Errorf("%s", result.Error)
	}

	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}

func readStream(r io.Reader, onChunk func(ChunkMsg)) error {
	done := false

	err := stream.Read(r, func(ev stream.Event) error {
		if ev.Done() {
			done = true
			return stream.ErrStop
		}

		p, err := ev.Payload()
		if err != nil {
			return err
		}

		onChunk(ChunkMsg{Text: p.Content, Replace: p.Replace})
		return nil
	})
	if err != nil {
		return err
	}

	if !done {
		return fmt.Errorf("stream ended before the answer was complete")
	}

	return nil
}

// returns the status field reported by /health
func (c *ChatClient) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var body struct {
		Status string `json:"status"`
		Chunks *int   `json:"chunks"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if body.Chunks != nil {
		return fmt.Sprintf("%s (%d chunks indexed)", body.Status, *body.Chunks), nil
	}

	return body.Status, nil
}
