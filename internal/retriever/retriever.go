package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/logger"
	"codeberg.org/guideelbac/server/internal/storage"
)

const (
	defaultTopK         = 5
	defaultEmbedTimeout = 30 * time.Second

	// context handed to the generator when nothing matched
	NoContextPlaceholder = "Aucun contexte spécifique trouvé dans les documents."

	passageSeparator = "\n\n---\n\n"
)

func DefaultConfig() Config {
	return Config{TopK: defaultTopK, EmbedTimeout: defaultEmbedTimeout}
}

func New(store storage.Store, embedder llm.Embedder, config Config) *Client {
	if config.TopK <= 0 {
		config.TopK = defaultTopK
	}

	if config.EmbedTimeout <= 0 {
		config.EmbedTimeout = defaultEmbedTimeout
	}

	return &Client{
		store:        store,
		embedder:     embedder,
		topK:         config.TopK,
		embedTimeout: config.EmbedTimeout,
	}
}

// Resolve gathers context for a question. It never fails: every step that
// goes wrong is recorded and the next fallback is tried, down to a fixed placeholder.
func (c *Client) Resolve(ctx context.Context, question string) Resolution {
	log := logger.FromContext(ctx)
	res := Resolution{Source: SourceNone}

	embedding, outcome := c.embedQuestion(ctx, question)
	if !outcome.OK() {
		res.Failures = append(res.Failures, outcome)
		log.Warn("question embedding failed, falling back to keyword search", "error", outcome.Err)
	}

	if outcome.OK() {
		passages, err := c.store.NearestNeighbors(ctx, embedding, c.topK)

		switch {
		case err != nil:
			res.Failures = append(res.Failures, apperrors.NewOutcome("vector_search", err))
			log.Warn("vector search failed, falling back to keyword search", "error", err)
		case len(passages) > 0:
			res.Passages = passages
			res.Source = SourceVector
		}
	}

	if len(res.Passages) == 0 {
		res.UsedFallback = true

		passages, err := c.store.TextSearch(ctx, question, c.topK)
		if err != nil {
			res.Failures = append(res.Failures, apperrors.NewOutcome("keyword_search", err))
			log.Warn("keyword search failed", "error", err)
		} else if len(passages) > 0 {
			res.Passages = passages
			res.Source = SourceKeyword
		}
	}

	res.ContextText = FormatContext(res.Passages)

	log.Debug("question resolved",
		"source", res.Source,
		"passages", len(res.Passages),
		"failures", len(res.Failures),
	)

	return res
}

func (c *Client) embedQuestion(ctx context.Context, question string) ([]float32, apperrors.Outcome) {
	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	embedding, err := c.embedder.GenerateEmbedding(ctx, question)
	if err != nil {
		return nil, apperrors.NewOutcome("embed", fmt.Errorf("%w: %w", apperrors.ErrEmbedding, err))
	}

	if len(embedding) == 0 {
		return nil, apperrors.NewOutcome("embed", fmt.Errorf("empty question embedding: %w", apperrors.ErrEmbedding))
	}

	return embedding, apperrors.NewOutcome("embed", nil)
}

// FormatContext renders passages as the generator's context block
func FormatContext(passages []storage.Passage) string {
	if len(passages) == 0 {
		return NoContextPlaceholder
	}

	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = fmt.Sprintf("Document: %s\nContent: %s", p.Title, p.Content)
	}

	return strings.Join(blocks, passageSeparator)
}
