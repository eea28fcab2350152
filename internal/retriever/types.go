package retriever

import (
	"time"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/storage"
)

type Client struct {
	store        storage.Store
	embedder     llm.Embedder
	topK         int
	embedTimeout time.Duration
}

type Config struct {
	TopK         int
	EmbedTimeout time.Duration
}

// Source names the retrieval path that produced the context
type Source string

const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
	SourceNone    Source = "none"
)

// Resolution is the assembled context for one question
type Resolution struct {
	ContextText  string
	UsedFallback bool
	Source       Source
	Passages     []storage.Passage

	// one entry per step that failed, in order
	Failures []apperrors.Outcome
}

// category of the first recorded failure, CategoryUnspecified when none
func (r Resolution) FailureCategory() apperrors.Category {
	if len(r.Failures) == 0 {
		return apperrors.CategoryUnspecified
	}

	return r.Failures[0].Category
}
