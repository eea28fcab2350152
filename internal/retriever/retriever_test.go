package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	embedding []float32
	err       error
}

func (m *mockEmbedder) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return m.embedding, m.err
}

func (m *mockEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.embedding
	}

	return out, nil
}

// wraps a real store and injects retrieval failures
type flakyStore struct {
	storage.Store
	vectorErr error
	textErr   error
	textCalls int
}

func (f *flakyStore) NearestNeighbors(ctx context.Context, e []float32, k int) ([]storage.Passage, error) {
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}

	return f.Store.NearestNeighbors(ctx, e, k)
}

func (f *flakyStore) TextSearch(ctx context.Context, text string, k int) ([]storage.Passage, error) {
	f.textCalls++
	if f.textErr != nil {
		return nil, f.textErr
	}

	return f.Store.TextSearch(ctx, text, k)
}

func seededStore(t *testing.T, contents ...string) *flakyStore {
	t.Helper()
	ctx := context.Background()

	s, err := storage.NewSQLiteStore(":memory:", 2)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	if len(contents) > 0 {
		r, err := s.CreateResource(ctx, storage.Resource{Title: "guide_orientation", Type: storage.ResourceGuide, Filename: "guide_orientation.pdf"})
		require.NoError(t, err)

		chunks := make([]storage.Chunk, len(contents))
		for i, c := range contents {
			chunks[i] = storage.Chunk{
				Content:   c,
				Embedding: []float32{float32(i), 0},
				Metadata:  storage.ChunkMetadata{ChunkIndex: i, TotalChunks: len(contents)},
			}
		}

		require.NoError(t, s.ReplaceChunks(ctx, r.ID, chunks))
	}

	return &flakyStore{Store: s}
}

func TestResolveVectorPath(t *testing.T) {
	store := seededStore(t, "Médecine: score minimal 180.", "Ingénierie: prépa conseillée.")
	c := New(store, &mockEmbedder{embedding: []float32{1, 0}}, DefaultConfig())

	res := c.Resolve(context.Background(), "Quel score pour l'ingénierie ?")

	assert.Equal(t, SourceVector, res.Source)
	assert.False(t, res.UsedFallback)
	assert.Empty(t, res.Failures)
	assert.Zero(t, store.textCalls)
	require.Len(t, res.Passages, 2)
	assert.Equal(t, "Ingénierie: prépa conseillée.", res.Passages[0].Content)
	assert.True(t, strings.HasPrefix(res.ContextText, "Document: guide_orientation\nContent: Ingénierie"))
	assert.Contains(t, res.ContextText, "\n\n---\n\n")
}

func TestResolveFallsBackToKeywordWhenEmbeddingFails(t *testing.T) {
	store := seededStore(t, "Le score de médecine est élevé.", "Architecture à Tunis.")
	c := New(store, &mockEmbedder{err: errors.New("quota exceeded")}, DefaultConfig())

	res := c.Resolve(context.Background(), "MÉDECINE")

	assert.True(t, res.UsedFallback)
	assert.Equal(t, SourceKeyword, res.Source)
	require.Len(t, res.Passages, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, apperrors.CategoryEmbedding, res.FailureCategory())
}

func TestResolveFallsBackWhenVectorSearchFails(t *testing.T) {
	store := seededStore(t, "Le score de médecine est élevé.")
	store.vectorErr = errors.New("index unavailable")
	c := New(store, &mockEmbedder{embedding: []float32{0, 0}}, DefaultConfig())

	res := c.Resolve(context.Background(), "médecine")

	assert.Equal(t, SourceKeyword, res.Source)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "vector_search", res.Failures[0].Step)
}

func TestResolveFallsBackWhenVectorSearchIsEmpty(t *testing.T) {
	store := seededStore(t)
	c := New(store, &mockEmbedder{embedding: []float32{0, 0}}, DefaultConfig())

	res := c.Resolve(context.Background(), "n'importe quoi")

	assert.Equal(t, 1, store.textCalls)
	assert.Equal(t, SourceNone, res.Source)
	assert.Empty(t, res.Failures)
	assert.Equal(t, NoContextPlaceholder, res.ContextText)
}

func TestResolvePlaceholderWhenEverythingFails(t *testing.T) {
	store := seededStore(t, "contenu")
	store.vectorErr = errors.New("down")
	store.textErr = errors.New("database down")
	c := New(store, &mockEmbedder{err: errors.New("no embedding")}, DefaultConfig())

	res := c.Resolve(context.Background(), "contenu")

	assert.Equal(t, NoContextPlaceholder, res.ContextText)
	assert.Equal(t, SourceNone, res.Source)
	assert.True(t, res.UsedFallback)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "embed", res.Failures[0].Step)
	assert.Equal(t, "keyword_search", res.Failures[1].Step)
	assert.Equal(t, apperrors.CategoryStore, res.Failures[1].Category)
}

func TestResolveDimensionMismatchFallsBack(t *testing.T) {
	store := seededStore(t, "Orientation universitaire.")
	c := New(store, &mockEmbedder{embedding: []float32{1, 2, 3}}, DefaultConfig())

	res := c.Resolve(context.Background(), "orientation")

	assert.Equal(t, SourceKeyword, res.Source)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, apperrors.ErrDimensionMismatch)
}

func TestFormatContext(t *testing.T) {
	got := FormatContext([]storage.Passage{
		{Title: "A", Content: "un"},
		{Title: "B", Content: "deux"},
	})

	if got != "Document: A\nContent: un\n\n---\n\nDocument: B\nContent: deux" {
		t.Errorf("unexpected context block: %q", got)
	}

	if FormatContext(nil) != NoContextPlaceholder {
		t.Error("empty passages should yield the placeholder")
	}
}
