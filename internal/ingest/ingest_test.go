package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/guideelbac/server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 4

// serves canned text per path
type fakeExtractor struct {
	texts map[string]string
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	text, ok := f.texts[filepath.Base(path)]
	if !ok {
		return "", fmt.Errorf("no fixture for %s", path)
	}

	return text, nil
}

// embeds deterministically; texts containing a poison marker fail
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	poison string
	wrong  string
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.poison != "" && strings.Contains(text, f.poison) {
		return nil, errors.New("embedding service unavailable")
	}

	if f.wrong != "" && strings.Contains(text, f.wrong) {
		return []float32{1, 2}, nil
	}

	return []float32{float32(len(text)), 1, 0, 0}, nil
}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.GenerateEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

func sentence(label string, n int) string {
	return label + strings.Repeat("x", n-len(label)-1) + "."
}

// 12 sentences of 100 characters: three chunks of four sentences at the default bound
func twelveHundredChars(prefix string) string {
	parts := make([]string, 12)
	for i := range parts {
		parts[i] = sentence(fmt.Sprintf("%s%02d ", prefix, i), 100)
	}

	return strings.Join(parts, " ")
}

func newTestIngestor(t *testing.T, ext *fakeExtractor, emb *fakeEmbedder) (*Ingestor, *storage.SQLiteStore) {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:", testDimension)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck

	opts := DefaultOptions()
	ing := New(store, emb, ext, opts)
	ing.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	ing.now = func() time.Time { return time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC) }

	return ing, store
}

func TestIngestProducesContiguousChunks(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{texts: map[string]string{"guide_orientation.pdf": twelveHundredChars("G")}}
	ing, store := newTestIngestor(t, ext, &fakeEmbedder{})

	res := ing.Ingest(ctx, "pdfs/guide_orientation.pdf", "")
	require.True(t, res.Success, res.FailureReason)
	assert.Equal(t, storage.ResourceGuide, res.Type)
	assert.Equal(t, 3, res.ProcessedChunks)
	assert.Equal(t, 3, res.TotalChunks)

	chunks, err := store.ResourceChunks(ctx, res.ResourceID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Metadata.ChunkIndex)
		assert.Equal(t, 3, ch.Metadata.TotalChunks)
		assert.Equal(t, "guide_orientation.pdf", ch.Metadata.SourceFile)
		assert.Equal(t, len(ch.Content), ch.Metadata.TextLength)
		assert.True(t, strings.HasPrefix(ch.Content, fmt.Sprintf("G%02d", i*4)))
	}

	r, err := store.FindResourceByFilename(ctx, "guide_orientation.pdf")
	require.NoError(t, err)
	assert.Equal(t, "guide_orientation", r.Title)
}

func TestBuildChunksRecordsByteLength(t *testing.T) {
	ing := New(nil, nil, nil, DefaultOptions())
	content := "L'élève choisit sa filière après le bac."

	chunks := ing.buildChunks("r1", "guide.pdf", []embeddedPiece{{content: content, embedding: []float32{1}}})
	require.Len(t, chunks, 1)

	assert.Equal(t, len(content), chunks[0].Metadata.TextLength)
	assert.NotEqual(t, len([]rune(content)), chunks[0].Metadata.TextLength)
}

func TestReingestReplacesChunksAndKeepsResourceID(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{texts: map[string]string{"score_2024.pdf": twelveHundredChars("A")}}
	ing, store := newTestIngestor(t, ext, &fakeEmbedder{})

	first := ing.Ingest(ctx, "score_2024.pdf", "")
	require.True(t, first.Success)
	assert.Equal(t, storage.ResourceScore, first.Type)

	ext.texts["score_2024.pdf"] = "Nouvelle version du barème des scores. Elle remplace entièrement l'ancienne."

	second := ing.Ingest(ctx, "score_2024.pdf", "")
	require.True(t, second.Success)
	assert.Equal(t, first.ResourceID, second.ResourceID)

	chunks, err := store.ResourceChunks(ctx, second.ResourceID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "Nouvelle version")

	count, err := store.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestSkipsFailedEmbeddingsAndRenumbers(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{texts: map[string]string{"guide.pdf": twelveHundredChars("P")}}
	// the middle chunk starts with sentence P04
	ing, store := newTestIngestor(t, ext, &fakeEmbedder{poison: "P04"})

	res := ing.Ingest(ctx, "guide.pdf", storage.ResourceGuide)
	require.True(t, res.Success)
	assert.Equal(t, 3, res.TotalChunks)
	assert.Equal(t, 2, res.ProcessedChunks)

	chunks, err := store.ResourceChunks(ctx, res.ResourceID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkIndex)
	assert.Equal(t, 1, chunks[1].Metadata.ChunkIndex)
	assert.Equal(t, 2, chunks[1].Metadata.TotalChunks)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "P08"), "source order preserved")
}

func TestIngestSkipsWrongDimension(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{texts: map[string]string{"guide.pdf": twelveHundredChars("D")}}
	ing, _ := newTestIngestor(t, ext, &fakeEmbedder{wrong: "D00"})

	res := ing.Ingest(ctx, "guide.pdf", "")
	require.True(t, res.Success)
	assert.Equal(t, 2, res.ProcessedChunks)
}

func TestIngestAllEmbeddingsFailLeavesPreviousChunks(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{texts: map[string]string{"guide.pdf": twelveHundredChars("K")}}
	emb := &fakeEmbedder{}
	ing, store := newTestIngestor(t, ext, emb)

	first := ing.Ingest(ctx, "guide.pdf", "")
	require.True(t, first.Success)

	emb.poison = "x"
	second := ing.Ingest(ctx, "guide.pdf", "")
	assert.False(t, second.Success)
	assert.Equal(t, "no chunk embedded", second.FailureReason)

	chunks, err := store.ResourceChunks(ctx, first.ResourceID)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestIngestRejectsEmptyTextAndUnknownType(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{texts: map[string]string{"blank.pdf": "  \n\t ", "guide.pdf": twelveHundredChars("Z")}}
	ing, _ := newTestIngestor(t, ext, &fakeEmbedder{})

	res := ing.Ingest(ctx, "blank.pdf", "")
	assert.False(t, res.Success)
	assert.Equal(t, "no text extracted", res.FailureReason)

	res = ing.Ingest(ctx, "guide.pdf", "brochure")
	assert.False(t, res.Success)
	assert.Contains(t, res.FailureReason, "unknown resource type")
}

func TestIngestDirIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"a_guide.pdf", "b_broken.pdf", "c_score.txt", "notes.docx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	ext := &fakeExtractor{texts: map[string]string{
		"a_guide.pdf": twelveHundredChars("A"),
		"c_score.txt": "Le score se calcule avec la formule officielle du ministère.",
	}}
	ing, _ := newTestIngestor(t, ext, &fakeEmbedder{})

	summary, err := ing.IngestDir(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 4, summary.TotalChunksPersisted)
	assert.Equal(t, "b_broken.pdf", summary.Results[1].Filename)
	assert.Equal(t, storage.ResourceScore, summary.Results[2].Type)
}

func TestIngestDirCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pdfs")
	ing, _ := newTestIngestor(t, &fakeExtractor{}, &fakeEmbedder{})

	summary, err := ing.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalFiles)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestThrottleCadence(t *testing.T) {
	ext := &fakeExtractor{texts: map[string]string{"guide.pdf": twelveHundredChars("T")}}
	ing, _ := newTestIngestor(t, ext, &fakeEmbedder{})
	ing.opts.Delay = time.Millisecond
	ing.opts.Pause = time.Second
	ing.opts.PauseEvery = 2

	var slept []time.Duration
	ing.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	res := ing.Ingest(context.Background(), "guide.pdf", "")
	require.True(t, res.Success)

	// three calls: delay, delay+pause, delay
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond, time.Second, time.Millisecond}, slept)
}

func TestIngestStopsWhenCanceled(t *testing.T) {
	ext := &fakeExtractor{texts: map[string]string{"guide.pdf": twelveHundredChars("C")}}
	ing, store := newTestIngestor(t, ext, &fakeEmbedder{})

	ctx, cancel := context.WithCancel(context.Background())
	ing.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	res := ing.Ingest(ctx, "guide.pdf", "")
	assert.False(t, res.Success)

	count, err := store.ChunkCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConcurrentSameFilenameIsSerialized(t *testing.T) {
	ctx := context.Background()
	ext := &fakeExtractor{texts: map[string]string{"guide.pdf": twelveHundredChars("S")}}
	ing, store := newTestIngestor(t, ext, &fakeEmbedder{})

	var wg sync.WaitGroup
	ids := make([]string, 4)

	for n := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := ing.Ingest(ctx, "guide.pdf", "")
			assert.True(t, res.Success)
			ids[n] = res.ResourceID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	count, err := store.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, storage.ResourceScore, Classify("Score_Bac_2024.pdf", nil))
	assert.Equal(t, storage.ResourceGuide, Classify("guide_orientation.pdf", nil))
	assert.Equal(t, storage.ResourceScore, Classify("moyennes.pdf", []string{"moyenne"}))
	assert.Equal(t, storage.ResourceGuide, Classify("dir/score/guide.pdf", nil), "only the base name counts")
}
