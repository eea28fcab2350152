package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codeberg.org/guideelbac/server/internal/chunker"
	"codeberg.org/guideelbac/server/internal/extractor"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/logger"
	"codeberg.org/guideelbac/server/internal/storage"
)

// Ingestor turns documents into embedded chunks, one file and one embedding call at a time
type Ingestor struct {
	store     storage.Store
	embedder  llm.Embedder
	extractor extractor.Extractor
	opts      Options
	locks     *keyedMutex

	// replaced in tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(store storage.Store, embedder llm.Embedder, ext extractor.Extractor, opts Options) *Ingestor {
	if opts.PauseEvery <= 0 {
		opts.PauseEvery = DefaultOptions().PauseEvery
	}

	if len(opts.ScoreKeywords) == 0 {
		opts.ScoreKeywords = DefaultScoreKeywords
	}

	return &Ingestor{
		store:     store,
		embedder:  embedder,
		extractor: ext,
		opts:      opts,
		locks:     newKeyedMutex(),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Ingest processes one file. Failures are reported in the Result, never returned,
// so a batch can carry on with the next file.
func (i *Ingestor) Ingest(ctx context.Context, filePath string, declaredType storage.ResourceType) Result {
	filename := filepath.Base(filePath)
	log := logger.With("file", filename)

	result := Result{Filename: filename}

	fail := func(reason string, err error) Result {
		result.FailureReason = reason
		if err != nil {
			log.Warn("ingestion failed", "reason", reason, "error", err)
		} else {
			log.Warn("ingestion failed", "reason", reason)
		}

		return result
	}

	typ := declaredType
	if typ == "" {
		typ = Classify(filename, i.opts.ScoreKeywords)
	}

	if !typ.Valid() {
		return fail(fmt.Sprintf("unknown resource type %q", typ), nil)
	}

	result.Type = typ

	text, err := i.extractor.Extract(ctx, filePath)
	if err != nil {
		return fail("extraction failed", err)
	}

	if strings.TrimSpace(text) == "" {
		return fail("no text extracted", nil)
	}

	pieces := chunker.Pieces(text, i.opts.Chunking)
	result.TotalChunks = len(pieces)

	if len(pieces) == 0 {
		return fail("no chunk produced", nil)
	}

	// same-filename ingestions queue behind each other
	unlock := i.locks.Lock(filename)
	defer unlock()

	resource, err := i.upsertResource(ctx, filename, typ)
	if err != nil {
		return fail("resource upsert failed", err)
	}

	result.ResourceID = resource.ID

	embedded, err := i.embedPieces(ctx, pieces, log)
	if err != nil {
		return fail("ingestion interrupted", err)
	}

	if len(embedded) == 0 {
		// the previous chunk set stays in place
		return fail("no chunk embedded", nil)
	}

	chunks := i.buildChunks(resource.ID, filename, embedded)

	if err := i.store.ReplaceChunks(ctx, resource.ID, chunks); err != nil {
		return fail("persisting chunks failed", err)
	}

	result.Success = true
	result.ProcessedChunks = len(chunks)

	log.Info("ingested document",
		"resource_id", resource.ID,
		"type", typ,
		"chunks_persisted", result.ProcessedChunks,
		"chunks_attempted", result.TotalChunks,
	)

	return result
}

// IngestDir ingests every supported file directly inside dir, in name order.
// A missing directory is created and yields an empty summary.
func (i *Ingestor) IngestDir(ctx context.Context, dir string) (Summary, error) {
	var summary Summary

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("documents directory missing, creating it", "path", dir)

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return summary, fmt.Errorf("failed to create documents directory: %w", err)
		}

		return summary, nil
	}

	if err != nil {
		return summary, fmt.Errorf("failed to read documents directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !extractor.Supported(e.Name()) {
			continue
		}

		files = append(files, filepath.Join(dir, e.Name()))
	}

	sort.Strings(files)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.add(i.Ingest(ctx, path, ""))
	}

	logger.Info("ingestion run complete",
		"total_files", summary.TotalFiles,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"chunks_persisted", summary.TotalChunksPersisted,
	)

	return summary, nil
}

func (i *Ingestor) upsertResource(ctx context.Context, filename string, typ storage.ResourceType) (*storage.Resource, error) {
	existing, err := i.store.FindResourceByFilename(ctx, filename)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return i.store.CreateResource(ctx, storage.Resource{
		Title:    strings.TrimSuffix(filename, filepath.Ext(filename)),
		Type:     typ,
		Filename: filename,
	})
}

type embeddedPiece struct {
	content   string
	embedding []float32
}

// embeds pieces in order; a piece whose embedding fails is skipped
func (i *Ingestor) embedPieces(ctx context.Context, pieces []chunker.Chunk, log *slog.Logger) ([]embeddedPiece, error) {
	dimension := i.store.Dimension()
	embedded := make([]embeddedPiece, 0, len(pieces))

	for n, piece := range pieces {
		embedding, err := i.embedOne(ctx, piece.Content)

		switch {
		case err != nil:
			log.Warn("skipping chunk, embedding failed", "chunk", piece.Index, "error", err)
		case len(embedding) == 0:
			log.Warn("skipping chunk, empty embedding", "chunk", piece.Index)
		case len(embedding) != dimension:
			log.Warn("skipping chunk, wrong embedding dimension",
				"chunk", piece.Index, "got", len(embedding), "want", dimension)
		default:
			embedded = append(embedded, embeddedPiece{content: piece.Content, embedding: embedding})
		}

		if err := i.throttle(ctx, n+1); err != nil {
			return nil, err
		}
	}

	return embedded, nil
}

func (i *Ingestor) embedOne(ctx context.Context, text string) ([]float32, error) {
	if i.opts.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.opts.EmbedTimeout)
		defer cancel()
	}

	return i.embedder.GenerateEmbedding(ctx, text)
}

// rate-limits embedding calls; calls is the number made so far
func (i *Ingestor) throttle(ctx context.Context, calls int) error {
	if err := i.sleep(ctx, i.opts.Delay); err != nil {
		return err
	}

	if calls%i.opts.PauseEvery == 0 {
		return i.sleep(ctx, i.opts.Pause)
	}

	return nil
}

// numbers persisted chunks contiguously from zero, skipping dropped pieces
func (i *Ingestor) buildChunks(resourceID, filename string, embedded []embeddedPiece) []storage.Chunk {
	processed := i.now().UTC()
	chunks := make([]storage.Chunk, len(embedded))

	for n, e := range embedded {
		chunks[n] = storage.Chunk{
			ResourceID: resourceID,
			Content:    e.content,
			Embedding:  e.embedding,
			Metadata: storage.ChunkMetadata{
				ChunkIndex:     n,
				TotalChunks:    len(embedded),
				SourceFile:     filename,
				TextLength:     len(e.content),
				ProcessingDate: processed,
			},
		}
	}

	return chunks
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
