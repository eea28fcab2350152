package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"codeberg.org/guideelbac/server/internal/chunker"
	"codeberg.org/guideelbac/server/internal/config"
	"codeberg.org/guideelbac/server/internal/extractor"
	"codeberg.org/guideelbac/server/internal/ingest"
	"codeberg.org/guideelbac/server/internal/llm"
	"codeberg.org/guideelbac/server/internal/logger"
	"codeberg.org/guideelbac/server/internal/storage"
)

// ingests every supported document directly inside flags.Path
func IngestDirectory(ctx context.Context, cfg *config.Config, flags config.Flags) error {
	logger.Info("starting ingestion", "path", flags.Path, "profile", flags.Profile)

	created, err := ensureDocsDir(flags.Path)
	if err != nil {
		return err
	}

	// a directory that did not exist holds nothing to ingest
	if created {
		logger.Info("documents directory created, nothing to ingest", "path", flags.Path)
		return printJSON(ingest.Summary{})
	}

	ingestor, store, err := newIngestor(ctx, cfg, flags)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	summary, err := ingestor.IngestDir(ctx, flags.Path)
	if err != nil {
		return err
	}

	for _, r := range summary.Results {
		if !r.Success {
			logger.Warn("file not ingested", "file", r.Filename, "reason", r.FailureReason)
		}
	}

	if err := printJSON(summary); err != nil {
		return err
	}

	return verify(ctx, store)
}

// ingests a single document with an optional declared type
func IngestFile(ctx context.Context, cfg *config.Config, flags config.Flags) error {
	logger.Info("starting single file ingestion", "path", flags.Path, "type", flags.Type)

	ingestor, store, err := newIngestor(ctx, cfg, flags)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	result := ingestor.Ingest(ctx, flags.Path, storage.ResourceType(flags.Type))

	if err := printJSON(result); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("%s: %s", result.Filename, result.FailureReason)
	}

	return verify(ctx, store)
}

// creates the documents directory when missing and reports whether it did
func ensureDocsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("documents path %s is not a directory", path)
		}

		return false, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to read documents directory: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return false, fmt.Errorf("failed to create documents directory: %w", err)
	}

	return true, nil
}

func newIngestor(ctx context.Context, cfg *config.Config, flags config.Flags) (*ingest.Ingestor, storage.Store, error) {
	profile, err := config.LoadProfile(flags.Profile)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}

	llmClient, err := llm.NewLLM(ctx)
	if err != nil {
		store.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	opts := optionsFromProfile(profile, cfg)

	return ingest.New(store, llmClient, extractor.New(), opts), store, nil
}

// maps a loaded profile and the environment onto ingestion options
func optionsFromProfile(p config.Profile, cfg *config.Config) ingest.Options {
	opts := ingest.DefaultOptions()

	opts.Chunking = chunker.ChunkOptions{
		MaxChars: p.Chunking.MaxChars,
		MinChars: p.Chunking.MinChars,
	}
	opts.Delay = p.Throttle.Delay()
	opts.PauseEvery = p.Throttle.PauseEvery
	opts.Pause = p.Throttle.Pause()
	opts.ScoreKeywords = p.ScoreKeywords

	if cfg.EmbedTimeout > 0 {
		opts.EmbedTimeout = cfg.EmbedTimeout
	}

	return opts
}

// logs the number of chunks now in the store
func verify(ctx context.Context, store storage.Store) error {
	count, err := store.ChunkCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify chunk count: %w", err)
	}

	logger.Info("verification complete", "total_chunks", count)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
