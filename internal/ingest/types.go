package ingest

import (
	"time"

	"codeberg.org/guideelbac/server/internal/chunker"
	"codeberg.org/guideelbac/server/internal/storage"
)

type Options struct {
	Chunking chunker.ChunkOptions

	// pause after every embedding call, plus a longer one every PauseEvery calls
	Delay      time.Duration
	PauseEvery int
	Pause      time.Duration

	EmbedTimeout  time.Duration
	ScoreKeywords []string
}

func DefaultOptions() Options {
	return Options{
		Chunking:      chunker.DefaultOptions(),
		Delay:         100 * time.Millisecond,
		PauseEvery:    10,
		Pause:         time.Second,
		EmbedTimeout:  30 * time.Second,
		ScoreKeywords: DefaultScoreKeywords,
	}
}

// Result reports the ingestion of one file
type Result struct {
	Filename        string               `json:"filename"`
	ResourceID      string               `json:"resourceId,omitempty"`
	Type            storage.ResourceType `json:"type,omitempty"`
	Success         bool                 `json:"success"`
	ProcessedChunks int                  `json:"processedChunks"` // embedded and persisted
	TotalChunks     int                  `json:"totalChunks"`     // attempted
	FailureReason   string               `json:"failureReason,omitempty"`
}

// Summary reports a batch run
type Summary struct {
	TotalFiles           int      `json:"totalFiles"`
	Succeeded            int      `json:"succeeded"`
	Failed               int      `json:"failed"`
	TotalChunksPersisted int      `json:"totalChunksPersisted"`
	Results              []Result `json:"-"`
}

func (s *Summary) add(r Result) {
	s.TotalFiles++
	s.Results = append(s.Results, r)

	if r.Success {
		s.Succeeded++
		s.TotalChunksPersisted += r.ProcessedChunks
		return
	}

	s.Failed++
}
