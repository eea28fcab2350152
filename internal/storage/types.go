package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

type ResourceType string

const (
	ResourceGuide ResourceType = "guide"
	ResourceScore ResourceType = "score"
)

func (t ResourceType) Valid() bool {
	return t == ResourceGuide || t == ResourceScore
}

// Resource is one ingested source document
type Resource struct {
	ID        string
	Title     string
	Type      ResourceType
	Filename  string
	CreatedAt time.Time
}

// Chunk is one embedded piece of a Resource
type Chunk struct {
	ID         string
	ResourceID string
	Content    string
	Embedding  []float32
	Metadata   ChunkMetadata
}

type ChunkMetadata struct {
	ChunkIndex     int       `json:"chunkIndex"`
	TotalChunks    int       `json:"totalChunks"`
	SourceFile     string    `json:"sourceFile"`
	TextLength     int       `json:"textLength"`
	ProcessingDate time.Time `json:"processingDate"`
}

// Passage is the shape both retrieval paths return
type Passage struct {
	Title    string
	Type     ResourceType
	Filename string
	Content  string
	Metadata ChunkMetadata

	// L2 distance to the query embedding; zero for keyword matches
	Distance float64
}

// Store persists resources and chunks and answers retrieval queries
type Store interface {
	FindResourceByFilename(ctx context.Context, filename string) (*Resource, error)
	CreateResource(ctx context.Context, r Resource) (*Resource, error)

	// ReplaceChunks atomically swaps the chunk set of a resource
	ReplaceChunks(ctx context.Context, resourceID string, chunks []Chunk) error

	NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]Passage, error)
	TextSearch(ctx context.Context, text string, k int) ([]Passage, error)

	ResourceChunks(ctx context.Context, resourceID string) ([]Chunk, error)
	ChunkCount(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Dimension() int
	Close() error
}
