package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/logger"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore is a single-file Store for local runs and tests.
// Nearest-neighbour search is a full scan computed in Go.
type SQLiteStore struct {
	db        *sql.DB
	dimension int
}

var _ Store = (*SQLiteStore)(nil)

// opens (or creates) the database at path; ":memory:" gives a private in-memory store
func NewSQLiteStore(path string, dimension int) (*SQLiteStore, error) {
	dsn := ":memory:"

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}

		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// one connection serializes writers and keeps an in-memory database alive
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close() //nolint:errcheck,gosec // G104: error path cleanup
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	for _, stmt := range []string{sqliteCreateResourcesQuery, sqliteCreateChunksQuery} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close() //nolint:errcheck,gosec // G104: error path cleanup
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, dimension: dimension}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Dimension() int {
	return s.dimension
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) FindResourceByFilename(ctx context.Context, filename string) (*Resource, error) {
	var r Resource
	var typ string

	err := s.db.QueryRowContext(ctx, sqliteFindResourceQuery, filename).Scan(&r.ID, &r.Title, &typ, &r.Filename, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find resource: %w", err)
	}

	r.Type = ResourceType(typ)
	return &r, nil
}

func (s *SQLiteStore) CreateResource(ctx context.Context, r Resource) (*Resource, error) {
	if !r.Type.Valid() {
		return nil, fmt.Errorf("invalid resource type %q: %w", r.Type, apperrors.ErrValidation)
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, sqliteInsertResourceQuery, r.ID, r.Title, string(r.Type), r.Filename, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// a concurrent creator may have won; return whichever row exists
	return s.FindResourceByFilename(ctx, r.Filename)
}

func (s *SQLiteStore) ReplaceChunks(ctx context.Context, resourceID string, chunks []Chunk) error {
	if err := checkDimensions(chunks, s.dimension); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, sqliteDeleteChunksQuery, resourceID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqliteInsertChunkQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}

	defer stmt.Close() //nolint:errcheck

	for i, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = uuid.NewString()
		}

		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, id, resourceID, chunk.Metadata.ChunkIndex, chunk.Content,
			encodeVector(chunk.Embedding), string(metadata)); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *SQLiteStore) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]Passage, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d: %w",
			apperrors.ErrRetrieval, len(embedding), s.dimension, apperrors.ErrDimensionMismatch)
	}

	var passages []Passage
	var corrupt error

	err := s.scanPassages(ctx, func(p Passage, vec []float32) bool {
		if len(vec) != len(embedding) {
			corrupt = fmt.Errorf("%w: chunk %d of %s has %d dimensions, index has %d: %w",
				apperrors.ErrRetrieval, p.Metadata.ChunkIndex, p.Filename, len(vec), s.dimension, apperrors.ErrDimensionMismatch)
			return false
		}

		p.Distance = l2Distance(embedding, vec)
		passages = append(passages, p)

		return true
	})
	if err != nil {
		return nil, err
	}

	if corrupt != nil {
		return nil, corrupt
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Distance < passages[j].Distance
	})

	if len(passages) > k {
		passages = passages[:k]
	}

	return passages, nil
}

// case-insensitive substring match on content, in insertion order
func (s *SQLiteStore) TextSearch(ctx context.Context, text string, k int) ([]Passage, error) {
	if k <= 0 {
		return nil, nil
	}

	needle := strings.ToLower(strings.TrimSpace(text))

	var passages []Passage

	err := s.scanPassages(ctx, func(p Passage, _ []float32) bool {
		if strings.Contains(strings.ToLower(p.Content), needle) {
			passages = append(passages, p)
		}

		return len(passages) < k
	})
	if err != nil {
		return nil, err
	}

	return passages, nil
}

// walks every chunk joined with its resource until visit returns false
func (s *SQLiteStore) scanPassages(ctx context.Context, visit func(Passage, []float32) bool) error {
	rows, err := s.db.QueryContext(ctx, sqliteAllChunksQuery)
	if err != nil {
		return fmt.Errorf("%w: query chunks: %w", apperrors.ErrRetrieval, err)
	}

	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var p Passage
		var typ, metadata string
		var blob []byte

		if err := rows.Scan(&p.Title, &typ, &p.Filename, &p.Content, &metadata, &blob); err != nil {
			return fmt.Errorf("%w: failed to scan passage: %w", apperrors.ErrRetrieval, err)
		}

		p.Type = ResourceType(typ)
		p.Metadata = decodeMetadata([]byte(metadata))

		if !visit(p, decodeVector(blob)) {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: error iterating passages: %w", apperrors.ErrRetrieval, err)
	}

	return nil
}

func (s *SQLiteStore) ResourceChunks(ctx context.Context, resourceID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, sqliteResourceChunksQuery, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	defer rows.Close() //nolint:errcheck

	var chunks []Chunk

	for rows.Next() {
		var ch Chunk
		var blob []byte
		var metadata string

		if err := rows.Scan(&ch.ID, &ch.ResourceID, &ch.Content, &blob, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		ch.Embedding = decodeVector(blob)
		ch.Metadata = decodeMetadata([]byte(metadata))
		chunks = append(chunks, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return chunks, nil
}

func (s *SQLiteStore) ChunkCount(ctx context.Context) (int, error) {
	var count int

	if err := s.db.QueryRowContext(ctx, sqliteChunkCountQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get chunk count: %w", err)
	}

	return count, nil
}
