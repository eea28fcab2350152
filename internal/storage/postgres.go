package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "codeberg.org/guideelbac/server/internal/errors"
	"codeberg.org/guideelbac/server/internal/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Client is the postgres + pgvector Store
type Client struct {
	pool      *pgxpool.Pool
	dimension int
}

var _ Store = (*Client)(nil)

func NewClient(ctx context.Context, connString string, dimension int) (*Client, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	// simple protocol keeps pooled connections (supabase pgbouncer) happy and
	// sends vectors in their text form
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{pool: pool, dimension: dimension}, nil
}

// creates the extension, tables and indexes when missing
func (c *Client) Migrate(ctx context.Context) error {
	statements := []string{
		pgCreateExtensionQuery,
		pgCreateResourcesQuery,
		fmt.Sprintf(pgCreateChunksQuery, c.dimension),
		pgCreateChunksIndexQuery,
	}

	for _, stmt := range statements {
		if _, err := c.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return nil
}

func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

func (c *Client) Dimension() int {
	return c.dimension
}

// pings the database, used by the health endpoint
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Client) FindResourceByFilename(ctx context.Context, filename string) (*Resource, error) {
	var r Resource
	var typ string

	err := c.pool.QueryRow(ctx, pgFindResourceQuery, filename).Scan(&r.ID, &r.Title, &typ, &r.Filename, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find resource: %w", err)
	}

	r.Type = ResourceType(typ)
	return &r, nil
}

func (c *Client) CreateResource(ctx context.Context, r Resource) (*Resource, error) {
	if !r.Type.Valid() {
		return nil, fmt.Errorf("invalid resource type %q: %w", r.Type, apperrors.ErrValidation)
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	var created Resource
	var typ string

	err := c.pool.QueryRow(ctx, pgInsertResourceQuery, r.ID, r.Title, string(r.Type), r.Filename).
		Scan(&created.ID, &created.Title, &typ, &created.Filename, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	created.Type = ResourceType(typ)
	return &created, nil
}

// deletes the old chunk set and inserts the new one in a single transaction,
// holding an advisory lock on the resource so concurrent writers queue
func (c *Client) ReplaceChunks(ctx context.Context, resourceID string, chunks []Chunk) error {
	if err := checkDimensions(chunks, c.dimension); err != nil {
		return err
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// no-op once committed
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.Exec(ctx, pgLockResourceQuery, resourceID); err != nil {
		return fmt.Errorf("failed to lock resource: %w", err)
	}

	if _, err := tx.Exec(ctx, pgDeleteChunksQuery, resourceID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	batch := &pgx.Batch{}

	for _, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = uuid.NewString()
		}

		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode chunk metadata: %w", err)
		}

		batch.Queue(pgInsertChunkQuery,
			id,
			resourceID,
			chunk.Metadata.ChunkIndex,
			chunk.Content,
			pgvector.NewVector(chunk.Embedding),
			string(metadata),
		)
	}

	br := tx.SendBatch(ctx, batch)

	for i := range len(chunks) {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck,gosec // G104: error path cleanup
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	// batch results must be closed before commit
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (c *Client) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]Passage, error) {
	if len(embedding) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d: %w",
			apperrors.ErrRetrieval, len(embedding), c.dimension, apperrors.ErrDimensionMismatch)
	}

	rows, err := c.pool.Query(ctx, pgNearestNeighborsQuery, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %w", apperrors.ErrRetrieval, err)
	}

	defer rows.Close()

	var passages []Passage

	for rows.Next() {
		var p Passage
		var typ string
		var metadata []byte

		if err := rows.Scan(&p.Title, &typ, &p.Filename, &p.Content, &metadata, &p.Distance); err != nil {
			return nil, fmt.Errorf("%w: failed to scan passage: %w", apperrors.ErrRetrieval, err)
		}

		p.Type = ResourceType(typ)
		p.Metadata = decodeMetadata(metadata)
		passages = append(passages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating passages: %w", apperrors.ErrRetrieval, err)
	}

	return passages, nil
}

func (c *Client) TextSearch(ctx context.Context, text string, k int) ([]Passage, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(text)) + "%"

	rows, err := c.pool.Query(ctx, pgTextSearchQuery, pattern, k)
	if err != nil {
		return nil, fmt.Errorf("%w: text search: %w", apperrors.ErrRetrieval, err)
	}

	defer rows.Close()

	var passages []Passage

	for rows.Next() {
		var p Passage
		var typ string
		var metadata []byte

		if err := rows.Scan(&p.Title, &typ, &p.Filename, &p.Content, &metadata); err != nil {
			return nil, fmt.Errorf("%w: failed to scan passage: %w", apperrors.ErrRetrieval, err)
		}

		p.Type = ResourceType(typ)
		p.Metadata = decodeMetadata(metadata)
		passages = append(passages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating passages: %w", apperrors.ErrRetrieval, err)
	}

	return passages, nil
}

func (c *Client) ResourceChunks(ctx context.Context, resourceID string) ([]Chunk, error) {
	rows, err := c.pool.Query(ctx, pgResourceChunksQuery, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	defer rows.Close()

	var chunks []Chunk

	for rows.Next() {
		var ch Chunk
		var vec pgvector.Vector
		var metadata []byte

		if err := rows.Scan(&ch.ID, &ch.ResourceID, &ch.Content, &vec, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}

		ch.Embedding = vec.Slice()
		ch.Metadata = decodeMetadata(metadata)
		chunks = append(chunks, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}

	return chunks, nil
}

// returns the total number of chunks in the database
func (c *Client) ChunkCount(ctx context.Context) (int, error) {
	var count int

	if err := c.pool.QueryRow(ctx, pgChunkCountQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get chunk count: %w", err)
	}

	return count, nil
}
