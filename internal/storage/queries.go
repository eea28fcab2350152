package storage

// postgres statements; the vector column width is filled in at startup
const (
	pgCreateExtensionQuery = `CREATE EXTENSION IF NOT EXISTS vector`

	pgCreateResourcesQuery = `
		CREATE TABLE IF NOT EXISTS resources (
			id         UUID PRIMARY KEY,
			title      TEXT NOT NULL,
			type       TEXT NOT NULL CHECK (type IN ('guide', 'score')),
			filename   TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	pgCreateChunksQuery = `
		CREATE TABLE IF NOT EXISTS chunks (
			id          UUID PRIMARY KEY,
			resource_id UUID NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
			UNIQUE (resource_id, chunk_index)
		)
	`

	pgCreateChunksIndexQuery = `CREATE INDEX IF NOT EXISTS chunks_resource_id_idx ON chunks (resource_id)`

	pgFindResourceQuery = `
		SELECT id, title, type, filename, created_at
		FROM resources
		WHERE filename = $1
	`

	// concurrent creators of the same filename converge on one row
	pgInsertResourceQuery = `
		INSERT INTO resources (id, title, type, filename)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (filename) DO UPDATE SET filename = EXCLUDED.filename
		RETURNING id, title, type, filename, created_at
	`

	pgLockResourceQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

	pgDeleteChunksQuery = `DELETE FROM chunks WHERE resource_id = $1`

	pgInsertChunkQuery = `
		INSERT INTO chunks (id, resource_id, chunk_index, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	pgNearestNeighborsQuery = `
		SELECT r.title, r.type, r.filename, c.content, c.metadata, c.embedding <-> $1 AS distance
		FROM chunks c
		JOIN resources r ON r.id = c.resource_id
		ORDER BY c.embedding <-> $1
		LIMIT $2
	`

	pgTextSearchQuery = `
		SELECT r.title, r.type, r.filename, c.content, c.metadata
		FROM chunks c
		JOIN resources r ON r.id = c.resource_id
		WHERE c.content ILIKE $1 ESCAPE '\'
		LIMIT $2
	`

	pgResourceChunksQuery = `
		SELECT id, resource_id, content, embedding, metadata
		FROM chunks
		WHERE resource_id = $1
		ORDER BY chunk_index
	`

	pgChunkCountQuery = `SELECT COUNT(*) FROM chunks`
)

// sqlite statements; embeddings are little-endian float32 blobs
const (
	sqliteCreateResourcesQuery = `
		CREATE TABLE IF NOT EXISTS resources (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			type       TEXT NOT NULL CHECK (type IN ('guide', 'score')),
			filename   TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		)
	`

	sqliteCreateChunksQuery = `
		CREATE TABLE IF NOT EXISTS chunks (
			id          TEXT PRIMARY KEY,
			resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content     TEXT NOT NULL,
			embedding   BLOB NOT NULL,
			metadata    TEXT NOT NULL DEFAULT '{}',
			UNIQUE (resource_id, chunk_index)
		)
	`

	sqliteFindResourceQuery = `
		SELECT id, title, type, filename, created_at
		FROM resources
		WHERE filename = ?
	`

	sqliteInsertResourceQuery = `
		INSERT INTO resources (id, title, type, filename, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (filename) DO NOTHING
	`

	sqliteDeleteChunksQuery = `DELETE FROM chunks WHERE resource_id = ?`

	sqliteInsertChunkQuery = `
		INSERT INTO chunks (id, resource_id, chunk_index, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	sqliteAllChunksQuery = `
		SELECT r.title, r.type, r.filename, c.content, c.metadata, c.embedding
		FROM chunks c
		JOIN resources r ON r.id = c.resource_id
		ORDER BY c.rowid
	`

	sqliteResourceChunksQuery = `
		SELECT id, resource_id, content, embedding, metadata
		FROM chunks
		WHERE resource_id = ?
		ORDER BY chunk_index
	`

	sqliteChunkCountQuery = `SELECT COUNT(*) FROM chunks`
)
