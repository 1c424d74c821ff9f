// Package vectorstore implements the vector store (C2): embedded code
// chunks, persisted in the same Postgres instance as the relational store
// via pgvector, and queried by nearest-neighbor similarity.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/codegraph-labs/codegraph/internal/embedding"
	"github.com/codegraph-labs/codegraph/pkg/models"
)

// upsertBatchSize caps how many chunk writes are pipelined per Postgres
// round-trip.
const upsertBatchSize = 500

// Store embeds and persists code chunks, and answers similarity queries
// against them.
type Store struct {
	pool     *pgxpool.Pool
	embedder embedding.Embedder
}

func New(pool *pgxpool.Pool, embedder embedding.Embedder) *Store {
	return &Store{pool: pool, embedder: embedder}
}

const upsertChunkSQL = `
INSERT INTO chunks (file_id, ordinal, project_id, text, token_count, symbol_ids, language, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (file_id, ordinal) DO UPDATE SET
  text = $4, token_count = $5, symbol_ids = $6, language = $7, embedding = $8
`

// Upsert embeds and writes a batch of chunks belonging to a single project.
// Chunks are embedded in one call to the provider (which sub-batches
// internally, see internal/embedding) and then pipelined into Postgres via
// pgx.Batch in groups of upsertBatchSize.
func (s *Store) Upsert(ctx context.Context, projectID int64, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts, "search_document")
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(chunks))

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			c := chunks[i]
			batch.Queue(upsertChunkSQL,
				c.FileID, c.Ordinal, projectID, c.Text, c.TokenCount,
				c.SymbolIDs, c.Language, pgvector.NewVector(vectors[i]))
		}

		results := s.pool.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("upsert chunk %d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close batch results: %w", err)
		}
	}
	return nil
}

// DeleteByFile removes every chunk belonging to fileID, run ahead of
// re-chunking a changed file.
func (s *Store) DeleteByFile(ctx context.Context, fileID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE file_id = $1`, fileID)
	return err
}

// ScoredChunk is a chunk returned from Query, annotated with its distance
// from the query embedding (smaller is more similar).
type ScoredChunk struct {
	models.Chunk
	Score float32
}

// Query embeds text as a search query and returns the topN nearest chunks
// within projectID, ordered by ascending distance (closest match first).
func (s *Store) Query(ctx context.Context, projectID int64, text string, topN int) ([]ScoredChunk, error) {
	vectors, err := s.embedder.EmbedBatch(ctx, []string{text}, "search_query")
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: no vector returned")
	}
	queryVec := pgvector.NewVector(vectors[0])

	// Cosine distance (<=>) to match the chunks.embedding index, which is
	// built with vector_cosine_ops (migrations/0001_init.sql); using any
	// other operator here would leave that HNSW index unusable and force a
	// sequential scan.
	rows, err := s.pool.Query(ctx,
		`SELECT file_id, ordinal, text, token_count, symbol_ids, language, embedding <=> $1 AS score
		 FROM chunks
		 WHERE project_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		queryVec, projectID, topN)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var items []ScoredChunk
	for rows.Next() {
		var sc ScoredChunk
		if err := rows.Scan(&sc.FileID, &sc.Ordinal, &sc.Text, &sc.TokenCount, &sc.SymbolIDs, &sc.Language, &sc.Score); err != nil {
			return nil, err
		}
		items = append(items, sc)
	}
	return items, rows.Err()
}
