package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codegraph-labs/codegraph/pkg/models"
)

// UpsertFileParams holds the fields written for a directory or file row
// discovered during the traversal stage (spec §4.2).
type UpsertFileParams struct {
	ID           uuid.UUID
	ProjectID    int64
	Name         string
	Path         string
	Language     *string
	IndexingStep models.IndexingStep
	ParentID     *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpsertFile inserts a new file row, or on a (project_id, path) conflict
// overwrites its indexing_step with arg.IndexingStep (StepDefinitions for a
// changed file, so it is reprocessed from DEFINITIONS). created_at is
// preserved across updates; only updated_at advances, to arg.UpdatedAt.
func (q *Queries) UpsertFile(ctx context.Context, arg UpsertFileParams) (models.File, error) {
	var f models.File
	err := q.db.QueryRow(ctx,
		`INSERT INTO files (id, project_id, name, path, language, indexing_step, chunks, last_indexed_at, created_at, updated_at, parent_id)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7, $7, $8)
		 ON CONFLICT (project_id, path) DO UPDATE SET
		   name = EXCLUDED.name,
		   language = EXCLUDED.language,
		   indexing_step = EXCLUDED.indexing_step,
		   chunks = 0,
		   updated_at = $9,
		   parent_id = EXCLUDED.parent_id
		 RETURNING id, project_id, name, path, language, indexing_step, chunks, last_indexed_at, created_at, updated_at, parent_id`,
		arg.ID, arg.ProjectID, arg.Name, arg.Path, arg.Language, arg.IndexingStep, arg.CreatedAt, arg.ParentID, arg.UpdatedAt,
	).Scan(&f.ID, &f.ProjectID, &f.Name, &f.Path, &f.Language, &f.IndexingStep, &f.Chunks, &f.LastIndexedAt, &f.CreatedAt, &f.UpdatedAt, &f.ParentID)
	return f, err
}

// GetFileByPath looks up a file by its (project_id, path) unique key, used to
// decide whether a traversed path is new, changed, or unchanged.
func (q *Queries) GetFileByPath(ctx context.Context, projectID int64, path string) (models.File, error) {
	var f models.File
	err := q.db.QueryRow(ctx,
		`SELECT id, project_id, name, path, language, indexing_step, chunks, last_indexed_at, created_at, updated_at, parent_id
		 FROM files WHERE project_id = $1 AND path = $2`,
		projectID, path,
	).Scan(&f.ID, &f.ProjectID, &f.Name, &f.Path, &f.Language, &f.IndexingStep, &f.Chunks, &f.LastIndexedAt, &f.CreatedAt, &f.UpdatedAt, &f.ParentID)
	return f, err
}

// ListFilesByStep returns up to limit files in a project sitting at step,
// ordered by id for stable batching across pipeline batches.
func (q *Queries) ListFilesByStep(ctx context.Context, projectID int64, step models.IndexingStep, limit int) ([]models.File, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, project_id, name, path, language, indexing_step, chunks, last_indexed_at, created_at, updated_at, parent_id
		 FROM files
		 WHERE project_id = $1 AND indexing_step = $2
		 ORDER BY id
		 LIMIT $3`,
		projectID, step, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Path, &f.Language, &f.IndexingStep, &f.Chunks, &f.LastIndexedAt, &f.CreatedAt, &f.UpdatedAt, &f.ParentID); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// ListFilesIndexedBefore returns files whose last_indexed_at predates cutoff,
// the basis of the removed-from-filesystem sweep at the end of a run: any
// file not touched by the current traversal is gone from disk.
func (q *Queries) ListFilesIndexedBefore(ctx context.Context, projectID int64, cutoff time.Time) ([]models.File, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, project_id, name, path, language, indexing_step, chunks, last_indexed_at, created_at, updated_at, parent_id
		 FROM files
		 WHERE project_id = $1 AND last_indexed_at < $2`,
		projectID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Path, &f.Language, &f.IndexingStep, &f.Chunks, &f.LastIndexedAt, &f.CreatedAt, &f.UpdatedAt, &f.ParentID); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// AdvanceFileStep moves a file to the next pipeline stage and, once it
// reaches StepComplete, stamps last_indexed_at so future traversals can skip
// it until the file's mtime changes again.
func (q *Queries) AdvanceFileStep(ctx context.Context, fileID uuid.UUID, step models.IndexingStep, chunks int) error {
	now := time.Now()
	if step == models.StepComplete {
		_, err := q.db.Exec(ctx,
			`UPDATE files SET indexing_step = $1, chunks = $2, last_indexed_at = $3, updated_at = $3 WHERE id = $4`,
			step, chunks, now, fileID)
		return err
	}
	_, err := q.db.Exec(ctx,
		`UPDATE files SET indexing_step = $1, chunks = $2, updated_at = $3 WHERE id = $4`,
		step, chunks, now, fileID)
	return err
}

// DeleteFiles removes a batch of file rows by id, cascading to their
// symbols, aliases and references.
func (q *Queries) DeleteFiles(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.db.Exec(ctx, `DELETE FROM files WHERE id = ANY($1::uuid[])`, ids)
	return err
}
