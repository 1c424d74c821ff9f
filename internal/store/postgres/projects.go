package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codegraph-labs/codegraph/pkg/models"
)

// CreateProjectParams holds the fields needed to register a new project and
// its root directory row in a single transaction.
type CreateProjectParams struct {
	Name     string
	RootPath string
}

// CreateProject inserts the project row and its root File row, wiring
// root_file_id back onto the project. Callers should run this inside
// Store.WithTx so both inserts commit together.
func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (models.Project, error) {
	var p models.Project
	err := q.db.QueryRow(ctx,
		`INSERT INTO projects (name, root_path, languages)
		 VALUES ($1, $2, '{}')
		 RETURNING id, name, root_path, languages, root_file_id, created_at, updated_at`,
		arg.Name, arg.RootPath,
	).Scan(&p.ID, &p.Name, &p.RootPath, &p.Languages, &p.RootFileID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Project{}, err
	}

	rootID := uuid.New()
	now := time.Now()
	_, err = q.db.Exec(ctx,
		`INSERT INTO files (id, project_id, name, path, language, indexing_step, chunks, last_indexed_at, created_at, updated_at, parent_id)
		 VALUES ($1, $2, $3, '', NULL, $4, 0, $5, $5, $5, NULL)`,
		rootID, p.ID, arg.RootPath, models.StepComplete, now)
	if err != nil {
		return models.Project{}, err
	}

	_, err = q.db.Exec(ctx, `UPDATE projects SET root_file_id = $1, updated_at = $2 WHERE id = $3`, rootID, now, p.ID)
	if err != nil {
		return models.Project{}, err
	}
	p.RootFileID = &rootID
	p.UpdatedAt = now
	return p, nil
}

// GetProjectByID loads a single project row.
func (q *Queries) GetProjectByID(ctx context.Context, id int64) (models.Project, error) {
	var p models.Project
	err := q.db.QueryRow(ctx,
		`SELECT id, name, root_path, languages, root_file_id, created_at, updated_at
		 FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.RootPath, &p.Languages, &p.RootFileID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetProjectByRootPath loads a project by its unique root_path.
func (q *Queries) GetProjectByRootPath(ctx context.Context, rootPath string) (models.Project, error) {
	var p models.Project
	err := q.db.QueryRow(ctx,
		`SELECT id, name, root_path, languages, root_file_id, created_at, updated_at
		 FROM projects WHERE root_path = $1`,
		rootPath,
	).Scan(&p.ID, &p.Name, &p.RootPath, &p.Languages, &p.RootFileID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProjects returns every tracked project, used by the scheduler boundary
// to enumerate indexing candidates.
func (q *Queries) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, root_path, languages, root_file_id, created_at, updated_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.RootPath, &p.Languages, &p.RootFileID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// UpdateProjectLanguages overwrites the set of languages observed across a
// project's files. Called once per run, right after traversal.
func (q *Queries) UpdateProjectLanguages(ctx context.Context, projectID int64, languages []string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE projects SET languages = $1, updated_at = now() WHERE id = $2`,
		languages, projectID)
	return err
}

// DeleteProject removes a project and, via ON DELETE CASCADE, every file,
// symbol, alias and reference rooted under it. Used when a project's root
// path no longer exists on disk.
func (q *Queries) DeleteProject(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}
