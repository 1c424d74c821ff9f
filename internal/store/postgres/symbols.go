package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/codegraph-labs/codegraph/pkg/models"
)

// CreateSymbolParams holds the fields for a single definition node.
type CreateSymbolParams struct {
	ID              uuid.UUID
	Name            string
	GlobalQualifier string
	Definition      *string
	Kind            models.SymbolKind
	FileID          uuid.UUID
	ProjectID       int64
}

// CreateSymbol inserts a node. global_qualifier is unique per project
// (uq_symbols_global_qualifier_project in migrations/0001_init.sql): DEFINITIONS always deletes
// a file's prior symbols before recreating them (see DeleteSymbolsByFile),
// so a collision here means two live files claim the same qualifier — a
// diff step missed a deletion somewhere. Spec §7 treats that as a fatal
// integrity bug, not a value to merge, so this has no ON CONFLICT clause:
// the unique_violation propagates and aborts the run.
func (q *Queries) CreateSymbol(ctx context.Context, arg CreateSymbolParams) (models.Symbol, error) {
	var s models.Symbol
	err := q.db.QueryRow(ctx,
		`INSERT INTO symbols (id, name, global_qualifier, definition, kind, file_id, project_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, name, global_qualifier, definition, kind, file_id, project_id`,
		arg.ID, arg.Name, arg.GlobalQualifier, arg.Definition, arg.Kind, arg.FileID, arg.ProjectID,
	).Scan(&s.ID, &s.Name, &s.GlobalQualifier, &s.Definition, &s.Kind, &s.FileID, &s.ProjectID)
	return s, err
}

// FindSymbolByQualifier looks up a node by its exact global qualifier within
// a project. Returns pgx.ErrNoRows (via the caller's errors.Is check) when
// absent, matching the resolver's _find_node semantics.
func (q *Queries) FindSymbolByQualifier(ctx context.Context, projectID int64, globalQualifier string) (models.Symbol, error) {
	var s models.Symbol
	err := q.db.QueryRow(ctx,
		`SELECT id, name, global_qualifier, definition, kind, file_id, project_id
		 FROM symbols WHERE project_id = $1 AND global_qualifier = $2`,
		projectID, globalQualifier,
	).Scan(&s.ID, &s.Name, &s.GlobalQualifier, &s.Definition, &s.Kind, &s.FileID, &s.ProjectID)
	return s, err
}

// ListSymbolsByFile returns every node defined by a single file, used by the
// VECTOR stage to match a chunk's identifiers against the file's own symbols.
func (q *Queries) ListSymbolsByFile(ctx context.Context, fileID uuid.UUID) ([]models.Symbol, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, global_qualifier, definition, kind, file_id, project_id
		 FROM symbols WHERE file_id = $1`,
		fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Symbol
	for rows.Next() {
		var s models.Symbol
		if err := rows.Scan(&s.ID, &s.Name, &s.GlobalQualifier, &s.Definition, &s.Kind, &s.FileID, &s.ProjectID); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// DeleteSymbolsByFile removes every node defined by a file, ahead of
// re-running its DEFINITIONS stage, cascading to references. Aliases belong
// to the file, not its symbols, and are removed by DeleteAliasesByFile.
func (q *Queries) DeleteSymbolsByFile(ctx context.Context, fileID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM symbols WHERE file_id = $1`, fileID)
	return err
}
