package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/codegraph-labs/codegraph/pkg/models"
)

// CreateAliasParams holds the fields for a deferred name binding produced by
// an import-like statement (spec §4.5.1).
type CreateAliasParams struct {
	LocalQualifier  string
	GlobalQualifier string
	ProjectID       int64
	FileID          uuid.UUID
}

// CreateAlias inserts an alias. local_qualifier is unique per project; on a
// conflict (for example the same name imported twice in one module) the
// existing row is overwritten with the new global_qualifier and file_id, so
// the last binding wins. A re-run of a file's DEFINITIONS stage first
// deletes its prior aliases (DeleteAliasesByFile).
func (q *Queries) CreateAlias(ctx context.Context, arg CreateAliasParams) (models.Alias, error) {
	var a models.Alias
	err := q.db.QueryRow(ctx,
		`INSERT INTO aliases (local_qualifier, global_qualifier, project_id, file_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (project_id, local_qualifier) DO UPDATE SET
		   global_qualifier = EXCLUDED.global_qualifier,
		   file_id = EXCLUDED.file_id
		 RETURNING local_qualifier, global_qualifier, project_id, file_id`,
		arg.LocalQualifier, arg.GlobalQualifier, arg.ProjectID, arg.FileID,
	).Scan(&a.LocalQualifier, &a.GlobalQualifier, &a.ProjectID, &a.FileID)
	return a, err
}

// ListAliasesByPrefixes returns every alias in a project whose local
// qualifier is one of prefixes, the candidate set the resolver narrows to a
// single longest match (spec §4.6, grounded on _resolve_alias).
func (q *Queries) ListAliasesByPrefixes(ctx context.Context, projectID int64, prefixes []string) ([]models.Alias, error) {
	if len(prefixes) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT local_qualifier, global_qualifier, project_id, file_id
		 FROM aliases
		 WHERE project_id = $1 AND local_qualifier = ANY($2::text[])
		 ORDER BY char_length(local_qualifier) DESC`,
		projectID, prefixes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Alias
	for rows.Next() {
		var a models.Alias
		if err := rows.Scan(&a.LocalQualifier, &a.GlobalQualifier, &a.ProjectID, &a.FileID); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// DeleteAliasesByFile removes every alias a file introduced, ahead of
// re-running its DEFINITIONS stage.
func (q *Queries) DeleteAliasesByFile(ctx context.Context, fileID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM aliases WHERE file_id = $1`, fileID)
	return err
}
