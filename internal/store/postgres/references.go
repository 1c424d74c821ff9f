package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/codegraph-labs/codegraph/pkg/models"
)

// CreateReference inserts a directed, line-annotated edge between two
// symbols. (source, target, line_number) is the primary key, so a rerun of
// the REFERENCES stage over an unchanged file is idempotent.
func (q *Queries) CreateReference(ctx context.Context, ref models.Reference) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO references_ (source_node_id, target_node_id, line_number)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (source_node_id, target_node_id, line_number) DO NOTHING`,
		ref.SourceID, ref.TargetID, ref.LineNumber)
	return err
}

// ListReferencesBySource returns every edge originating at a symbol.
func (q *Queries) ListReferencesBySource(ctx context.Context, sourceID uuid.UUID) ([]models.Reference, error) {
	rows, err := q.db.Query(ctx,
		`SELECT source_node_id, target_node_id, line_number FROM references_ WHERE source_node_id = $1`,
		sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Reference
	for rows.Next() {
		var r models.Reference
		if err := rows.Scan(&r.SourceID, &r.TargetID, &r.LineNumber); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
