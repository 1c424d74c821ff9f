// Package store wires the hand-written Postgres query layer (C1, the
// relational store of spec §3) behind a single handle shared by every
// pipeline stage.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codegraph-labs/codegraph/internal/store/postgres"
	"github.com/codegraph-labs/codegraph/pkg/models"
)

// Store bundles the connection pool with a Queries bound to it.
type Store struct {
	*postgres.Queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Queries: postgres.New(pool),
		pool:    pool,
	}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// CreateProject registers a new project and its root File row atomically,
// shadowing the embedded Queries.CreateProject (which issues the same three
// statements but, run directly against the pool, would commit them
// independently). This is the create_project entry point named in spec §6.
func (s *Store) CreateProject(ctx context.Context, arg postgres.CreateProjectParams) (models.Project, error) {
	var project models.Project
	err := s.WithTx(ctx, func(q *postgres.Queries) error {
		p, err := q.CreateProject(ctx, arg)
		if err != nil {
			return err
		}
		project = p
		return nil
	})
	return project, err
}

// WithTx runs fn against a Queries bound to a fresh transaction, committing
// on success and rolling back on any error (including a panic propagated by
// the caller). Used by project creation and by each file's DEFINITIONS task
// so that file's symbols, aliases and stage advancement land atomically.
func (s *Store) WithTx(ctx context.Context, fn func(*postgres.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(s.Queries.WithTx(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
