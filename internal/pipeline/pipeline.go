// Package pipeline orchestrates the DEFINITIONS -> REFERENCES -> VECTOR
// stage sequence for a single project (spec §4.7, C7).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/codegraph-labs/codegraph/internal/chunker"
	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/internal/lockservice"
	"github.com/codegraph-labs/codegraph/internal/parser"
	"github.com/codegraph-labs/codegraph/internal/resolver"
	"github.com/codegraph-labs/codegraph/internal/store"
	"github.com/codegraph-labs/codegraph/internal/vectorstore"
	"github.com/codegraph-labs/codegraph/pkg/models"
)

// Pipeline runs a full indexing pass over one project.
type Pipeline struct {
	store    *store.Store
	vectors  *vectorstore.Store
	locks    *lockservice.Service
	parsers  *parser.Registry
	resolver *resolver.Resolver
	chunker  *chunker.Chunker
	cfg      config.IndexingConfig
	logger   *slog.Logger
}

func New(
	s *store.Store,
	vectors *vectorstore.Store,
	locks *lockservice.Service,
	parsers *parser.Registry,
	res *resolver.Resolver,
	ch *chunker.Chunker,
	cfg config.IndexingConfig,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		store: s, vectors: vectors, locks: locks,
		parsers: parsers, resolver: res, chunker: ch,
		cfg: cfg, logger: logger,
	}
}

// Run indexes projectID: it binds the project to its root directory,
// traverses and diffs the filesystem, then drives every out-of-date file
// through DEFINITIONS, REFERENCES and VECTOR. The project's lock is held
// for the whole run and renewed periodically so a slow run never loses it
// mid-way through.
func (p *Pipeline) Run(ctx context.Context, projectID int64) (*models.IndexingStatus, error) {
	started := time.Now()

	lock, err := p.locks.Acquire(ctx, projectID, p.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, lockservice.ErrNotHeld) {
			p.logger.Info("indexing already running, skipping", slog.Int64("project_id", projectID))
			return nil, nil
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() {
		if err := p.locks.Release(ctx, lock); err != nil {
			p.logger.Error("release lock failed", slog.Int64("project_id", projectID), slog.Any("error", err))
		}
	}()

	project, err := p.store.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}

	if _, err := os.Stat(project.RootPath); err != nil {
		if os.IsNotExist(err) {
			p.logger.Info("project root missing, deleting project",
				slog.Int64("project_id", projectID), slog.String("root_path", project.RootPath))
			return nil, p.store.DeleteProject(ctx, projectID)
		}
		return nil, fmt.Errorf("stat project root: %w", err)
	}

	renewal := newLockRenewal(p.locks, lock, p.cfg.LockTTL, started)

	languages, err := p.traverse(ctx, project, started, renewal)
	if err != nil {
		return nil, fmt.Errorf("traverse: %w", err)
	}

	if err := p.store.UpdateProjectLanguages(ctx, project.ID, languages); err != nil {
		return nil, fmt.Errorf("update languages: %w", err)
	}

	status := &models.IndexingStatus{StartedAt: started}

	refPaths, noParserVectorPaths, err := p.runDefinitionsStage(ctx, project, renewal)
	if err != nil {
		return nil, fmt.Errorf("definitions stage: %w", err)
	}
	status.ReferencesPaths = refPaths

	vecPaths, err := p.runReferencesStage(ctx, project, renewal)
	if err != nil {
		return nil, fmt.Errorf("references stage: %w", err)
	}
	status.VectorPaths = append(noParserVectorPaths, vecPaths...)

	if err := p.runVectorStage(ctx, project, renewal); err != nil {
		return nil, fmt.Errorf("vector stage: %w", err)
	}

	if err := p.sweepRemovedFiles(ctx, project, started); err != nil {
		return nil, fmt.Errorf("sweep removed files: %w", err)
	}

	status.Duration = time.Since(started)
	p.logger.Info("indexing run completed",
		slog.Int64("project_id", projectID), slog.Duration("duration", status.Duration))
	return status, nil
}

// lockRenewal tracks the lock's last extension time across a run's batches
// and renews it via the pure ComputeExtension decision (spec §4.3).
type lockRenewal struct {
	locks          *lockservice.Service
	lock           *lockservice.Lock
	ttl            time.Duration
	lastExtendedAt time.Time
}

func newLockRenewal(locks *lockservice.Service, lock *lockservice.Lock, ttl time.Duration, startedAt time.Time) *lockRenewal {
	return &lockRenewal{locks: locks, lock: lock, ttl: ttl, lastExtendedAt: startedAt}
}

func (r *lockRenewal) maybeExtend(ctx context.Context) error {
	next, shouldExtend := lockservice.ComputeExtension(r.lastExtendedAt, time.Now(), r.ttl)
	if !shouldExtend {
		return nil
	}
	if err := r.locks.Extend(ctx, r.lock, r.ttl); err != nil {
		return err
	}
	r.lastExtendedAt = next
	return nil
}
