package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/codegraph-labs/codegraph/internal/parser"
	"github.com/codegraph-labs/codegraph/internal/store/postgres"
	"github.com/codegraph-labs/codegraph/pkg/models"
)

// runDefinitionsStage advances every file sitting at StepDefinitions to
// StepReferences (or straight to StepVector for a file with no registered
// parser, or to StepComplete for a parser that hit a syntax error — spec
// §4.5 edge case: the file is considered fully, permanently parsed as
// empty). It returns the paths it advanced into REFERENCES and the paths it
// advanced directly into VECTOR, for the run's status report: a no-parser
// file reaches VECTOR in this run just as much as one that went through
// REFERENCES first.
func (p *Pipeline) runDefinitionsStage(ctx context.Context, project models.Project, renewal *lockRenewal) (refPaths, vectorPaths []string, err error) {
	for {
		batch, err := p.store.ListFilesByStep(ctx, project.ID, models.StepDefinitions, p.cfg.BatchSize)
		if err != nil {
			return nil, nil, fmt.Errorf("list definitions batch: %w", err)
		}
		if len(batch) == 0 {
			return refPaths, vectorPaths, nil
		}

		if err := renewal.maybeExtend(ctx); err != nil {
			return nil, nil, fmt.Errorf("extend lock before definitions batch: %w", err)
		}

		results := make([]models.IndexingStep, len(batch))
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(p.cfg.MaxWorkers)
		for i, f := range batch {
			i, f := i, f
			eg.Go(func() error {
				nextStep, err := p.processDefinitions(egCtx, project, f)
				if err != nil {
					return fmt.Errorf("file %s: %w", f.Path, err)
				}
				results[i] = nextStep
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, nil, err
		}
		for i, step := range results {
			switch step {
			case models.StepReferences:
				refPaths = append(refPaths, batch[i].Path)
			case models.StepVector:
				vectorPaths = append(vectorPaths, batch[i].Path)
			}
		}
	}
}

func (p *Pipeline) processDefinitions(ctx context.Context, project models.Project, f models.File) (models.IndexingStep, error) {
	if f.Language == nil {
		if err := p.store.AdvanceFileStep(ctx, f.ID, models.StepVector, 0); err != nil {
			return "", err
		}
		return models.StepVector, nil
	}

	lang := p.parsers.ForFile(f.Path)
	if lang == nil {
		if err := p.store.AdvanceFileStep(ctx, f.ID, models.StepVector, 0); err != nil {
			return "", err
		}
		return models.StepVector, nil
	}

	content, err := os.ReadFile(filepath.Join(project.RootPath, f.Path))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	input := parser.FileInput{ProjectRoot: project.RootPath, Path: filepath.Join(project.RootPath, f.Path), Content: content}
	defs, err := lang.ExtractDefinitions(input)
	if err != nil {
		p.logger.Warn("syntax error, advancing with no symbols",
			slog.String("path", f.Path), slog.Any("error", err))
		if err := p.store.AdvanceFileStep(ctx, f.ID, models.StepComplete, 0); err != nil {
			return "", err
		}
		return models.StepComplete, nil
	}

	err = p.store.WithTx(ctx, func(q *postgres.Queries) error {
		if err := q.DeleteSymbolsByFile(ctx, f.ID); err != nil {
			return fmt.Errorf("delete prior symbols: %w", err)
		}
		if err := q.DeleteAliasesByFile(ctx, f.ID); err != nil {
			return fmt.Errorf("delete prior aliases: %w", err)
		}
		for _, sym := range defs.Symbols {
			var definition *string
			if sym.Definition != "" {
				definition = &sym.Definition
			}
			if _, err := q.CreateSymbol(ctx, postgres.CreateSymbolParams{
				ID:              uuid.New(),
				Name:            sym.Name,
				GlobalQualifier: sym.GlobalQualifier,
				Definition:      definition,
				Kind:            models.SymbolKind(sym.Kind),
				FileID:          f.ID,
				ProjectID:       project.ID,
			}); err != nil {
				return fmt.Errorf("create symbol %s: %w", sym.GlobalQualifier, err)
			}
		}
		for _, al := range defs.Aliases {
			if _, err := q.CreateAlias(ctx, postgres.CreateAliasParams{
				LocalQualifier:  al.LocalQualifier,
				GlobalQualifier: al.GlobalQualifier,
				ProjectID:       project.ID,
				FileID:          f.ID,
			}); err != nil {
				return fmt.Errorf("create alias %s: %w", al.LocalQualifier, err)
			}
		}
		return q.AdvanceFileStep(ctx, f.ID, models.StepReferences, f.Chunks)
	})
	if err != nil {
		return "", err
	}
	return models.StepReferences, nil
}

// runReferencesStage advances every file sitting at StepReferences to
// StepVector, resolving each raw reference its parser finds against the
// project's symbols and aliases.
func (p *Pipeline) runReferencesStage(ctx context.Context, project models.Project, renewal *lockRenewal) ([]string, error) {
	var advanced []string

	for {
		batch, err := p.store.ListFilesByStep(ctx, project.ID, models.StepReferences, p.cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("list references batch: %w", err)
		}
		if len(batch) == 0 {
			return advanced, nil
		}

		if err := renewal.maybeExtend(ctx); err != nil {
			return nil, fmt.Errorf("extend lock before references batch: %w", err)
		}

		results := make([]string, len(batch))
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(p.cfg.MaxWorkers)
		for i, f := range batch {
			i, f := i, f
			eg.Go(func() error {
				if err := p.processReferences(egCtx, project, f); err != nil {
					return fmt.Errorf("file %s: %w", f.Path, err)
				}
				results[i] = f.Path
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		for _, path := range results {
			if path != "" {
				advanced = append(advanced, path)
			}
		}
	}
}

func (p *Pipeline) processReferences(ctx context.Context, project models.Project, f models.File) error {
	lang := p.parsers.ForFile(f.Path)
	if lang == nil {
		return p.store.AdvanceFileStep(ctx, f.ID, models.StepVector, f.Chunks)
	}

	content, err := os.ReadFile(filepath.Join(project.RootPath, f.Path))
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	input := parser.FileInput{ProjectRoot: project.RootPath, Path: filepath.Join(project.RootPath, f.Path), Content: content}
	defs, err := lang.ExtractDefinitions(input)
	if err != nil {
		// a file that failed DEFINITIONS never reaches StepReferences, so a
		// failure re-parsing here means the file changed out from under us
		// mid-run; leave it for the next traversal to pick up.
		return fmt.Errorf("re-derive module qualifier: %w", err)
	}

	refs, err := lang.ExtractReferences(input, defs)
	if err != nil {
		return fmt.Errorf("extract references: %w", err)
	}

	for _, raw := range refs.References {
		source, err := p.findSymbol(ctx, project.ID, raw.SourceQualifier)
		if err != nil {
			return err
		}
		if source == nil {
			continue
		}
		target, err := p.resolver.Resolve(ctx, project.ID, raw.TargetQualifier)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", raw.TargetQualifier, err)
		}
		if target == nil {
			continue
		}
		if err := p.store.CreateReference(ctx, models.Reference{
			SourceID:   source.ID,
			TargetID:   target.ID,
			LineNumber: raw.Line,
		}); err != nil {
			return fmt.Errorf("create reference: %w", err)
		}
	}

	return p.store.AdvanceFileStep(ctx, f.ID, models.StepVector, f.Chunks)
}

func (p *Pipeline) findSymbol(ctx context.Context, projectID int64, qualifier string) (*models.Symbol, error) {
	sym, err := p.store.FindSymbolByQualifier(ctx, projectID, qualifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sym, nil
}

// runVectorStage advances every file sitting at StepVector to StepComplete,
// chunking its content and upserting the chunks into the vector store.
func (p *Pipeline) runVectorStage(ctx context.Context, project models.Project, renewal *lockRenewal) error {
	for {
		batch, err := p.store.ListFilesByStep(ctx, project.ID, models.StepVector, p.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("list vector batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		if err := renewal.maybeExtend(ctx); err != nil {
			return fmt.Errorf("extend lock before vector batch: %w", err)
		}

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(p.cfg.MaxWorkers)
		for _, f := range batch {
			f := f
			eg.Go(func() error {
				if err := p.processVector(egCtx, project, f); err != nil {
					return fmt.Errorf("file %s: %w", f.Path, err)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
}

func (p *Pipeline) processVector(ctx context.Context, project models.Project, f models.File) error {
	content, err := os.ReadFile(filepath.Join(project.RootPath, f.Path))
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	symbols, err := p.store.ListSymbolsByFile(ctx, f.ID)
	if err != nil {
		return fmt.Errorf("list symbols: %w", err)
	}

	chunks, err := p.chunker.Chunk(content, f.Language, symbols)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	for i := range chunks {
		chunks[i].FileID = f.ID
	}

	if err := p.vectors.DeleteByFile(ctx, f.ID); err != nil {
		return fmt.Errorf("delete prior chunks: %w", err)
	}
	if err := p.vectors.Upsert(ctx, project.ID, chunks); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	return p.store.AdvanceFileStep(ctx, f.ID, models.StepComplete, len(chunks))
}

// sweepRemovedFiles deletes every file whose last_indexed_at predates the
// run's start. The traversal touches every directory and unchanged
// completed file still on disk, and every other file is stamped when the
// stage loops advance it to StepComplete, so anything left unstamped is gone.
func (p *Pipeline) sweepRemovedFiles(ctx context.Context, project models.Project, startedAt time.Time) error {
	gone, err := p.store.ListFilesIndexedBefore(ctx, project.ID, startedAt)
	if err != nil {
		return fmt.Errorf("list removed files: %w", err)
	}
	if len(gone) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(gone))
	for i, f := range gone {
		ids[i] = f.ID
		if err := p.vectors.DeleteByFile(ctx, f.ID); err != nil {
			return fmt.Errorf("delete chunks for removed file %s: %w", f.Path, err)
		}
	}
	return p.store.DeleteFiles(ctx, ids)
}
