package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/codegraph-labs/codegraph/internal/store/postgres"
	"github.com/codegraph-labs/codegraph/pkg/models"
)

// traverse walks the project's root directory, upserting a File row for
// every directory and every indexed file it finds. A file whose mtime is
// newer than its last_indexed_at (or that is new entirely) is reset to
// StepDefinitions so the later stages reprocess it; everything else is left
// at its existing step.
func (p *Pipeline) traverse(ctx context.Context, project models.Project, startedAt time.Time, renewal *lockRenewal) ([]string, error) {
	skipDir, err := regexp.Compile(p.cfg.DirectorySkipPattern)
	if err != nil {
		return nil, fmt.Errorf("compile directory skip pattern: %w", err)
	}

	if project.RootFileID != nil {
		if err := p.store.AdvanceFileStep(ctx, *project.RootFileID, models.StepComplete, 0); err != nil {
			return nil, fmt.Errorf("touch root file: %w", err)
		}
	}

	parentOf := map[string]*uuid.UUID{".": project.RootFileID}
	languages := map[string]bool{}

	walkErr := filepath.WalkDir(project.RootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(project.RootPath, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil // root directory already has its File row from CreateProject
		}

		if d.IsDir() {
			if skipDir.MatchString(d.Name()) {
				return filepath.SkipDir
			}
		} else {
			ext := filepath.Ext(path)
			if !p.cfg.IndexedExtensions[ext] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if info.Size() > p.cfg.MaxFilesizeBytes {
				return nil
			}
		}

		if err := renewal.maybeExtend(ctx); err != nil {
			return fmt.Errorf("extend lock during traversal: %w", err)
		}

		parentKey := filepath.Dir(rel)
		parentID := parentOf[parentKey]

		existing, getErr := p.store.GetFileByPath(ctx, project.ID, rel)
		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}

		var language *string
		if !d.IsDir() {
			if lang, ok := p.cfg.LanguageExtensions[filepath.Ext(path)]; ok {
				language = &lang
			}
		}

		step := models.StepDefinitions
		fileID := uuid.New()
		createdAt := info.ModTime()
		if getErr == nil {
			fileID = existing.ID
			createdAt = existing.CreatedAt
			if d.IsDir() {
				step = models.StepComplete
			} else if !info.ModTime().After(existing.LastIndexedAt) {
				step = existing.IndexingStep
			}
		} else if d.IsDir() {
			step = models.StepComplete
		}

		f, err := p.store.UpsertFile(ctx, postgres.UpsertFileParams{
			ID:           fileID,
			ProjectID:    project.ID,
			Name:         d.Name(),
			Path:         rel,
			Language:     language,
			IndexingStep: step,
			ParentID:     parentID,
			CreatedAt:    createdAt,
			UpdatedAt:    startedAt,
		})
		if err != nil {
			return fmt.Errorf("upsert file %s: %w", rel, err)
		}

		if f.IndexingStep == models.StepComplete {
			// directory, or unchanged file already past VECTOR: touch
			// last_indexed_at so the removed-file sweep doesn't mistake a
			// path still present on disk for something deleted. Directories
			// never advance through the stage loops, so without this they
			// would never get a fresh last_indexed_at and every subdirectory
			// would look removed at the end of every run.
			if err := p.store.AdvanceFileStep(ctx, f.ID, models.StepComplete, f.Chunks); err != nil {
				return fmt.Errorf("touch file %s: %w", rel, err)
			}
		}

		if d.IsDir() {
			parentOf[rel] = &f.ID
		} else if language != nil {
			languages[*language] = true
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	langs := make([]string, 0, len(languages))
	for l := range languages {
		langs = append(langs, l)
	}
	return langs, nil
}
