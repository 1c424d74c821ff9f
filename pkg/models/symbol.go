package models

import (
	"time"

	"github.com/google/uuid"
)

// IndexingStep is a file's position in the stage sequence
// DEFINITIONS -> REFERENCES -> VECTOR -> COMPLETE. Directories are always
// StepComplete. Wire values match spec §6.
type IndexingStep string

const (
	StepDefinitions IndexingStep = "definitions"
	StepReferences  IndexingStep = "references"
	StepVector      IndexingStep = "vector"
	StepComplete    IndexingStep = "complete"
)

// Next returns the stage that follows s, or s itself if already complete.
func (s IndexingStep) Next() IndexingStep {
	switch s {
	case StepDefinitions:
		return StepReferences
	case StepReferences:
		return StepVector
	case StepVector:
		return StepComplete
	default:
		return StepComplete
	}
}

// File is a node (directory or regular file) in a project's directory tree.
type File struct {
	ID            uuid.UUID
	Name          string
	Path          string
	Language      *string
	IndexingStep  IndexingStep
	Chunks        int
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ParentID      *uuid.UUID
	ProjectID     int64
}

// IsDir reports whether the row represents a directory.
func (f File) IsDir() bool {
	return f.Language == nil && f.IndexingStep == StepComplete
}

// SymbolKind classifies a Symbol (Node) definition.
type SymbolKind string

const (
	SymbolModule   SymbolKind = "module"
	SymbolFunction SymbolKind = "function"
	SymbolClass    SymbolKind = "class"
)

// Symbol (Node) is a named definition discovered by a parser.
type Symbol struct {
	ID              uuid.UUID
	Name            string
	GlobalQualifier string
	Definition      *string
	Kind            SymbolKind
	FileID          uuid.UUID
	ProjectID       int64
}

// Alias is a deferred name binding introduced by an import-like statement.
type Alias struct {
	LocalQualifier  string
	GlobalQualifier string
	ProjectID       int64
	FileID          uuid.UUID
}
