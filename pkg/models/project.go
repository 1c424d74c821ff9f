// Package models defines the shared data types of the code graph: projects,
// files, symbols, aliases, references, and vector chunks.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a tracked source tree rooted at an absolute filesystem path.
type Project struct {
	ID         int64
	Name       string
	RootPath   string
	Languages  []string
	RootFileID *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
