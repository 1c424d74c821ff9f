package models

import "github.com/google/uuid"

// Reference is a directed, line-annotated edge between two symbols.
// Primary key is (SourceID, TargetID, LineNumber).
type Reference struct {
	SourceID   uuid.UUID
	TargetID   uuid.UUID
	LineNumber int
}
