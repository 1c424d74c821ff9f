package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Chunk is a semantic unit of text stored in the vector index. Its composite
// id is "<file_id>:<chunk_ordinal>".
type Chunk struct {
	FileID     uuid.UUID
	Ordinal    int
	Text       string
	TokenCount int
	SymbolIDs  []uuid.UUID
	Language   *string
}

// DocID returns the chunk's composite vector-store document id.
func (c Chunk) DocID() string {
	return fmt.Sprintf("%s:%d", c.FileID, c.Ordinal)
}
