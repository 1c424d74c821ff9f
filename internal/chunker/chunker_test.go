package chunker

import (
	"testing"

	"github.com/codegraph-labs/codegraph/internal/config"
)

func TestPack_RespectsChunkSizeAndOverlap(t *testing.T) {
	c := &Chunker{chunkSize: 4, chunkOverlap: 2}
	units := []string{"one two", "three four", "five six", "seven eight"}

	spans := c.pack(units)
	if len(spans) < 2 {
		t.Fatalf("expected multiple spans for a small chunk size, got %d: %v", len(spans), spans)
	}
	// The second span is seeded with the first span's last unit (2 tokens,
	// within the overlap of 2).
	if want := "three four\n\nfive six"; spans[1] != want {
		t.Fatalf("spans[1] = %q, want %q", spans[1], want)
	}
}

func TestChunk_NoSymbolTableResolvesNoIDs(t *testing.T) {
	c := New(config.IndexingConfig{ChunkSize: 800, ChunkOverlap: 80})
	chunks, err := c.Chunk([]byte("def helper():\n    return 1\n"), strPtr("python"), nil)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatalf("expected at least one chunk")
	}
	// With no symbols supplied, matchSymbolIDs has nothing to resolve against.
	if len(chunks[0].SymbolIDs) != 0 {
		t.Fatalf("expected no resolved symbol ids without a symbol table, got %v", chunks[0].SymbolIDs)
	}
}

func strPtr(s string) *string { return &s }
