// Package chunker splits a file's text into the semantic units persisted to
// the vector store (spec §4.4). Python files are split along top-level
// statement boundaries using a fresh tree-sitter parse; every other indexed
// file falls back to a paragraph-oriented splitter. Both respect a token
// budget and resolve a chunk's identifiers against symbols defined in the
// same file only — the originating implementation's chunker (chonkie's
// CodeChunker, wrapped by its own _find_node_ids) makes the identical
// same-file-only tradeoff.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/google/uuid"

	"github.com/codegraph-labs/codegraph/internal/config"
	"github.com/codegraph-labs/codegraph/pkg/models"
)

// identifierPattern pulls every identifier-shaped token out of a chunk's
// text, the same regex-over-rendered-text shortcut the original chunker
// uses instead of re-parsing each chunk. The original hints on all
// identifier nodes plus def/class names, not def/class alone, so a chunk
// that merely calls or references a symbol (rather than defining it) still
// resolves that symbol's id.
var identifierPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Chunker splits file content into token-bounded chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	pyLang       *sitter.Language
}

func New(cfg config.IndexingConfig) *Chunker {
	return &Chunker{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		pyLang:       python.GetLanguage(),
	}
}

// Chunk splits content into chunks, resolving each chunk's identifiers
// against symbols (every symbol already persisted for this file) by name.
// language is nil for files with no registered parser.
func (c *Chunker) Chunk(content []byte, language *string, symbols []models.Symbol) ([]models.Chunk, error) {
	var spans []string
	if language != nil && *language == "python" {
		var err error
		spans, err = c.pythonSpans(content)
		if err != nil {
			return nil, err
		}
	} else {
		spans = c.paragraphSpans(string(content))
	}

	byName := make(map[string][]models.Symbol, len(symbols))
	for _, s := range symbols {
		byName[s.Name] = append(byName[s.Name], s)
	}

	chunks := make([]models.Chunk, 0, len(spans))
	for i, text := range spans {
		chunks = append(chunks, models.Chunk{
			Ordinal:    i,
			Text:       text,
			TokenCount: tokenEstimate(text),
			SymbolIDs:  matchSymbolIDs(text, byName),
			Language:   language,
		})
	}
	return chunks, nil
}

// pythonSpans splits content along top-level module statements, grouping
// consecutive statements into a span until adding the next one would exceed
// chunkSize tokens, then backing the next span up by chunkOverlap tokens'
// worth of trailing statements.
func (c *Chunker) pythonSpans(content []byte) ([]string, error) {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(c.pyLang)
	tree, err := tsParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse python for chunking: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var stmts []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		stmts = append(stmts, string(content[child.StartByte():child.EndByte()]))
	}
	if len(stmts) == 0 {
		return c.paragraphSpans(string(content)), nil
	}
	return c.pack(stmts), nil
}

// paragraphSpans is the fallback splitter for files with no registered
// parser: blank-line-delimited paragraphs packed against the token budget.
func (c *Chunker) paragraphSpans(text string) []string {
	raw := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}
	return c.pack(paragraphs)
}

// pack greedily groups units into spans bounded by chunkSize tokens, each
// new span seeded with the last chunkOverlap tokens' worth of the prior
// span's trailing units so a symbol spanning a boundary stays retrievable
// from either side.
func (c *Chunker) pack(units []string) []string {
	var spans []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		spans = append(spans, strings.Join(current, "\n\n"))
	}

	for _, u := range units {
		t := tokenEstimate(u)
		if currentTokens > 0 && currentTokens+t > c.chunkSize {
			flush()
			current = overlapTail(current, c.chunkOverlap)
			currentTokens = tokenEstimate(strings.Join(current, "\n\n"))
		}
		current = append(current, u)
		currentTokens += t
	}
	flush()
	return spans
}

// overlapTail keeps trailing units from prev whose combined token count is
// at most overlap, seeding the next span's context.
func overlapTail(prev []string, overlap int) []string {
	var tail []string
	tokens := 0
	for i := len(prev) - 1; i >= 0; i-- {
		t := tokenEstimate(prev[i])
		if tokens+t > overlap {
			break
		}
		tail = append([]string{prev[i]}, tail...)
		tokens += t
	}
	return tail
}

func tokenEstimate(s string) int {
	return len(strings.Fields(s))
}

// matchSymbolIDs resolves every identifier token appearing in text against
// byName, a same-file-only lookup built from this file's own symbols.
func matchSymbolIDs(text string, byName map[string][]models.Symbol) []uuid.UUID {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, tok := range identifierPattern.FindAllString(text, -1) {
		for _, sym := range byName[tok] {
			if !seen[sym.ID] {
				seen[sym.ID] = true
				ids = append(ids, sym.ID)
			}
		}
	}
	return ids
}
