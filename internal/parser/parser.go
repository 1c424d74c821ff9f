// Package parser defines the per-language contract used by the DEFINITIONS
// and REFERENCES pipeline stages (spec §4.5).
package parser

// FileInput is a single file handed to a language parser.
type FileInput struct {
	// ProjectRoot is the absolute path the project is rooted at, used to
	// derive a file's module qualifier.
	ProjectRoot string
	// Path is the file's absolute path on disk.
	Path string
	Content []byte
}

// DefinedSymbol is a definition discovered while walking a file's syntax
// tree: a module, class, or function/method, named by its global qualifier
// (spec §4.5's scope-qualified naming).
type DefinedSymbol struct {
	Name            string
	GlobalQualifier string
	Kind            string // "module", "class", or "function"
	Definition      string // source snippet backing the node, empty for synthetic module nodes
	StartLine       int
	EndLine         int
}

// DefinedAlias is a deferred name binding introduced by an import-like
// statement: a local qualifier (as it would be referenced from inside the
// importing module) mapped to the global qualifier it should ultimately
// resolve to once the target module is itself indexed.
type DefinedAlias struct {
	LocalQualifier  string
	GlobalQualifier string
}

// DefinitionResult is everything the DEFINITIONS stage extracts from one
// file: a module-scoped symbol tree and the aliases its imports introduce.
type DefinitionResult struct {
	ModuleQualifier string
	Symbols         []DefinedSymbol
	Aliases         []DefinedAlias
}

// RawReference is an unresolved edge discovered by the REFERENCES stage: a
// use of TargetQualifier (which may itself require alias resolution) from
// inside the symbol named by SourceQualifier, at Line.
type RawReference struct {
	SourceQualifier string
	TargetQualifier string
	Line            int
}

// ReferenceResult is everything the REFERENCES stage extracts from one file.
type ReferenceResult struct {
	References []RawReference
}

// Parser is implemented by each supported language.
type Parser interface {
	// Language is the value stored on File.Language for files this parser
	// handles.
	Language() string

	// ExtractDefinitions parses input and returns its module, class and
	// function nodes plus the aliases its imports introduce. A syntax error
	// is reported through err; the caller still advances the file past the
	// DEFINITIONS stage with no symbols created (spec §4.5 edge case).
	ExtractDefinitions(input FileInput) (*DefinitionResult, error)

	// ExtractReferences re-walks input, now that every file in the project
	// has had a chance to run ExtractDefinitions, and returns the edges
	// originating in this file.
	ExtractReferences(input FileInput, defs *DefinitionResult) (*ReferenceResult, error)
}
