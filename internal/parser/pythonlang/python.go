// Package pythonlang implements the sole language parser wired into the
// pipeline (spec §4.5): Python, via go-tree-sitter.
package pythonlang

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/codegraph-labs/codegraph/internal/parser"
)

// Parser implements parser.Parser for Python source files.
type Parser struct {
	lang *sitter.Language
}

func New() *Parser {
	return &Parser{lang: python.GetLanguage()}
}

func (p *Parser) Language() string { return "python" }

// moduleQualifier derives a file's module dotted-path from its location
// relative to the project root, dropping a trailing __init__ component so a
// package's __init__.py resolves to the package's own qualifier.
func moduleQualifier(projectRoot, path string) (string, error) {
	rel, err := filepath.Rel(projectRoot, path)
	if err != nil {
		return "", fmt.Errorf("relative module path: %w", err)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, "."), nil
}

// ExtractDefinitions parses input's syntax tree and returns its module,
// class and function nodes plus the aliases its imports introduce.
// tree-sitter represents malformed Python as ERROR nodes rather than failing
// outright, so a syntax error is detected explicitly via HasError and
// reported as an error rather than silently yielding a partial symbol set,
// mirroring the originating implementation's ast.parse -> SyntaxError ->
// early return (no module node, no symbols at all).
func (p *Parser) ExtractDefinitions(input parser.FileInput) (*parser.DefinitionResult, error) {
	moduleQual, err := moduleQualifier(input.ProjectRoot, input.Path)
	if err != nil {
		return nil, err
	}

	tsParser := sitter.NewParser()
	tsParser.SetLanguage(p.lang)
	tree, err := tsParser.ParseCtx(context.Background(), nil, input.Content)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	defer tree.Close()

	if tree.RootNode().HasError() {
		return nil, fmt.Errorf("parse python: syntax error in %s", input.Path)
	}

	result := &parser.DefinitionResult{ModuleQualifier: moduleQual}
	result.Symbols = append(result.Symbols, parser.DefinedSymbol{
		Name:            lastComponent(moduleQual),
		GlobalQualifier: moduleQual,
		Kind:            "module",
	})

	src := input.Content
	cursor := sitter.NewTreeCursor(tree.RootNode())
	defer cursor.Close()
	walkDefinitions(cursor, src, moduleQual, result)
	return result, nil
}

func lastComponent(qualifier string) string {
	parts := strings.Split(qualifier, ".")
	return parts[len(parts)-1]
}

func walkDefinitions(cursor *sitter.TreeCursor, src []byte, scope string, result *parser.DefinitionResult) {
	node := cursor.CurrentNode()

	switch node.Type() {
	case "function_definition":
		name := identifierText(node, src)
		if name == "" {
			return
		}
		qual := scope + "." + name
		result.Symbols = append(result.Symbols, parser.DefinedSymbol{
			Name:            name,
			GlobalQualifier: qual,
			Kind:            "function",
			Definition:      nodeText(node, src),
			StartLine:       int(node.StartPoint().Row) + 1,
			EndLine:         int(node.EndPoint().Row) + 1,
		})
		if body := childOfType(node, "block"); body != nil {
			bodyCursor := sitter.NewTreeCursor(body)
			defer bodyCursor.Close()
			walkDefinitions(bodyCursor, src, qual, result)
		}
		return

	case "class_definition":
		name := identifierText(node, src)
		if name == "" {
			return
		}
		qual := scope + "." + name
		result.Symbols = append(result.Symbols, parser.DefinedSymbol{
			Name:            name,
			GlobalQualifier: qual,
			Kind:            "class",
			Definition:      nodeText(node, src),
			StartLine:       int(node.StartPoint().Row) + 1,
			EndLine:         int(node.EndPoint().Row) + 1,
		})
		if body := childOfType(node, "block"); body != nil {
			bodyCursor := sitter.NewTreeCursor(body)
			defer bodyCursor.Close()
			walkDefinitions(bodyCursor, src, qual, result)
		}
		return

	case "import_statement":
		extractImportAliases(node, src, scope, result)
		return

	case "import_from_statement":
		extractImportFromAliases(node, src, scope, result)
		return
	}

	if cursor.GoToFirstChild() {
		walkDefinitions(cursor, src, scope, result)
		for cursor.GoToNextSibling() {
			walkDefinitions(cursor, src, scope, result)
		}
		cursor.GoToParent()
	}
}

// extractImportAliases handles "import foo", "import foo as bar",
// "import foo, bar.baz as qux".
func extractImportAliases(node *sitter.Node, src []byte, scope string, result *parser.DefinitionResult) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			global := nodeText(child, src)
			result.Aliases = append(result.Aliases, parser.DefinedAlias{
				LocalQualifier:  scope + "." + global,
				GlobalQualifier: global,
			})
		case "aliased_import":
			dotted := childOfType(child, "dotted_name")
			asName := lastIdentifier(child, src)
			if dotted == nil || asName == "" {
				continue
			}
			global := nodeText(dotted, src)
			result.Aliases = append(result.Aliases, parser.DefinedAlias{
				LocalQualifier:  scope + "." + asName,
				GlobalQualifier: global,
			})
		}
	}
}

// extractImportFromAliases handles "from foo.bar import baz", "from foo
// import baz as qux", and relative imports ("from . import foo",
// "from ..pkg import foo").
func extractImportFromAliases(node *sitter.Node, src []byte, scope string, result *parser.DefinitionResult) {
	var modulePrefix string
	if rel := childOfType(node, "relative_import"); rel != nil {
		modulePrefix = resolveRelativeImport(rel, src, scope)
	} else if dotted := childOfType(node, "dotted_name"); dotted != nil {
		modulePrefix = nodeText(dotted, src)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			if nodeText(child, src) == modulePrefix {
				continue // this is the module clause itself, not an imported name
			}
			name := nodeText(child, src)
			global := joinQualifier(modulePrefix, name)
			result.Aliases = append(result.Aliases, parser.DefinedAlias{
				LocalQualifier:  scope + "." + name,
				GlobalQualifier: global,
			})
		case "identifier":
			name := nodeText(child, src)
			global := joinQualifier(modulePrefix, name)
			result.Aliases = append(result.Aliases, parser.DefinedAlias{
				LocalQualifier:  scope + "." + name,
				GlobalQualifier: global,
			})
		case "aliased_import":
			inner := child.Child(0)
			asName := lastIdentifier(child, src)
			if inner == nil || asName == "" {
				continue
			}
			global := joinQualifier(modulePrefix, nodeText(inner, src))
			result.Aliases = append(result.Aliases, parser.DefinedAlias{
				LocalQualifier:  scope + "." + asName,
				GlobalQualifier: global,
			})
		}
	}
}

// resolveRelativeImport turns "." / ".." / ".pkg" style module clauses into
// an absolute qualifier by walking up from scope by the dot count, mirroring
// the originating implementation's level-based resolution.
func resolveRelativeImport(node *sitter.Node, src []byte, scope string) string {
	level := 0
	var tail string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "dotted_name" {
			tail = nodeText(child, src)
			continue
		}
		level += strings.Count(nodeText(child, src), ".")
	}

	parts := strings.Split(scope, ".")
	if level <= len(parts) {
		parts = parts[:len(parts)-level]
	} else {
		parts = nil
	}
	base := strings.Join(parts, ".")
	return joinQualifier(base, tail)
}

func joinQualifier(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	if suffix == "" {
		return prefix
	}
	return prefix + "." + suffix
}

// ExtractReferences re-walks input now that every file in the project has
// had a chance to run ExtractDefinitions, recording structural containment
// edges (module -> definition, enclosing scope -> definition) plus call and
// base-class references discovered in each scope's body.
func (p *Parser) ExtractReferences(input parser.FileInput, defs *parser.DefinitionResult) (*parser.ReferenceResult, error) {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(p.lang)
	tree, err := tsParser.ParseCtx(context.Background(), nil, input.Content)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	defer tree.Close()

	result := &parser.ReferenceResult{}
	src := input.Content
	cursor := sitter.NewTreeCursor(tree.RootNode())
	defer cursor.Close()
	walkReferences(cursor, src, defs.ModuleQualifier, defs.ModuleQualifier, result)
	return result, nil
}

func walkReferences(cursor *sitter.TreeCursor, src []byte, moduleQual, scope string, result *parser.ReferenceResult) {
	node := cursor.CurrentNode()

	switch node.Type() {
	case "function_definition", "class_definition":
		name := identifierText(node, src)
		if name == "" {
			break
		}
		qual := scope + "." + name
		line := int(node.StartPoint().Row) + 1
		result.References = append(result.References, parser.RawReference{
			SourceQualifier: moduleQual,
			TargetQualifier: qual,
			Line:            line,
		})
		if scope != moduleQual {
			result.References = append(result.References, parser.RawReference{
				SourceQualifier: scope,
				TargetQualifier: qual,
				Line:            line,
			})
		}
		if node.Type() == "class_definition" {
			if argList := childOfType(node, "argument_list"); argList != nil {
				for i := 0; i < int(argList.ChildCount()); i++ {
					base := argList.Child(i)
					if base.Type() == "identifier" || base.Type() == "attribute" {
						result.References = append(result.References, parser.RawReference{
							SourceQualifier: qual,
							TargetQualifier: nodeText(base, src),
							Line:            line,
						})
					}
				}
			}
		}
		if body := childOfType(node, "block"); body != nil {
			bodyCursor := sitter.NewTreeCursor(body)
			defer bodyCursor.Close()
			walkReferences(bodyCursor, src, moduleQual, qual, result)
		}
		return

	case "call":
		if node.ChildCount() == 0 {
			break
		}
		target := node.Child(0)
		if target.Type() == "identifier" || target.Type() == "attribute" {
			result.References = append(result.References, parser.RawReference{
				SourceQualifier: scope,
				TargetQualifier: nodeText(target, src),
				Line:            int(node.StartPoint().Row) + 1,
			})
		}
	}

	if cursor.GoToFirstChild() {
		walkReferences(cursor, src, moduleQual, scope, result)
		for cursor.GoToNextSibling() {
			walkReferences(cursor, src, moduleQual, scope, result)
		}
		cursor.GoToParent()
	}
}

func identifierText(node *sitter.Node, src []byte) string {
	if id := childOfType(node, "identifier"); id != nil {
		return nodeText(id, src)
	}
	return ""
}

func lastIdentifier(node *sitter.Node, src []byte) string {
	var last *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == "identifier" {
			last = child
		}
	}
	if last == nil {
		return ""
	}
	return nodeText(last, src)
}

func childOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == nodeType {
			return child
		}
	}
	return nil
}

func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}
