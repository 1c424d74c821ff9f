package pythonlang

import (
	"testing"

	"github.com/codegraph-labs/codegraph/internal/parser"
)

func assertHasSymbol(t *testing.T, symbols []parser.DefinedSymbol, qualifier, kind string) {
	t.Helper()
	for _, s := range symbols {
		if s.GlobalQualifier == qualifier && s.Kind == kind {
			return
		}
	}
	t.Fatalf("expected symbol %s (%s), got %v", qualifier, kind, symbols)
}

func assertNoSymbol(t *testing.T, symbols []parser.DefinedSymbol, qualifier string) {
	t.Helper()
	for _, s := range symbols {
		if s.GlobalQualifier == qualifier {
			t.Fatalf("expected no symbol %s, got %v", qualifier, symbols)
		}
	}
}

func assertHasAlias(t *testing.T, aliases []parser.DefinedAlias, local, global string) {
	t.Helper()
	for _, a := range aliases {
		if a.LocalQualifier == local && a.GlobalQualifier == global {
			return
		}
	}
	t.Fatalf("expected alias %s -> %s, got %v", local, global, aliases)
}

// TestBasicTree mirrors the spec's "basic tree" scenario: file.py defines a
// function, a class with an __init__ and a method, and a nested function
// with its own nested class.
func TestBasicTree(t *testing.T) {
	src := `
def simple_fn():
    pass


class SimpleClass:
    def __init__(self):
        pass

    def simple_method(self):
        pass


def outer_fn():
    def inner_fn():
        pass

    class InnerClass:
        pass

    return inner_fn


class OuterClass:
    class InnerClass:
        pass
`
	p := New()
	result, err := p.ExtractDefinitions(parser.FileInput{
		ProjectRoot: "/proj",
		Path:        "/proj/file.py",
		Content:     []byte(src),
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.ModuleQualifier != "file" {
		t.Fatalf("module qualifier = %q, want %q", result.ModuleQualifier, "file")
	}

	want := []string{
		"file",
		"file.simple_fn",
		"file.SimpleClass",
		"file.SimpleClass.__init__",
		"file.SimpleClass.simple_method",
		"file.outer_fn",
		"file.outer_fn.inner_fn",
		"file.outer_fn.InnerClass",
		"file.OuterClass",
		"file.OuterClass.InnerClass",
	}
	for _, q := range want {
		assertHasSymbol(t, result.Symbols, q, kindOf(q))
	}
	if len(result.Symbols) != len(want) {
		t.Fatalf("got %d symbols, want %d: %v", len(result.Symbols), len(want), result.Symbols)
	}
}

func kindOf(qualifier string) string {
	switch qualifier {
	case "file":
		return "module"
	case "file.simple_fn", "file.SimpleClass.__init__", "file.SimpleClass.simple_method",
		"file.outer_fn", "file.outer_fn.inner_fn":
		return "function"
	default:
		return "class"
	}
}

func TestModuleQualifierDropsInitLeaf(t *testing.T) {
	q, err := moduleQualifier("/proj", "/proj/pkg/__init__.py")
	if err != nil {
		t.Fatal(err)
	}
	if q != "pkg" {
		t.Fatalf("module qualifier = %q, want %q", q, "pkg")
	}
}

// TestImports mirrors the spec's "imports" scenario across the alias
// construction table in §4.5.1.
func TestImports(t *testing.T) {
	src := `
import file2
import module2.file4 as f4
import module1.func3a as f3a
from module1.file3 import Class3a, func4a
`
	p := New()
	result, err := p.ExtractDefinitions(parser.FileInput{
		ProjectRoot: "/proj",
		Path:        "/proj/file1.py",
		Content:     []byte(src),
	})
	if err != nil {
		t.Fatal(err)
	}

	assertHasAlias(t, result.Aliases, "file1.file2", "file2")
	assertHasAlias(t, result.Aliases, "file1.f4", "module2.file4")
	assertHasAlias(t, result.Aliases, "file1.f3a", "module1.func3a")
	assertHasAlias(t, result.Aliases, "file1.Class3a", "module1.file3.Class3a")
	assertHasAlias(t, result.Aliases, "file1.func4a", "module1.file3.func4a")
}

func TestAliasedFromImport(t *testing.T) {
	src := "from module1 import func4 as func4a\n"
	p := New()
	result, err := p.ExtractDefinitions(parser.FileInput{
		ProjectRoot: "/proj",
		Path:        "/proj/file1.py",
		Content:     []byte(src),
	})
	if err != nil {
		t.Fatal(err)
	}
	assertHasAlias(t, result.Aliases, "file1.func4a", "module1.func4")
}

func TestRelativeImport(t *testing.T) {
	src := "from ..pkg import thing\n"
	p := New()
	result, err := p.ExtractDefinitions(parser.FileInput{
		ProjectRoot: "/proj",
		Path:        "/proj/a/b/file1.py",
		Content:     []byte(src),
	})
	if err != nil {
		t.Fatal(err)
	}
	// scope is "a.b.file1"; level 2 climbs past file1 and b, landing at "a".
	assertHasAlias(t, result.Aliases, "a.b.file1.thing", "a.pkg.thing")
}

// TestEmptyFileYieldsOnlyModuleSymbol covers the boundary case of an empty
// source file: no definitions, but the module symbol still exists.
func TestEmptyFileYieldsOnlyModuleSymbol(t *testing.T) {
	p := New()
	result, err := p.ExtractDefinitions(parser.FileInput{
		ProjectRoot: "/proj",
		Path:        "/proj/empty.py",
		Content:     []byte(""),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Symbols) != 1 {
		t.Fatalf("expected only the module symbol, got %v", result.Symbols)
	}
	assertNoSymbol(t, result.Symbols, "empty.anything")
}

// TestExtractReferencesContainmentEdges checks that the module-to-definition
// and enclosing-scope-to-child containment edges spec §4.5 requires are
// produced, alongside a call reference.
func TestExtractReferencesContainmentEdges(t *testing.T) {
	src := `
def simple_fn():
    pass


def caller():
    simple_fn()
`
	p := New()
	defs, err := p.ExtractDefinitions(parser.FileInput{
		ProjectRoot: "/proj",
		Path:        "/proj/file.py",
		Content:     []byte(src),
	})
	if err != nil {
		t.Fatal(err)
	}
	refs, err := p.ExtractReferences(parser.FileInput{
		ProjectRoot: "/proj",
		Path:        "/proj/file.py",
		Content:     []byte(src),
	}, defs)
	if err != nil {
		t.Fatal(err)
	}

	foundContainment := false
	foundCall := false
	for _, r := range refs.References {
		if r.SourceQualifier == "file" && r.TargetQualifier == "file.simple_fn" {
			foundContainment = true
		}
		if r.SourceQualifier == "file.caller" && r.TargetQualifier == "simple_fn" {
			foundCall = true
		}
	}
	if !foundContainment {
		t.Fatalf("expected module->simple_fn containment edge, got %v", refs.References)
	}
	if !foundCall {
		t.Fatalf("expected caller->simple_fn call edge, got %v", refs.References)
	}
}
