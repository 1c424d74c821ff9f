// Package resolver resolves a local qualifier to the symbol it names,
// following alias chains the way the originating implementation's
// _resolve_alias does (spec §4.6).
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/codegraph-labs/codegraph/internal/store/postgres"
	"github.com/codegraph-labs/codegraph/pkg/models"
)

// maxDepth bounds the alias chain a single resolution may follow. A cycle
// between two aliases would otherwise recurse forever; past this depth
// Resolve gives up and reports no match rather than erroring, since a cycle
// is a property of the indexed source, not a failure of resolution.
const maxDepth = 64

// Resolver resolves local qualifiers against a project's nodes and aliases.
type Resolver struct {
	queries *postgres.Queries
}

func New(queries *postgres.Queries) *Resolver {
	return &Resolver{queries: queries}
}

// Resolve finds the symbol that localQualifier refers to within projectID,
// rewriting through the longest matching alias prefix at each step. It
// returns (nil, nil) when no definition or alias can resolve the qualifier,
// and the same when maxDepth is exceeded.
func (r *Resolver) Resolve(ctx context.Context, projectID int64, localQualifier string) (*models.Symbol, error) {
	return r.resolve(ctx, projectID, localQualifier, 0)
}

func (r *Resolver) resolve(ctx context.Context, projectID int64, localQualifier string, depth int) (*models.Symbol, error) {
	if depth >= maxDepth {
		return nil, nil
	}

	alias, found, err := r.bestAlias(ctx, projectID, localQualifier)
	if err != nil {
		return nil, err
	}
	if found {
		suffix := strings.TrimPrefix(localQualifier, alias.LocalQualifier)
		suffix = strings.TrimPrefix(suffix, ".")
		newQualifier := alias.GlobalQualifier
		if suffix != "" {
			newQualifier = alias.GlobalQualifier + "." + suffix
		}
		return r.resolve(ctx, projectID, newQualifier, depth+1)
	}

	sym, err := r.queries.FindSymbolByQualifier(ctx, projectID, localQualifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find symbol %q: %w", localQualifier, err)
	}
	return &sym, nil
}

// bestAlias finds the alias whose local qualifier is the longest prefix of
// localQualifier, generating candidate prefixes longest-to-shortest and
// asking the store for whichever of them exist.
func (r *Resolver) bestAlias(ctx context.Context, projectID int64, localQualifier string) (models.Alias, bool, error) {
	prefixes := prefixesOf(localQualifier)
	if len(prefixes) == 0 {
		return models.Alias{}, false, nil
	}

	aliases, err := r.queries.ListAliasesByPrefixes(ctx, projectID, prefixes)
	if err != nil {
		return models.Alias{}, false, fmt.Errorf("list aliases for %q: %w", localQualifier, err)
	}
	if len(aliases) == 0 {
		return models.Alias{}, false, nil
	}

	// ListAliasesByPrefixes already orders by descending local_qualifier
	// length; the first row is the longest match.
	return aliases[0], true, nil
}

// prefixesOf returns every dotted prefix of qualifier, longest first:
// "a.b.c" -> ["a.b.c", "a.b", "a"].
func prefixesOf(qualifier string) []string {
	parts := strings.Split(qualifier, ".")
	prefixes := make([]string, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		prefixes = append(prefixes, strings.Join(parts[:i], "."))
	}
	return prefixes
}
