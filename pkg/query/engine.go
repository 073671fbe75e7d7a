// Package query implements the query engine: the five high-level
// operations the CLI exposes (info, names, lineage, family, families),
// each built from pkg/taxonomy term resolution plus pkg/fileset
// collation, emitting through pkg/emit. This is the only package that
// crosses files.
package query

import (
	"go.uber.org/zap"

	"github.com/famdb/famdb/internal/famerr"
	"github.com/famdb/famdb/pkg/fileset"
	"github.com/famdb/famdb/pkg/taxonomy"
)

// Engine is the query engine bound to one open file set.
type Engine struct {
	co  *fileset.Coordinator
	log *zap.Logger
}

// New binds a query engine to an already-open file set.
func New(co *fileset.Coordinator, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{co: co, log: log}
}

// resolveOne resolves term to a single unambiguous taxon id: one exact
// match wins; else a single partial
// match wins; otherwise the term is ambiguous (UserError with the
// candidate list) or matches nothing (UserError with a suggestion
// block).
func (e *Engine) resolveOne(term string) (int, error) {
	result := e.co.Taxonomy().Resolve(term)
	if id, ok := result.Unambiguous(); ok {
		return id, nil
	}
	if result.Empty() {
		return 0, e.suggestionError(term)
	}
	return 0, ambiguityError(term, result, e.co.Taxonomy())
}

func (e *Engine) suggestionError(term string) error {
	suggestions := e.co.Taxonomy().Suggest(term)
	err := famerr.User("no taxon matches %q", term).WithTerm(term)
	if len(suggestions) == 0 {
		return err
	}
	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		names = append(names, s.Name)
	}
	return err.WithHint("did you mean: " + joinStrings(names))
}

func ambiguityError(term string, result taxonomy.ResolveResult, idx *taxonomy.Index) error {
	candidates := result.Exact
	if len(candidates) == 0 {
		candidates = result.Partial
	}
	names := make([]string, 0, len(candidates))
	for _, id := range candidates {
		names = append(names, idx.DisplayName(id))
	}
	return famerr.User("ambiguous term %q", term).
		WithTerm(term).
		WithHint("candidates: " + joinStrings(names))
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
