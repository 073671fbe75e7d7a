package query

import (
	"io"

	"github.com/famdb/famdb/pkg/emit"
	"github.com/famdb/famdb/pkg/family"
	"github.com/famdb/famdb/pkg/taxonomy"
)

// collectAllIDs flattens every node beneath (and including) node's
// children into a flat id list, for Families' candidate-taxa set.
func collectAllIDs(node *taxonomy.LineageNode) []int {
	var out []int
	for _, child := range node.Children {
		out = append(out, child.ID)
		out = append(out, collectAllIDs(child)...)
	}
	return out
}

// FamiliesOptions carries the `families` subcommand's flags.
type FamiliesOptions struct {
	WithAncestors      bool
	WithDescendants    bool
	Filters            Filters
	Format             string
	ReverseComplement  bool
	IncludeClassInName bool
}

// Families implements the `families` subcommand: resolve the term,
// expand the lineage per -a/-d, collect candidate accessions via the
// ByTaxon union, apply the filter pipeline, and stream each surviving
// family through the requested renderer in accession order.
// Emission is streamed family-by-family rather than buffered, so a
// large result set never holds every decoded family in memory at once.
func (e *Engine) Families(w io.Writer, term string, opt FamiliesOptions) error {
	id, err := e.resolveOne(term)
	if err != nil {
		return err
	}

	renderer, err := emit.Lookup(opt.Format)
	if err != nil {
		return err
	}

	idx := e.co.Taxonomy()
	taxa := []int{id}
	if opt.WithAncestors {
		taxa = append(taxa, idx.ValueAncestors(id)...)
	}
	if opt.WithDescendants {
		_, root := idx.Lineage(id, false, true, false)
		taxa = append(taxa, collectAllIDs(root)...)
	}

	ctx := emit.Context{
		Clade:              id,
		Taxonomy:           idx,
		ReverseComplement:  opt.ReverseComplement,
		IncludeClassInName: opt.IncludeClassInName,
	}

	err = e.co.StreamFamiliesForTaxa(taxa, opt.Filters.Build(), func(fam *family.Family) error {
		return renderer.Render(w, fam, ctx)
	})
	if err != nil {
		return err
	}

	for _, warning := range e.co.Warnings() {
		e.log.Sugar().Warnf("%s", warning)
	}
	return nil
}
