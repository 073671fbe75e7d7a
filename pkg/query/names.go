package query

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/famdb/famdb/pkg/taxonomy"
)

// namesNameJSON and namesEntryJSON give the `names -f json` output its
// documented shape: `[{id, names:[{kind,text}]}]`.
type namesNameJSON struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type namesEntryJSON struct {
	ID    int             `json:"id"`
	Names []namesNameJSON `json:"names"`
}

// Names implements the `names` subcommand: resolve the term and print
// the exact and non-exact blocks (pretty) or the full list as JSON.
// Unlike lineage and families, names never requires an unambiguous
// resolution; it returns both lists.
func (e *Engine) Names(w io.Writer, term, format string) error {
	result := e.co.Taxonomy().Resolve(term)

	if format == "json" {
		ids := append(append([]int(nil), result.Exact...), result.Partial...)
		entries := make([]namesEntryJSON, 0, len(ids))
		for _, id := range ids {
			entries = append(entries, toNamesEntry(e.co.Taxonomy(), id))
		}
		enc := json.NewEncoder(w)
		return enc.Encode(entries)
	}

	if result.Empty() {
		return e.suggestionError(term)
	}

	if len(result.Exact) > 0 {
		fmt.Fprintln(w, "Exact matches:")
		for _, id := range result.Exact {
			printNameLine(w, e.co.Taxonomy(), id)
		}
	}
	if len(result.Partial) > 0 {
		fmt.Fprintln(w, "Non-exact matches:")
		for _, id := range result.Partial {
			printNameLine(w, e.co.Taxonomy(), id)
		}
	}
	return nil
}

func toNamesEntry(idx *taxonomy.Index, id int) namesEntryJSON {
	var names []namesNameJSON
	for _, n := range idx.Names(id) {
		names = append(names, namesNameJSON{Kind: string(n.Kind), Text: n.Text})
	}
	return namesEntryJSON{ID: id, Names: names}
}

func printNameLine(w io.Writer, idx *taxonomy.Index, id int) {
	fmt.Fprintf(w, "  %d %s\n", id, idx.DisplayName(id))
}
