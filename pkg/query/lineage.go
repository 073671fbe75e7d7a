package query

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/famdb/famdb/pkg/family"
	"github.com/famdb/famdb/pkg/taxonomy"
)

// LineageOptions carries the `lineage` subcommand's flags.
type LineageOptions struct {
	WithAncestors   bool
	WithDescendants bool
	IncludeEmpty    bool // -k: use raw edges (complete) instead of value-collapsed
	Curated         bool // -c
	Uncurated       bool // -u
	Format          string
}

func countPredicate(opt LineageOptions) taxonomy.FamilyPredicate {
	if !opt.Curated && !opt.Uncurated {
		return nil
	}
	return func(acc string) bool {
		curated := family.CuratedFromAccession(acc)
		if opt.Curated && curated {
			return true
		}
		if opt.Uncurated && !curated {
			return true
		}
		return false
	}
}

// Lineage implements the `lineage` subcommand: resolve to a single id,
// build the tree per the flags, and render in one of
// {pretty, semicolon, totals}.
func (e *Engine) Lineage(w io.Writer, term string, opt LineageOptions) error {
	id, err := e.resolveOne(term)
	if err != nil {
		return err
	}
	idx := e.co.Taxonomy()
	pred := countPredicate(opt)

	complete := opt.IncludeEmpty
	if opt.Format == "semicolon" {
		opt.WithAncestors = true
		complete = true
	}

	ancestors, root := idx.Lineage(id, opt.WithAncestors, opt.WithDescendants, complete)

	switch opt.Format {
	case "semicolon":
		return renderSemicolon(w, idx, ancestors, root)
	case "totals":
		return renderTotals(w, idx, ancestors, root, pred)
	default:
		return renderPretty(w, idx, ancestors, root, pred)
	}
}

func renderPretty(w io.Writer, idx *taxonomy.Index, ancestors []int, root *taxonomy.LineageNode, pred taxonomy.FamilyPredicate) error {
	chain := append(append([]int(nil), ancestors...), root.ID)
	for i, id := range chain {
		isLast := true // every ancestor has exactly one child (the next link); root is last iff it has no children
		if i == len(chain)-1 {
			isLast = len(root.Children) == 0
		}
		printLineageLine(w, idx, id, depthPrefix(i, isLast), pred)
	}

	printChildren(w, idx, root.Children, len(chain), pred)
	return nil
}

func printChildren(w io.Writer, idx *taxonomy.Index, children []*taxonomy.LineageNode, depth int, pred taxonomy.FamilyPredicate) {
	for i, child := range children {
		last := i == len(children)-1
		printLineageLine(w, idx, child.ID, depthPrefixBranch(depth, last), pred)
		printChildren(w, idx, child.Children, depth+1, pred)
	}
}

func depthPrefix(depth int, last bool) string {
	if depth == 0 {
		return ""
	}
	return strings.Repeat("  ", depth-1) + branchGlyph(last)
}

func depthPrefixBranch(depth int, last bool) string {
	return strings.Repeat("  ", depth-1) + branchGlyph(last)
}

func branchGlyph(last bool) string {
	if last {
		return "└─"
	}
	return "├─"
}

func printLineageLine(w io.Writer, idx *taxonomy.Index, id int, prefix string, pred taxonomy.FamilyPredicate) {
	partition, _ := idx.PartitionOf(id)
	count := idx.CountFamilies(id, pred)
	fmt.Fprintf(w, "%s%d %s(%d) [%d]\n", prefix, id, idx.DisplayName(id), partition, count)
}

// renderSemicolon expands every leaf of the (complete) tree to its full
// root-to-leaf path, one per line.
func renderSemicolon(w io.Writer, idx *taxonomy.Index, ancestors []int, root *taxonomy.LineageNode) error {
	base := append(append([]int(nil), ancestors...), root.ID)
	leaves := collectLeaves(root)
	for _, leaf := range leaves {
		path := append(append([]int(nil), base...), leaf...)
		names := make([]string, len(path))
		for i, id := range path {
			names[i] = idx.DisplayName(id)
		}
		fmt.Fprintln(w, strings.Join(names, ";"))
	}
	return nil
}

// collectLeaves returns, for every leaf beneath node, the chain of ids
// from node's first child down to that leaf (node.ID itself is not
// included; callers prepend it via base).
func collectLeaves(node *taxonomy.LineageNode) [][]int {
	if len(node.Children) == 0 {
		return [][]int{nil}
	}
	var out [][]int
	for _, child := range node.Children {
		for _, sub := range collectLeaves(child) {
			out = append(out, append([]int{child.ID}, sub...))
		}
	}
	return out
}

func renderTotals(w io.Writer, idx *taxonomy.Index, ancestors []int, root *taxonomy.LineageNode, pred taxonomy.FamilyPredicate) error {
	ancestralTotal := 0
	for _, id := range ancestors {
		ancestralTotal += idx.CountFamilies(id, pred)
	}

	lineageTotal := idx.CountFamilies(root.ID, pred)
	partitions := map[int]bool{}
	if p, ok := idx.PartitionOf(root.ID); ok && idx.CountFamilies(root.ID, pred) > 0 {
		partitions[p] = true
	}

	var walk func(n *taxonomy.LineageNode)
	walk = func(n *taxonomy.LineageNode) {
		for _, c := range n.Children {
			cnt := idx.CountFamilies(c.ID, pred)
			lineageTotal += cnt
			if cnt > 0 {
				if p, ok := idx.PartitionOf(c.ID); ok {
					partitions[p] = true
				}
			}
			walk(c)
		}
	}
	walk(root)

	for _, id := range ancestors {
		if idx.CountFamilies(id, pred) > 0 {
			if p, ok := idx.PartitionOf(id); ok {
				partitions[p] = true
			}
		}
	}

	plist := make([]int, 0, len(partitions))
	for p := range partitions {
		plist = append(plist, p)
	}
	sort.Ints(plist)

	parts := make([]string, len(plist))
	for i, p := range plist {
		parts[i] = fmt.Sprintf("%d", p)
	}

	fmt.Fprintf(w, "%d entries in ancestors; %d lineage-specific entries; found in partitions: %s;\n",
		ancestralTotal, lineageTotal, strings.Join(parts, ", "))
	return nil
}
