package taxonomy

import "sort"

// LineageNode is one node in an assembled lineage tree. Children are
// always in ascending-id order, giving every renderer a deterministic,
// byte-stable traversal.
type LineageNode struct {
	ID       int
	Children []*LineageNode
}

// Lineage assembles the ordered tree around id. When complete is false
// (the default), descendant edges are
// the value-collapsed projection (empty nodes skipped); when true, raw
// parent/child edges are used instead, walking every intermediate node
// including those with no families anywhere in the file set.
//
// The returned ancestor slice is root-first (index 0 is id 1); the
// returned tree's root is id itself with descendants attached per
// withDescendants.
func (idx *Index) Lineage(id int, withAncestors, withDescendants, complete bool) (ancestors []int, root *LineageNode) {
	if withAncestors {
		if complete {
			ancestors = idx.Ancestors(id)
		} else {
			ancestors = reversed(idx.ValueAncestors(id))
		}
	}

	root = &LineageNode{ID: id}
	if withDescendants {
		idx.attachChildren(root, complete, make(map[int]bool))
	}
	return ancestors, root
}

func (idx *Index) attachChildren(node *LineageNode, complete bool, visiting map[int]bool) {
	if visiting[node.ID] {
		return
	}
	visiting[node.ID] = true

	var childIDs []int
	if complete {
		childIDs = idx.rawChildrenSorted(node.ID)
	} else {
		childIDs = idx.ValueDescendants(node.ID)
	}

	for _, cid := range childIDs {
		child := &LineageNode{ID: cid}
		idx.attachChildren(child, complete, visiting)
		node.Children = append(node.Children, child)
	}
}

func (idx *Index) rawChildrenSorted(id int) []int {
	n, ok := idx.Node(id)
	if !ok {
		return nil
	}
	out := append([]int(nil), n.ChildrenIDs...)
	sort.Ints(out)
	return out
}

func reversed(ids []int) []int {
	out := make([]int, len(ids))
	for i, v := range ids {
		out[len(ids)-1-i] = v
	}
	return out
}

// FamilyPredicate decides whether an accession counts towards a filtered
// total. It is supplied by callers (pkg/query) that have decoded family
// metadata; taxonomy itself only knows accession strings, keeping this
// package decoupled from the family record type.
type FamilyPredicate func(accession string) bool

// CountFamilies returns the number of this node's own family
// accessions (in its owning partition) matching pred.
// A nil pred counts every accession on the node.
func (idx *Index) CountFamilies(id int, pred FamilyPredicate) int {
	n, ok := idx.Node(id)
	if !ok {
		return 0
	}
	if pred == nil {
		return len(n.FamilyAccessions)
	}
	count := 0
	for _, acc := range n.FamilyAccessions {
		if pred(acc) {
			count++
		}
	}
	return count
}

// FamilyAccessions returns the raw accession list owned by id's node,
// for callers assembling candidate sets before filtering.
func (idx *Index) FamilyAccessions(id int) []string {
	n, ok := idx.Node(id)
	if !ok {
		return nil
	}
	return append([]string(nil), n.FamilyAccessions...)
}
