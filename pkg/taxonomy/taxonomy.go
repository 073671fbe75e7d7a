// Package taxonomy implements the NCBI-derived taxonomy index: an arena
// of taxon nodes, parent/child and value-parent/value-child edges
// stored as id references rather than pointers (no cyclic ownership),
// name resolution, lineage assembly and the edit-distance suggestion
// fallback.
package taxonomy

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/famdb/famdb/internal/famerr"
)

// NameKind enumerates the kinds of name a taxon can carry.
type NameKind string

const (
	NameScientific    NameKind = "scientific"
	NameCommon        NameKind = "common"
	NameGenBankCommon NameKind = "genbank common"
	NameSynonym       NameKind = "synonym"
	NameAuthority     NameKind = "authority"
	NameIncludes      NameKind = "includes"
	NameEquivalent    NameKind = "equivalent"
)

// Name is one {kind, text} pair attached to a taxon.
type Name struct {
	Kind NameKind
	Text string
}

// Node is one taxonomy node's full data, as loaded from a file set.
type Node struct {
	ID               int
	Names            []Name
	ParentID         int
	ChildrenIDs      []int
	Partition        int
	FamilyAccessions []string // only populated in the partition that owns this node
}

// Index is the taxonomy arena: built once on open, read many times,
// immutable after build.
type Index struct {
	mu sync.RWMutex

	nodes         map[int]Node
	valueParent   map[int]int
	valueChildren map[int][]int

	// namesToIDs is the eagerly-loaded, hot name -> taxon-id map.
	namesToIDs map[string][]int
}

// Build constructs an Index from the full set of taxon nodes across
// every partition. It assumes every ChildrenIDs/ParentID edge given is
// consistent (root's ParentID is 0 for id 1).
func Build(nodes []Node) (*Index, error) {
	idx := &Index{
		nodes:      make(map[int]Node, len(nodes)),
		namesToIDs: make(map[string][]int),
	}

	for _, n := range nodes {
		idx.nodes[n.ID] = n
		for _, name := range n.Names {
			key := normalize(name.Text)
			idx.namesToIDs[key] = append(idx.namesToIDs[key], n.ID)
		}
	}

	if _, ok := idx.nodes[1]; !ok {
		return nil, famerr.Data("taxonomy: no root node (id 1) present")
	}

	for id := range idx.nodes {
		if err := idx.checkTerminates(id); err != nil {
			return nil, err
		}
	}

	idx.buildValueEdges()

	for key := range idx.namesToIDs {
		sort.Ints(idx.namesToIDs[key])
	}

	return idx, nil
}

func (idx *Index) checkTerminates(id int) error {
	seen := make(map[int]bool)
	cur := id
	for {
		if cur == 1 {
			return nil
		}
		if seen[cur] {
			return famerr.Data("taxonomy: cycle detected reaching id %d", id)
		}
		seen[cur] = true
		n, ok := idx.nodes[cur]
		if !ok {
			return famerr.Data("taxonomy: dangling parent reference from id %d", cur)
		}
		if n.ParentID == cur {
			return famerr.Data("taxonomy: self-parented node id %d", cur)
		}
		cur = n.ParentID
	}
}

// buildValueEdges computes the nearest-data-bearing-ancestor/descendant
// projection: nearest data-bearing relatives only, not all of them.
func (idx *Index) buildValueEdges() {
	idx.valueParent = make(map[int]int, len(idx.nodes))
	idx.valueChildren = make(map[int][]int, len(idx.nodes))

	hasFamilies := func(id int) bool {
		return len(idx.nodes[id].FamilyAccessions) > 0
	}

	var nearestValueAncestor func(id int) int
	nearestValueAncestor = func(id int) int {
		if hasFamilies(id) {
			return id
		}
		n := idx.nodes[id]
		if n.ID == 1 {
			return id
		}
		return nearestValueAncestor(n.ParentID)
	}

	for id := range idx.nodes {
		if id == 1 {
			idx.valueParent[id] = id
			continue
		}
		idx.valueParent[id] = nearestValueAncestor(idx.nodes[id].ParentID)
	}

	// value_children: the nearest data-bearing descendants, transitively
	// skipping empty nodes. A node n has v as a value-child iff walking
	// up from v via valueParent-eligible ancestors (raw parent chain,
	// skipping non-data-bearing nodes) reaches n without passing through
	// another data-bearing node first.
	for id, n := range idx.nodes {
		if !hasFamilies(id) {
			continue
		}
		anc := idx.nearestValueAncestorExclusive(n.ID)
		if anc != 0 {
			idx.valueChildren[anc] = append(idx.valueChildren[anc], id)
		}
	}
	for id := range idx.valueChildren {
		sort.Ints(idx.valueChildren[id])
	}
}

// nearestValueAncestorExclusive walks up from id's parent (not id
// itself) to find the nearest data-bearing ancestor, returning 0 if none
// exists (id is the root or the root itself is not data-bearing and has
// no data-bearing ancestor, which cannot happen since root always
// terminates the walk).
func (idx *Index) nearestValueAncestorExclusive(id int) int {
	n, ok := idx.nodes[id]
	if !ok || n.ID == 1 {
		return 0
	}
	cur := n.ParentID
	for {
		if len(idx.nodes[cur].FamilyAccessions) > 0 {
			return cur
		}
		if cur == 1 {
			return 1
		}
		cur = idx.nodes[cur].ParentID
	}
}

// Node returns the node with the given id.
func (idx *Index) Node(id int) (Node, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n, ok := idx.nodes[id]
	return n, ok
}

// PartitionOf returns the partition number that owns id's node.
func (idx *Index) PartitionOf(id int) (int, bool) {
	n, ok := idx.Node(id)
	if !ok {
		return 0, false
	}
	return n.Partition, true
}

// Ancestors returns id's ancestors via raw parent edges, root-first,
// not including id itself.
func (idx *Index) Ancestors(id int) []int {
	var out []int
	cur, ok := idx.Node(id)
	if !ok {
		return nil
	}
	for cur.ID != 1 {
		cur, ok = idx.Node(cur.ParentID)
		if !ok {
			break
		}
		out = append(out, cur.ID)
	}
	reverse(out)
	return out
}

// Descendants returns all ids reachable from id via raw children edges,
// not including id itself, in pre-order.
func (idx *Index) Descendants(id int) []int {
	var out []int
	idx.walkChildren(id, func(n Node) { out = append(out, n.ID) })
	return out
}

func (idx *Index) walkChildren(id int, visit func(Node)) {
	n, ok := idx.Node(id)
	if !ok {
		return
	}
	children := append([]int(nil), n.ChildrenIDs...)
	sort.Ints(children)
	for _, c := range children {
		cn, ok := idx.Node(c)
		if !ok {
			continue
		}
		visit(cn)
		idx.walkChildren(c, visit)
	}
}

// ValueAncestors returns id's value-collapsed ancestors, nearest first.
func (idx *Index) ValueAncestors(id int) []int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []int
	cur := id
	for {
		p, ok := idx.valueParent[cur]
		if !ok || p == cur {
			break
		}
		out = append(out, p)
		cur = p
	}
	return out
}

// ValueDescendants returns id's nearest data-bearing descendants
// (transitively skipping empty nodes), in ascending id order.
//
// The global valueChildren projection only ever assigns a data-bearing
// node to the nearest data-bearing (or root) ancestor above it, so a
// barren, non-root id is never anyone's recorded parent there: it was
// elided from the collapsed tree entirely, the same as any other empty
// node. Querying descendants AT that barren id still needs an answer,
// so this falls back to a direct walk of its raw children.
func (idx *Index) ValueDescendants(id int) []int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if id == 1 || len(idx.nodes[id].FamilyAccessions) > 0 {
		return append([]int(nil), idx.valueChildren[id]...)
	}
	out := idx.nearestDataBearingDescendants(id)
	sort.Ints(out)
	return out
}

// nearestDataBearingDescendants walks the raw child tree beneath a
// barren id, collecting the first data-bearing node found along each
// branch without descending past it.
func (idx *Index) nearestDataBearingDescendants(id int) []int {
	var out []int
	n, ok := idx.nodes[id]
	if !ok {
		return nil
	}
	children := append([]int(nil), n.ChildrenIDs...)
	sort.Ints(children)
	for _, c := range children {
		if len(idx.nodes[c].FamilyAccessions) > 0 {
			out = append(out, c)
		} else {
			out = append(out, idx.nearestDataBearingDescendants(c)...)
		}
	}
	return out
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	fields := strings.Fields(s)
	return strings.ToLower(strings.Join(fields, " "))
}

// ParseTerm joins multi-argument CLI terms with a single space before
// resolution.
func ParseTerm(args []string) string {
	return strings.Join(args, " ")
}

// isNumeric reports whether s parses cleanly as a taxon id.
func isNumeric(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
