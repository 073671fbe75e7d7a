package taxonomy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/famdb/famdb/pkg/container"
	"github.com/famdb/famdb/pkg/schema"
)

// wireNode is the JSON shape persisted per taxon node. It mirrors Node
// but keeps the wire format independent of the in-memory struct so
// either can evolve without breaking the other.
type wireNode struct {
	ID               int      `json:"id"`
	Names            []Name   `json:"names"`
	ParentID         int      `json:"parent_id"`
	ChildrenIDs      []int    `json:"children_ids"`
	Partition        int      `json:"partition"`
	FamilyAccessions []string `json:"family_accessions,omitempty"`
}

// EncodeNode writes one taxon node into c as a dataset (not an
// attribute), so DecodeAllNodes can recover the whole set with a single
// IteratePrefix pass.
func EncodeNode(c *container.Container, n Node) error {
	w := wireNode{
		ID: n.ID, Names: n.Names, ParentID: n.ParentID,
		ChildrenIDs: n.ChildrenIDs, Partition: n.Partition,
		FamilyAccessions: n.FamilyAccessions,
	}
	b, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("taxonomy: encode node %d: %w", n.ID, err)
	}
	return c.SetDataset(schema.TaxonomyNodeKey(n.ID), b)
}

// DecodeAllNodes reads every taxon node stored in c. A single partition
// file only carries the nodes belonging to its own subtree (plus, for
// non-root partitions, the chain of ancestor ids up to the root needed
// to reattach it; those carry an empty FamilyAccessions and the
// partition number of whichever file actually owns them).
func DecodeAllNodes(c *container.Container) ([]Node, error) {
	const prefix = "Taxonomy/Nodes/"
	var nodes []Node
	err := c.IteratePrefix(prefix, func(key string, value []byte) error {
		var w wireNode
		if err := json.Unmarshal(value, &w); err != nil {
			return fmt.Errorf("taxonomy: decode node %s: %w", strings.TrimPrefix(key, prefix), err)
		}
		nodes = append(nodes, Node{
			ID: w.ID, Names: w.Names, ParentID: w.ParentID,
			ChildrenIDs: w.ChildrenIDs, Partition: w.Partition,
			FamilyAccessions: w.FamilyAccessions,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// MergeNodes combines the per-partition node sets loaded from every open
// file in a file set into one consistent list, keyed by id. When the
// same id is carried by more than one file (an ancestor-chain node
// re-declared by a leaf partition), the copy that carries
// FamilyAccessions, i.e. the one from the owning partition, wins. When
// more than one copy carries FamilyAccessions, the first one in perFile
// order is kept.
func MergeNodes(perFile [][]Node) ([]Node, error) {
	byID := make(map[int]Node)
	for _, nodes := range perFile {
		for _, n := range nodes {
			existing, ok := byID[n.ID]
			if !ok || (len(n.FamilyAccessions) > 0 && len(existing.FamilyAccessions) == 0) {
				byID[n.ID] = n
				continue
			}
			if existing.Partition != n.Partition && len(existing.FamilyAccessions) == 0 {
				byID[n.ID] = n
			}
		}
	}
	out := make([]Node, 0, len(byID))
	for _, n := range byID {
		out = append(out, n)
	}
	return out, nil
}
