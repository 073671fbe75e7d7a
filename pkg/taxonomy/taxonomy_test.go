package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSample constructs:
//
//	1 root
//	└─ 2 (empty)
//	   ├─ 3 Mammalia (has families)
//	   │   └─ 4 Rattus (has families)
//	   │       ├─ 5 R. norvegicus (empty)
//	   │       └─ 6 R. rattus (has families)
//	   └─ 7 (empty, no data-bearing descendants)
func buildSample(t *testing.T) *Index {
	t.Helper()
	nodes := []Node{
		{ID: 1, ParentID: 0, ChildrenIDs: []int{2}, Names: []Name{{NameScientific, "root"}}},
		{ID: 2, ParentID: 1, ChildrenIDs: []int{3, 7}},
		{ID: 3, ParentID: 2, ChildrenIDs: []int{4}, Names: []Name{{NameScientific, "Mammalia"}}, FamilyAccessions: []string{"DF000000003"}},
		{ID: 4, ParentID: 3, ChildrenIDs: []int{5, 6}, Names: []Name{{NameScientific, "Rattus"}}, FamilyAccessions: []string{"DF000000004"}},
		{ID: 5, ParentID: 4, Names: []Name{{NameScientific, "Rattus norvegicus"}}},
		{ID: 6, ParentID: 4, Names: []Name{{NameScientific, "Rattus rattus"}}, FamilyAccessions: []string{"DF000000006"}},
		{ID: 7, ParentID: 2},
	}
	idx, err := Build(nodes)
	require.NoError(t, err)
	return idx
}

func TestAncestorsTerminateAtRoot(t *testing.T) {
	idx := buildSample(t)
	require.Equal(t, []int{1, 2, 3, 4}, idx.Ancestors(6))
}

func TestValueAncestorsSkipEmptyNodes(t *testing.T) {
	idx := buildSample(t)
	// nearest-first: 5's nearest data-bearing ancestor is 4, then 3;
	// root terminates the chain even though it owns no families itself,
	// since it is the universal fallback ancestor.
	require.Equal(t, []int{4, 3, 1}, idx.ValueAncestors(5))
}

func TestValueChildrenAreNearestOnly(t *testing.T) {
	idx := buildSample(t)
	// 1's value-children is 3 (nearest data-bearing descendant),
	// 7's subtree has no data-bearing node and contributes nothing.
	require.Equal(t, []int{3}, idx.ValueDescendants(1))
	// 3's value-children is 4, not 6 (4 sits strictly between).
	require.Equal(t, []int{4}, idx.ValueDescendants(3))
	// 4's value-children is 6 only; 5 has no families.
	require.Equal(t, []int{6}, idx.ValueDescendants(4))
}

func TestResolveExactAndPartial(t *testing.T) {
	idx := buildSample(t)
	res := idx.Resolve("Rattus")
	require.Equal(t, []int{4}, res.Exact)
	require.Equal(t, []int{5, 6}, res.Partial)

	// One exact match wins even when partial matches exist.
	id, ok := res.Unambiguous()
	require.True(t, ok)
	require.Equal(t, 4, id)
}

func TestResolveNumeric(t *testing.T) {
	idx := buildSample(t)
	res := idx.Resolve("6")
	require.Equal(t, []int{6}, res.Exact)
	require.Empty(t, res.Partial)
}

func TestResolveUnambiguousSingleExactWins(t *testing.T) {
	idx := buildSample(t)
	res := idx.Resolve("Rattus rattus")
	id, ok := res.Unambiguous()
	require.True(t, ok)
	require.Equal(t, 6, id)
}

func TestSuggestOnEmptyResolve(t *testing.T) {
	idx := buildSample(t)
	res := idx.Resolve("Rattuz")
	require.True(t, res.Empty())

	suggestions := idx.Suggest("Rattuz")
	require.NotEmpty(t, suggestions)
	require.LessOrEqual(t, len(suggestions), 10)
}

func TestLineageDefaultSkipsEmptyNodes(t *testing.T) {
	idx := buildSample(t)
	ancestors, root := idx.Lineage(6, true, true, false)
	require.Equal(t, []int{1, 3, 4}, ancestors)
	require.Equal(t, 6, root.ID)
}

func TestLineageCompleteIncludesEveryIntermediateNode(t *testing.T) {
	idx := buildSample(t)
	ancestors, _ := idx.Lineage(6, true, false, true)
	require.Equal(t, []int{1, 2, 3, 4}, ancestors)
}

func TestCountFamiliesWithPredicate(t *testing.T) {
	idx := buildSample(t)
	require.Equal(t, 1, idx.CountFamilies(3, nil))
	require.Equal(t, 0, idx.CountFamilies(3, func(acc string) bool { return false }))
}
