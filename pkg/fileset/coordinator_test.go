package fileset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/famdb/famdb/pkg/family"
	"github.com/famdb/famdb/pkg/schema"
	"github.com/famdb/famdb/pkg/taxonomy"
)

func buildFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	table := []int{0, 1}

	root, err := schema.Create(filepath.Join(dir, "test.0.h5"), schema.Identity{
		ExportName: "test", ExportDate: "2024-01-01",
		PartitionNumber: 0, PartitionRootTaxonID: 1,
		FullPartitionTable: table,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, taxonomy.EncodeNode(root.Container, taxonomy.Node{ID: 1, ParentID: 0, ChildrenIDs: []int{2}, Partition: 0}))
	require.NoError(t, taxonomy.EncodeNode(root.Container, taxonomy.Node{ID: 2, ParentID: 1, ChildrenIDs: []int{3}, Partition: 0, FamilyAccessions: []string{"DF000000001"}}))
	require.NoError(t, family.Encode(root.Container, &family.Family{Accession: "DF000000001", Classification: "root;SINE"}))
	require.NoError(t, root.Close())

	leaf, err := schema.Create(filepath.Join(dir, "test.1.h5"), schema.Identity{
		ExportName: "test", ExportDate: "2024-01-01",
		PartitionNumber: 1, PartitionRootTaxonID: 3,
		FullPartitionTable: table,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, taxonomy.EncodeNode(leaf.Container, taxonomy.Node{ID: 3, ParentID: 2, Partition: 1, FamilyAccessions: []string{"DF000000002"}}))
	require.NoError(t, family.Encode(leaf.Container, &family.Family{Accession: "DF000000002", Classification: "root;LINE"}))
	require.NoError(t, leaf.Close())

	return dir
}

func TestOpenBuildsMergedTaxonomy(t *testing.T) {
	dir := buildFixture(t)
	co, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = co.Close() })

	require.Empty(t, co.Warnings())

	node, ok := co.Taxonomy().Node(3)
	require.True(t, ok)
	require.Equal(t, 1, node.Partition)
}

func TestGetFamilyRoutesByOwningPartition(t *testing.T) {
	dir := buildFixture(t)
	co, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = co.Close() })

	f, err := co.GetFamily("DF000000002")
	require.NoError(t, err)
	require.Equal(t, "root;LINE", f.Classification)

	_, err = co.GetFamily("DF999999999")
	require.Error(t, err)
}

func TestFamiliesForTaxaCollatesAcrossPartitions(t *testing.T) {
	dir := buildFixture(t)
	co, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = co.Close() })

	families, err := co.FamiliesForTaxa([]int{2, 3}, nil)
	require.NoError(t, err)
	require.Len(t, families, 2)
	require.Equal(t, "DF000000001", families[0].Accession)
	require.Equal(t, "DF000000002", families[1].Accession)
}

func TestOpenMissingRootFails(t *testing.T) {
	dir := t.TempDir()
	leaf, err := schema.Create(filepath.Join(dir, "test.1.h5"), schema.Identity{
		ExportName: "test", ExportDate: "2024-01-01",
		PartitionNumber: 1, FullPartitionTable: []int{0, 1},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, leaf.Close())

	_, err = Open(dir, nil)
	require.Error(t, err)
}

func TestOpenMixedExportFails(t *testing.T) {
	dir := t.TempDir()
	table := []int{0, 1}

	root, err := schema.Create(filepath.Join(dir, "test.0.h5"), schema.Identity{
		ExportName: "test", ExportDate: "2024-01-01",
		PartitionNumber: 0, PartitionRootTaxonID: 1,
		FullPartitionTable: table,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, taxonomy.EncodeNode(root.Container, taxonomy.Node{ID: 1, Partition: 0}))
	require.NoError(t, root.Close())

	stranger, err := schema.Create(filepath.Join(dir, "test.1.h5"), schema.Identity{
		ExportName: "test", ExportDate: "2023-06-15",
		PartitionNumber: 1, PartitionRootTaxonID: 3,
		FullPartitionTable: table,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, stranger.Close())

	_, err = Open(dir, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mixed export")
}

func TestOpenMissingLeafWarnsAndServesRest(t *testing.T) {
	dir := t.TempDir()

	root, err := schema.Create(filepath.Join(dir, "test.0.h5"), schema.Identity{
		ExportName: "test", ExportDate: "2024-01-01",
		PartitionNumber: 0, PartitionRootTaxonID: 1,
		FullPartitionTable: []int{0, 3},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, taxonomy.EncodeNode(root.Container, taxonomy.Node{
		ID: 1, Partition: 0, FamilyAccessions: []string{"DF000000001"},
	}))
	require.NoError(t, family.Encode(root.Container, &family.Family{Accession: "DF000000001", Classification: "root;SINE"}))
	require.NoError(t, root.Close())

	co, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = co.Close() })

	warnings := co.Warnings()
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "partition 3 not installed")

	families, err := co.FamiliesForTaxa([]int{1}, nil)
	require.NoError(t, err)
	require.Len(t, families, 1)
}
