package query

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/famdb/famdb/pkg/emit"
	"github.com/famdb/famdb/pkg/family"
	"github.com/famdb/famdb/pkg/fileset"
	"github.com/famdb/famdb/pkg/schema"
	"github.com/famdb/famdb/pkg/taxonomy"
)

// buildFixture lays down a two-partition file set: a root carrying the
// mammal/rodent taxa and one curated family, a leaf carrying mouse and
// an uncurated family, enough to exercise resolve, lineage and the
// families filter pipeline together.
func buildFixture(t *testing.T) *fileset.Coordinator {
	t.Helper()
	dir := t.TempDir()
	table := []int{0, 1}

	root, err := schema.Create(filepath.Join(dir, "test.0.h5"), schema.Identity{
		ExportName: "test", ExportDate: "2024-01-01",
		PartitionNumber: 0, PartitionRootTaxonID: 1,
		FullPartitionTable: table,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, taxonomy.EncodeNode(root.Container, taxonomy.Node{
		ID: 1, ChildrenIDs: []int{40674}, Partition: 0,
		Names: []taxonomy.Name{{Kind: taxonomy.NameScientific, Text: "root"}},
	}))
	require.NoError(t, taxonomy.EncodeNode(root.Container, taxonomy.Node{
		ID: 40674, ParentID: 1, ChildrenIDs: []int{10088}, Partition: 0,
		Names: []taxonomy.Name{{Kind: taxonomy.NameScientific, Text: "Mammalia"}},
	}))
	require.NoError(t, taxonomy.EncodeNode(root.Container, taxonomy.Node{
		ID: 10088, ParentID: 40674, ChildrenIDs: []int{10090}, Partition: 0,
		Names:            []taxonomy.Name{{Kind: taxonomy.NameScientific, Text: "Mus"}},
		FamilyAccessions: []string{"DF0000001"},
	}))
	require.NoError(t, family.Encode(root.Container, &family.Family{
		Accession: "DF0000001", Curated: true, Name: "MIRb",
		Classification: "root;SINE;MIR", Clades: []int{10088},
		Consensus: "ACGTACGTACGT", Length: 12,
	}))
	require.NoError(t, root.Close())

	leaf, err := schema.Create(filepath.Join(dir, "test.1.h5"), schema.Identity{
		ExportName: "test", ExportDate: "2024-01-01",
		PartitionNumber: 1, PartitionRootTaxonID: 10090,
		FullPartitionTable: table,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, taxonomy.EncodeNode(leaf.Container, taxonomy.Node{
		ID: 10090, ParentID: 10088, Partition: 1,
		Names:            []taxonomy.Name{{Kind: taxonomy.NameScientific, Text: "Mus musculus"}},
		FamilyAccessions: []string{"DR0000002"},
	}))
	require.NoError(t, family.Encode(leaf.Container, &family.Family{
		Accession: "DR0000002", Curated: false, Name: "L1Md",
		Classification: "root;LINE;L1", Clades: []int{10090},
		Consensus: "TTTTGGGGCCCCAAAA", Length: 16,
	}))
	require.NoError(t, leaf.Close())

	co, err := fileset.Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = co.Close() })
	return co
}

func TestNamesExactMatch(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	require.NoError(t, e.Names(&buf, "Mus musculus", "pretty"))
	require.Contains(t, buf.String(), "10090")
	require.Contains(t, buf.String(), "Mus musculus")
}

func TestNamesUnknownTermReturnsUserError(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	err := e.Names(&buf, "Nonexistentus", "pretty")
	require.Error(t, err)
}

func TestFamilyRendersSummary(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	require.NoError(t, e.Family(&buf, "DF0000001", emit.FormatSummary, 0))
	require.Contains(t, buf.String(), "MIRb")
	require.Contains(t, buf.String(), "len=12")
}

func TestFamilyUnknownAccession(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	err := e.Family(&buf, "DF9999999", emit.FormatSummary, 0)
	require.Error(t, err)
}

func TestFamiliesFiltersByCuratedFlag(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	err := e.Families(&buf, "Mammalia", FamiliesOptions{
		WithDescendants: true,
		Filters:         Filters{Curated: true},
		Format:          emit.FormatSummary,
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "MIRb")
	require.NotContains(t, buf.String(), "L1Md")
}

func TestFamiliesDescendantExpansionReachesGrandchildren(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	err := e.Families(&buf, "Mammalia", FamiliesOptions{
		WithDescendants: true,
		Format:          emit.FormatSummary,
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "MIRb")
	require.Contains(t, buf.String(), "L1Md")
}

func TestLineagePrettyRendering(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	err := e.Lineage(&buf, "Mus musculus", LineageOptions{
		WithAncestors: true,
		IncludeEmpty:  true,
		Format:        "pretty",
	})
	require.NoError(t, err)
	out := buf.String()
	require.Contains(t, out, "Mammalia")
	require.Contains(t, out, "Mus musculus")
}

func TestLineageSemicolonRendering(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	err := e.Lineage(&buf, "Mus musculus", LineageOptions{
		WithAncestors: true,
		Format:        "semicolon",
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "root;Mammalia;Mus;Mus musculus")
}

func TestInfoListsPartitions(t *testing.T) {
	co := buildFixture(t)
	e := New(co, nil)

	var buf bytes.Buffer
	require.NoError(t, e.Info(&buf, false))
	out := buf.String()
	require.Contains(t, out, "test")
}
