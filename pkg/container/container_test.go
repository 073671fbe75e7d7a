package container

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Container {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(dir, ReadWrite, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestAttrRoundTrip(t *testing.T) {
	c := openTest(t)

	_, ok, err := c.GetAttr("export_name")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.SetAttr("export_name", "Dfam"))
	value, ok, err := c.GetAttr("export_name")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Dfam", value)
}

func TestDatasetInlineRoundTrip(t *testing.T) {
	c := openTest(t)
	require.NoError(t, c.SetDataset("Families/DF/DF000000001/consensus", []byte("ACGT")))

	data, ok, err := c.GetDataset("Families/DF/DF000000001/consensus")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("ACGT"), data)
}

func TestDatasetChunkedRoundTrip(t *testing.T) {
	c := openTest(t)
	large := strings.Repeat("ACGTACGTAC", 1000)
	key := "Families/DF/DF000000002/hmm"
	require.NoError(t, c.SetDataset(key, []byte(large)))

	data, ok, err := c.GetDataset(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, large, string(data))
}

func TestSoftLink(t *testing.T) {
	c := openTest(t)
	require.NoError(t, c.SoftLink("Lookup/ByTaxon/9606", "Families/DF/DF000000001"))

	target, ok, err := c.ResolveLink("Lookup/ByTaxon/9606")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Families/DF/DF000000001", target)
}

func TestIteratePrefix(t *testing.T) {
	c := openTest(t)
	require.NoError(t, c.SetDataset("Taxonomy/Nodes/1/name", []byte("root")))
	require.NoError(t, c.SetDataset("Taxonomy/Nodes/2/name", []byte("Mammalia")))
	require.NoError(t, c.SetDataset("Other/x", []byte("skip")))

	seen := map[string]string{}
	err := c.IteratePrefix("Taxonomy/Nodes/", func(key string, value []byte) error {
		seen[key] = string(value)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	require.Equal(t, "root", seen["Taxonomy/Nodes/1/name"])
	require.Equal(t, "Mammalia", seen["Taxonomy/Nodes/2/name"])
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	rw, err := Open(dir, ReadWrite, nil)
	require.NoError(t, err)
	require.NoError(t, rw.SetAttr("export_name", "Dfam"))
	require.NoError(t, rw.Close())

	ro, err := Open(dir, ReadOnly, nil)
	require.NoError(t, err)
	defer ro.Close()

	value, ok, err := ro.GetAttr("export_name")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Dfam", value)

	err = ro.SetAttr("export_name", "Other")
	require.Error(t, err)
}
