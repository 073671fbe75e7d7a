package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitJoinRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("ACGTACGTACGTTTTAGC", 5000))

	manifest, chunks, err := Split(payload)
	require.NoError(t, err)
	require.NotEmpty(t, manifest)

	got, err := Join(manifest, func(hash string) ([]byte, error) {
		c, ok := chunks[hash]
		require.True(t, ok, "missing chunk %s", hash)
		return c.Data, nil
	})
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestSplitDeduplicatesRepeatedChunks(t *testing.T) {
	payload := []byte(strings.Repeat("X", 1<<20))
	manifest, chunks, err := Split(payload)
	require.NoError(t, err)
	require.Less(t, len(chunks), len(manifest)+1)
}
