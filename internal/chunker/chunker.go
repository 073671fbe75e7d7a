// Package chunker splits large family payloads (HMM models, consensus
// sequences) into content-defined chunks and compresses them, so the
// container adapter can store them as a manifest of small, dedup-friendly
// datasets instead of one monolithic blob.
package chunker

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	boxochunker "github.com/ipfs/boxo/chunker"
	"github.com/ulikunitz/xz/lzma"
)

// InlineThreshold is the size below which a payload is stored inline by
// the caller instead of being routed through Split/Join at all.
const InlineThreshold = 4096

// Chunk is one content-addressed piece of a larger payload.
type Chunk struct {
	Hash string // hex sha256 of the compressed chunk bytes
	Data []byte // lzma-compressed chunk payload
}

// Split compresses payload with LZMA and divides the compressed stream
// into content-defined chunks using Rabin fingerprinting. The returned
// manifest preserves chunk order; Join reverses it exactly.
func Split(payload []byte) (manifest []string, chunks map[string]Chunk, err error) {
	compressed, err := compress(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("chunker: compress: %w", err)
	}

	splitter := boxochunker.NewRabin(bytes.NewReader(compressed), 64*1024)
	chunks = make(map[string]Chunk)

	for {
		piece, err := splitter.NextBytes()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("chunker: split: %w", err)
		}

		sum := sha256.Sum256(piece)
		h := hex.EncodeToString(sum[:])
		manifest = append(manifest, h)
		if _, seen := chunks[h]; !seen {
			chunks[h] = Chunk{Hash: h, Data: piece}
		}
	}

	return manifest, chunks, nil
}

// Join reassembles a payload from an ordered manifest and a lookup of
// chunk hash to chunk data, then decompresses the result.
func Join(manifest []string, lookup func(hash string) ([]byte, error)) ([]byte, error) {
	var buf bytes.Buffer
	for _, h := range manifest {
		data, err := lookup(h)
		if err != nil {
			return nil, fmt.Errorf("chunker: missing chunk %s: %w", h, err)
		}
		buf.Write(data)
	}
	return decompress(buf.Bytes())
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
