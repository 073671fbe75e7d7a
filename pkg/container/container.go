// Package container implements the hierarchical array container
// adapter. It is a thin binding over a badger key-value engine that exposes
// typed getters/setters and iteration the way a hierarchical-array
// container (groups, datasets, attributes, soft links) would, while
// hiding badger's on-disk quirks from every package above it. No
// FamDB-specific concept (families, taxa, accessions) leaks into this
// package; it only knows about groups, datasets, attributes and links.
package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/famdb/famdb/internal/chunker"
)

// Mode selects whether a Container is opened for reading only or for
// reading and writing.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

const (
	prefixAttr   = "attr:"
	prefixData   = "data:"
	prefixChunk  = "chunk:"
	prefixLink   = "link:"
	prefixChild  = "child:"
	manifestFlag = "m:"
	inlineFlag   = "i:"
)

// Container wraps one badger instance standing in for one partition
// file: a directory bundle named <export>.<N>.h5.
type Container struct {
	db   *badger.DB
	log  *logrus.Logger
	path string
	mode Mode

	reads  uint64
	writes uint64
}

// Open opens (creating if necessary, for ReadWrite) the container rooted
// at path. Read-only containers disable badger's file-lock guard, since
// FamDB reads are side-effect-free and commonly run against
// shared/networked filesystems where locking breaks.
func Open(path string, mode Mode, log *logrus.Logger) (*Container, error) {
	if log == nil {
		log = logrus.New()
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100

	if mode == ReadOnly {
		opts.ReadOnly = true
		opts.BypassLockGuard = true
	} else {
		opts.SyncWrites = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &Error{Kind: KindIO, Op: "open", Path: path, Err: err}
	}

	return &Container{db: db, log: log, path: path, mode: mode}, nil
}

// Close flattens and releases the underlying badger instance; it does
// not run value-log GC. Read-only containers skip the flatten pass,
// since they never accumulate a value log to compact.
func (c *Container) Close() error {
	if c.mode == ReadWrite {
		if err := c.db.Flatten(runtime.NumCPU()); err != nil {
			c.log.WithField("path", c.path).Warn("flatten on close failed")
		}
	}
	if err := c.db.Close(); err != nil {
		return &Error{Kind: KindIO, Op: "close", Path: c.path, Err: err}
	}
	return nil
}

// Path returns the bundle path this container was opened from.
func (c *Container) Path() string { return c.path }

// ReadOnly reports whether this container was opened without write
// access.
func (c *Container) ReadOnly() bool { return c.mode == ReadOnly }

// Stats returns the cumulative read and write operation counts since
// Open.
func (c *Container) Stats() (reads, writes uint64) {
	return atomic.LoadUint64(&c.reads), atomic.LoadUint64(&c.writes)
}

// Compact flattens the LSM tree and runs value-log GC. Only the
// (separately specified) builder calls this after a bulk load; the read
// path never does.
func (c *Container) Compact() error {
	if c.mode == ReadOnly {
		return &Error{Kind: KindLocked, Op: "compact", Path: c.path, Err: fmt.Errorf("container opened read-only")}
	}
	if err := c.db.Flatten(runtime.NumCPU()); err != nil {
		return &Error{Kind: KindIO, Op: "flatten", Path: c.path, Err: err}
	}
	for {
		if err := c.db.RunValueLogGC(0.5); err != nil {
			if err == badger.ErrNoRewrite {
				return nil
			}
			return &Error{Kind: KindIO, Op: "vlog-gc", Path: c.path, Err: err}
		}
	}
}

// --- attributes -----------------------------------------------------

// GetAttr reads a scalar attribute. ok is false when the attribute is
// absent; callers use this to distinguish a missing attribute from an
// empty string.
func (c *Container) GetAttr(key string) (value string, ok bool, err error) {
	raw, found, err := c.get(prefixAttr + key)
	if err != nil || !found {
		return "", found, err
	}
	return string(raw), true, nil
}

// SetAttr writes a scalar attribute.
func (c *Container) SetAttr(key, value string) error {
	return c.set(prefixAttr+key, []byte(value))
}

// --- datasets ---------------------------------------------------------

// SetDataset writes a byte dataset under key. Payloads at or above
// chunker.InlineThreshold are transparently chunked and compressed;
// smaller payloads are stored inline uncompressed so that small
// scalar-ish datasets (a short consensus, a handful of attribute-like
// bytes) avoid chunking overhead.
func (c *Container) SetDataset(key string, data []byte) error {
	if len(data) < chunker.InlineThreshold {
		return c.set(prefixData+key, append([]byte(inlineFlag), data...))
	}

	manifest, chunks, err := chunker.Split(data)
	if err != nil {
		return &Error{Kind: KindIO, Op: "chunk", Path: key, Err: err}
	}

	txn := c.db.NewTransaction(true)
	defer txn.Discard()

	for hash, ch := range chunks {
		if err := txn.Set([]byte(prefixChunk+hash), ch.Data); err != nil {
			return &Error{Kind: KindIO, Op: "set-chunk", Path: key, Err: err}
		}
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return &Error{Kind: KindIO, Op: "marshal-manifest", Path: key, Err: err}
	}
	if err := txn.Set([]byte(prefixData+key), append([]byte(manifestFlag), manifestJSON...)); err != nil {
		return &Error{Kind: KindIO, Op: "set-manifest", Path: key, Err: err}
	}

	if err := txn.Commit(); err != nil {
		return &Error{Kind: KindIO, Op: "commit", Path: key, Err: err}
	}
	return nil
}

// GetDataset reads a byte dataset previously written with SetDataset,
// transparently reassembling chunked payloads.
func (c *Container) GetDataset(key string) (data []byte, ok bool, err error) {
	raw, found, err := c.get(prefixData + key)
	if err != nil || !found {
		return nil, found, err
	}

	data, err = c.decodeDataset(key, raw)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// decodeDataset unwraps a stored dataset value: inline payloads lose
// their flag byte, chunked payloads are reassembled via their manifest.
func (c *Container) decodeDataset(key string, raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, []byte(inlineFlag)) {
		return raw[len(inlineFlag):], nil
	}
	if !bytes.HasPrefix(raw, []byte(manifestFlag)) {
		return nil, &Error{Kind: KindWrongType, Op: "get", Path: key, Err: fmt.Errorf("unrecognized dataset encoding")}
	}

	var manifest []string
	if err := json.Unmarshal(raw[len(manifestFlag):], &manifest); err != nil {
		return nil, &Error{Kind: KindIO, Op: "unmarshal-manifest", Path: key, Err: err}
	}

	joined, err := chunker.Join(manifest, func(hash string) ([]byte, error) {
		v, found, err := c.get(prefixChunk + hash)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("chunk %s not found", hash)
		}
		return v, nil
	})
	if err != nil {
		return nil, &Error{Kind: KindIO, Op: "join", Path: key, Err: err}
	}
	return joined, nil
}

// --- links and groups --------------------------------------------------

// SoftLink creates a named alias pointing at another key, the way an
// HDF5 soft link points at another path without copying data.
func (c *Container) SoftLink(alias, target string) error {
	return c.set(prefixLink+alias, []byte(target))
}

// ResolveLink follows a soft link created with SoftLink.
func (c *Container) ResolveLink(alias string) (target string, ok bool, err error) {
	raw, found, err := c.get(prefixLink + alias)
	if err != nil || !found {
		return "", found, err
	}
	return string(raw), true, nil
}

// IteratePrefix visits every dataset stored under group prefix, in key
// order, passing its full key (group included) and its decoded value.
// Attributes and links are not visited. It is the adapter's
// "iterate-children" primitive; higher layers use it to walk both
// families bins and lookup-index buckets.
func (c *Container) IteratePrefix(group string, fn func(key string, value []byte) error) error {
	fullPrefix := prefixData + group
	return c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fullPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(fullPrefix)); it.ValidForPrefix([]byte(fullPrefix)); it.Next() {
			item := it.Item()
			key := string(item.Key())[len(prefixData):]
			var value []byte
			err := item.Value(func(v []byte) error {
				value = append([]byte(nil), v...)
				return nil
			})
			if err != nil {
				return &Error{Kind: KindIO, Op: "iterate", Path: key, Err: err}
			}
			decoded, err := c.decodeDataset(key, value)
			if err != nil {
				return err
			}
			if err := fn(key, decoded); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a dataset or attribute key. It does not garbage-collect
// orphaned chunks; that is the (separately specified) builder's concern.
func (c *Container) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(prefixData + key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Delete([]byte(prefixAttr + key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return nil
	})
}

// --- low-level helpers --------------------------------------------------

func (c *Container) get(key string) ([]byte, bool, error) {
	atomic.AddUint64(&c.reads, 1)
	var value []byte
	found := false
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, false, &Error{Kind: KindIO, Op: "get", Path: key, Err: err}
	}
	return value, found, nil
}

func (c *Container) set(key string, value []byte) error {
	atomic.AddUint64(&c.writes, 1)
	if c.mode == ReadOnly {
		return &Error{Kind: KindLocked, Op: "set", Path: key, Err: fmt.Errorf("container opened read-only")}
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return &Error{Kind: KindIO, Op: "set", Path: key, Err: err}
	}
	return nil
}
