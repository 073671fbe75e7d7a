package schema

import (
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/famdb/famdb/internal/famerr"
	"github.com/famdb/famdb/pkg/container"
)

// File is one open partition bundle: its container plus its validated
// identity. File is the unit pkg/fileset coordinates across partitions.
type File struct {
	Container *container.Container
	Identity  Identity
}

// OpenForRead validates identity attributes and refuses a file with any
// open (completed=false) history entry as corrupt.
func OpenForRead(path string, log *logrus.Logger) (*File, error) {
	c, err := container.Open(path, container.ReadOnly, log)
	if err != nil {
		return nil, famerr.IO("open %s: %w", path, err)
	}

	id, err := readIdentity(c)
	if err != nil {
		c.Close()
		return nil, err
	}

	if err := CheckMajorVersion(id.SchemaVersion); err != nil {
		c.Close()
		return nil, err
	}

	entries, err := ListHistory(c)
	if err != nil {
		c.Close()
		return nil, err
	}
	if open, found := HasOpenEntry(entries); found {
		c.Close()
		return nil, famerr.Data("file has an unfinished write (%s at %s); run repair", open.Operation, open.Timestamp).WithSubject(path)
	}

	return &File{Container: c, Identity: id}, nil
}

// Close releases the file's container.
func (f *File) Close() error {
	if err := f.Container.Close(); err != nil {
		return famerr.IO("close: %w", err)
	}
	return nil
}

// WriteGuard represents one open write operation's ledger entry. The
// caller must call Commit on success; if the File is closed without a
// prior Commit, the ledger entry is left completed=false, poisoning
// the file on next open until `repair` clears it.
type WriteGuard struct {
	c         *container.Container
	timestamp string
	operation string
	once      sync.Once
	committed bool
}

// OpenForWrite appends a new, open history entry and returns a guard the
// caller must Commit on success.
func OpenForWrite(path string, operation string, log *logrus.Logger, now func() time.Time) (*File, *WriteGuard, error) {
	c, err := container.Open(path, container.ReadWrite, log)
	if err != nil {
		return nil, nil, famerr.IO("open for write %s: %w", path, err)
	}

	id, err := readIdentity(c)
	if err != nil {
		c.Close()
		return nil, nil, err
	}

	entries, err := ListHistory(c)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	if open, found := HasOpenEntry(entries); found {
		c.Close()
		return nil, nil, famerr.Data("file has an unfinished write (%s at %s); run repair", open.Operation, open.Timestamp).WithSubject(path)
	}

	ts := now().UTC().Format(time.RFC3339Nano)
	if err := appendHistory(c, ts, operation, false); err != nil {
		c.Close()
		return nil, nil, err
	}

	return &File{Container: c, Identity: id}, &WriteGuard{c: c, timestamp: ts, operation: operation}, nil
}

// Commit flips this write's ledger entry to completed=true.
func (g *WriteGuard) Commit() error {
	var err error
	g.once.Do(func() {
		err = markHistoryCompleted(g.c, g.timestamp, g.operation)
		g.committed = err == nil
	})
	return err
}

// Committed reports whether Commit succeeded.
func (g *WriteGuard) Committed() bool { return g.committed }

// Repair marks every open history entry completed. It asks for no
// confirmation and does not check whether a writer is still running. It
// is not exposed through the ordinary read/write lifecycle, only through
// the `famdb repair` subcommand.
func Repair(path string, log *logrus.Logger) error {
	c, err := container.Open(path, container.ReadWrite, log)
	if err != nil {
		return famerr.IO("open for repair %s: %w", path, err)
	}
	defer c.Close()

	entries, err := ListHistory(c)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Completed {
			continue
		}
		if err := markHistoryCompleted(c, e.Timestamp, e.Operation); err != nil {
			return err
		}
	}
	return nil
}

// Create initializes a brand-new partition bundle with the given
// identity and returns it open for writing, ready for the (separately
// specified) builder to populate.
func Create(path string, id Identity, log *logrus.Logger) (*File, error) {
	c, err := container.Open(path, container.ReadWrite, log)
	if err != nil {
		return nil, famerr.IO("create %s: %w", path, err)
	}
	id.SchemaVersion = formatSchemaVersion()
	if err := writeIdentity(c, id); err != nil {
		c.Close()
		return nil, err
	}
	return &File{Container: c, Identity: id}, nil
}

func formatSchemaVersion() string {
	return strconv.Itoa(SchemaVersionMajor) + "." + strconv.Itoa(SchemaVersionMinor)
}
