package schema

import (
	"sort"
	"strconv"
	"strings"

	"github.com/famdb/famdb/internal/famerr"
	"github.com/famdb/famdb/pkg/container"
)

// HistoryEntry is one append-only change-history ledger record.
type HistoryEntry struct {
	Timestamp string
	Operation string
	Completed bool
}

const historyGroup = "FileHistory/"

// ListHistory returns every ledger entry in timestamp order.
func ListHistory(c *container.Container) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := c.IteratePrefix(historyGroup, func(key string, value []byte) error {
		key = strings.TrimPrefix(key, historyGroup)
		parts := strings.SplitN(key, "/", 2)
		if len(parts) != 2 {
			return nil
		}
		completed, _ := strconv.ParseBool(string(value))
		entries = append(entries, HistoryEntry{
			Timestamp: parts[0],
			Operation: parts[1],
			Completed: completed,
		})
		return nil
	})
	if err != nil {
		return nil, famerr.IO("list change history: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries, nil
}

// HasOpenEntry reports whether any ledger entry has completed=false,
// which marks the file corrupt and refused for read.
func HasOpenEntry(entries []HistoryEntry) (HistoryEntry, bool) {
	for _, e := range entries {
		if !e.Completed {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

func appendHistory(c *container.Container, timestamp, operation string, completed bool) error {
	return c.SetDataset(HistoryKey(timestamp, operation), []byte(strconv.FormatBool(completed)))
}

func markHistoryCompleted(c *container.Container, timestamp, operation string) error {
	return appendHistory(c, timestamp, operation, true)
}
