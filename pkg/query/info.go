package query

import (
	"fmt"
	"io"
)

// Info implements the `info` subcommand: aggregate metadata across
// files, list partitions (present/absent, taxon names per partition
// root, counts), and optionally emit the merged change history.
func (e *Engine) Info(w io.Writer, withHistory bool) error {
	idx := e.co.Taxonomy()
	identity := e.co.Identity()

	fmt.Fprintf(w, "Export: %s (%s)\n", identity.ExportName, identity.ExportDate)
	fmt.Fprintf(w, "Schema version: %s\n", identity.SchemaVersion)
	fmt.Fprintln(w, "Partitions:")

	installed := map[int]bool{}
	for _, p := range e.co.InstalledPartitions() {
		installed[p] = true
	}

	for _, p := range identity.FullPartitionTable {
		if !installed[p] {
			fmt.Fprintf(w, "  %d: not installed\n", p)
			continue
		}
		pid, _ := e.co.PartitionIdentity(p)
		rootName := idx.DisplayName(pid.PartitionRootTaxonID)
		count := idx.CountFamilies(pid.PartitionRootTaxonID, nil)
		fmt.Fprintf(w, "  %d: %s (taxon %d), %d families at root\n", p, rootName, pid.PartitionRootTaxonID, count)

		if withHistory {
			entries, err := e.co.History(p)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				status := "open"
				if entry.Completed {
					status = "completed"
				}
				fmt.Fprintf(w, "      %s %s [%s]\n", entry.Timestamp, entry.Operation, status)
			}
		}
	}

	for _, warning := range e.co.Warnings() {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}
