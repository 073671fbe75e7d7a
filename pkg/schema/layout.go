// Package schema defines the on-disk group layout, file-identity
// attributes, append-only change history and the open/validate/finalize
// lifecycle that every FamDB partition file follows. It sits
// directly on top of pkg/container and knows nothing about query
// semantics, only about where things live and whether a file is safe
// to read.
package schema

import "fmt"

// SchemaVersionMajor/Minor are written to every file's identity
// attributes. A mismatched major version is refused on open.
const (
	SchemaVersionMajor = 1
	SchemaVersionMinor = 0
)

// FamilyBin returns the two-character bin prefix that caps group
// fan-out in the families namespace. Every reader must compute the same
// bin for the same accession; this is a schema invariant, not an
// implementation detail.
func FamilyBin(accession string) string {
	if len(accession) < 2 {
		return "__"
	}
	return accession[:2]
}

// FamilyGroup returns the group path for a family's accession.
func FamilyGroup(accession string) string {
	return fmt.Sprintf("Families/%s/%s", FamilyBin(accession), accession)
}

// LookupByNameKey returns the ByName lookup bucket for a name prefix.
func LookupByNameKey(prefix string) string {
	return "Lookup/ByName/" + prefix
}

// LookupByStageKey returns the ByStage lookup bucket for a stage number.
func LookupByStageKey(stage int) string {
	return fmt.Sprintf("Lookup/ByStage/%d", stage)
}

// LookupByTaxonKey returns the ByTaxon lookup bucket for a taxon id.
func LookupByTaxonKey(taxid int) string {
	return fmt.Sprintf("Lookup/ByTaxon/%d", taxid)
}

// TaxonomyNodeKey returns the group path for one taxonomy node.
func TaxonomyNodeKey(taxid int) string {
	return fmt.Sprintf("Taxonomy/Nodes/%d", taxid)
}

// TaxonomyNamesKey is the single JSON blob carrying the taxid -> names
// map for the whole file.
const TaxonomyNamesKey = "Taxonomy/Names"

// PartitionKey returns the per-partition metadata group (root file only).
func PartitionKey(n int) string {
	return fmt.Sprintf("Partitions/%d", n)
}

// RepeatPepsKey is the root-file-only FASTA blob of RepeatMasker
// peptides, preserved verbatim for downstream consumers.
const RepeatPepsKey = "RepeatPeps"

// HistoryKey returns the ledger entry key for one write operation.
func HistoryKey(timestamp, operation string) string {
	return fmt.Sprintf("FileHistory/%s/%s", timestamp, operation)
}

// Identity attribute names, stored as scalar attributes at the file
// root via pkg/container.
const (
	AttrExportName           = "export_name"
	AttrExportDate           = "export_date"
	AttrSchemaVersion        = "schema_version"
	AttrPartitionNumber      = "partition_number"
	AttrPartitionRootTaxonID = "partition_root_taxon_id"
	AttrFullPartitionTable   = "full_partition_table"
	AttrCreatorFingerprint   = "creator_fingerprint"
)
