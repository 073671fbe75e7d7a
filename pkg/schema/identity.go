package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/famdb/famdb/internal/famerr"
	"github.com/famdb/famdb/pkg/container"
)

// Identity is the set of attributes that must agree across every file in
// one file set.
type Identity struct {
	ExportName           string
	ExportDate           string
	SchemaVersion        string
	PartitionNumber      int
	PartitionRootTaxonID int
	FullPartitionTable   []int
	CreatorFingerprint   string
}

// SameExport reports whether two identities share (export_name,
// export_date, schema_version, partition_table), the condition every
// file in a valid file set must meet.
func (id Identity) SameExport(other Identity) bool {
	if id.ExportName != other.ExportName || id.ExportDate != other.ExportDate {
		return false
	}
	if id.SchemaVersion != other.SchemaVersion {
		return false
	}
	if len(id.FullPartitionTable) != len(other.FullPartitionTable) {
		return false
	}
	for i, v := range id.FullPartitionTable {
		if other.FullPartitionTable[i] != v {
			return false
		}
	}
	return true
}

func readIdentity(c *container.Container) (Identity, error) {
	var id Identity
	var err error

	id.ExportName, err = requireAttr(c, AttrExportName)
	if err != nil {
		return Identity{}, err
	}
	id.ExportDate, err = requireAttr(c, AttrExportDate)
	if err != nil {
		return Identity{}, err
	}
	id.SchemaVersion, err = requireAttr(c, AttrSchemaVersion)
	if err != nil {
		return Identity{}, err
	}

	partitionStr, err := requireAttr(c, AttrPartitionNumber)
	if err != nil {
		return Identity{}, err
	}
	id.PartitionNumber, err = strconv.Atoi(partitionStr)
	if err != nil {
		return Identity{}, famerr.Data("invalid partition_number attribute: %w", err)
	}

	rootTaxonStr, ok, err := c.GetAttr(AttrPartitionRootTaxonID)
	if err != nil {
		return Identity{}, famerr.IO("read partition_root_taxon_id: %w", err)
	}
	if ok {
		id.PartitionRootTaxonID, err = strconv.Atoi(rootTaxonStr)
		if err != nil {
			return Identity{}, famerr.Data("invalid partition_root_taxon_id attribute: %w", err)
		}
	}

	tableStr, err := requireAttr(c, AttrFullPartitionTable)
	if err != nil {
		return Identity{}, err
	}
	if err := json.Unmarshal([]byte(tableStr), &id.FullPartitionTable); err != nil {
		return Identity{}, famerr.Data("invalid full_partition_table attribute: %w", err)
	}

	id.CreatorFingerprint, _, err = c.GetAttr(AttrCreatorFingerprint)
	if err != nil {
		return Identity{}, famerr.IO("read creator_fingerprint: %w", err)
	}

	return id, nil
}

func requireAttr(c *container.Container, key string) (string, error) {
	v, ok, err := c.GetAttr(key)
	if err != nil {
		return "", famerr.IO("read attribute %s: %w", key, err)
	}
	if !ok {
		return "", famerr.Data("missing required identity attribute %q", key)
	}
	return v, nil
}

func writeIdentity(c *container.Container, id Identity) error {
	table, err := json.Marshal(id.FullPartitionTable)
	if err != nil {
		return fmt.Errorf("marshal partition table: %w", err)
	}

	sets := map[string]string{
		AttrExportName:           id.ExportName,
		AttrExportDate:           id.ExportDate,
		AttrSchemaVersion:        id.SchemaVersion,
		AttrPartitionNumber:      strconv.Itoa(id.PartitionNumber),
		AttrPartitionRootTaxonID: strconv.Itoa(id.PartitionRootTaxonID),
		AttrFullPartitionTable:   string(table),
		AttrCreatorFingerprint:   id.CreatorFingerprint,
	}
	for key, value := range sets {
		if err := c.SetAttr(key, value); err != nil {
			return famerr.IO("write attribute %s: %w", key, err)
		}
	}
	return nil
}

// CheckMajorVersion refuses a file whose schema_version major component
// does not match SchemaVersionMajor.
func CheckMajorVersion(version string) error {
	major := version
	for i, r := range version {
		if r == '.' {
			major = version[:i]
			break
		}
	}
	wantMajor := strconv.Itoa(SchemaVersionMajor)
	if major != wantMajor {
		return famerr.Data("schema version %q is incompatible with reader major version %d", version, SchemaVersionMajor)
	}
	return nil
}
