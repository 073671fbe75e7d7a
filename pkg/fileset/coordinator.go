// Package fileset implements the file-set coordinator: discovering
// a directory of partition bundles, validating they share one export
// identity, and exposing family lookup/iteration across the whole
// collection while preserving per-partition locality.
//
package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/famdb/famdb/internal/famerr"
	"github.com/famdb/famdb/pkg/family"
	"github.com/famdb/famdb/pkg/schema"
	"github.com/famdb/famdb/pkg/taxonomy"
)

// bundlePattern matches a partition bundle directory name, e.g.
// "dfam.0.h5".
var bundlePattern = regexp.MustCompile(`^(.+)\.(\d+)\.h5$`)

// Coordinator owns every open partition bundle in a file set for its
// lifetime, acquiring them on Open and releasing them on Close.
type Coordinator struct {
	dir      string
	root     *schema.File
	files    map[int]*schema.File
	taxonomy *taxonomy.Index
	warnings []string
	log      *logrus.Logger
}

// Open discovers every "*.<N>.h5" bundle directly under dir, opens each
// for read, verifies they share one export identity, and requires
// exactly one partition-0 (root). Missing leaf partitions named in the
// root's full_partition_table are recorded as warnings rather than
// failing the open.
func Open(dir string, log *logrus.Logger) (*Coordinator, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, famerr.IO("read directory %s: %w", dir, err)
	}

	type candidate struct {
		partition int
		path      string
	}
	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := bundlePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, convErr := strconv.Atoi(m[2])
		if convErr != nil {
			continue
		}
		candidates = append(candidates, candidate{partition: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].partition < candidates[j].partition })

	if len(candidates) == 0 {
		return nil, famerr.Data("no FamDB partition bundles found in %s", dir)
	}

	files := make(map[int]*schema.File, len(candidates))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	var firstIdentity *schema.Identity
	for _, cand := range candidates {
		f, err := schema.OpenForRead(cand.path, log)
		if err != nil {
			closeAll()
			return nil, err
		}
		if _, exists := files[cand.partition]; exists {
			closeAll()
			f.Close()
			return nil, famerr.Data("duplicate partition number %d in file set", cand.partition)
		}
		if firstIdentity == nil {
			id := f.Identity
			firstIdentity = &id
		} else if !firstIdentity.SameExport(f.Identity) {
			closeAll()
			f.Close()
			return nil, famerr.Data("mixed export: %s does not match the rest of the file set", cand.path)
		}
		files[cand.partition] = f
	}

	root, ok := files[0]
	if !ok {
		closeAll()
		return nil, famerr.Data("file set is missing required partition 0 (root)")
	}

	var warnings []string
	for _, n := range firstIdentity.FullPartitionTable {
		if _, ok := files[n]; !ok {
			warnings = append(warnings, fmt.Sprintf("partition %d not installed; its families are skipped", n))
		}
	}

	perFileNodes := make([][]taxonomy.Node, 0, len(files))
	familyOwner := make(map[int]int)
	for _, p := range sortedPartitions(files) {
		nodes, err := taxonomy.DecodeAllNodes(files[p].Container)
		if err != nil {
			closeAll()
			return nil, err
		}
		for _, n := range nodes {
			if len(n.FamilyAccessions) == 0 {
				continue
			}
			if first, dup := familyOwner[n.ID]; dup {
				warnings = append(warnings, fmt.Sprintf("taxon %d carries families in partitions %d and %d; using partition %d", n.ID, first, p, first))
				continue
			}
			familyOwner[n.ID] = p
		}
		perFileNodes = append(perFileNodes, nodes)
	}
	merged, _ := taxonomy.MergeNodes(perFileNodes)
	idx, err := taxonomy.Build(merged)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &Coordinator{
		dir:      dir,
		root:     root,
		files:    files,
		taxonomy: idx,
		warnings: warnings,
		log:      log,
	}, nil
}

// FindPartitionPath locates the on-disk bundle directory for a single
// partition number under dir, without opening it. append uses this to
// reach partition 0 for write without holding a concurrent read-only
// Coordinator over the same directory.
func FindPartitionPath(dir string, partition int) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", famerr.IO("read directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := bundlePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, convErr := strconv.Atoi(m[2])
		if convErr != nil || n != partition {
			continue
		}
		return filepath.Join(dir, e.Name()), nil
	}
	return "", famerr.Data("partition %d not found in %s", partition, dir)
}

func sortedPartitions(files map[int]*schema.File) []int {
	out := make([]int, 0, len(files))
	for p := range files {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Close releases every open partition bundle.
func (co *Coordinator) Close() error {
	var firstErr error
	for _, p := range sortedPartitions(co.files) {
		if err := co.files[p].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Taxonomy returns the merged taxonomy index built from every open
// partition.
func (co *Coordinator) Taxonomy() *taxonomy.Index { return co.taxonomy }

// Warnings returns every non-fatal condition recorded while opening or
// querying the file set (missing leaf partitions, duplicate ByTaxon
// routing).
func (co *Coordinator) Warnings() []string {
	return append([]string(nil), co.warnings...)
}

// Identity returns the shared file-set identity, taken from the root
// file.
func (co *Coordinator) Identity() schema.Identity {
	return co.root.Identity
}

// InstalledPartitions returns the partition numbers actually open, in
// ascending order.
func (co *Coordinator) InstalledPartitions() []int {
	return sortedPartitions(co.files)
}

// PartitionIdentity returns the identity of an installed partition's
// own file.
func (co *Coordinator) PartitionIdentity(partition int) (schema.Identity, bool) {
	f, ok := co.files[partition]
	if !ok {
		return schema.Identity{}, false
	}
	return f.Identity, true
}

// History returns the merged-per-partition change history ledger for an
// installed partition.
func (co *Coordinator) History(partition int) ([]schema.HistoryEntry, error) {
	f, ok := co.files[partition]
	if !ok {
		return nil, famerr.Data("partition %d not installed", partition)
	}
	return schema.ListHistory(f.Container)
}

// RepeatPeps returns the root file's RepeatMasker peptide blob
// verbatim, if present.
func (co *Coordinator) RepeatPeps() ([]byte, bool, error) {
	data, ok, err := co.root.Container.GetDataset(schema.RepeatPepsKey)
	if err != nil {
		return nil, false, famerr.IO("read RepeatPeps: %w", err)
	}
	return data, ok, nil
}

// GetFamily resolves an accession to its owning partition and decodes
// it. An accession present in more than one partition is a hard
// validation error: the cross-file identity of a family is its
// accession, so duplicates are invalid, not merely suspicious.
func (co *Coordinator) GetFamily(acc string) (*family.Family, error) {
	bare, _, _, err := family.ParseAccession(acc)
	if err != nil {
		return nil, famerr.User("%v", err)
	}

	var found *family.Family
	var foundPartition int
	for _, p := range sortedPartitions(co.files) {
		fam, ok, err := family.Decode(co.files[p].Container, bare)
		if err != nil {
			return nil, famerr.IO("decode family %s: %w", bare, err)
		}
		if !ok {
			continue
		}
		if found != nil {
			return nil, famerr.Data("accession %s present in both partition %d and %d", bare, foundPartition, p)
		}
		found = fam
		foundPartition = p
	}
	if found == nil {
		return nil, famerr.User("unknown accession %s", bare).WithSubject(bare)
	}
	return found, nil
}

// FamilyFilter narrows a candidate family during iteration; pkg/query
// composes these from the CLI's filter flags.
type FamilyFilter func(*family.Family) bool

func matchesAll(f *family.Family, filters []FamilyFilter) bool {
	for _, flt := range filters {
		if !flt(f) {
			return false
		}
	}
	return true
}

// IterFamiliesForTaxon visits, in lexicographic accession order, every
// family owned directly by taxon id that passes every filter.
func (co *Coordinator) IterFamiliesForTaxon(id int, filters []FamilyFilter, visit func(*family.Family) error) error {
	n, ok := co.taxonomy.Node(id)
	if !ok {
		return famerr.User("unknown taxon id %d", id)
	}
	f, ok := co.files[n.Partition]
	if !ok {
		co.warnings = append(co.warnings, fmt.Sprintf("partition %d not installed; skipping taxon %d", n.Partition, id))
		return nil
	}

	accs := append([]string(nil), n.FamilyAccessions...)
	sort.Strings(accs)
	for _, acc := range accs {
		fam, ok, err := family.Decode(f.Container, acc)
		if err != nil {
			return famerr.IO("decode family %s: %w", acc, err)
		}
		if !ok || !matchesAll(fam, filters) {
			continue
		}
		if err := visit(fam); err != nil {
			return err
		}
	}
	return nil
}

// FamiliesForTaxa groups the requested taxa by owning partition and
// iterates one partition at
// a time (never a flat union-then-sort), deduplicating accessions
// first-seen-wins across the whole call and sorting the final result
// lexicographically for deterministic output.
func (co *Coordinator) FamiliesForTaxa(ids []int, filters []FamilyFilter) ([]*family.Family, error) {
	byPartition := make(map[int][]int)
	for _, id := range ids {
		n, ok := co.taxonomy.Node(id)
		if !ok {
			continue
		}
		byPartition[n.Partition] = append(byPartition[n.Partition], id)
	}

	seen := make(map[string]bool)
	var out []*family.Family
	for _, p := range sortedPartitionKeys(byPartition) {
		f, ok := co.files[p]
		if !ok {
			co.warnings = append(co.warnings, fmt.Sprintf("partition %d not installed; skipping %d taxa", p, len(byPartition[p])))
			continue
		}
		for _, id := range byPartition[p] {
			n, _ := co.taxonomy.Node(id)
			accs := append([]string(nil), n.FamilyAccessions...)
			sort.Strings(accs)
			for _, acc := range accs {
				if seen[acc] {
					continue
				}
				fam, ok, err := family.Decode(f.Container, acc)
				if err != nil {
					return nil, famerr.IO("decode family %s: %w", acc, err)
				}
				if !ok || !matchesAll(fam, filters) {
					continue
				}
				seen[acc] = true
				out = append(out, fam)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Accession < out[j].Accession })
	return out, nil
}

// StreamFamiliesForTaxa visits every family owned by the requested taxa
// in global lexicographic accession order, deduplicating first-seen-wins
// across partitions. Families are decoded one at a time as the stream
// advances, so a large result set never holds every decoded record in
// memory.
func (co *Coordinator) StreamFamiliesForTaxa(ids []int, filters []FamilyFilter, visit func(*family.Family) error) error {
	owner := make(map[string]int)
	var accs []string
	missing := map[int]bool{}
	for _, id := range ids {
		n, ok := co.taxonomy.Node(id)
		if !ok {
			continue
		}
		if _, installed := co.files[n.Partition]; !installed {
			if !missing[n.Partition] {
				missing[n.Partition] = true
				co.warnings = append(co.warnings, fmt.Sprintf("partition %d not installed", n.Partition))
			}
			continue
		}
		for _, acc := range n.FamilyAccessions {
			if _, seen := owner[acc]; seen {
				continue
			}
			owner[acc] = n.Partition
			accs = append(accs, acc)
		}
	}
	sort.Strings(accs)

	for _, acc := range accs {
		fam, ok, err := family.Decode(co.files[owner[acc]].Container, acc)
		if err != nil {
			return famerr.IO("decode family %s: %w", acc, err)
		}
		if !ok || !matchesAll(fam, filters) {
			continue
		}
		if err := visit(fam); err != nil {
			return err
		}
	}
	return nil
}

func sortedPartitionKeys(m map[int][]int) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
