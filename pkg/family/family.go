// Package family implements the TE family record and its codec:
// accession parsing/validation and the container encode/decode that
// hides the inline-vs-chunked storage choice for consensus/HMM payloads
// from callers.
//
// The open Unknown map is a typed struct's residual: round-tripping an
// attribute this schema version does not name never loses data.
package family

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// BufferStage is one RepeatMasker buffer-stage span.
type BufferStage struct {
	Stage int
	Start int
	End   int
}

// RepeatMaskerAnnotation carries the RepeatMasker pipeline annotations
// attached to a family.
type RepeatMaskerAnnotation struct {
	Type         string
	SubType      string
	SearchStages []int
	BufferStages []BufferStage
}

// Citation is one literature reference attached to a family, emitted as
// an EMBL RN/RA/RT/RL block.
type Citation struct {
	Authors string
	Title   string
	Journal string
}

// Threshold is one per-species TH line inside an HMM.
type Threshold struct {
	TaxonID   int
	TaxonName string
	GA        float64
	TC        float64
	NC        float64
	FDR       float64
}

// HMM carries the structured fields pulled out of an HMM payload plus
// its raw bytes, so callers that only need to copy-and-rewrite (C7's
// hmm/hmm_species renderers) never have to reparse.
type HMM struct {
	Raw        []byte
	GA, TC, NC float64
	HasGeneral bool
	Thresholds []Threshold
}

// Family is the in-memory TE family record.
type Family struct {
	Accession string
	Version   int
	Curated   bool

	Name           string
	AlternateNames []string
	Description    string
	Classification string // semicolon-delimited, begins with "root"
	Clades         []int  // taxon ids

	Consensus string // nucleotide string, may be empty
	HMM       *HMM   // nil when the family carries no HMM payload

	Citations []Citation

	DateCreated  string
	DateModified string

	Length int

	RepeatMasker RepeatMaskerAnnotation

	TargetSiteCons string
	Refineable     bool

	// Unknown preserves any attribute this codec doesn't recognize,
	// keyed exactly as stored, so a round-trip through an older or
	// newer schema minor version never silently drops data.
	Unknown map[string]string
}

var accessionPattern = regexp.MustCompile(`^(DF|DR)(\d+)(?:\.(\d+))?$`)

// ParseAccession validates and decomposes an accession string, matching
// case-insensitively but normalizing to upper-case. It returns
// the bare accession (no version suffix), the curated flag and the
// version, or an error if the string does not match `DF`/`DR` + digits
// + optional `.N`.
func ParseAccession(raw string) (accession string, curated bool, version int, err error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	m := accessionPattern.FindStringSubmatch(upper)
	if m == nil {
		return "", false, 0, fmt.Errorf("malformed accession %q: want DF/DR followed by digits and an optional .version", raw)
	}
	curated = m[1] == "DF"
	accession = m[1] + m[2]
	if m[3] != "" {
		version, err = strconv.Atoi(m[3])
		if err != nil {
			return "", false, 0, fmt.Errorf("malformed accession version in %q: %w", raw, err)
		}
	}
	return accession, curated, version, nil
}

// CuratedFromAccession derives the curated flag from an accession's
// prefix alone, for callers that already trust the accession shape
// (e.g. a lookup-index bucket key).
func CuratedFromAccession(accession string) bool {
	return strings.HasPrefix(strings.ToUpper(accession), "DF")
}

// MatchesClassPrefix implements the --class filter: it matches
// component-by-component against the semicolon-delimited classification
// path, so "LTR" matches "root;LTR/ERVL" but not "root;xLTR".
func (f *Family) MatchesClassPrefix(prefix string) bool {
	if prefix == "" {
		return true
	}
	for _, component := range strings.Split(f.Classification, ";") {
		component = strings.TrimSpace(component)
		if component == prefix || strings.HasPrefix(component, prefix+"/") {
			return true
		}
	}
	return false
}

// MatchesNamePrefix implements the --name filter: a case-insensitive
// prefix match against the family name or any alternate name.
func (f *Family) MatchesNamePrefix(prefix string) bool {
	if prefix == "" {
		return true
	}
	prefix = strings.ToLower(prefix)
	if strings.HasPrefix(strings.ToLower(f.Name), prefix) {
		return true
	}
	for _, alt := range f.AlternateNames {
		if strings.HasPrefix(strings.ToLower(alt), prefix) {
			return true
		}
	}
	return false
}

// MatchesStage implements the --stage filter: stage must appear in
// either the search_stages or any buffer_stages entry.
func (f *Family) MatchesStage(stage int) bool {
	for _, s := range f.RepeatMasker.SearchStages {
		if s == stage {
			return true
		}
	}
	for _, b := range f.RepeatMasker.BufferStages {
		if b.Stage == stage {
			return true
		}
	}
	return false
}

// HasGeneralThreshold implements the --require-general-threshold
// filter: the family's HMM (if any) carries a non-null GA/TC/NC.
func (f *Family) HasGeneralThreshold() bool {
	return f.HMM != nil && f.HMM.HasGeneral
}

// WrapSequence wraps s at 60 columns; pkg/emit's FASTA renderers use it
// for the consensus body.
func WrapSequence(s string) string {
	const width = 60
	if len(s) <= width {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i += width {
		end := i + width
		if end > len(s) {
			end = len(s)
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}

// Stages returns the union of search and buffer stages, sorted and
// deduplicated, used by the FASTA renderers' "[S:stages]" field.
func (f *Family) Stages() []int {
	seen := make(map[int]bool)
	var out []int
	add := func(s int) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range f.RepeatMasker.SearchStages {
		add(s)
	}
	for _, b := range f.RepeatMasker.BufferStages {
		add(b.Stage)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
