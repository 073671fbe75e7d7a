package emit

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/famdb/famdb/internal/famerr"
	"github.com/famdb/famdb/pkg/family"
)

// hmmRenderer implements the hmm and hmm_species formats. The stored
// HMM payload is a textual HMMER-style model (NAME/ACC/DESC header
// lines, GA/TC/NC threshold lines, optional TH per-species threshold
// lines, then the model body); the renderer rewrites the header lines
// from current family metadata and either appends CT/TH lines (plain
// hmm) or collapses to one species' thresholds (hmm_species).
type hmmRenderer struct {
	species bool
}

func (r hmmRenderer) Render(w io.Writer, f *family.Family, ctx Context) error {
	if f.HMM == nil || len(f.HMM.Raw) == 0 {
		return famerr.User("family %s has no HMM payload", f.Accession).WithSubject(f.Accession)
	}

	lines := strings.Split(string(f.HMM.Raw), "\n")
	lines = rewriteHeader(lines, f)

	if r.species {
		lines = dropThresholdLines(lines)
		th, ok := nearestThreshold(f.HMM.Thresholds, ctx)
		if ok {
			lines = setGeneralThresholds(lines, th.GA, th.TC, th.NC)
		}
	} else {
		lines = dropThresholdLines(lines)
		lines = appendClassAndThresholds(lines, f)
	}

	return writeString(w, strings.Join(lines, "\n"))
}

func rewriteHeader(lines []string, f *family.Family) []string {
	out := make([]string, 0, len(lines))
	replaced := map[string]bool{}
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "NAME"):
			out = append(out, fmt.Sprintf("NAME  %s", f.Name))
			replaced["NAME"] = true
		case strings.HasPrefix(line, "ACC"):
			out = append(out, fmt.Sprintf("ACC   %s.%d", f.Accession, f.Version))
			replaced["ACC"] = true
		case strings.HasPrefix(line, "DESC"):
			out = append(out, fmt.Sprintf("DESC  %s", f.Description))
			replaced["DESC"] = true
		default:
			out = append(out, line)
		}
	}
	// Insert any header line the stored payload didn't carry, right
	// after the first line (the payload always opens with "HMMER3/...").
	var prefix []string
	if !replaced["NAME"] {
		prefix = append(prefix, fmt.Sprintf("NAME  %s", f.Name))
	}
	if !replaced["ACC"] {
		prefix = append(prefix, fmt.Sprintf("ACC   %s.%d", f.Accession, f.Version))
	}
	if !replaced["DESC"] && f.Description != "" {
		prefix = append(prefix, fmt.Sprintf("DESC  %s", f.Description))
	}
	if len(prefix) == 0 || len(out) == 0 {
		return out
	}
	result := make([]string, 0, len(out)+len(prefix))
	result = append(result, out[0])
	result = append(result, prefix...)
	result = append(result, out[1:]...)
	return result
}

// dropThresholdLines removes every "TH" line from a stored payload, so
// both renderers can append (or not) their own current set.
func dropThresholdLines(lines []string) []string {
	out := lines[:0:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "TH ") || strings.HasPrefix(line, "TH\t") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// appendClassAndThresholds appends the CT class lines and one TH line
// per per-species threshold (plain hmm format), inserted just before
// the "//" model terminator if present, otherwise at the end.
func appendClassAndThresholds(lines []string, f *family.Family) []string {
	var ct []string
	if f.RepeatMasker.Type != "" || f.RepeatMasker.SubType != "" {
		ct = append(ct, fmt.Sprintf("CT   %s/%s", f.RepeatMasker.Type, f.RepeatMasker.SubType))
	}

	var th []string
	if f.HMM != nil {
		for _, t := range f.HMM.Thresholds {
			th = append(th, fmt.Sprintf("TH   TaxId:%d  TaxName:%s  GA:%.2f  TC:%.2f  NC:%.2f  fdr:%.2f",
				t.TaxonID, t.TaxonName, t.GA, t.TC, t.NC, t.FDR))
		}
	}

	insertion := append(ct, th...)
	if len(insertion) == 0 {
		return lines
	}
	return insertBeforeTerminator(lines, insertion)
}

func insertBeforeTerminator(lines []string, insertion []string) []string {
	for i, line := range lines {
		if strings.TrimSpace(line) == "//" {
			out := make([]string, 0, len(lines)+len(insertion))
			out = append(out, lines[:i]...)
			out = append(out, insertion...)
			out = append(out, lines[i:]...)
			return out
		}
	}
	out := make([]string, 0, len(lines)+len(insertion))
	out = append(out, lines...)
	out = append(out, insertion...)
	return out
}

// nearestThreshold picks the TH entry whose taxon is the nearest
// ancestor-or-self of ctx.SpeciesID, walking the species' own ancestor
// chain (closest first) and returning the first threshold that matches
// any ancestor on it.
func nearestThreshold(thresholds []family.Threshold, ctx Context) (family.Threshold, bool) {
	if len(thresholds) == 0 || ctx.SpeciesID == 0 {
		return family.Threshold{}, false
	}

	byTaxon := make(map[int]family.Threshold, len(thresholds))
	for _, t := range thresholds {
		byTaxon[t.TaxonID] = t
	}

	if t, ok := byTaxon[ctx.SpeciesID]; ok {
		return t, true
	}
	if ctx.Taxonomy == nil {
		return family.Threshold{}, false
	}
	for _, ancestorID := range reversedInts(ctx.Taxonomy.Ancestors(ctx.SpeciesID)) {
		if t, ok := byTaxon[ancestorID]; ok {
			return t, true
		}
	}
	return family.Threshold{}, false
}

func reversedInts(ids []int) []int {
	out := make([]int, len(ids))
	for i, v := range ids {
		out[len(ids)-1-i] = v
	}
	return out
}

func setGeneralThresholds(lines []string, ga, tc, nc float64) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	set := func(prefix string, value float64) {
		text := prefix + "  " + strconv.FormatFloat(value, 'f', 1, 64) + ";"
		for i, line := range out {
			if strings.HasPrefix(line, prefix+" ") || strings.HasPrefix(line, prefix+"\t") {
				out[i] = text
				return
			}
		}
	}
	set("GA", ga)
	set("TC", tc)
	set("NC", nc)
	return out
}
