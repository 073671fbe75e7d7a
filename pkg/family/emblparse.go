package family

import (
	"strconv"
	"strings"
)

// ParseEMBL parses the EMBL flat-file layout pkg/emit's "embl" renderer
// produces. It recovers the accession, version, name, description,
// alternate names, citations, RepeatMasker type/subtype/search stages
// and the consensus (with Length set from it). It does not recover
// clades, buffer stages, the HMM, dates, target-site consensus or the
// refineable flag, and Classification is rebuilt as
// "root;<Type>/<SubType>" rather than the original path. It is a reader
// for this repository's own emitted shape, not a general EMBL-dialect
// parser; the builder tool owns full upstream EMBL-dump ingestion.
func ParseEMBL(data []byte) (*Family, error) {
	lines := strings.Split(string(data), "\n")

	f := &Family{}
	var ccLines []string
	var seqLines []string
	inSeq := false

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if line == "//" {
			continue
		}
		if inSeq {
			seqLines = append(seqLines, line)
			continue
		}

		tag, rest := splitTag(line)
		switch tag {
		case "ID":
			fields := strings.Split(strings.TrimSuffix(rest, "."), ";")
			if len(fields) > 0 {
				acc, curated, version, err := ParseAccession(strings.TrimSpace(fields[0]))
				if err == nil {
					f.Accession, f.Curated, f.Version = acc, curated, version
				}
			}
		case "NM":
			f.Name = strings.TrimSpace(rest)
		case "AC":
			if f.Accession == "" {
				f.Accession = strings.TrimSpace(strings.TrimSuffix(rest, ";"))
			}
		case "DE":
			appendWrapped(&f.Description, rest)
		case "DR":
			// "RepeatMasker; Type/SubType." repeats what the CC
			// annotation block carries; Type/SubType are read from CC.
			// OC encodes the species clade's taxonomic lineage, not the
			// classification, and is not parsed either.
		case "KW":
			for _, name := range strings.Split(strings.TrimSuffix(rest, "."), ",") {
				name = strings.TrimSpace(name)
				if name != "" {
					f.AlternateNames = append(f.AlternateNames, name)
				}
			}
		case "RN":
			f.Citations = append(f.Citations, Citation{})
		case "RA", "RT", "RL":
			if len(f.Citations) == 0 {
				f.Citations = append(f.Citations, Citation{})
			}
			cur := &f.Citations[len(f.Citations)-1]
			text := strings.TrimSpace(rest)
			switch tag {
			case "RA":
				cur.Authors = text
			case "RT":
				cur.Title = text
			case "RL":
				cur.Journal = text
			}
		case "CC":
			ccLines = append(ccLines, strings.TrimSpace(rest))
		case "SQ":
			inSeq = true
		}
	}

	parseCCAnnotations(f, ccLines)
	if f.RepeatMasker.Type != "" || f.RepeatMasker.SubType != "" {
		f.Classification = "root;" + f.RepeatMasker.Type + "/" + f.RepeatMasker.SubType
	}

	if len(seqLines) > 0 {
		f.Consensus = strings.ToUpper(extractSequence(strings.Join(seqLines, " ")))
		f.Length = len(f.Consensus)
	}

	return f, nil
}

func splitTag(line string) (tag, rest string) {
	if len(line) < 2 {
		return "", line
	}
	tag = strings.TrimSpace(line[:2])
	if len(line) <= 5 {
		return tag, ""
	}
	return tag, line[5:]
}

func appendWrapped(dst *string, part string) {
	part = strings.TrimSpace(part)
	if part == "" {
		return
	}
	if *dst == "" {
		*dst = part
		return
	}
	*dst += " " + part
}

func parseCCAnnotations(f *Family, ccLines []string) {
	for _, line := range ccLines {
		switch {
		case strings.HasPrefix(line, "Type:"):
			f.RepeatMasker.Type = strings.TrimSpace(strings.TrimPrefix(line, "Type:"))
		case strings.HasPrefix(line, "SubType:"):
			f.RepeatMasker.SubType = strings.TrimSpace(strings.TrimPrefix(line, "SubType:"))
		case strings.HasPrefix(line, "SearchStages:"):
			for _, s := range strings.Split(strings.TrimPrefix(line, "SearchStages:"), ",") {
				s = strings.TrimSpace(s)
				if n, err := strconv.Atoi(s); err == nil {
					f.RepeatMasker.SearchStages = append(f.RepeatMasker.SearchStages, n)
				}
			}
		}
	}
}

// extractSequence strips the leading "Sequence N BP;" header and every
// trailing position counter from a joined SQ block, leaving only the
// nucleotide characters.
func extractSequence(block string) string {
	var b strings.Builder
	for _, field := range strings.Fields(block) {
		isSeqGroup := true
		for _, r := range field {
			if !strings.ContainsRune("acgtnACGTNrywsRYWSkmKMbvdhBVDH", r) {
				isSeqGroup = false
				break
			}
		}
		if isSeqGroup && !strings.EqualFold(field, "Sequence") {
			b.WriteString(field)
		}
	}
	return b.String()
}
