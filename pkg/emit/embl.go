package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/famdb/famdb/pkg/family"
)

type emblMode int

const (
	emblFull emblMode = iota
	emblMetaOnly
	emblSeqOnly
)

// emblRenderer implements the embl/embl_meta/embl_seq formats: the
// standard EMBL flat-file layout (ID/NM/AC/DE/DR/KW/OS/OC, per-citation
// RN/RA/RT/RL blocks, a CC block with description and RepeatMasker
// annotation, and the sequence in 60-nt groups of 10 with a trailing
// position counter).
type emblRenderer struct {
	mode emblMode
}

func (r emblRenderer) Render(w io.Writer, f *family.Family, ctx Context) error {
	var b strings.Builder

	fmt.Fprintf(&b, "ID   %s.%d; SV %d; linear; DNA; STD; UNC; %d BP.\n", f.Accession, f.Version, f.Version, len(f.Consensus))

	if r.mode != emblSeqOnly {
		fmt.Fprintf(&b, "NM   %s\n", f.Name)
		fmt.Fprintf(&b, "AC   %s;\n", f.Accession)
		for _, line := range wrapAt(75, "DE   ", f.Description) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if f.RepeatMasker.Type != "" || f.RepeatMasker.SubType != "" {
			fmt.Fprintf(&b, "DR   RepeatMasker; %s/%s.\n", f.RepeatMasker.Type, f.RepeatMasker.SubType)
		}
		if len(f.AlternateNames) > 0 {
			fmt.Fprintf(&b, "KW   %s.\n", strings.Join(f.AlternateNames, ", "))
		}

		fmt.Fprintf(&b, "OS   %s\n", ctx.cladeName())
		for _, line := range wrapAt(75, "OC   ", classificationPath(ctx)) {
			b.WriteString(line)
			b.WriteByte('\n')
		}

		for i, citation := range f.Citations {
			fmt.Fprintf(&b, "RN   [%d] (bases 1 to %d)\n", i+1, len(f.Consensus))
			fmt.Fprintf(&b, "RA   %s\n", citation.Authors)
			fmt.Fprintf(&b, "RT   %s\n", citation.Title)
			fmt.Fprintf(&b, "RL   %s\n", citation.Journal)
		}

		b.WriteString("CC   \n")
		for _, line := range wrapAt(75, "CC   ", f.Description) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteString("CC   RepeatMasker Annotations:\n")
		fmt.Fprintf(&b, "CC        Type: %s\n", f.RepeatMasker.Type)
		fmt.Fprintf(&b, "CC        SubType: %s\n", f.RepeatMasker.SubType)
		fmt.Fprintf(&b, "CC        Species: %s\n", ctx.cladeName())
		fmt.Fprintf(&b, "CC        SearchStages: %s\n", joinInts(f.RepeatMasker.SearchStages))
		fmt.Fprintf(&b, "CC        BufferStages: %s\n", joinBufferStages(f.RepeatMasker.BufferStages))
	}

	if r.mode != emblMetaOnly {
		b.WriteString(sequenceBlock(f.Consensus))
	}

	b.WriteString("//\n")
	return writeString(w, b.String())
}

func classificationPath(ctx Context) string {
	if ctx.Taxonomy == nil || ctx.Clade == 0 {
		return ""
	}
	ancestors := ctx.Taxonomy.Ancestors(ctx.Clade)
	names := make([]string, 0, len(ancestors)+1)
	for _, id := range ancestors {
		names = append(names, ctx.Taxonomy.DisplayName(id))
	}
	names = append(names, ctx.Taxonomy.DisplayName(ctx.Clade))
	return strings.Join(names, "; ") + "."
}

func joinInts(ints []int) string {
	parts := make([]string, len(ints))
	for i, v := range ints {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

func joinBufferStages(stages []family.BufferStage) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = fmt.Sprintf("%d[%d-%d]", s.Stage, s.Start, s.End)
	}
	return strings.Join(parts, ",")
}

// wrapAt wraps text to width columns (including prefix), repeating
// prefix on every continuation line. EMBL's DE/OC/CC blocks wrap at 75
// columns.
func wrapAt(width int, prefix, text string) []string {
	if text == "" {
		return []string{strings.TrimRight(prefix, " ")}
	}
	words := strings.Fields(text)
	var lines []string
	cur := prefix
	for _, word := range words {
		candidate := cur
		if cur != prefix {
			candidate += " "
		}
		candidate += word
		if len(candidate) > width && cur != prefix {
			lines = append(lines, cur)
			cur = prefix + word
			continue
		}
		cur = candidate
	}
	lines = append(lines, cur)
	return lines
}

// sequenceBlock renders the sequence in 60-nt groups of 10 with a
// trailing position counter, EMBL's "SQ" layout.
func sequenceBlock(seq string) string {
	if seq == "" {
		return ""
	}
	lower := strings.ToLower(seq)
	var b strings.Builder
	fmt.Fprintf(&b, "SQ   Sequence %d BP;\n", len(lower))

	pos := 0
	for pos < len(lower) {
		end := pos + 60
		if end > len(lower) {
			end = len(lower)
		}
		line := lower[pos:end]
		b.WriteString("    ")
		for i := 0; i < len(line); i += 10 {
			groupEnd := i + 10
			if groupEnd > len(line) {
				groupEnd = len(line)
			}
			b.WriteString(" ")
			b.WriteString(line[i:groupEnd])
		}
		pad := 60 - len(line)
		if pad > 0 {
			b.WriteString(strings.Repeat(" ", pad+pad/10+1))
		}
		fmt.Fprintf(&b, " %d\n", end)
		pos = end
	}
	return b.String()
}
