package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/famdb/famdb/pkg/family"
)

// fastaRenderer implements the fasta_name/fasta_acc formats: header
// `>NAME @Clade [S:stages]` or `>ACC.VER name=NAME @Clade [S:stages]`,
// with an optional `#Type/SubType` class tag and an optional
// reverse-complement second record.
type fastaRenderer struct {
	useAccession bool
}

func (r fastaRenderer) Render(w io.Writer, f *family.Family, ctx Context) error {
	identifier := f.Name
	if r.useAccession {
		identifier = fmt.Sprintf("%s.%d", f.Accession, f.Version)
	}
	if ctx.IncludeClassInName && (f.RepeatMasker.Type != "" || f.RepeatMasker.SubType != "") {
		identifier += "#" + f.RepeatMasker.Type + "/" + f.RepeatMasker.SubType
	}

	nameField := ""
	if r.useAccession {
		nameField = " name=" + f.Name
	}

	header := fmt.Sprintf(">%s%s @%s%s\n", identifier, nameField, ctx.cladeName(), stagesField(f))
	if err := writeString(w, header); err != nil {
		return err
	}
	if err := writeWrapped(w, f.Consensus); err != nil {
		return err
	}

	if !ctx.ReverseComplement || f.Consensus == "" {
		return nil
	}

	rcHeader := fmt.Sprintf(">%s_RC%s @%s%s\n", identifier, nameField, ctx.cladeName(), stagesField(f))
	if err := writeString(w, rcHeader); err != nil {
		return err
	}
	return writeWrapped(w, reverseComplement(f.Consensus))
}

func writeWrapped(w io.Writer, seq string) error {
	if seq == "" {
		return nil
	}
	if err := writeString(w, family.WrapSequence(seq)); err != nil {
		return err
	}
	return writeString(w, "\n")
}

// reverseComplement computes the DNA reverse complement of an
// upper-cased consensus string. ACGT and the IUPAC ambiguity codes
// N/R/Y/W/S/K/M/B/V/D/H are complemented; any other symbol passes
// through unchanged.
func reverseComplement(seq string) string {
	complement := map[byte]byte{
		'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C',
		'N': 'N', 'R': 'Y', 'Y': 'R', 'W': 'W', 'S': 'S',
		'K': 'M', 'M': 'K', 'B': 'V', 'V': 'B', 'D': 'H', 'H': 'D',
	}
	upper := strings.ToUpper(seq)
	out := make([]byte, len(upper))
	for i := 0; i < len(upper); i++ {
		c, ok := complement[upper[i]]
		if !ok {
			c = upper[i]
		}
		out[len(upper)-1-i] = c
	}
	return string(out)
}
