// Package emit implements the output format emitters: one Renderer per
// output format, sharing the Family object model from pkg/family and a
// Context that carries the queried clade (not the family's own
// classification), the optional reverse-complement and
// class-in-name flags, and an optional query species for the HMM
// threshold transform.
//
// Every renderer is deterministic: no timestamps and no map iteration;
// stages are printed sorted and every other list (alternate names,
// citations, thresholds) in its stored order, so two runs over the same
// inputs produce byte-identical output.
package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/famdb/famdb/internal/famerr"
	"github.com/famdb/famdb/pkg/family"
	"github.com/famdb/famdb/pkg/taxonomy"
)

// Context carries everything a renderer needs beyond the family record
// itself.
type Context struct {
	// Clade is the taxon id the caller queried against, the display
	// clade, distinct from the family's own Clades list.
	Clade int
	// Taxonomy resolves Clade (and, for EMBL's OC line, its ancestors)
	// to display names. May be nil, in which case clade-name fields are
	// emitted empty rather than panicking.
	Taxonomy *taxonomy.Index

	ReverseComplement  bool
	IncludeClassInName bool

	// SpeciesID selects the hmm_species threshold transform's query
	// species; zero means "no species given".
	SpeciesID int
}

func (ctx Context) cladeName() string {
	if ctx.Taxonomy == nil || ctx.Clade == 0 {
		return ""
	}
	return ctx.Taxonomy.DisplayName(ctx.Clade)
}

// Renderer renders one family to w under a format-specific byte layout.
type Renderer interface {
	Render(w io.Writer, f *family.Family, ctx Context) error
}

// Format names accepted by the `family`/`families` subcommands.
const (
	FormatSummary    = "summary"
	FormatHMM        = "hmm"
	FormatHMMSpecies = "hmm_species"
	FormatFastaName  = "fasta_name"
	FormatFastaAcc   = "fasta_acc"
	FormatEMBL       = "embl"
	FormatEMBLMeta   = "embl_meta"
	FormatEMBLSeq    = "embl_seq"
)

// Lookup returns the Renderer for a format name, or a UserError if the
// name is unknown.
func Lookup(format string) (Renderer, error) {
	switch format {
	case FormatSummary:
		return summaryRenderer{}, nil
	case FormatHMM:
		return hmmRenderer{species: false}, nil
	case FormatHMMSpecies:
		return hmmRenderer{species: true}, nil
	case FormatFastaName:
		return fastaRenderer{useAccession: false}, nil
	case FormatFastaAcc:
		return fastaRenderer{useAccession: true}, nil
	case FormatEMBL:
		return emblRenderer{mode: emblFull}, nil
	case FormatEMBLMeta:
		return emblRenderer{mode: emblMetaOnly}, nil
	case FormatEMBLSeq:
		return emblRenderer{mode: emblSeqOnly}, nil
	default:
		return nil, famerr.User("unknown format %q", format).WithHint("valid formats: summary, hmm, hmm_species, fasta_name, fasta_acc, embl, embl_meta, embl_seq")
	}
}

// stagesField renders the "[S:stages]" suffix of the fasta_name and
// fasta_acc headers, empty when the family carries no stages at all.
func stagesField(f *family.Family) string {
	stages := f.Stages()
	if len(stages) == 0 {
		return ""
	}
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return " [S:" + strings.Join(parts, ",") + "]"
}

func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
