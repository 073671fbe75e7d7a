package query

import (
	"io"

	"github.com/famdb/famdb/pkg/emit"
)

// Family implements the `family` subcommand: resolve the accession
// (exact string match, case-insensitive), load it, and render it with
// the requested format.
func (e *Engine) Family(w io.Writer, accession, format string, speciesID int) error {
	renderer, err := emit.Lookup(format)
	if err != nil {
		return err
	}

	fam, err := e.co.GetFamily(accession)
	if err != nil {
		return err
	}

	clade := 0
	if len(fam.Clades) > 0 {
		clade = fam.Clades[0]
	}

	ctx := emit.Context{
		Clade:     clade,
		Taxonomy:  e.co.Taxonomy(),
		SpeciesID: speciesID,
	}
	return renderer.Render(w, fam, ctx)
}
