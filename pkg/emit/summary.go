package emit

import (
	"fmt"
	"io"

	"github.com/famdb/famdb/pkg/family"
)

// summaryRenderer implements the "summary" format:
// `<ACC>.<VER> '<NAME>': <classification> len=<N>`.
type summaryRenderer struct{}

func (summaryRenderer) Render(w io.Writer, f *family.Family, _ Context) error {
	_, err := fmt.Fprintf(w, "%s.%d '%s': %s len=%d\n", f.Accession, f.Version, f.Name, f.Classification, f.Length)
	return err
}
