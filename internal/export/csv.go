package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// WriteCSV writes one sheet as CSV, header first.
func WriteCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header); err != nil {
		return eris.Wrapf(err, "csv: write header for %s", s.Name)
	}
	if err := cw.WriteAll(s.Rows); err != nil {
		return eris.Wrapf(err, "csv: write %s", s.Name)
	}
	return nil
}
