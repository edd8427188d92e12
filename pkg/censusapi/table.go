package censusapi

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
)

// Table is a decoded API response.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of a header name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// WriteCSV writes the header and rows as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "censusapi: write header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return eris.Wrap(err, "censusapi: write rows")
	}
	return nil
}

// Print writes the table aligned in columns.
func (t *Table) Print(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(t.Header, "\t"))
	for _, r := range t.Rows {
		_, _ = fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return eris.Wrap(w.Flush(), "censusapi: flush table")
}
