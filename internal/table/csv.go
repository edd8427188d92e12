// Package table reads delimited and spreadsheet tables as string records.
package table

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Record is one parsed row and the 1-based line it started on.
type Record struct {
	Line   int
	Fields []string
}

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	HasHeader  bool // if true, the first row is not sent
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

func newCSVReader(r io.Reader, opts CSVOptions) *csv.Reader {
	reader := csv.NewReader(StripBOM(r))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1
	return reader
}

// StreamCSV reads r and sends each record on the returned channel. A
// malformed row is a fatal error for the stream. Both channels are closed
// when reading completes; the caller must drain the record channel.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan Record, <-chan error) {
	recCh := make(chan Record, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		reader := newCSVReader(r, opts)
		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			fields, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			line, _ := reader.FieldPos(0)

			if opts.TrimSpace {
				for i, f := range fields {
					fields[i] = strings.TrimSpace(f)
				}
			}
			if first && opts.HasHeader {
				first = false
				continue
			}
			first = false

			select {
			case recCh <- Record{Line: line, Fields: fields}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return recCh, errCh
}

// ReadCSV reads every row of r, header included.
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	reader := newCSVReader(r, opts)
	var rows [][]string
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if opts.TrimSpace {
			for i, f := range fields {
				fields[i] = strings.TrimSpace(f)
			}
		}
		rows = append(rows, fields)
	}
}
