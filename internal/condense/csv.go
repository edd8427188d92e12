package condense

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/popgrid/internal/cell"
	"github.com/sells-group/popgrid/internal/grid"
)

// Column names of the condensed table.
const (
	ColID        = "cell ID"
	ColCensus    = "cmap val"
	ColMobile    = "mmap val"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
)

// Header returns the header row for the table.
func Header(geotag bool) []string {
	h := []string{ColID, ColCensus, ColMobile}
	if geotag {
		h = append(h, ColLatitude, ColLongitude)
	}
	return h
}

// Write emits the header and one record per row.
func Write(w io.Writer, rows []Row, geotag bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(geotag)); err != nil {
		return eris.Wrap(err, "condense: write header")
	}

	for _, r := range rows {
		rec := []string{r.ID, r.Census, r.Mobile}
		if geotag {
			if r.Coord == nil {
				return eris.Errorf("condense: row %s has no coordinate", r.ID)
			}
			rec = append(rec,
				strconv.FormatFloat(r.Coord.Lat, 'f', -1, 64),
				strconv.FormatFloat(r.Coord.Lon, 'f', -1, 64),
			)
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "condense: write row %s", r.ID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "condense: flush")
}

// WriteFile truncates path and writes the table to it.
func WriteFile(path string, rows []Row, geotag bool) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "condense: create %s", path)
	}
	if err := Write(f, rows, geotag); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "condense: close %s", path)
	}
	return nil
}

// Read expands a condensed table back into its census and mobile grids,
// addressed by the row and column encoded in each cell ID. Cells absent from
// the table are "0".
func Read(r io.Reader) (census, mobile *grid.Grid, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, eris.New("condense: empty table")
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "condense: read header")
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range []string{ColID, ColCensus, ColMobile} {
		if _, ok := idx[name]; !ok {
			return nil, nil, eris.Errorf("condense: missing column %q", name)
		}
	}

	type entry struct {
		row, col       int
		census, mobile string
	}
	var entries []entry
	rows, cols := 0, 0
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, eris.Wrapf(err, "condense: read line %d", line)
		}
		if len(rec) < len(header) {
			return nil, nil, eris.Errorf("condense: line %d has %d fields, want %d", line, len(rec), len(header))
		}

		i, j, err := cell.Decode(rec[idx[ColID]])
		if err != nil {
			return nil, nil, eris.Wrapf(err, "condense: line %d", line)
		}
		entries = append(entries, entry{i, j, rec[idx[ColCensus]], rec[idx[ColMobile]]})
		rows = max(rows, i+1)
		cols = max(cols, j+1)
	}

	c := zeroCells(rows, cols)
	m := zeroCells(rows, cols)
	for _, e := range entries {
		c[e.row][e.col] = e.census
		m[e.row][e.col] = e.mobile
	}
	return grid.New(c), grid.New(m), nil
}

// ReadFile is Read over a file.
func ReadFile(path string) (census, mobile *grid.Grid, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "condense: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Read(f)
}

func zeroCells(rows, cols int) [][]string {
	cells := make([][]string, rows)
	for i := range cells {
		row := make([]string, cols)
		for j := range row {
			row[j] = "0"
		}
		cells[i] = row
	}
	return cells
}
