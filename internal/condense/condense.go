// Package condense joins a census grid and a mobile grid into a flat
// per-cell table (condensed_data.csv) and reads such tables back.
package condense

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/cell"
	"github.com/sells-group/popgrid/internal/grid"
)

// Row is one cell of the condensed table.
type Row struct {
	ID     string
	Census string
	Mobile string
	// Coord is set only when geotagging is enabled.
	Coord *cell.Coord
}

// Options controls how rows are built.
type Options struct {
	Policy grid.Policy
	Geotag bool
	// Geo defaults to cell.DefaultGeo when its Step is zero.
	Geo cell.Geo
}

// Build reorients both grids and emits one row per cell, rows outer and
// columns inner. Every cell is emitted, including zero and degenerate ones.
func Build(census, mobile *grid.Grid, opts Options) ([]Row, error) {
	if err := grid.CheckShape(census, mobile); err != nil {
		return nil, err
	}

	c, err := census.Sanitize(opts.Policy)
	if err != nil {
		return nil, eris.Wrap(err, "condense: census grid")
	}
	m, err := mobile.Sanitize(opts.Policy)
	if err != nil {
		return nil, eris.Wrap(err, "condense: mobile grid")
	}

	c = c.Reorient()
	m = m.Reorient()

	geo := opts.Geo
	if geo.Step == 0 {
		geo = cell.DefaultGeo
	}

	rows := make([]Row, 0, m.Rows()*m.Cols())
	for i := range m.Rows() {
		for j := range m.Cols() {
			id, err := cell.ID(i, j)
			if err != nil {
				return nil, err
			}
			row := Row{ID: id, Census: c.At(i, j), Mobile: m.At(i, j)}
			if opts.Geotag {
				coord := geo.Coord(i, j)
				row.Coord = &coord
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Condense loads both grid files, builds the table and rewrites outPath.
// It returns the number of rows written.
func Condense(censusPath, mobilePath, outPath string, opts Options) (int, error) {
	log := zap.L().With(
		zap.String("component", "condense"),
		zap.String("output", outPath),
	)

	census, err := grid.Load(censusPath)
	if err != nil {
		return 0, eris.Wrap(err, "condense: load census grid")
	}
	mobile, err := grid.Load(mobilePath)
	if err != nil {
		return 0, eris.Wrap(err, "condense: load mobile grid")
	}
	log.Debug("grids loaded",
		zap.Int("rows", census.Rows()),
		zap.Int("cols", census.Cols()),
		zap.String("policy", opts.Policy.String()),
	)

	rows, err := Build(census, mobile, opts)
	if err != nil {
		return 0, err
	}
	if err := WriteFile(outPath, rows, opts.Geotag); err != nil {
		return 0, err
	}

	log.Info("condensed table written", zap.Int("rows", len(rows)), zap.Bool("geotag", opts.Geotag))
	return len(rows), nil
}
