// Package raster apportions tract populations onto the census grid
// (cmap.txt).
package raster

import (
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/popgrid/internal/grid"
	"github.com/sells-group/popgrid/internal/table"
)

// Weighting selects how a tract's population is shared between the cells it
// overlaps.
type Weighting int

const (
	// ByCell scales the population by the fraction of the cell covered.
	// This is the default and matches the census grids used so far.
	ByCell Weighting = iota
	// ByPolygon gives each cell the fraction of the tract's area it covers,
	// so a tract inside the raster contributes at most its population.
	ByPolygon
)

// ParseWeighting maps "cell" (or "") and "polygon" to a Weighting.
func ParseWeighting(s string) (Weighting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cell":
		return ByCell, nil
	case "polygon":
		return ByPolygon, nil
	}
	return ByCell, eris.Errorf("raster: unknown weighting %q", s)
}

// Tract is one populated polygon read from a tract_to_pop.csv table.
type Tract struct {
	Line       int
	ID         string
	Population int
	Polygons   []*geom.Polygon
}

// Stats counts the outcome of a rasterization.
type Stats struct {
	Rasterized int
	Skipped    int
}

// ReadTracts reads a TRACT,POP100,geometry table. Rows with too few fields,
// a population that is not a finite number, or geometry that is not a
// (multi)polygon are logged with their line number and skipped.
func ReadTracts(ctx context.Context, r io.Reader) ([]Tract, int, error) {
	log := zap.L().With(zap.String("component", "raster"))

	recCh, errCh := table.StreamCSV(ctx, r, table.CSVOptions{HasHeader: true, TrimSpace: true})

	var tracts []Tract
	var skipped int
	for rec := range recCh {
		if len(rec.Fields) < 3 {
			log.Warn("invalid format", zap.Int("line", rec.Line), zap.Int("fields", len(rec.Fields)))
			skipped++
			continue
		}

		pop, err := strconv.ParseFloat(rec.Fields[1], 64)
		if err != nil || math.IsNaN(pop) || math.IsInf(pop, 0) {
			log.Warn("invalid population value", zap.Int("line", rec.Line), zap.String("value", rec.Fields[1]))
			skipped++
			continue
		}

		polys, err := parsePolygons(rec.Fields[2])
		if err != nil {
			log.Warn("invalid geometry", zap.Int("line", rec.Line), zap.Error(err))
			skipped++
			continue
		}

		tracts = append(tracts, Tract{
			Line:       rec.Line,
			ID:         rec.Fields[0],
			Population: int(pop),
			Polygons:   polys,
		})
	}
	for err := range errCh {
		if err != nil {
			return nil, skipped, eris.Wrap(err, "raster: read tracts")
		}
	}
	return tracts, skipped, nil
}

func parsePolygons(text string) ([]*geom.Polygon, error) {
	g, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, eris.Wrap(err, "parse wkt")
	}
	switch t := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{t}, nil
	case *geom.MultiPolygon:
		polys := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := range t.NumPolygons() {
			polys = append(polys, t.Polygon(i))
		}
		return polys, nil
	}
	return nil, eris.Errorf("unsupported geometry %T", g)
}

// Rasterize adds every tract to a b.Rows x b.Cols grid. Each tract adds the
// truncated share of its population to each cell it overlaps.
func Rasterize(tracts []Tract, b grid.Bounds, w Weighting) (*mat.Dense, Stats) {
	out := mat.NewDense(b.Rows, b.Cols, nil)
	cellArea := b.Step * b.Step

	var st Stats
	for _, t := range tracts {
		var total float64
		for _, p := range t.Polygons {
			total += polygonArea(p, nil)
		}
		if total == 0 {
			st.Skipped++
			continue
		}
		denom := total
		if w == ByCell {
			denom = cellArea
		}

		shares := make(map[[2]int]float64)
		for _, p := range t.Polygons {
			env := p.Bounds()
			if env.IsEmpty() {
				continue
			}
			r0, r1, c0, c1 := b.Span(env.Min(0), env.Min(1), env.Max(0), env.Max(1))
			for i := r0; i <= r1; i++ {
				for j := c0; j <= c1; j++ {
					minX, minY, maxX, maxY := b.CellRect(i, j)
					if a := overlapArea(p, rect{minX, minY, maxX, maxY}); a > 0 {
						shares[[2]int{i, j}] += a
					}
				}
			}
		}

		for ij, a := range shares {
			out.Set(ij[0], ij[1], out.At(ij[0], ij[1])+math.Trunc(a/denom*float64(t.Population)))
		}
		st.Rasterized++
	}
	return out, st
}

// Run reads tracts from inPath, rasterizes them and writes the grid to
// outPath.
func Run(ctx context.Context, inPath, outPath string, b grid.Bounds, w Weighting) (Stats, error) {
	log := zap.L().With(
		zap.String("component", "raster"),
		zap.String("input", inPath),
	)

	if err := b.Validate(); err != nil {
		return Stats{}, eris.Wrap(err, "raster")
	}

	f, err := os.Open(inPath)
	if err != nil {
		return Stats{}, eris.Wrapf(err, "raster: open %s", inPath)
	}
	defer f.Close() //nolint:errcheck

	tracts, skipped, err := ReadTracts(ctx, f)
	if err != nil {
		return Stats{}, err
	}

	m, st := Rasterize(tracts, b, w)
	st.Skipped += skipped

	if err := grid.FromDense(m).Save(outPath); err != nil {
		return st, eris.Wrap(err, "raster: write grid")
	}

	log.Info("census grid written",
		zap.String("output", outPath),
		zap.Int("rasterized", st.Rasterized),
		zap.Int("skipped", st.Skipped),
		zap.Float64("population", mat.Sum(m)),
	)
	return st, nil
}
