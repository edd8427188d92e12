package grid

import (
	"math"

	"github.com/rotisserie/eris"
)

// Bounds is the geographic raster behind cmap.txt and mmap.txt. Row 0 is the
// southern edge (LatMin) and column 0 the western edge (LonMin); each cell is
// Step degrees square.
type Bounds struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
	Step           float64
	Rows, Cols     int
}

// StudyArea is the Los Angeles basin raster: 45 x 50 cells of 0.02 degrees.
var StudyArea = Bounds{
	LatMin: 33.4, LatMax: 34.3,
	LonMin: -118.6, LonMax: -117.6,
	Step: 0.02, Rows: 45, Cols: 50,
}

// Validate reports a raster that cannot be indexed.
func (b Bounds) Validate() error {
	if b.Step <= 0 || math.IsNaN(b.Step) {
		return eris.New("grid: bounds step must be positive")
	}
	if b.Rows <= 0 || b.Cols <= 0 {
		return eris.New("grid: bounds rows and cols must be positive")
	}
	if !(b.LatMax > b.LatMin) || !(b.LonMax > b.LonMin) {
		return eris.New("grid: bounds max must exceed min")
	}
	return nil
}

// Contains reports whether a point lies in the bounding box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// Cell maps a point to its raster cell by truncation. ok is false when the
// point falls outside the Rows x Cols raster.
func (b Bounds) Cell(lat, lon float64) (row, col int, ok bool) {
	r := (lat - b.LatMin) / b.Step
	c := (lon - b.LonMin) / b.Step
	if r < 0 || c < 0 || math.IsNaN(r) || math.IsNaN(c) {
		return 0, 0, false
	}
	row, col = int(r), int(c)
	if row >= b.Rows || col >= b.Cols {
		return 0, 0, false
	}
	return row, col, true
}

// CellRect returns the corners of a cell as (minLon, minLat, maxLon, maxLat).
func (b Bounds) CellRect(row, col int) (minX, minY, maxX, maxY float64) {
	minX = b.LonMin + float64(col)*b.Step
	minY = b.LatMin + float64(row)*b.Step
	return minX, minY, minX + b.Step, minY + b.Step
}

// Span returns the inclusive cell range covering an envelope, clamped to the
// raster. The range may include cells the envelope only touches.
func (b Bounds) Span(minX, minY, maxX, maxY float64) (row0, row1, col0, col1 int) {
	row0 = b.clamp(int(math.Floor((minY-b.LatMin)/b.Step)), b.Rows)
	row1 = b.clamp(int(math.Ceil((maxY-b.LatMin)/b.Step)), b.Rows)
	col0 = b.clamp(int(math.Floor((minX-b.LonMin)/b.Step)), b.Cols)
	col1 = b.clamp(int(math.Ceil((maxX-b.LonMin)/b.Step)), b.Cols)
	return row0, row1, col0, col1
}

func (b Bounds) clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
