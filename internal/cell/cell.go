// Package cell encodes grid positions as condensed-table identifiers and
// geographic coordinates.
package cell

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// MaxIndex is the largest row or column index a two-digit half can hold.
const MaxIndex = 99

var (
	// ErrIndexOverflow is returned when a row or column needs more than two digits.
	ErrIndexOverflow = eris.New("cell: index out of range 0-99")
	// ErrInvalidID is returned by Decode for identifiers that are not four digits.
	ErrInvalidID = eris.New("cell: invalid identifier")
)

// ID returns the four-character identifier for (row, col): the row
// zero-padded to two digits followed by the column zero-padded to two digits.
func ID(row, col int) (string, error) {
	if row < 0 || row > MaxIndex || col < 0 || col > MaxIndex {
		return "", eris.Wrapf(ErrIndexOverflow, "cell: (%d, %d)", row, col)
	}
	return fmt.Sprintf("%02d%02d", row, col), nil
}

// Decode splits an identifier back into its row and column.
func Decode(id string) (row, col int, err error) {
	if len(id) != 4 {
		return 0, 0, eris.Wrapf(ErrInvalidID, "cell: %q", id)
	}
	for _, ch := range id {
		if ch < '0' || ch > '9' {
			return 0, 0, eris.Wrapf(ErrInvalidID, "cell: %q", id)
		}
	}
	row, _ = strconv.Atoi(id[:2])
	col, _ = strconv.Atoi(id[2:])
	return row, col, nil
}

// Geo maps (row, col) of a reoriented grid to a coordinate. Latitude grows
// with the row and longitude falls with the column. Row 0 of a reoriented
// grid holds the northernmost raster row but is labelled OriginLat, so the
// latitudes are mirrored north/south against the raster.
type Geo struct {
	OriginLat float64
	OriginLon float64
	Step      float64
}

// DefaultGeo is the Los Angeles study origin with a 0.02 degree step.
var DefaultGeo = Geo{OriginLat: 33.4, OriginLon: -117.6, Step: 0.02}

// Coord is a latitude/longitude pair in degrees.
type Coord struct {
	Lat float64
	Lon float64
}

// Coord returns the coordinate of (row, col). Results are rounded to 1e-9
// degrees so that 33.4 + 0.02*1 prints as 33.42.
func (g Geo) Coord(row, col int) Coord {
	return Coord{
		Lat: round9(g.OriginLat + g.Step*float64(row)),
		Lon: round9(g.OriginLon - g.Step*float64(col)),
	}
}

func round9(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
