// Package grid loads, validates, reorients and writes whitespace-delimited
// numeric grids such as cmap.txt and mmap.txt.
package grid

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when two grids that must be paired differ in shape.
	ErrShapeMismatch = eris.New("grid: shape mismatch")
	// ErrMalformed is returned by the strict policy for non-numeric tokens.
	ErrMalformed = eris.New("grid: malformed token")
	// ErrRagged is returned by the strict policy when rows differ in width.
	ErrRagged = eris.New("grid: ragged rows")
	// ErrEmpty is returned when a numeric view is requested for an empty grid.
	ErrEmpty = eris.New("grid: empty grid")
)

const maxLineBytes = 4 * 1024 * 1024

// Grid is a rectangular array of tokens read from a text file, one row per line.
// Tokens are kept as written so that a condensed table echoes the source
// values; Numeric gives the float view.
type Grid struct {
	cells [][]string
}

// New returns a grid over a copy of cells.
func New(cells [][]string) *Grid {
	out := make([][]string, len(cells))
	for i, row := range cells {
		out[i] = append([]string(nil), row...)
	}
	return &Grid{cells: out}
}

// Load reads a grid from a file.
func Load(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "grid: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	g, err := Parse(f)
	if err != nil {
		return nil, eris.Wrapf(err, "grid: parse %s", path)
	}
	return g, nil
}

// Parse reads a grid from r. Blank lines, including the trailing one left by
// writers that end every row with a newline, do not produce rows.
func Parse(r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var cells [][]string
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		cells = append(cells, tokens)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "grid: scan")
	}
	return &Grid{cells: cells}, nil
}

// FromDense formats a numeric matrix as a grid.
func FromDense(m mat.Matrix) *Grid {
	r, c := m.Dims()
	cells := make([][]string, r)
	for i := range r {
		row := make([]string, c)
		for j := range c {
			row[j] = strconv.FormatFloat(m.At(i, j), 'f', -1, 64)
		}
		cells[i] = row
	}
	return &Grid{cells: cells}
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return len(g.cells) }

// Cols returns the width of the widest row.
func (g *Grid) Cols() int {
	width := 0
	for _, row := range g.cells {
		width = max(width, len(row))
	}
	return width
}

// At returns the token at (i, j), or "" when row i is shorter than j+1.
func (g *Grid) At(i, j int) string {
	row := g.cells[i]
	if j >= len(row) {
		return ""
	}
	return row[j]
}

// Reorient returns a new grid with the row order reversed and the tokens of
// every row reversed, so that out[i][j] == g[R-1-i][C-1-j].
func (g *Grid) Reorient() *Grid {
	n := len(g.cells)
	out := make([][]string, n)
	for i, row := range g.cells {
		flipped := make([]string, len(row))
		for j, tok := range row {
			flipped[len(row)-1-j] = tok
		}
		out[n-1-i] = flipped
	}
	return &Grid{cells: out}
}

// Sanitize applies the token policy and returns a rectangular grid. Valid
// tokens are kept verbatim. Lenient zero-fills malformed tokens and short
// rows; Strict rejects both.
func (g *Grid) Sanitize(p Policy) (*Grid, error) {
	width := g.Cols()
	out := make([][]string, len(g.cells))
	for i, row := range g.cells {
		if len(row) != width && p == Strict {
			return nil, eris.Wrapf(ErrRagged, "grid: row %d has %d tokens, want %d", i, len(row), width)
		}
		clean := make([]string, width)
		for j := range width {
			if j >= len(row) {
				clean[j] = "0"
				continue
			}
			tok := row[j]
			if _, ok := parseToken(tok); !ok {
				if p == Strict {
					return nil, eris.Wrapf(ErrMalformed, "grid: row %d col %d: %q", i, j, tok)
				}
				tok = "0"
			}
			clean[j] = tok
		}
		out[i] = clean
	}
	return &Grid{cells: out}, nil
}

// Numeric returns the grid as a dense matrix after applying the policy.
func (g *Grid) Numeric(p Policy) (*mat.Dense, error) {
	if g.Rows() == 0 || g.Cols() == 0 {
		return nil, ErrEmpty
	}
	clean, err := g.Sanitize(p)
	if err != nil {
		return nil, err
	}

	r, c := clean.Rows(), clean.Cols()
	data := make([]float64, 0, r*c)
	for _, row := range clean.cells {
		for _, tok := range row {
			v, _ := parseToken(tok)
			data = append(data, v)
		}
	}
	return mat.NewDense(r, c, data), nil
}

// WriteTo writes the grid as space-delimited text, one row per line.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, row := range g.cells {
		written, err := bw.WriteString(strings.Join(row, " ") + "\n")
		n += int64(written)
		if err != nil {
			return n, eris.Wrap(err, "grid: write row")
		}
	}
	if err := bw.Flush(); err != nil {
		return n, eris.Wrap(err, "grid: flush")
	}
	return n, nil
}

// Save truncates path and writes the grid to it.
func (g *Grid) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "grid: create %s", path)
	}
	if _, err := g.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "grid: close %s", path)
	}
	return nil
}

// CheckShape fails with ErrShapeMismatch unless a and b have equal dimensions.
func CheckShape(a, b *Grid) error {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return eris.Wrapf(ErrShapeMismatch, "grid: %dx%d vs %dx%d", a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	return nil
}

// parseToken reports whether tok is a finite number.
func parseToken(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
