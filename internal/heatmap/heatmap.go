// Package heatmap renders grids as side-by-side PNG heat maps, each with its
// own color bar.
package heatmap

import (
	"image/color"
	"io"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/sells-group/popgrid/internal/grid"
)

// Layer is one panel of the figure. Values are in raster orientation: row 0
// is the southern edge and column 0 the western edge.
type Layer struct {
	Title  string
	Values mat.Matrix
}

// Options controls the figure.
type Options struct {
	Bounds grid.Bounds
	Width  vg.Length // default 12in
	Height vg.Length // default 6in
	Colors int       // palette size, default 256
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 12 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 6 * vg.Inch
	}
	if o.Colors < 2 {
		o.Colors = 256
	}
	return o
}

// Render draws the layers left to right and writes the figure as PNG.
func Render(w io.Writer, layers []Layer, opts Options) error {
	if len(layers) == 0 {
		return eris.New("heatmap: no layers")
	}
	opts = opts.withDefaults()
	if err := opts.Bounds.Validate(); err != nil {
		return eris.Wrap(err, "heatmap")
	}

	img := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(96))
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(layers),
		PadX:      vg.Points(18),
		PadTop:    vg.Points(6),
		PadBottom: vg.Points(6),
		PadLeft:   vg.Points(6),
		PadRight:  vg.Points(6),
	}

	for i, l := range layers {
		r, c := l.Values.Dims()
		if r == 0 || c == 0 {
			return eris.Errorf("heatmap: layer %q is empty", l.Title)
		}
		g := newGridXYZ(l.Values, opts.Bounds)

		mapPlot := plot.New()
		mapPlot.Title.Text = l.Title
		mapPlot.X.Label.Text = "longitude"
		mapPlot.Y.Label.Text = "latitude"

		cm := moreland.ExtendedBlackBody()
		hm := plotter.NewHeatMap(g, cm.Palette(opts.Colors))
		hm.Min, hm.Max = g.Min(), g.Max()
		hm.NaN = color.Gray{Y: 200}
		mapPlot.Add(hm)

		barMap := moreland.ExtendedBlackBody()
		barMap.SetMax(g.Max())
		barMap.SetMin(g.Min())
		barPlot := plot.New()
		barPlot.Add(&plotter.ColorBar{ColorMap: barMap})
		barPlot.HideY()
		barPlot.X.Padding = 0

		tile := tiles.At(dc, i, 0)
		bar, body := splitVertical(tile, vg.Points(48))
		mapPlot.Draw(body)
		barPlot.Draw(bar)
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return eris.Wrap(err, "heatmap: encode png")
	}
	return nil
}

// RenderFile renders to path, replacing any existing file.
func RenderFile(path string, layers []Layer, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "heatmap: create %s", path)
	}
	if err := Render(f, layers, opts); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "heatmap: close %s", path)
}

// splitVertical splits c at height y from its bottom.
func splitVertical(c draw.Canvas, y vg.Length) (bottom, top draw.Canvas) {
	return draw.Crop(c, 0, 0, 0, c.Min.Y-c.Max.Y+y), draw.Crop(c, 0, 0, y, 0)
}

// gridXYZ adapts a matrix to plotter.GridXYZ with cell centers in degrees.
type gridXYZ struct {
	m        mat.Matrix
	b        grid.Bounds
	min, max float64
}

func newGridXYZ(m mat.Matrix, b grid.Bounds) *gridXYZ {
	g := &gridXYZ{m: m, b: b, min: math.Inf(1), max: math.Inf(-1)}
	r, c := m.Dims()
	for i := range r {
		for j := range c {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			g.min = math.Min(g.min, v)
			g.max = math.Max(g.max, v)
		}
	}
	switch {
	case math.IsInf(g.min, 1):
		g.min, g.max = 0, 1
	case g.max == g.min:
		g.max = g.min + 1
	}
	return g
}

func (g *gridXYZ) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g *gridXYZ) Z(c, r int) float64 { return g.m.At(r, c) }

func (g *gridXYZ) X(c int) float64 { return g.b.LonMin + (float64(c)+0.5)*g.b.Step }

func (g *gridXYZ) Y(r int) float64 { return g.b.LatMin + (float64(r)+0.5)*g.b.Step }

func (g *gridXYZ) Min() float64 { return g.min }

func (g *gridXYZ) Max() float64 { return g.max }

var _ plotter.GridXYZ = (*gridXYZ)(nil)
