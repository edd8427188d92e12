package raster

import (
	"math"

	"github.com/twpayne/go-geom"
)

type rect struct {
	minX, minY, maxX, maxY float64
}

// overlapArea is the area of the part of p inside r: the clipped outer ring
// less the clipped holes.
func overlapArea(p *geom.Polygon, r rect) float64 {
	return polygonArea(p, func(pts []float64) []float64 { return clipRing(pts, r) })
}

// polygonArea sums ring areas after passing each ring through clip. It is
// also the unclipped area, so that a polygon lying wholly inside one cell
// yields a share of exactly one.
func polygonArea(p *geom.Polygon, clip func([]float64) []float64) float64 {
	var area float64
	for i := range p.NumLinearRings() {
		pts := ringPoints(p.LinearRing(i).FlatCoords(), p.Stride())
		if clip != nil {
			pts = clip(pts)
		}
		a := math.Abs(ringArea(pts))
		if i == 0 {
			area += a
		} else {
			area -= a
		}
	}
	return math.Max(area, 0)
}

// ringPoints returns the XY pairs of a ring without its closing point.
func ringPoints(flat []float64, stride int) []float64 {
	pts := make([]float64, 0, len(flat)/stride*2)
	for i := 0; i+1 < len(flat); i += stride {
		pts = append(pts, flat[i], flat[i+1])
	}
	if n := len(pts); n >= 4 && pts[0] == pts[n-2] && pts[1] == pts[n-1] {
		pts = pts[:n-2]
	}
	return pts
}

// clipRing clips an unclosed XY ring against r one edge at a time
// (Sutherland-Hodgman). The result can contain zero-width spikes along r's
// edges when the ring is concave; they add no area.
func clipRing(pts []float64, r rect) []float64 {
	edges := []struct {
		inside func(x, y float64) bool
		cross  func(x0, y0, x1, y1 float64) (float64, float64)
	}{
		{func(x, _ float64) bool { return x >= r.minX }, atX(r.minX)},
		{func(x, _ float64) bool { return x <= r.maxX }, atX(r.maxX)},
		{func(_, y float64) bool { return y >= r.minY }, atY(r.minY)},
		{func(_, y float64) bool { return y <= r.maxY }, atY(r.maxY)},
	}

	for _, e := range edges {
		n := len(pts) / 2
		if n == 0 {
			return nil
		}
		out := make([]float64, 0, len(pts)+4)
		px, py := pts[2*(n-1)], pts[2*(n-1)+1]
		pin := e.inside(px, py)
		for k := range n {
			x, y := pts[2*k], pts[2*k+1]
			in := e.inside(x, y)
			switch {
			case in && !pin:
				ix, iy := e.cross(px, py, x, y)
				out = append(out, ix, iy, x, y)
			case in:
				out = append(out, x, y)
			case pin:
				ix, iy := e.cross(px, py, x, y)
				out = append(out, ix, iy)
			}
			px, py, pin = x, y, in
		}
		pts = out
	}
	return pts
}

func atX(x float64) func(x0, y0, x1, y1 float64) (float64, float64) {
	return func(x0, y0, x1, y1 float64) (float64, float64) {
		t := (x - x0) / (x1 - x0)
		return x, y0 + t*(y1-y0)
	}
}

func atY(y float64) func(x0, y0, x1, y1 float64) (float64, float64) {
	return func(x0, y0, x1, y1 float64) (float64, float64) {
		t := (y - y0) / (y1 - y0)
		return x0 + t*(x1-x0), y
	}
}

// ringArea is the signed shoelace area of an unclosed XY ring.
func ringArea(pts []float64) float64 {
	n := len(pts) / 2
	if n < 3 {
		return 0
	}
	var sum float64
	for i := range n {
		k := (i + 1) % n
		sum += pts[2*i]*pts[2*k+1] - pts[2*k]*pts[2*i+1]
	}
	return sum / 2
}
