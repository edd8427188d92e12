package tiger

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// SRID of TIGER/Line geometries (NAD83 is treated as WGS84 at grid scale).
const SRID = 4326

// ToGeom converts a go-shp shape to a go-geom geometry. Polygons become
// MultiPolygons. Returns nil for nil, empty or unsupported shapes.
func ToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(SRID)
	case *shp.Polygon:
		if mp := polygonToMultiPolygon(s); mp != nil {
			return mp
		}
	}
	return nil
}

// polygonToMultiPolygon groups shapefile rings into polygons. A clockwise
// ring opens a new polygon; a counter-clockwise ring is a hole of the
// polygon opened before it. Shapefiles wind outer rings clockwise while
// go-geom expects them counter-clockwise, so rings are rewound: shells
// counter-clockwise, holes clockwise.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("tiger: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			zap.L().Debug("tiger: skipping degenerate ring", zap.Int32("part", i))
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		area := signedArea(flat)
		shell := current == nil || area < 0
		if shell {
			flush()
			current = geom.NewPolygon(geom.XY).SetSRID(SRID)
		}
		if (shell && area < 0) || (!shell && area > 0) {
			reverseRing(flat)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if err := current.Push(ring); err != nil {
			zap.L().Debug("tiger: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace area of a flat XY ring; negative when the ring
// runs clockwise.
func signedArea(flat []float64) float64 {
	n := len(flat) / 2
	var sum float64
	for i := range n {
		k := (i + 1) % n
		sum += flat[2*i]*flat[2*k+1] - flat[2*k]*flat[2*i+1]
	}
	return sum / 2
}

// reverseRing reverses the point order of a flat XY ring in place.
func reverseRing(flat []float64) {
	for i, j := 0, len(flat)-2; i < j; i, j = i+2, j-2 {
		flat[i], flat[j] = flat[j], flat[i]
		flat[i+1], flat[j+1] = flat[j+1], flat[i+1]
	}
}
