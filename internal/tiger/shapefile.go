package tiger

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Feature is one shapefile record: its DBF attributes keyed by upper-case
// field name, and its geometry.
type Feature struct {
	Attrs map[string]string
	Geom  geom.T
}

// Attr returns the named attribute, or "" when absent.
func (f Feature) Attr(name string) string {
	return f.Attrs[strings.ToUpper(name)]
}

// ReadShapefile reads every record of a shapefile. Records without a usable
// geometry are skipped.
func ReadShapefile(shpPath string) ([]Feature, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	if len(fields) == 0 {
		return nil, eris.Errorf("tiger: shapefile %s has no attribute fields (missing or unreadable .dbf)", shpPath)
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToUpper(strings.TrimRight(f.String(), "\x00"))
	}

	var features []Feature
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		g := ToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			val := strings.TrimRight(reader.Attribute(i), "\x00")
			attrs[name] = strings.TrimSpace(val)
		}
		features = append(features, Feature{Attrs: attrs, Geom: g})
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return features, nil
}
