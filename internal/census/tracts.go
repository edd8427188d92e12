package census

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/table"
	"github.com/sells-group/popgrid/internal/tiger"
)

// DefaultCounties are the Southern California county FIPS codes covered by
// the grid: Los Angeles, Orange, Ventura, San Bernardino and Riverside.
var DefaultCounties = []string{"037", "059", "111", "071", "065"}

// TractCodeWidth is the width of a census tract code (TRACTCE).
const TractCodeWidth = 6

// TractPopulation is one row of a decennial population table.
type TractPopulation struct {
	Tract      string
	Population string
}

// Tract is a tract population joined to a TIGER/Line geometry.
type Tract struct {
	Tract      string
	Population string
	Geom       geom.T
}

// ReadPopulationTable reads the TRACT and POP100 columns of a population
// table (.xlsx or CSV). Tract codes are normalized to six digits.
func ReadPopulationTable(path string) ([]TractPopulation, error) {
	rows, err := table.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "census: read population table")
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("census: population table %s is empty", path)
	}

	tractCol, popCol := -1, -1
	for i, name := range rows[0] {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "TRACT":
			tractCol = i
		case "POP100":
			popCol = i
		}
	}
	if tractCol < 0 || popCol < 0 {
		return nil, eris.Errorf("census: %s needs TRACT and POP100 columns", path)
	}

	out := make([]TractPopulation, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if tractCol >= len(row) || strings.TrimSpace(row[tractCol]) == "" {
			continue
		}
		var pop string
		if popCol < len(row) {
			pop = strings.TrimSpace(row[popCol])
		}
		out = append(out, TractPopulation{
			Tract:      NormalizeTract(row[tractCol]),
			Population: pop,
		})
	}
	return out, nil
}

// NormalizeTract turns a tract code as spreadsheets store it (4001,
// "4001.0", "004001") into the zero-padded six-digit TRACTCE form.
// Non-numeric codes are returned trimmed.
func NormalizeTract(s string) string {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f == float64(int64(f)) {
		s = strconv.FormatInt(int64(f), 10)
	}
	if strings.TrimLeft(s, "0123456789") != "" {
		return s
	}
	return zeroPad(s, TractCodeWidth)
}

// Shapefile attributes the merge joins and filters on.
const (
	AttrCounty = "COUNTYFP"
	AttrTract  = "TRACTCE"
)

// MergeTracts keeps the features whose COUNTYFP is in counties (all of them
// when counties is empty) and inner-joins them with pops on
// TRACTCE = TRACT. Output follows feature order; a feature matching several
// population rows yields one tract per match. A feature without the COUNTYFP
// or TRACTCE attribute is an error.
func MergeTracts(features []tiger.Feature, pops []TractPopulation, counties []string) ([]Tract, error) {
	for i, f := range features {
		for _, name := range []string{AttrCounty, AttrTract} {
			if _, ok := f.Attrs[name]; !ok {
				return nil, eris.Errorf("census: shapefile feature %d has no %s attribute", i, name)
			}
		}
	}

	byTract := make(map[string][]TractPopulation, len(pops))
	for _, p := range pops {
		byTract[p.Tract] = append(byTract[p.Tract], p)
	}

	keep := make(map[string]bool, len(counties))
	for _, c := range counties {
		keep[c] = true
	}

	var out []Tract
	var filtered, unmatched int
	for _, f := range features {
		if len(keep) > 0 && !keep[f.Attr(AttrCounty)] {
			filtered++
			continue
		}
		matches := byTract[NormalizeTract(f.Attr(AttrTract))]
		if len(matches) == 0 {
			unmatched++
			continue
		}
		for _, p := range matches {
			out = append(out, Tract{Tract: p.Tract, Population: p.Population, Geom: f.Geom})
		}
	}

	zap.L().Info("census: merged tracts",
		zap.Int("features", len(features)),
		zap.Int("out_of_area", filtered),
		zap.Int("unmatched", unmatched),
		zap.Int("tracts", len(out)),
	)
	if len(out) == 0 && len(features) > 0 {
		zap.L().Warn("census: no tracts matched the population table",
			zap.Strings("counties", counties),
		)
	}
	return out, nil
}

// WriteTracts writes the TRACT,POP100,geometry table to path with geometries
// as WKT. Single-part multipolygons are written as POLYGON.
func WriteTracts(path string, tracts []Tract) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "census: create %s", path)
	}

	w := csv.NewWriter(f)
	_ = w.Write([]string{"TRACT", "POP100", "geometry"})
	for _, t := range tracts {
		text, err := MarshalWKT(t.Geom)
		if err != nil {
			_ = f.Close()
			return eris.Wrapf(err, "census: tract %s", t.Tract)
		}
		_ = w.Write([]string{t.Tract, t.Population, text})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "census: write %s", path)
	}
	return eris.Wrapf(f.Close(), "census: close %s", path)
}

// MarshalWKT encodes g as WKT, unwrapping single-polygon multipolygons.
func MarshalWKT(g geom.T) (string, error) {
	if mp, ok := g.(*geom.MultiPolygon); ok && mp.NumPolygons() == 1 {
		g = mp.Polygon(0)
	}
	text, err := wkt.Marshal(g)
	if err != nil {
		return "", eris.Wrap(err, "encode wkt")
	}
	return text, nil
}
