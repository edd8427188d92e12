package census

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/popgrid/internal/tiger"
)

func squareGeom(x0, y0, x1, y1 float64) *geom.MultiPolygon {
	poly := geom.NewPolygonFlat(geom.XY, []float64{x0, y0, x0, y1, x1, y1, x1, y0, x0, y0}, []int{10})
	mp := geom.NewMultiPolygon(geom.XY)
	_ = mp.Push(poly)
	return mp
}

func feature(county, tract string, g geom.T) tiger.Feature {
	return tiger.Feature{Attrs: map[string]string{"COUNTYFP": county, "TRACTCE": tract}, Geom: g}
}

func TestNormalizeTract(t *testing.T) {
	tests := []struct{ in, want string }{
		{"4001", "004001"},
		{"101110", "101110"},
		{" 1101.0 ", "001101"},
		{"004001", "004001"},
		{"9800.01", "9800.01"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTract(tt.in), tt.in)
	}
}

func TestReadPopulationTable_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.csv")
	require.NoError(t, os.WriteFile(path, []byte("STATE,tract,POP100\n06,4001,3917\n06,,1\n06,101110\n"), 0o644))

	pops, err := ReadPopulationTable(path)
	require.NoError(t, err)
	assert.Equal(t, []TractPopulation{
		{Tract: "004001", Population: "3917"},
		{Tract: "101110", Population: ""},
	}, pops)
}

func TestReadPopulationTable_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("pop")
	require.NoError(t, err)
	for _, r := range [][]string{{"TRACT", "POP100"}, {"101110", "2500"}} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "pop.xlsx")
	require.NoError(t, f.Save(path))

	pops, err := ReadPopulationTable(path)
	require.NoError(t, err)
	assert.Equal(t, []TractPopulation{{Tract: "101110", Population: "2500"}}, pops)
}

func TestReadPopulationTable_MissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.csv")
	require.NoError(t, os.WriteFile(path, []byte("TRACT,POP\n1,2\n"), 0o644))

	_, err := ReadPopulationTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POP100")
}

func TestMergeTracts(t *testing.T) {
	features := []tiger.Feature{
		feature("037", "004001", squareGeom(0, 0, 1, 1)),
		feature("001", "004001", squareGeom(1, 1, 2, 2)), // outside the study counties
		feature("059", "101110", squareGeom(2, 2, 3, 3)),
		feature("037", "999999", squareGeom(3, 3, 4, 4)), // no population row
	}
	pops := []TractPopulation{
		{Tract: NormalizeTract("4001"), Population: "10"},
		{Tract: "101110", Population: "20"},
	}

	got, err := MergeTracts(features, pops, DefaultCounties)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "004001", got[0].Tract)
	assert.Equal(t, "10", got[0].Population)
	assert.Same(t, features[0].Geom, got[0].Geom)
	assert.Equal(t, "101110", got[1].Tract)

	all, err := MergeTracts(features, pops, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMergeTracts_MissingAttributes(t *testing.T) {
	pops := []TractPopulation{{Tract: "004001", Population: "10"}}

	tests := []struct {
		name  string
		attrs map[string]string
	}{
		{"no attributes", map[string]string{}},
		{"no county", map[string]string{"TRACTCE": "004001"}},
		{"no tract", map[string]string{"COUNTYFP": "037"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			features := []tiger.Feature{{Attrs: tt.attrs, Geom: squareGeom(0, 0, 1, 1)}}
			got, err := MergeTracts(features, pops, DefaultCounties)
			assert.Error(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestWriteTracts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tract_to_pop.csv")
	two := squareGeom(0, 0, 1, 1)
	require.NoError(t, two.Push(geom.NewPolygonFlat(geom.XY, []float64{2, 2, 2, 3, 3, 3, 3, 2, 2, 2}, []int{10})))

	require.NoError(t, WriteTracts(path, []Tract{
		{Tract: "004001", Population: "10", Geom: squareGeom(0, 0, 1, 1)},
		{Tract: "101110", Population: "20", Geom: two},
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"TRACT", "POP100", "geometry"}, rows[0])
	assert.Equal(t, "POLYGON ((0 0, 0 1, 1 1, 1 0, 0 0))", rows[1][2])
	assert.Contains(t, rows[2][2], "MULTIPOLYGON")
}
