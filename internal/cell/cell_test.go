package cell

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	tests := []struct {
		row, col int
		want     string
	}{
		{0, 0, "0000"},
		{0, 1, "0001"},
		{1, 0, "0100"},
		{12, 34, "1234"},
		{99, 99, "9999"},
		{44, 49, "4449"},
	}
	for _, tt := range tests {
		got, err := ID(tt.row, tt.col)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestID_Overflow(t *testing.T) {
	for _, rc := range [][2]int{{100, 0}, {0, 100}, {-1, 0}, {0, -5}} {
		_, err := ID(rc[0], rc[1])
		require.Error(t, err, "row=%d col=%d", rc[0], rc[1])
		assert.True(t, eris.Is(err, ErrIndexOverflow))
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	for row := 0; row <= MaxIndex; row++ {
		for col := 0; col <= MaxIndex; col++ {
			id, err := ID(row, col)
			require.NoError(t, err)
			r, c, err := Decode(id)
			require.NoError(t, err)
			if r != row || c != col {
				t.Fatalf("Decode(%q) = (%d,%d), want (%d,%d)", id, r, c, row, col)
			}
		}
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, id := range []string{"", "123", "12345", "12a4", "-123"} {
		_, _, err := Decode(id)
		require.Error(t, err, id)
		assert.True(t, eris.Is(err, ErrInvalidID))
	}
}

func TestGeoCoord(t *testing.T) {
	g := DefaultGeo

	c := g.Coord(0, 0)
	assert.Equal(t, 33.4, c.Lat)
	assert.Equal(t, -117.6, c.Lon)

	c = g.Coord(1, 1)
	assert.Equal(t, 33.42, c.Lat)
	assert.Equal(t, -117.62, c.Lon)

	c = g.Coord(45, 50)
	assert.InDelta(t, 34.3, c.Lat, 1e-9)
	assert.InDelta(t, -118.6, c.Lon, 1e-9)
}

func TestGeoCoord_Deterministic(t *testing.T) {
	for row := range 45 {
		for col := range 50 {
			assert.Equal(t, DefaultGeo.Coord(row, col), DefaultGeo.Coord(row, col))
			assert.InDelta(t, 33.4+0.02*float64(row), DefaultGeo.Coord(row, col).Lat, 1e-9)
			assert.InDelta(t, -117.6-0.02*float64(col), DefaultGeo.Coord(row, col).Lon, 1e-9)
		}
	}
}
