package pings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/popgrid/internal/grid"
)

func record(dev, ts string, lat, lon, speed string) string {
	return strings.Join([]string{dev, "x", "y", ts, lat, lon, "a", "b", "c", "d", speed}, ",")
}

func at(t *testing.T, clock string) time.Time {
	t.Helper()
	ts, err := time.Parse(TimestampLayout, "2024-07-14 "+clock)
	require.NoError(t, err)
	return ts
}

func TestParseRecord(t *testing.T) {
	p, err := ParseRecord(strings.Split(record("dev1", "2024-07-14 21:05:00", "33.45", "-118.55", "-1.5"), ","))
	require.NoError(t, err)
	assert.Equal(t, "dev1", p.Device)
	assert.Equal(t, 21, p.At.Hour())
	assert.Equal(t, 5, p.At.Minute())
	assert.Equal(t, 33.45, p.Lat)
	assert.Equal(t, -118.55, p.Lon)
	assert.Equal(t, -1.5, p.Speed)
}

func TestParseRecord_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
	}{
		{"short", []string{"dev", "x", "y", "2024-07-14 21:00:00", "33.5", "-118.5"}},
		{"no device", strings.Split(record("", "2024-07-14 21:00:00", "33.5", "-118.5", "0"), ",")},
		{"bad time", strings.Split(record("d", "21:00", "33.5", "-118.5", "0"), ",")},
		{"bad lat", strings.Split(record("d", "2024-07-14 21:00:00", "north", "-118.5", "0"), ",")},
		{"empty speed", strings.Split(record("d", "2024-07-14 21:00:00", "33.5", "-118.5", ""), ",")},
		{"nan lon", strings.Split(record("d", "2024-07-14 21:00:00", "33.5", "NaN", "0"), ",")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.fields)
			assert.Error(t, err)
		})
	}
}

func TestWindow(t *testing.T) {
	night := Window{Start: 20, End: 4}
	assert.True(t, night.Contains(at(t, "20:00:00")))
	assert.True(t, night.Contains(at(t, "23:59:59")))
	assert.True(t, night.Contains(at(t, "00:00:00")))
	assert.True(t, night.Contains(at(t, "03:59:59")))
	assert.False(t, night.Contains(at(t, "04:00:00")))
	assert.False(t, night.Contains(at(t, "19:59:59")))

	day := Window{Start: 9, End: 17}
	assert.True(t, day.Contains(at(t, "09:00:00")))
	assert.False(t, day.Contains(at(t, "17:00:00")))

	assert.Equal(t, 0, night.Minute(at(t, "20:00:00")))
	assert.Equal(t, 210, night.Minute(at(t, "23:30:00")))
	assert.Equal(t, 300, night.Minute(at(t, "01:00:00")))
	assert.Less(t, night.Minute(at(t, "23:30:00")), night.Minute(at(t, "01:00:00")))
}

func TestParseKeep(t *testing.T) {
	k, err := ParseKeep("")
	require.NoError(t, err)
	assert.Equal(t, KeepEarliest, k)
	k, err = ParseKeep("LATEST")
	require.NoError(t, err)
	assert.Equal(t, KeepLatest, k)
	_, err = ParseKeep("first")
	assert.Error(t, err)
}

func TestTally_Classify(t *testing.T) {
	tally := NewTally(DefaultOptions)

	assert.Equal(t, Daytime, tally.Observe(Ping{Device: "a", At: at(t, "12:00:00"), Lat: 33.5, Lon: -118.5}))
	assert.Equal(t, Moving, tally.Observe(Ping{Device: "a", At: at(t, "22:00:00"), Lat: 33.5, Lon: -118.5, Speed: 3}))
	assert.Equal(t, Moving, tally.Observe(Ping{Device: "a", At: at(t, "22:00:00"), Lat: 33.5, Lon: -118.5, Speed: -3}))
	assert.Equal(t, OutOfArea, tally.Observe(Ping{Device: "a", At: at(t, "22:00:00"), Lat: 35, Lon: -118.5}))
	assert.Equal(t, Accepted, tally.Observe(Ping{Device: "a", At: at(t, "22:00:00"), Lat: 33.5, Lon: -118.5, Speed: 2.9}))
	tally.Reject()

	assert.Equal(t, map[Outcome]int{Daytime: 1, Moving: 2, OutOfArea: 1, Accepted: 1, Malformed: 1}, tally.Counts())
	assert.Equal(t, 1, tally.Devices())
}

func TestTally_KeepEarliestAcrossMidnight(t *testing.T) {
	tally := NewTally(DefaultOptions)

	// Seen first after midnight, then earlier in the night at another cell.
	tally.Observe(Ping{Device: "a", At: at(t, "01:00:00"), Lat: 33.41, Lon: -118.59})
	tally.Observe(Ping{Device: "a", At: at(t, "23:00:00"), Lat: 33.45, Lon: -118.55})
	// Later pings do not move an earliest-kept device.
	tally.Observe(Ping{Device: "a", At: at(t, "03:00:00"), Lat: 33.61, Lon: -118.39})

	g := tally.Grid()
	assert.Equal(t, 0.0, g.At(0, 0))
	assert.Equal(t, 1.0, g.At(2, 2))
	assert.Equal(t, 0.0, g.At(10, 10))
	assert.Equal(t, 1, tally.Devices())
}

func TestTally_KeepLatest(t *testing.T) {
	opts := DefaultOptions
	opts.Keep = KeepLatest
	tally := NewTally(opts)

	tally.Observe(Ping{Device: "a", At: at(t, "21:00:00"), Lat: 33.41, Lon: -118.59})
	tally.Observe(Ping{Device: "a", At: at(t, "02:00:00"), Lat: 33.45, Lon: -118.55})
	tally.Observe(Ping{Device: "a", At: at(t, "20:30:00"), Lat: 33.61, Lon: -118.39})
	tally.Observe(Ping{Device: "b", At: at(t, "22:00:00"), Lat: 33.45, Lon: -118.55})

	g := tally.Grid()
	assert.Equal(t, 0.0, g.At(0, 0))
	assert.Equal(t, 2.0, g.At(2, 2))
	assert.Equal(t, 0.0, g.At(10, 10))
}

func TestTally_OneCountPerDevice(t *testing.T) {
	tally := NewTally(DefaultOptions)
	clocks := []string{"23:59:00", "23:00:00", "22:00:00", "21:00:00", "20:00:00"}
	for i, c := range clocks {
		lat := 33.41 + 0.02*float64(i)
		tally.Observe(Ping{Device: "a", At: at(t, c), Lat: lat, Lon: -118.59})
	}
	tally.Observe(Ping{Device: "b", At: at(t, "21:00:00"), Lat: 33.41, Lon: -118.59})

	total := 0.0
	for _, v := range tally.Grid().RawMatrix().Data {
		assert.GreaterOrEqual(t, v, 0.0)
		total += v
	}
	assert.Equal(t, 2.0, total)
	assert.Equal(t, 1.0, tally.Grid().At(4, 0))
	assert.Equal(t, 1.0, tally.Grid().At(0, 0))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	day1 := strings.Join([]string{
		"device_id,a,b,timestamp,lat,lon,c,d,e,f,speed",
		record("a", "2024-07-14 22:00:00", "33.45", "-118.55", "0"),
		record("b", "2024-07-14 12:00:00", "33.45", "-118.55", "0"),
		record("c", "2024-07-14 23:00:00", "33.41", "-118.59", "1"),
	}, "\n") + "\n"
	day2 := strings.Join([]string{
		record("a", "2024-07-15 21:00:00", "33.41", "-118.59", "0"),
		record("d", "2024-07-15 01:00:00", "36.00", "-118.59", "0"),
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-07-14.csv"), []byte(day1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-07-15.csv"), []byte(day2), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	out := filepath.Join(t.TempDir(), "mmap.txt")
	res, err := Run(context.Background(), dir, out, DefaultOptions)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 2, res.Devices)
	assert.Equal(t, 3, res.Counts[Accepted])
	assert.Equal(t, 1, res.Counts[Daytime])
	assert.Equal(t, 1, res.Counts[OutOfArea])
	assert.Equal(t, 1, res.Counts[Malformed])

	g, err := grid.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 45, g.Rows())
	assert.Equal(t, 50, g.Cols())
	assert.Equal(t, "2", g.At(0, 0))
	assert.Equal(t, "0", g.At(2, 2))
}

func TestRun_EmptyDir(t *testing.T) {
	_, err := Run(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), "mmap.txt"), DefaultOptions)
	assert.Error(t, err)

	_, err = Run(context.Background(), filepath.Join(t.TempDir(), "missing"), "mmap.txt", DefaultOptions)
	assert.Error(t, err)
}

func TestFiles_Sorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "c.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	files, err := Files(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.csv", filepath.Base(files[0]))
	assert.Equal(t, "c.csv", filepath.Base(files[2]))
}
