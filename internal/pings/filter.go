// Package pings builds the mobile grid (mmap.txt) from raw location pings:
// each device seen at night, at rest and inside the study area contributes
// one location.
package pings

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Column positions in a ping CSV record.
const (
	ColDevice    = 0
	ColTimestamp = 3
	ColLatitude  = 4
	ColLongitude = 5
	ColSpeed     = 10
)

// TimestampLayout is the layout of the ping timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Ping is one parsed location record.
type Ping struct {
	Device string
	At     time.Time
	Lat    float64
	Lon    float64
	Speed  float64
}

// Outcome classifies a record read by the filter.
type Outcome string

// Outcomes, also used as metric labels.
const (
	Accepted  Outcome = "accepted"
	Daytime   Outcome = "daytime"
	Moving    Outcome = "moving"
	OutOfArea Outcome = "out_of_area"
	Malformed Outcome = "malformed"
)

// ParseRecord converts the fields of a CSV record to a Ping.
func ParseRecord(fields []string) (Ping, error) {
	if len(fields) <= ColSpeed {
		return Ping{}, eris.Errorf("pings: want at least %d fields, got %d", ColSpeed+1, len(fields))
	}

	dev := strings.TrimSpace(fields[ColDevice])
	if dev == "" {
		return Ping{}, eris.New("pings: empty device id")
	}
	at, err := time.Parse(TimestampLayout, strings.TrimSpace(fields[ColTimestamp]))
	if err != nil {
		return Ping{}, eris.Wrap(err, "pings: timestamp")
	}

	var nums [3]float64
	for i, col := range []int{ColLatitude, ColLongitude, ColSpeed} {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[col]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Ping{}, eris.Errorf("pings: column %d: invalid number %q", col, fields[col])
		}
		nums[i] = v
	}

	return Ping{Device: dev, At: at, Lat: nums[0], Lon: nums[1], Speed: nums[2]}, nil
}

// Window is the nightly time window, in whole hours. Start > End wraps
// midnight: {20, 4} accepts 20:00 through 03:59.
type Window struct {
	Start int
	End   int
}

// Contains reports whether the clock time of t falls in the window.
func (w Window) Contains(t time.Time) bool {
	h := t.Hour()
	if w.Start <= w.End {
		return h >= w.Start && h < w.End
	}
	return h >= w.Start || h < w.End
}

// Minute is the number of minutes between the window start and the clock
// time of t, so that 23:30 sorts before 01:00 in a window opening at 20:00.
func (w Window) Minute(t time.Time) int {
	m := t.Hour()*60 + t.Minute() - w.Start*60
	return (m + 24*60) % (24 * 60)
}
