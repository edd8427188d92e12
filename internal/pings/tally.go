package pings

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/popgrid/internal/grid"
)

// Keep selects which of a device's night locations it contributes.
type Keep int

const (
	// KeepEarliest keeps the location of the device's earliest night ping.
	KeepEarliest Keep = iota
	// KeepLatest keeps the location of its latest night ping.
	KeepLatest
)

// ParseKeep maps "earliest" (or "") and "latest" to a Keep.
func ParseKeep(s string) (Keep, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "earliest":
		return KeepEarliest, nil
	case "latest":
		return KeepLatest, nil
	}
	return KeepEarliest, eris.Errorf("pings: unknown keep mode %q", s)
}

// Options configures a Tally.
type Options struct {
	Bounds   grid.Bounds
	Window   Window
	MaxSpeed float64
	Keep     Keep
}

// DefaultOptions matches the study: 20:00-04:00, under 3 units of speed,
// earliest location.
var DefaultOptions = Options{
	Bounds:   grid.StudyArea,
	Window:   Window{Start: 20, End: 4},
	MaxSpeed: 3,
	Keep:     KeepEarliest,
}

type device struct {
	first, last int // night minutes of the earliest and latest accepted ping
	row, col    int
	inGrid      bool
}

// Tally accumulates accepted pings into the mobile grid. The grid always
// holds one count per device, in the cell of its kept location. A Tally is
// not safe for concurrent use.
type Tally struct {
	opts    Options
	grid    *mat.Dense
	devices map[string]*device
	counts  map[Outcome]int
}

// NewTally returns an empty tally.
func NewTally(opts Options) *Tally {
	return &Tally{
		opts:    opts,
		grid:    mat.NewDense(opts.Bounds.Rows, opts.Bounds.Cols, nil),
		devices: make(map[string]*device),
		counts:  make(map[Outcome]int),
	}
}

// Observe filters one ping and, when accepted, updates its device's kept
// location. Moving a device decrements its old cell and increments the new.
func (t *Tally) Observe(p Ping) Outcome {
	out := t.classify(p)
	t.counts[out]++
	if out != Accepted {
		return out
	}

	m := t.opts.Window.Minute(p.At)
	d, ok := t.devices[p.Device]
	if !ok {
		d = &device{first: m, last: m}
		t.devices[p.Device] = d
		t.place(d, p)
		return out
	}

	moved := false
	if m < d.first {
		d.first = m
		moved = t.opts.Keep == KeepEarliest
	}
	if m > d.last {
		d.last = m
		moved = moved || t.opts.Keep == KeepLatest
	}
	if moved {
		if d.inGrid {
			t.grid.Set(d.row, d.col, t.grid.At(d.row, d.col)-1)
		}
		t.place(d, p)
	}
	return out
}

func (t *Tally) classify(p Ping) Outcome {
	switch {
	case !t.opts.Window.Contains(p.At):
		return Daytime
	case !(math.Abs(p.Speed) < t.opts.MaxSpeed):
		return Moving
	case !t.opts.Bounds.Contains(p.Lat, p.Lon):
		return OutOfArea
	}
	return Accepted
}

func (t *Tally) place(d *device, p Ping) {
	d.row, d.col, d.inGrid = t.opts.Bounds.Cell(p.Lat, p.Lon)
	if d.inGrid {
		t.grid.Set(d.row, d.col, t.grid.At(d.row, d.col)+1)
	}
}

// Reject counts a record that could not be parsed.
func (t *Tally) Reject() { t.counts[Malformed]++ }

// Grid returns the mobile grid. Row 0 is the southern edge.
func (t *Tally) Grid() *mat.Dense { return t.grid }

// Devices returns the number of devices with a kept location.
func (t *Tally) Devices() int { return len(t.devices) }

// Counts returns a copy of the per-outcome record counts.
func (t *Tally) Counts() map[Outcome]int {
	out := make(map[Outcome]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}
