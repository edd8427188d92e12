package pings

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popgrid/internal/grid"
	"github.com/sells-group/popgrid/internal/table"
)

// Result summarizes a run over a directory of ping files.
type Result struct {
	Files   int
	Devices int
	Counts  map[Outcome]int
}

// Files lists the regular files of dir in name order.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "pings: read dir %s", dir)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// ReadFile feeds every record of a ping CSV file to the tally.
func (t *Tally) ReadFile(ctx context.Context, path string) error {
	log := zap.L().With(zap.String("component", "pings"), zap.String("file", path))

	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "pings: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	recCh, errCh := table.StreamCSV(ctx, f, table.CSVOptions{LazyQuotes: true})
	for rec := range recCh {
		p, err := ParseRecord(rec.Fields)
		if err != nil {
			log.Debug("skipping malformed record", zap.Int("line", rec.Line), zap.Error(err))
			t.Reject()
			continue
		}
		t.Observe(p)
	}
	for err := range errCh {
		if err != nil {
			return eris.Wrapf(err, "pings: read %s", path)
		}
	}
	return nil
}

// Run tallies every file in dir and writes the mobile grid to outPath.
func Run(ctx context.Context, dir, outPath string, opts Options) (Result, error) {
	log := zap.L().With(zap.String("component", "pings"), zap.String("dir", dir))

	if err := opts.Bounds.Validate(); err != nil {
		return Result{}, eris.Wrap(err, "pings")
	}

	files, err := Files(dir)
	if err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{}, eris.Errorf("pings: no files in %s", dir)
	}

	t := NewTally(opts)
	for _, path := range files {
		log.Info("processing file", zap.String("file", filepath.Base(path)))
		if err := t.ReadFile(ctx, path); err != nil {
			return Result{}, err
		}
	}

	if err := grid.FromDense(t.Grid()).Save(outPath); err != nil {
		return Result{}, eris.Wrap(err, "pings: write grid")
	}

	res := Result{Files: len(files), Devices: t.Devices(), Counts: t.Counts()}
	log.Info("mobile grid written",
		zap.String("output", outPath),
		zap.Int("files", res.Files),
		zap.Int("devices", res.Devices),
		zap.Int("accepted", res.Counts[Accepted]),
		zap.Int("malformed", res.Counts[Malformed]),
	)
	return res, nil
}
