package score

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/sells-group/popgrid/internal/grid"
)

// AnalyzeFiles loads both grids with the given policy and analyzes them.
// The numeric grids are returned alongside the report for plotting.
func AnalyzeFiles(censusPath, mobilePath string, p grid.Policy) (*Report, *mat.Dense, *mat.Dense, error) {
	log := zap.L().With(zap.String("component", "score"))

	var census, mobile *mat.Dense
	var g errgroup.Group
	g.Go(func() error {
		var err error
		census, err = loadNumeric(censusPath, p)
		return eris.Wrap(err, "score: census grid")
	})
	g.Go(func() error {
		var err error
		mobile, err = loadNumeric(mobilePath, p)
		return eris.Wrap(err, "score: mobile grid")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	report, err := Analyze(census, mobile)
	if err != nil {
		return nil, nil, nil, err
	}

	log.Info("score analysis complete",
		zap.Int("defined", report.Summary.Count),
		zap.Float64("median_variance", report.MedianVariance),
	)
	return report, census, mobile, nil
}

func loadNumeric(path string, p grid.Policy) (*mat.Dense, error) {
	g, err := grid.Load(path)
	if err != nil {
		return nil, err
	}
	return g.Numeric(p)
}

// Print writes the summary, the per-column variances and their median.
func (r *Report) Print(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	s := r.Summary
	_, _ = fmt.Fprintln(w, "Summary statistics of the score grid:")
	_, _ = fmt.Fprintf(w, "count\t%d\n", s.Count)
	for _, kv := range []struct {
		name string
		v    float64
	}{
		{"mean", s.Mean}, {"std", s.Std}, {"min", s.Min},
		{"25%", s.P25}, {"50%", s.P50}, {"75%", s.P75}, {"max", s.Max},
	} {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", kv.name, formatFloat(kv.v))
	}

	_, _ = fmt.Fprintln(w, "\nVariance per column:")
	for j, v := range r.ColumnVariance {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", j, formatFloat(v))
	}

	_, _ = fmt.Fprintf(w, "\nMedian variance:\t%s\n", formatFloat(r.MedianVariance))

	return eris.Wrap(w.Flush(), "score: flush report")
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
