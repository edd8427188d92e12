// Package score compares a mobile grid against a census grid cell by cell.
package score

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/popgrid/internal/grid"
)

// Ratio returns mobile / census element-wise. Cells where census is zero
// are NaN (undefined), never infinity.
func Ratio(census, mobile mat.Matrix) (*mat.Dense, error) {
	cr, cc := census.Dims()
	mr, mc := mobile.Dims()
	if cr != mr || cc != mc {
		return nil, eris.Wrapf(grid.ErrShapeMismatch, "score: %dx%d vs %dx%d", cr, cc, mr, mc)
	}

	out := mat.NewDense(cr, cc, nil)
	for i := range cr {
		for j := range cc {
			ref := census.At(i, j)
			if ref == 0 {
				out.Set(i, j, math.NaN())
				continue
			}
			out.Set(i, j, mobile.At(i, j)/ref)
		}
	}
	return out, nil
}

// Summary is a descriptive summary of the defined values of a sample.
type Summary struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// Describe summarizes values, skipping NaN. Std is the sample standard
// deviation; quantiles interpolate linearly between order statistics.
func Describe(values []float64) Summary {
	defined := dropNaN(values)
	s := Summary{Count: len(defined)}
	if len(defined) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	s.Mean, s.Std = stat.MeanStdDev(defined, nil)
	if len(defined) < 2 {
		s.Std = math.NaN()
	}
	s.Min = floats.Min(defined)
	s.Max = floats.Max(defined)

	sort.Float64s(defined)
	s.P25 = quantile(defined, 0.25)
	s.P50 = quantile(defined, 0.50)
	s.P75 = quantile(defined, 0.75)
	return s
}

// Report is the outcome of Analyze.
type Report struct {
	Score   *mat.Dense
	Summary Summary
	// ColumnVariance holds the sample variance of each score column over its
	// defined values; NaN when a column has fewer than two.
	ColumnVariance []float64
	// MedianVariance is the median of the defined column variances.
	MedianVariance float64
}

// Analyze computes the score grid and its statistics.
func Analyze(census, mobile mat.Matrix) (*Report, error) {
	ratio, err := Ratio(census, mobile)
	if err != nil {
		return nil, err
	}

	r, c := ratio.Dims()
	all := make([]float64, 0, r*c)
	for i := range r {
		all = append(all, ratio.RawRowView(i)...)
	}

	variances := make([]float64, c)
	col := make([]float64, r)
	for j := range c {
		mat.Col(col, j, ratio)
		variances[j] = sampleVariance(col)
	}

	return &Report{
		Score:          ratio,
		Summary:        Describe(all),
		ColumnVariance: variances,
		MedianVariance: median(variances),
	}, nil
}

func sampleVariance(values []float64) float64 {
	defined := dropNaN(values)
	if len(defined) < 2 {
		return math.NaN()
	}
	return stat.Variance(defined, nil)
}

func median(values []float64) float64 {
	defined := dropNaN(values)
	if len(defined) == 0 {
		return math.NaN()
	}
	sort.Float64s(defined)
	return quantile(defined, 0.5)
}

// quantile interpolates linearly at rank p*(n-1) of sorted data.
func quantile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
