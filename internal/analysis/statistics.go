package analysis

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"labanalyzer/pkg/contracts/domain"
)

// Summarizer computes descriptive statistics over the raw measurement columns
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a statistics summarizer
func NewSummarizer(logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{logger: logger}
}

// Summarize builds a StatsReport for ds. A loaded dataset with zero rows
// yields a zero-count report whose column fields are NaN.
func (s *Summarizer) Summarize(ds *Dataset) (*StatsReport, error) {
	if ds == nil {
		return nil, ErrEmptyDataset
	}

	n := ds.Len()
	od := make([]float64, 0, n)
	ph := make([]float64, 0, n)
	temp := make([]float64, 0, n)
	times := make([]float64, 0, n)

	ds.Each(func(_ int, row domain.Measurement) {
		od = append(od, row.OpticalDensity)
		ph = append(ph, row.PH)
		temp = append(temp, row.TemperatureCelsius)
		times = append(times, row.TimeHours)
	})

	report := &StatsReport{
		Overall: OverallStats{
			Count:      n,
			Compounds:  len(ds.Compounds()),
			Replicates: len(ds.Replicates()),
		},
		OpticalDensity:     Describe(od),
		PH:                 Describe(ph),
		TemperatureCelsius: Describe(temp),
	}

	if n > 0 {
		report.Overall.MinTimeHours = floats.Min(times)
		report.Overall.MaxTimeHours = floats.Max(times)
		report.Overall.TimeRange = FormatTimeRange(report.Overall.MinTimeHours, report.Overall.MaxTimeHours)
	} else {
		s.logger.Warn("statistics requested for a dataset without rows")
	}

	return report, nil
}

// FormatTimeRange renders a closed time interval in hours
func FormatTimeRange(min, max float64) string {
	return fmt.Sprintf("[%g, %g] h", min, max)
}

// Describe returns the count, mean, sample standard deviation (N-1), min,
// quartiles and max of values. NaN entries are excluded from every figure.
func Describe(values []float64) ColumnSummary {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}

	nan := math.NaN()
	summary := ColumnSummary{
		Count: len(clean), Mean: nan, Std: nan, Min: nan,
		Q25: nan, Median: nan, Q75: nan, Max: nan,
	}
	if len(clean) == 0 {
		return summary
	}

	sort.Float64s(clean)
	summary.Mean = stat.Mean(clean, nil)
	if len(clean) > 1 {
		summary.Std = stat.StdDev(clean, nil)
	}
	summary.Min = clean[0]
	summary.Max = clean[len(clean)-1]
	summary.Q25 = Quantile(clean, 0.25)
	summary.Median = Quantile(clean, 0.50)
	summary.Q75 = Quantile(clean, 0.75)
	return summary
}

// Quantile returns the p-quantile of an ascending slice, interpolating
// linearly between the two closest ranks: h = (n-1)p.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n == 1 || p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[n-1]
	}

	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
