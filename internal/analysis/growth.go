package analysis

import (
	"log/slog"
	"math"
)

// GrowthCalculator reduces a Dataset to one growth rate per (compound, replicate)
type GrowthCalculator struct {
	logger *slog.Logger
}

// NewGrowthCalculator creates a growth calculator
func NewGrowthCalculator(logger *slog.Logger) *GrowthCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrowthCalculator{logger: logger}
}

// Compute returns the growth rate of every (compound, replicate) pair that has
// a measurement at exactly start and exactly end:
//
//	rate = (ln(finalOD) - ln(initialOD)) / (end - start)
//
// Pairs missing either time point, with a non-positive OD or with a
// non-positive time span are skipped. When several rows share a time point
// the first one in dataset order wins. Results follow compound, then
// replicate, encounter order.
func (c *GrowthCalculator) Compute(ds *Dataset, start, end float64) ([]GrowthResult, error) {
	if ds == nil {
		return nil, ErrEmptyDataset
	}

	span := end - start
	results := make([]GrowthResult, 0)
	skipped := 0

	for _, g := range ds.groupByReplicate() {
		first, okStart := g.firstAt(start)
		last, okEnd := g.firstAt(end)
		if !okStart || !okEnd {
			skipped++
			continue
		}

		initialOD, finalOD := first.OpticalDensity, last.OpticalDensity
		if !(span > 0) || !(initialOD > 0) || !(finalOD > 0) {
			skipped++
			continue
		}

		results = append(results, GrowthResult{
			CompoundName:    g.compound,
			ReplicateNumber: g.replicate,
			InitialOD:       initialOD,
			FinalOD:         finalOD,
			GrowthRate:      (math.Log(finalOD) - math.Log(initialOD)) / span,
		})
	}

	if len(results) == 0 {
		c.logger.Warn("no growth rates could be computed",
			slog.Int("rows", ds.Len()),
			slog.Float64("start_time", start),
			slog.Float64("end_time", end),
			slog.Int("skipped_pairs", skipped))
		return results, nil
	}

	c.logger.Info("growth rates computed",
		slog.Int("results", len(results)),
		slog.Int("skipped_pairs", skipped),
		slog.Float64("start_time", start),
		slog.Float64("end_time", end))

	return results, nil
}
