package analysis

import (
	"log/slog"
	"math"
)

// InhibitionCalculator computes percent growth inhibition relative to the
// mean control growth rate.
type InhibitionCalculator struct {
	matcher ControlMatcher
	logger  *slog.Logger
}

// NewInhibitionCalculator creates an inhibition calculator using matcher for control detection
func NewInhibitionCalculator(matcher ControlMatcher, logger *slog.Logger) *InhibitionCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &InhibitionCalculator{matcher: matcher, logger: logger}
}

// ControlMean returns the mean growth rate over the control rows of results.
// Rows without a finite growth rate are ignored.
func (c *InhibitionCalculator) ControlMean(results []GrowthResult) (float64, error) {
	var (
		sum      float64
		n        int
		controls int
	)
	for _, r := range results {
		if !c.matcher.IsControl(r.CompoundName) {
			continue
		}
		controls++
		if r.HasGrowthRate() {
			sum += r.GrowthRate
			n++
		}
	}

	if controls == 0 {
		return 0, ErrNoControlGroup
	}

	mean := math.NaN()
	if n > 0 {
		mean = sum / float64(n)
	}
	if math.IsNaN(mean) || mean <= 0 {
		return mean, &InvalidBaselineError{ControlMean: mean, Replicates: controls}
	}
	return mean, nil
}

// Compute returns a copy of results with InhibitionPercent filled in:
//
//	control rows:   0
//	treatment rows: (controlMean - rate) / controlMean * 100
//
// Negative values mean growth stimulation. Treatment rows without a finite
// growth rate keep a nil InhibitionPercent. The input slice is not modified,
// so repeated calls on the same input give the same values.
func (c *InhibitionCalculator) Compute(results []GrowthResult) ([]GrowthResult, error) {
	if len(results) == 0 {
		return nil, ErrNoGrowthResults
	}

	controlMean, err := c.ControlMean(results)
	if err != nil {
		c.logger.Warn("inhibition not computed",
			slog.String("control_marker", c.matcher.Marker()),
			slog.String("error", err.Error()))
		return nil, err
	}

	out := cloneResults(results)
	for i := range out {
		r := &out[i]
		switch {
		case c.matcher.IsControl(r.CompoundName):
			zero := 0.0
			r.InhibitionPercent = &zero
		case r.HasGrowthRate():
			pct := (controlMean - r.GrowthRate) / controlMean * 100
			r.InhibitionPercent = &pct
		default:
			r.InhibitionPercent = nil
		}
	}

	c.logger.Info("inhibition computed",
		slog.Int("samples", len(out)),
		slog.Float64("control_mean", controlMean),
		slog.String("control_marker", c.matcher.Marker()))

	return out, nil
}
