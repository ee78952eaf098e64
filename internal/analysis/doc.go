// Package analysis implements the growth-inhibition analysis pipeline for
// optical-density time series.
//
// # Core Components
//
// The pipeline reduces a loaded Dataset in three independent steps:
//
//  1. GrowthCalculator: natural-log growth rate per (compound, replicate)
//     between a start and an end time point
//  2. InhibitionCalculator: percent inhibition of each replicate relative to
//     the mean growth rate of the control group
//  3. Summarizer: descriptive statistics over the raw measurement columns
//
// Session ties the three together for one loaded experiment and holds the
// most recent growth/inhibition table.
//
// # Usage Example
//
//	session, err := analysis.NewSession(analysis.DefaultSessionConfig(), slog.Default())
//	if err != nil {
//	    return err
//	}
//	if err := session.Load(dataset); err != nil {
//	    return err
//	}
//
//	results, err := session.ComputeInhibition()
//	if errors.Is(err, analysis.ErrNoControlGroup) {
//	    // no compound name contains the control marker
//	}
//
//	report, err := session.Statistics()
//
// # Edge Cases
//
// Pairs without a measurement at exactly the start or end time, pairs with a
// non-positive optical density and non-positive time spans are skipped
// silently. They are data-quality filters, not errors.
//
// The calculators are synchronous and never block. Callers that share a
// Session between goroutines must serialize Load, ComputeGrowth and
// ComputeInhibition themselves.
package analysis
