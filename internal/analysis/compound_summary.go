package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SummarizeCompounds aggregates inhibition per treatment compound, in
// encounter order. Control compounds and rows without inhibition are left
// out; compounds with no inhibition values at all are omitted. The standard
// deviation is the population one (N denominator).
func SummarizeCompounds(results []GrowthResult, matcher ControlMatcher) []CompoundSummary {
	var order []string
	values := make(map[string][]float64)

	for _, r := range results {
		if matcher.IsControl(r.CompoundName) || r.InhibitionPercent == nil {
			continue
		}
		v := *r.InhibitionPercent
		if math.IsNaN(v) {
			continue
		}
		if _, ok := values[r.CompoundName]; !ok {
			order = append(order, r.CompoundName)
		}
		values[r.CompoundName] = append(values[r.CompoundName], v)
	}

	summaries := make([]CompoundSummary, 0, len(order))
	for _, name := range order {
		vs := values[name]
		mean, variance := stat.PopMeanVariance(vs, nil)
		summaries = append(summaries, CompoundSummary{
			CompoundName:   name,
			MeanInhibition: mean,
			StdInhibition:  math.Sqrt(variance),
			N:              len(vs),
		})
	}
	return summaries
}

// MeanGrowthByCompound returns the mean finite growth rate of each compound in encounter order
func MeanGrowthByCompound(results []GrowthResult) ([]string, []float64) {
	var order []string
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, r := range results {
		if !r.HasGrowthRate() {
			continue
		}
		if _, ok := counts[r.CompoundName]; !ok {
			order = append(order, r.CompoundName)
		}
		sums[r.CompoundName] += r.GrowthRate
		counts[r.CompoundName]++
	}

	means := make([]float64, len(order))
	for i, name := range order {
		means[i] = sums[name] / float64(counts[name])
	}
	return order, means
}
