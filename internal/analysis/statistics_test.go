package analysis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"labanalyzer/pkg/contracts/domain"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"single value", []float64{3}, 0.25, 3},
		{"median of odd count", []float64{1, 2, 3, 4, 5}, 0.5, 3},
		{"median of even count", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"lower quartile interpolates", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"upper quartile interpolates", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"minimum", []float64{1, 2, 3, 4}, 0, 1},
		{"maximum", []float64{1, 2, 3, 4}, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.sorted, tt.p), tolerance)
		})
	}

	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestQuantile_RankInterpolationNotCDF(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	// gonum interpolates the empirical CDF and lands on the first value
	assert.InDelta(t, 1.0, stat.Quantile(0.25, stat.LinInterp, sorted, nil), tolerance)
	assert.InDelta(t, 1.75, Quantile(sorted, 0.25), tolerance)
	assert.InDelta(t, 2.5, Quantile(sorted, 0.5), tolerance)
}

func TestDescribe(t *testing.T) {
	got := Describe([]float64{4, 1, 3, 2})

	assert.Equal(t, 4, got.Count)
	assert.InDelta(t, 2.5, got.Mean, tolerance)
	assert.InDelta(t, math.Sqrt(5.0/3.0), got.Std, tolerance)
	assert.InDelta(t, 1, got.Min, tolerance)
	assert.InDelta(t, 1.75, got.Q25, tolerance)
	assert.InDelta(t, 2.5, got.Median, tolerance)
	assert.InDelta(t, 3.25, got.Q75, tolerance)
	assert.InDelta(t, 4, got.Max, tolerance)
}

func TestDescribe_SingleValueHasNoStd(t *testing.T) {
	got := Describe([]float64{0.7})

	assert.Equal(t, 1, got.Count)
	assert.InDelta(t, 0.7, got.Mean, tolerance)
	assert.True(t, math.IsNaN(got.Std))
	assert.InDelta(t, 0.7, got.Median, tolerance)
}

func TestDescribe_SkipsNaN(t *testing.T) {
	got := Describe([]float64{1, math.NaN(), 3})

	assert.Equal(t, 2, got.Count)
	assert.InDelta(t, 2, got.Mean, tolerance)
}

func TestSummarizer_Summarize(t *testing.T) {
	rows := []domain.Measurement{
		{CompoundName: "Control", ReplicateNumber: 1, TimeHours: 0, OpticalDensity: 0.1, PH: 7.0, TemperatureCelsius: 37.0},
		{CompoundName: "Control", ReplicateNumber: 2, TimeHours: 12, OpticalDensity: 0.3, PH: 6.8, TemperatureCelsius: 37.2},
		{CompoundName: "Drug A", ReplicateNumber: 1, TimeHours: 24, OpticalDensity: 0.5, PH: 6.6, TemperatureCelsius: 36.8},
	}

	report, err := NewSummarizer(quietLogger()).Summarize(NewDataset(rows))
	require.NoError(t, err)

	assert.Equal(t, OverallStats{
		Count:        3,
		Compounds:    2,
		Replicates:   2,
		MinTimeHours: 0,
		MaxTimeHours: 24,
		TimeRange:    "[0, 24] h",
	}, report.Overall)

	for _, col := range report.Columns() {
		assert.Equal(t, len(rows), col.Summary.Count, col.Name)
	}
	assert.InDelta(t, 0.3, report.OpticalDensity.Mean, tolerance)
	assert.InDelta(t, 0.2, report.OpticalDensity.Std, tolerance)
	assert.InDelta(t, 6.6, report.PH.Min, tolerance)
	assert.InDelta(t, 37.2, report.TemperatureCelsius.Max, tolerance)
}

func TestSummarizer_EmptyLoadedDataset(t *testing.T) {
	report, err := NewSummarizer(quietLogger()).Summarize(NewDataset(nil))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Overall.Count)
	assert.Equal(t, 0, report.Overall.Compounds)
	assert.Empty(t, report.Overall.TimeRange)
	assert.Equal(t, 0, report.OpticalDensity.Count)
	assert.True(t, math.IsNaN(report.OpticalDensity.Mean))
}

func TestSummarizer_NilDataset(t *testing.T) {
	report, err := NewSummarizer(quietLogger()).Summarize(nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.Nil(t, report)
}

func TestColumnSummary_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Describe([]float64{2}))
	require.NoError(t, err)

	assert.JSONEq(t, `{"count":1,"mean":2,"std":null,"min":2,"25%":2,"50%":2,"75%":2,"max":2}`, string(data))
}

func TestResultTypes_MarshalJSON(t *testing.T) {
	pct := 12.5
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{
			name:  "growth result without inhibition",
			value: GrowthResult{CompoundName: "Control", ReplicateNumber: 1, InitialOD: 0.1, FinalOD: 0.4, GrowthRate: math.NaN()},
			want:  `{"compound_name":"Control","replicate_number":1,"initial_od":0.1,"final_od":0.4,"growth_rate":null,"inhibition_percent":null}`,
		},
		{
			name:  "growth result with inhibition",
			value: GrowthResult{CompoundName: "Drug A", ReplicateNumber: 2, InitialOD: 0.1, FinalOD: 0.2, GrowthRate: 0.5, InhibitionPercent: &pct},
			want:  `{"compound_name":"Drug A","replicate_number":2,"initial_od":0.1,"final_od":0.2,"growth_rate":0.5,"inhibition_percent":12.5}`,
		},
		{
			name:  "compound summary with undefined mean",
			value: CompoundSummary{CompoundName: "Drug B", MeanInhibition: math.NaN(), StdInhibition: math.NaN()},
			want:  `{"compound_name":"Drug B","mean_inhibition":null,"std_inhibition":null,"n":0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
