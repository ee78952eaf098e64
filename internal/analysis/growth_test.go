package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labanalyzer/pkg/contracts/domain"
)

func TestGrowthCalculator_Compute(t *testing.T) {
	calc := NewGrowthCalculator(quietLogger())

	tests := []struct {
		name       string
		rows       []domain.Measurement
		start, end float64
		want       []GrowthResult
	}{
		{
			name:  "known exponential rate",
			rows:  []domain.Measurement{row("Control", 1, 0, 1.0), row("Control", 1, 24, math.Exp(0.5*24))},
			start: 0, end: 24,
			want: []GrowthResult{
				{CompoundName: "Control", ReplicateNumber: 1, InitialOD: 1.0, FinalOD: math.Exp(12), GrowthRate: 0.5},
			},
		},
		{
			name:  "missing start time point is skipped",
			rows:  []domain.Measurement{row("Drug A", 1, 24, 0.8)},
			start: 0, end: 24,
			want:  []GrowthResult{},
		},
		{
			name:  "missing end time point is skipped",
			rows:  []domain.Measurement{row("Drug A", 1, 0, 0.1), row("Drug A", 1, 12, 0.4)},
			start: 0, end: 24,
			want:  []GrowthResult{},
		},
		{
			name:  "zero initial OD is skipped",
			rows:  []domain.Measurement{row("Drug A", 1, 0, 0), row("Drug A", 1, 24, 0.5)},
			start: 0, end: 24,
			want:  []GrowthResult{},
		},
		{
			name:  "negative final OD is skipped",
			rows:  []domain.Measurement{row("Drug A", 1, 0, 0.1), row("Drug A", 1, 24, -0.2)},
			start: 0, end: 24,
			want:  []GrowthResult{},
		},
		{
			name:  "equal start and end is skipped",
			rows:  []domain.Measurement{row("Drug A", 1, 24, 0.1)},
			start: 24, end: 24,
			want:  []GrowthResult{},
		},
		{
			name:  "reversed window is skipped",
			rows:  []domain.Measurement{row("Drug A", 1, 0, 0.1), row("Drug A", 1, 24, 0.4)},
			start: 24, end: 0,
			want:  []GrowthResult{},
		},
		{
			name: "first row wins on duplicate time points",
			rows: []domain.Measurement{
				row("Drug A", 1, 0, 0.1),
				row("Drug A", 1, 0, 0.9),
				row("Drug A", 1, 24, 0.4),
				row("Drug A", 1, 24, 5.0),
			},
			start: 0, end: 24,
			want: []GrowthResult{
				{CompoundName: "Drug A", ReplicateNumber: 1, InitialOD: 0.1, FinalOD: 0.4, GrowthRate: math.Log(4) / 24},
			},
		},
		{
			name: "custom window",
			rows: []domain.Measurement{
				row("Drug A", 1, 0, 0.1),
				row("Drug A", 1, 6, 0.2),
				row("Drug A", 1, 12, 0.8),
			},
			start: 6, end: 12,
			want: []GrowthResult{
				{CompoundName: "Drug A", ReplicateNumber: 1, InitialOD: 0.2, FinalOD: 0.8, GrowthRate: math.Log(4) / 6},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Compute(NewDataset(tt.rows), tt.start, tt.end)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].CompoundName, got[i].CompoundName)
				assert.Equal(t, tt.want[i].ReplicateNumber, got[i].ReplicateNumber)
				assert.InDelta(t, tt.want[i].InitialOD, got[i].InitialOD, tolerance)
				assert.InDelta(t, tt.want[i].FinalOD, got[i].FinalOD, tolerance)
				assert.InDelta(t, tt.want[i].GrowthRate, got[i].GrowthRate, tolerance)
				assert.Nil(t, got[i].InhibitionPercent)
			}
		})
	}
}

func TestGrowthCalculator_NilDataset(t *testing.T) {
	calc := NewGrowthCalculator(quietLogger())

	got, err := calc.Compute(nil, DefaultStartTime, DefaultEndTime)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.Nil(t, got)
}

func TestGrowthCalculator_EmptyDataset(t *testing.T) {
	calc := NewGrowthCalculator(quietLogger())

	got, err := calc.Compute(NewDataset(nil), DefaultStartTime, DefaultEndTime)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGrowthCalculator_OnePerPairInEncounterOrder(t *testing.T) {
	calc := NewGrowthCalculator(quietLogger())

	// rows arrive sorted by compound, time, replicate like the database query
	rows := []domain.Measurement{
		row("Control", 2, 0, 0.1),
		row("Control", 1, 0, 0.1),
		row("Drug B", 1, 0, 0.1),
		row("Control", 2, 24, 0.4),
		row("Control", 1, 24, 0.5),
		row("Drug B", 1, 24, 0.2),
		row("Drug A", 3, 0, 0.1),
		row("Drug A", 3, 24, 0.3),
	}

	got, err := calc.Compute(NewDataset(rows), 0, 24)
	require.NoError(t, err)

	type key struct {
		compound  string
		replicate int
	}
	var keys []key
	for _, r := range got {
		keys = append(keys, key{r.CompoundName, r.ReplicateNumber})
	}
	assert.Equal(t, []key{
		{"Control", 2},
		{"Control", 1},
		{"Drug B", 1},
		{"Drug A", 3},
	}, keys)
}

func TestGrowthCalculator_MonotonicInFinalOD(t *testing.T) {
	calc := NewGrowthCalculator(quietLogger())

	previous := math.Inf(-1)
	for _, finalOD := range []float64{0.05, 0.1, 0.2, 0.4, 0.8, 1.6} {
		ds := NewDataset([]domain.Measurement{row("Drug A", 1, 0, 0.1), row("Drug A", 1, 24, finalOD)})
		got, err := calc.Compute(ds, 0, 24)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Greater(t, got[0].GrowthRate, previous, "final OD %g", finalOD)
		previous = got[0].GrowthRate
	}
}

func TestGrowthCalculator_DoesNotMutateDataset(t *testing.T) {
	calc := NewGrowthCalculator(quietLogger())
	rows := concat(pair("Control", 1, 0.1, 0.2), pair("Drug A", 1, 0.1, 0.1))
	ds := NewDataset(rows)
	before := ds.Rows()

	_, err := calc.Compute(ds, 0, 24)
	require.NoError(t, err)

	assert.Equal(t, before, ds.Rows())
}
