package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeCompounds(t *testing.T) {
	results := []GrowthResult{
		{CompoundName: "Control", ReplicateNumber: 1, InhibitionPercent: ptr(0)},
		{CompoundName: "Drug B", ReplicateNumber: 1, InhibitionPercent: ptr(20)},
		{CompoundName: "Drug A", ReplicateNumber: 1, InhibitionPercent: ptr(40)},
		{CompoundName: "Drug B", ReplicateNumber: 2, InhibitionPercent: ptr(30)},
		{CompoundName: "Drug A", ReplicateNumber: 2, InhibitionPercent: nil},
		{CompoundName: "Drug C", ReplicateNumber: 1, InhibitionPercent: nil},
	}

	got := SummarizeCompounds(results, DefaultControlMatcher())
	require.Len(t, got, 2)

	assert.Equal(t, "Drug B", got[0].CompoundName)
	assert.InDelta(t, 25, got[0].MeanInhibition, tolerance)
	assert.InDelta(t, 5, got[0].StdInhibition, tolerance)
	assert.Equal(t, 2, got[0].N)

	assert.Equal(t, "Drug A", got[1].CompoundName)
	assert.InDelta(t, 40, got[1].MeanInhibition, tolerance)
	assert.InDelta(t, 0, got[1].StdInhibition, tolerance)
	assert.Equal(t, 1, got[1].N)
}

func TestMeanGrowthByCompound(t *testing.T) {
	names, means := MeanGrowthByCompound([]GrowthResult{
		{CompoundName: "Control", GrowthRate: 0.2},
		{CompoundName: "Drug A", GrowthRate: 0.1},
		{CompoundName: "Control", GrowthRate: 0.4},
		{CompoundName: "Drug A", GrowthRate: math.NaN()},
	})

	assert.Equal(t, []string{"Control", "Drug A"}, names)
	assert.InDeltaSlice(t, []float64{0.3, 0.1}, means, tolerance)
}
