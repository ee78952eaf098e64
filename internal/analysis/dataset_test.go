package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"labanalyzer/pkg/contracts/domain"
)

func TestDataset_Accessors(t *testing.T) {
	rows := []domain.Measurement{
		row("Drug B", 2, 12, 0.3),
		row("Control", 1, 0, 0.1),
		row("Drug B", 1, 0, 0.1),
		row("Control", 1, 12, 0.5),
	}
	ds := NewDataset(rows)

	assert.Equal(t, 4, ds.Len())
	assert.False(t, ds.IsEmpty())
	assert.Equal(t, []string{"Drug B", "Control"}, ds.Compounds())
	assert.Equal(t, []int{1, 2}, ds.Replicates())
	assert.Equal(t, []float64{0, 12}, ds.TimePoints())
	assert.Len(t, ds.AtTime(12), 2)

	rows[0].CompoundName = "mutated"
	assert.Equal(t, "Drug B", ds.Rows()[0].CompoundName)
}

func TestDataset_NilIsNothingLoaded(t *testing.T) {
	var ds *Dataset

	assert.Equal(t, 0, ds.Len())
	assert.True(t, ds.IsEmpty())
	assert.Nil(t, ds.Rows())
	assert.Nil(t, ds.Compounds())
	ds.Each(func(int, domain.Measurement) { t.Fatal("no rows expected") })
}
