package dataprocessing

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labanalyzer/internal/shared/testutil"
	"labanalyzer/pkg/contracts/domain"
)

func TestProcessor_Process(t *testing.T) {
	rows := []domain.Measurement{
		{CompoundName: "  Control ", TimeHours: 0, OpticalDensity: 0.05, PH: 7, TemperatureCelsius: 37, ReplicateNumber: 1},
		{CompoundName: "Control", ExperimentName: "Own name", TimeHours: 24, OpticalDensity: math.NaN(), PH: math.NaN(), TemperatureCelsius: 37, ReplicateNumber: 1},
	}

	logger, records := testutil.NewTestLogger(t)
	p := NewProcessorWithOptions(logger, ProcessingOptions{ExperimentName: "Screen", Researcher: "A. Researcher"})

	out, stats := p.Process(rows)

	require.Len(t, out, 2)
	assert.Equal(t, "Control", out[0].CompoundName)
	assert.Equal(t, "Screen", out[0].ExperimentName)
	assert.Equal(t, "A. Researcher", out[0].Researcher)
	assert.Equal(t, "Own name", out[1].ExperimentName, "explicit values are kept")

	assert.Equal(t, ProcessingStatistics{Rows: 2, Compounds: 1, MissingOD: 1, MissingPH: 1}, stats)
	assert.True(t, records.ContainsMessage("rows without optical density"))

	assert.Equal(t, "  Control ", rows[0].CompoundName, "input is not modified")
}

func TestProcessor_DatasetKeepsOrder(t *testing.T) {
	rows := testutil.MeasurementRows()
	ds := NewProcessor(nil).Dataset(rows)

	require.Equal(t, len(rows), ds.Len())
	assert.Equal(t, rows, ds.Rows())
	assert.Equal(t, []string{"Ampicillin", "Control", "Kanamycin"}, ds.Compounds())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screen.csv")
	require.NoError(t, os.WriteFile(path, []byte(testutil.MeasurementCSV(testutil.MeasurementRows())), 0o644))

	ds, err := LoadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 18, ds.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.csv"), nil)
	assert.Error(t, err)
}
