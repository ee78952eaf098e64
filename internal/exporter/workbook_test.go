package exporter

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"labanalyzer/internal/analysis"
	"labanalyzer/internal/shared/testutil"
	"labanalyzer/pkg/contracts/domain"
)

func sampleWorkbookData(t *testing.T) WorkbookData {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	session, err := analysis.NewSession(analysis.DefaultSessionConfig(), logger)
	require.NoError(t, err)
	require.NoError(t, session.Load(analysis.NewDataset(testutil.MeasurementRows())))

	results, err := session.ComputeInhibition()
	require.NoError(t, err)
	stats, err := session.Statistics()
	require.NoError(t, err)

	return WorkbookData{
		Dataset:   session.Dataset(),
		Results:   results,
		Stats:     stats,
		Compounds: session.CompoundSummaries(),
	}
}

func openWorkbook(t *testing.T, raw []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWorkbookExporter_Write(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	exporter := NewWorkbookExporter(logger)
	data := sampleWorkbookData(t)

	var buf bytes.Buffer
	require.NoError(t, exporter.Write(&buf, data))

	f := openWorkbook(t, buf.Bytes())
	assert.Equal(t, []string{SheetRawData, SheetGrowth, SheetStatistics, SheetCompounds}, f.GetSheetList())

	raw, err := f.GetRows(SheetRawData, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, raw, data.Dataset.Len()+1)
	assert.Equal(t, domain.MeasurementColumns, raw[0])
	assert.Equal(t, "Ampicillin", raw[1][2])
	assert.Equal(t, "0.05", raw[1][4])

	growth, err := f.GetRows(SheetGrowth, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, growth, len(data.Results)+1)
	assert.Equal(t, GrowthColumns, growth[0])

	stats, err := f.GetRows(SheetStatistics, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"overall", "value"}, stats[0])
	assert.Equal(t, []string{"count", "18"}, stats[1])
	assert.Equal(t, "column", stats[6][0])
	assert.Equal(t, analysis.ColumnOpticalDensity, stats[7][0])

	compounds, err := f.GetRows(SheetCompounds)
	require.NoError(t, err)
	require.Len(t, compounds, 3)
	assert.Equal(t, "Ampicillin", compounds[1][0])
	assert.Equal(t, "Kanamycin", compounds[2][0])
}

func TestWorkbookExporter_RawDataOnly(t *testing.T) {
	exporter := NewWorkbookExporter(nil)

	var buf bytes.Buffer
	require.NoError(t, exporter.Write(&buf, WorkbookData{
		Dataset: analysis.NewDataset(testutil.MeasurementRows()[:2]),
	}))

	f := openWorkbook(t, buf.Bytes())
	assert.Equal(t, []string{SheetRawData}, f.GetSheetList())

	rows, err := f.GetRows(SheetRawData)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestWorkbookExporter_WriteFile(t *testing.T) {
	exporter := NewWorkbookExporter(nil)
	path := filepath.Join(t.TempDir(), "out", "analysis.xlsx")

	require.NoError(t, exporter.WriteFile(path, sampleWorkbookData(t)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), SheetGrowth)
}
