package dataprocessing

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "labanalyzer/internal/errors"
	"labanalyzer/internal/shared/testutil"
	"labanalyzer/pkg/contracts/domain"
)

func TestParser_ParseCSV_RoundTripsFixture(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	want := testutil.MeasurementRows()

	got, err := NewParser(logger).ParseCSV(strings.NewReader(testutil.MeasurementCSV(want)))
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parsed rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParser_ParseCSV_HeaderAliases(t *testing.T) {
	input := "\ufeffCompound,Time (h),OD600,pH,Temperature (°C),Rep\n" +
		"Control,0,0.05,7.2,37,1\n" +
		"\n" +
		"Control,24,\"0,6\",,37.5,1.0\n"

	got, err := NewParser(nil).ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Control", got[0].CompoundName)
	assert.Equal(t, 0.05, got[0].OpticalDensity)
	assert.Equal(t, 7.2, got[0].PH)
	assert.Equal(t, 37.0, got[0].TemperatureCelsius)
	assert.Equal(t, 1, got[0].ReplicateNumber)

	assert.Equal(t, 24.0, got[1].TimeHours)
	assert.Equal(t, 0.6, got[1].OpticalDensity)
	assert.True(t, math.IsNaN(got[1].PH), "blank pH is missing, not zero")
	assert.Equal(t, 1, got[1].ReplicateNumber)
	assert.Empty(t, got[1].ExperimentName)
}

func TestParser_ParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSubstr string
	}{
		{
			name:       "empty input",
			input:      "",
			wantSubstr: "no header row",
		},
		{
			name:       "missing required columns",
			input:      "compound_name,time_hours\nControl,0\n",
			wantSubstr: "missing required columns: optical_density, replicate_number",
		},
		{
			name:       "non numeric OD",
			input:      "compound_name,time_hours,optical_density,replicate_number\nControl,0,high,1\n",
			wantSubstr: "line 2: optical_density is not a number",
		},
		{
			name:       "blank time",
			input:      "compound_name,time_hours,optical_density,replicate_number\nControl,,0.1,1\n",
			wantSubstr: "line 2: time_hours is not a number",
		},
		{
			name:       "fractional replicate",
			input:      "compound_name,time_hours,optical_density,replicate_number\nControl,0,0.1,1.5\n",
			wantSubstr: "line 2: replicate_number is not a whole number",
		},
		{
			name:       "thousands grouped OD",
			input:      "compound_name,time_hours,optical_density,replicate_number\nControl,0,\"1,000\",1\n",
			wantSubstr: "line 2: optical_density is not a number",
		},
		{
			name:       "blank compound",
			input:      "compound_name,time_hours,optical_density,replicate_number\n,0,0.1,1\n",
			wantSubstr: "line 2: compound_name is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).ParseCSV(strings.NewReader(tt.input))
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrTypeParsing, appErr.Type)
			assert.Contains(t, err.Error(), tt.wantSubstr)
		})
	}
}

func writeWorkbook(t *testing.T, sheet string, title bool, rows []domain.Measurement) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))

	line := 1
	if title {
		require.NoError(t, f.SetCellValue(sheet, "A1", "Plate reader export"))
		line = 3
	}

	header := make([]interface{}, len(domain.MeasurementColumns))
	for i, c := range domain.MeasurementColumns {
		header[i] = c
	}
	cell, _ := excelize.CoordinatesToCellName(1, line)
	require.NoError(t, f.SetSheetRow(sheet, cell, &header))

	for _, r := range rows {
		line++
		values := []interface{}{r.ExperimentName, r.Researcher, r.CompoundName,
			r.TimeHours, r.OpticalDensity, r.PH, r.TemperatureCelsius, r.ReplicateNumber}
		cell, _ := excelize.CoordinatesToCellName(1, line)
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParser_ParseWorkbook(t *testing.T) {
	want := testutil.MeasurementRows()

	tests := []struct {
		name  string
		sheet string
		title bool
	}{
		{name: "raw data sheet", sheet: "Raw data"},
		{name: "header below a title block", sheet: "Sheet1", title: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := writeWorkbook(t, tt.sheet, tt.title, want)

			got, err := NewParser(nil).ParseWorkbook(bytes.NewReader(data))
			require.NoError(t, err)

			// Spreadsheet cells hold decimal text, so compare with a tolerance
			if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
				t.Errorf("parsed rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParser_ParseWorkbook_NoHeader(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "nothing to see"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := NewParser(nil).ParseWorkbook(&buf)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, err.Error(), "no sheet has the required columns")
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	rows := testutil.MeasurementRows()

	csvPath := filepath.Join(dir, "screen.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testutil.MeasurementCSV(rows)), 0o644))

	xlsxPath := filepath.Join(dir, "screen.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, writeWorkbook(t, "Raw data", false, rows), 0o644))

	logger, records := testutil.NewTestLogger(t)
	parser := NewParser(logger)

	for _, path := range []string{csvPath, xlsxPath} {
		got, err := parser.ParseFile(path)
		require.NoError(t, err, path)
		assert.Len(t, got, len(rows))
	}
	assert.True(t, records.ContainsAttr("file", "screen.xlsx"))

	_, err := parser.ParseFile(filepath.Join(dir, "screen.json"))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, err.Error(), "unsupported file type")

	_, err = parser.ParseFile(filepath.Join(dir, "missing.csv"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, filepath.Join(dir, "missing.csv"), appErr.Context["file"])
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Optical Density":  "opticaldensity",
		"time_hours":       "timehours",
		"Temperature (°C)": "temperaturec",
		" OD600 ":          "od600",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeHeader(in), in)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr error
	}{
		{in: "0.125", want: 0.125},
		{in: "0,125", want: 0.125},
		{in: "-0,250", want: -0.25},
		{in: "1,5", want: 1.5},
		{in: "37,25", want: 37.25},
		{in: "1,000", wantErr: errAmbiguousSeparator},
		{in: "12,500", wantErr: errAmbiguousSeparator},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseNumber(tt.in, true)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	blank, err := parseNumber("", true)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(blank))
}
