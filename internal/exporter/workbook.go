package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"labanalyzer/internal/analysis"
	apperrors "labanalyzer/internal/errors"
	"labanalyzer/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetRawData    = "Raw data"
	SheetGrowth     = "Growth analysis"
	SheetStatistics = "Statistics"
	SheetCompounds  = "Inhibition summary"
)

// WorkbookData is everything a workbook can hold. Nil or empty parts are
// left out, except the raw data sheet which is always present.
type WorkbookData struct {
	Dataset   *analysis.Dataset
	Results   []analysis.GrowthResult
	Stats     *analysis.StatsReport
	Compounds []analysis.CompoundSummary
}

// WorkbookExporter renders analysis data as an .xlsx workbook
type WorkbookExporter struct {
	logger *slog.Logger
}

// NewWorkbookExporter creates a workbook exporter
func NewWorkbookExporter(logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{logger: logger.With(slog.String("component", "workbook_exporter"))}
}

// Write renders the workbook to out
func (e *WorkbookExporter) Write(out io.Writer, data WorkbookData) error {
	f, err := e.build(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return apperrors.NewExportError("write workbook", err)
	}
	return nil
}

// WriteFile renders the workbook to path, creating parent directories
func (e *WorkbookExporter) WriteFile(path string, data WorkbookData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := e.Write(file, data); err != nil {
		return err
	}
	e.logger.Info("workbook written", slog.String("path", path))
	return file.Close()
}

func (e *WorkbookExporter) build(data WorkbookData) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetRawData); err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, int, WorkbookData) error{
		writeRawSheet,
		writeGrowthSheet,
		writeStatisticsSheet,
		writeCompoundSheet,
	}
	for _, step := range steps {
		if err := step(f, headerStyle, data); err != nil {
			f.Close()
			return nil, apperrors.NewExportError("build workbook", err)
		}
	}

	e.logger.Debug("workbook built",
		slog.Int("rows", data.Dataset.Len()),
		slog.Int("results", len(data.Results)),
		slog.Any("sheets", f.GetSheetList()))
	return f, nil
}

func writeRawSheet(f *excelize.File, headerStyle int, data WorkbookData) error {
	rows := make([][]interface{}, 0, data.Dataset.Len())
	data.Dataset.Each(func(_ int, m domain.Measurement) {
		rows = append(rows, []interface{}{
			m.ExperimentName,
			m.Researcher,
			m.CompoundName,
			cellValue(m.TimeHours),
			cellValue(m.OpticalDensity),
			cellValue(m.PH),
			cellValue(m.TemperatureCelsius),
			m.ReplicateNumber,
		})
	})
	return writeSheet(f, SheetRawData, headerStyle, domain.MeasurementColumns, rows)
}

func writeGrowthSheet(f *excelize.File, headerStyle int, data WorkbookData) error {
	if len(data.Results) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(data.Results))
	for _, r := range data.Results {
		var inhibition interface{}
		if r.InhibitionPercent != nil {
			inhibition = cellValue(*r.InhibitionPercent)
		}
		rows = append(rows, []interface{}{
			r.CompoundName,
			r.ReplicateNumber,
			cellValue(r.InitialOD),
			cellValue(r.FinalOD),
			cellValue(r.GrowthRate),
			inhibition,
		})
	}
	return writeSheet(f, SheetGrowth, headerStyle, GrowthColumns, rows)
}

func writeStatisticsSheet(f *excelize.File, headerStyle int, data WorkbookData) error {
	if data.Stats == nil {
		return nil
	}
	o := data.Stats.Overall
	overall := [][]interface{}{
		{"count", o.Count},
		{"compounds", o.Compounds},
		{"replicates", o.Replicates},
		{"time_range", o.TimeRange},
	}
	if err := writeSheet(f, SheetStatistics, headerStyle, []string{"overall", "value"}, overall); err != nil {
		return err
	}

	columns := make([][]interface{}, 0, 3)
	for _, c := range data.Stats.Columns() {
		s := c.Summary
		columns = append(columns, []interface{}{
			c.Name, s.Count,
			cellValue(s.Mean), cellValue(s.Std), cellValue(s.Min),
			cellValue(s.Q25), cellValue(s.Median), cellValue(s.Q75), cellValue(s.Max),
		})
	}
	header := []string{"column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	return writeBlock(f, SheetStatistics, headerStyle, len(overall)+3, header, columns)
}

func writeCompoundSheet(f *excelize.File, headerStyle int, data WorkbookData) error {
	if len(data.Compounds) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(data.Compounds))
	for _, c := range data.Compounds {
		rows = append(rows, []interface{}{c.CompoundName, cellValue(c.MeanInhibition), cellValue(c.StdInhibition), c.N})
	}
	header := []string{"compound_name", "mean_inhibition", "std_inhibition", "n"}
	return writeSheet(f, SheetCompounds, headerStyle, header, rows)
}

// writeSheet creates sheet (if needed) and writes a table starting at A1
func writeSheet(f *excelize.File, sheet string, headerStyle int, header []string, rows [][]interface{}) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	if err := writeBlock(f, sheet, headerStyle, 1, header, rows); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 16)
}

// writeBlock writes a header row at startRow followed by rows
func writeBlock(f *excelize.File, sheet string, headerStyle, startRow int, header []string, rows [][]interface{}) error {
	headerCells := make([]interface{}, len(header))
	for i, h := range header {
		headerCells[i] = h
	}

	cell, err := excelize.CoordinatesToCellName(1, startRow)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &headerCells); err != nil {
		return err
	}
	lastCell, err := excelize.CoordinatesToCellName(len(header), startRow)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell, lastCell, headerStyle); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+1+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}
