package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"labanalyzer/internal/analysis"
	"labanalyzer/internal/config"
	"labanalyzer/pkg/contracts/domain"
)

// GrowthColumns is the header of the growth/inhibition table
var GrowthColumns = []string{
	"compound_name",
	"replicate_number",
	"initial_od",
	"final_od",
	"growth_rate",
	"inhibition_percent",
}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		paths:  paths,
		logger: logger.With(slog.String("component", "csv_writer")),
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file and returns the resolved path
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := w.ResolvePath(filePath)

	w.logger.Info("writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	if err := writeTable(file, options.Headers, options.Records); err != nil {
		return "", err
	}
	return fullPath, file.Close()
}

// ExportDataset writes the raw measurement table to filename under the exports directory
func (w *CSVWriter) ExportDataset(filename string, ds *analysis.Dataset) (string, error) {
	return w.WriteCSV(filename, WriteOptions{
		Headers:   domain.MeasurementColumns,
		Records:   DatasetRecords(ds),
		BOMPrefix: true,
	})
}

// ExportGrowth writes the growth/inhibition table to filename under the exports directory
func (w *CSVWriter) ExportGrowth(filename string, results []analysis.GrowthResult) (string, error) {
	return w.WriteCSV(filename, WriteOptions{
		Headers:   GrowthColumns,
		Records:   GrowthRecords(results),
		BOMPrefix: true,
	})
}

// WriteDatasetCSV streams the raw measurement table to out
func WriteDatasetCSV(out io.Writer, ds *analysis.Dataset) error {
	return writeTable(out, domain.MeasurementColumns, DatasetRecords(ds))
}

// WriteGrowthCSV streams the growth/inhibition table to out
func WriteGrowthCSV(out io.Writer, results []analysis.GrowthResult) error {
	return writeTable(out, GrowthColumns, GrowthRecords(results))
}

// DatasetRecords renders dataset rows in domain.MeasurementColumns order
func DatasetRecords(ds *analysis.Dataset) [][]string {
	records := make([][]string, 0, ds.Len())
	ds.Each(func(_ int, m domain.Measurement) {
		records = append(records, []string{
			m.ExperimentName,
			m.Researcher,
			m.CompoundName,
			formatFloat(m.TimeHours),
			formatFloat(m.OpticalDensity),
			formatFloat(m.PH),
			formatFloat(m.TemperatureCelsius),
			formatInt(m.ReplicateNumber),
		})
	})
	return records
}

// GrowthRecords renders results in GrowthColumns order
func GrowthRecords(results []analysis.GrowthResult) [][]string {
	records := make([][]string, 0, len(results))
	for _, r := range results {
		records = append(records, []string{
			r.CompoundName,
			formatInt(r.ReplicateNumber),
			formatFloat(r.InitialOD),
			formatFloat(r.FinalOD),
			formatFloat(r.GrowthRate),
			formatOptional(r.InhibitionPercent),
		})
	}
	return records
}

func writeTable(out io.Writer, headers []string, records [][]string) error {
	writer := csv.NewWriter(out)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ResolvePath places relative paths in the exports directory
func (w *CSVWriter) ResolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetExportPath(filePath)
}
