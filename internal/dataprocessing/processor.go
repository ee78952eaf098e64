package dataprocessing

import (
	"log/slog"
	"math"
	"strings"

	"labanalyzer/internal/analysis"
	"labanalyzer/pkg/contracts/domain"
)

// ProcessingOptions stamps rows that do not name their experiment or researcher
type ProcessingOptions struct {
	ExperimentName string
	Researcher     string
}

// ProcessingStatistics describes one Process call
type ProcessingStatistics struct {
	Rows               int
	Compounds          int
	MissingOD          int
	MissingPH          int
	MissingTemperature int
}

// Processor prepares parsed rows for analysis
type Processor struct {
	logger  *slog.Logger
	options ProcessingOptions
}

// NewProcessor creates a processor with no stamping defaults
func NewProcessor(logger *slog.Logger) *Processor {
	return NewProcessorWithOptions(logger, ProcessingOptions{})
}

// NewProcessorWithOptions creates a processor that fills blank experiment and researcher fields
func NewProcessorWithOptions(logger *slog.Logger, options ProcessingOptions) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:  logger.With(slog.String("component", "processor")),
		options: options,
	}
}

// Process returns a cleaned copy of rows in the same order. Row order is
// significant: the growth calculator keeps the first row per time point.
func (p *Processor) Process(rows []domain.Measurement) ([]domain.Measurement, ProcessingStatistics) {
	out := make([]domain.Measurement, len(rows))
	compounds := make(map[string]struct{})
	stats := ProcessingStatistics{Rows: len(rows)}

	for i, row := range rows {
		row.CompoundName = strings.TrimSpace(row.CompoundName)
		row.ExperimentName = strings.TrimSpace(row.ExperimentName)
		row.Researcher = strings.TrimSpace(row.Researcher)
		if row.ExperimentName == "" {
			row.ExperimentName = p.options.ExperimentName
		}
		if row.Researcher == "" {
			row.Researcher = p.options.Researcher
		}

		if math.IsNaN(row.OpticalDensity) {
			stats.MissingOD++
		}
		if math.IsNaN(row.PH) {
			stats.MissingPH++
		}
		if math.IsNaN(row.TemperatureCelsius) {
			stats.MissingTemperature++
		}
		compounds[row.CompoundName] = struct{}{}
		out[i] = row
	}
	stats.Compounds = len(compounds)

	if stats.MissingOD > 0 {
		p.logger.Warn("rows without optical density will not contribute growth rates",
			slog.Int("rows", stats.MissingOD))
	}
	return out, stats
}

// Dataset processes rows and wraps them in an analysis dataset
func (p *Processor) Dataset(rows []domain.Measurement) *analysis.Dataset {
	processed, stats := p.Process(rows)
	p.logger.Debug("dataset prepared",
		slog.Int("rows", stats.Rows),
		slog.Int("compounds", stats.Compounds))
	return analysis.NewDataset(processed)
}

// LoadFile parses path and returns the prepared dataset
func LoadFile(path string, logger *slog.Logger) (*analysis.Dataset, error) {
	rows, err := NewParser(logger).ParseFile(path)
	if err != nil {
		return nil, err
	}
	return NewProcessor(logger).Dataset(rows), nil
}
