package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	apperrors "labanalyzer/internal/errors"
	"labanalyzer/pkg/contracts/domain"
)

// Canonical column keys, equal to domain.MeasurementColumns
const (
	colExperiment  = "experiment_name"
	colResearcher  = "researcher"
	colCompound    = "compound_name"
	colTime        = "time_hours"
	colOD          = "optical_density"
	colPH          = "ph"
	colTemperature = "temperature_celsius"
	colReplicate   = "replicate_number"
)

// headerAliases maps a normalized header (lowercase letters and digits only)
// to its canonical column
var headerAliases = map[string]string{
	"experimentname":     colExperiment,
	"experiment":         colExperiment,
	"researcher":         colResearcher,
	"fullname":           colResearcher,
	"compoundname":       colCompound,
	"compound":           colCompound,
	"treatment":          colCompound,
	"timehours":          colTime,
	"timeh":              colTime,
	"time":               colTime,
	"hours":              colTime,
	"opticaldensity":     colOD,
	"od":                 colOD,
	"od600":              colOD,
	"ph":                 colPH,
	"temperaturecelsius": colTemperature,
	"temperaturec":       colTemperature,
	"temperature":        colTemperature,
	"temp":               colTemperature,
	"replicatenumber":    colReplicate,
	"replicate":          colReplicate,
	"rep":                colReplicate,
}

var requiredColumns = []string{colCompound, colTime, colOD, colReplicate}

// preferredSheets are tried before scanning every sheet for a header row
var preferredSheets = []string{"Raw data", "Measurements", "Data"}

// Parser reads measurement tables
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger uses slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "parser"))}
}

// ParseFile reads a .csv or .xlsx measurement file
func (p *Parser) ParseFile(path string) ([]domain.Measurement, error) {
	var parse func(io.Reader) ([]domain.Measurement, error)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		parse = p.ParseCSV
	case ".xlsx", ".xlsm":
		parse = p.ParseWorkbook
	default:
		return nil, apperrors.NewParsingError(fmt.Sprintf("unsupported file type %q", ext), nil).WithContext("file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewParsingError("open measurement file", err).WithContext("file", path)
	}
	defer f.Close()

	rows, err := parse(f)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("file", path)
		}
		return nil, err
	}

	p.logger.Info("measurement file parsed",
		slog.String("file", filepath.Base(path)),
		slog.Int("rows", len(rows)))
	return rows, nil
}

// ParseCSV reads a comma separated table whose first record is the header
func (p *Parser) ParseCSV(r io.Reader) ([]domain.Measurement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("read csv", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewParsingError("csv has no header row", nil)
	}

	records[0] = trimBOM(records[0])
	columns, err := mapHeader(records[0])
	if err != nil {
		return nil, err
	}
	return p.parseRecords(records[1:], columns, 2)
}

// ParseWorkbook reads the first sheet holding a recognizable header row
func (p *Parser) ParseWorkbook(r io.Reader) ([]domain.Measurement, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("open workbook", err)
	}
	defer f.Close()

	candidates := make([]string, 0, len(f.GetSheetList())+len(preferredSheets))
	for _, name := range preferredSheets {
		if idx, _ := f.GetSheetIndex(name); idx >= 0 {
			candidates = append(candidates, name)
		}
	}
	candidates = append(candidates, f.GetSheetList()...)

	for _, sheet := range candidates {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil || len(rows) == 0 {
			continue
		}

		// The header may sit below a title block
		for i := 0; i < len(rows) && i < 10; i++ {
			columns, err := mapHeader(rows[i])
			if err != nil {
				continue
			}
			p.logger.Debug("measurement sheet found",
				slog.String("sheet", sheet),
				slog.Int("header_row", i+1))
			return p.parseRecords(rows[i+1:], columns, i+2)
		}
	}

	return nil, apperrors.NewParsingError(
		fmt.Sprintf("no sheet has the required columns %s", strings.Join(requiredColumns, ", ")), nil)
}

// parseRecords converts data records; firstLine is the 1-based line of records[0]
func (p *Parser) parseRecords(records [][]string, columns map[string]int, firstLine int) ([]domain.Measurement, error) {
	rows := make([]domain.Measurement, 0, len(records))

	for i, record := range records {
		line := firstLine + i
		if isBlank(record) {
			continue
		}

		cell := func(col string) string {
			idx, ok := columns[col]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		row := domain.Measurement{
			ExperimentName: cell(colExperiment),
			Researcher:     cell(colResearcher),
			CompoundName:   cell(colCompound),
		}
		if row.CompoundName == "" {
			return nil, cellError(line, colCompound, "is empty", nil)
		}

		var err error
		if row.TimeHours, err = parseNumber(cell(colTime), false); err != nil {
			return nil, cellError(line, colTime, "is not a number", err)
		}
		if row.OpticalDensity, err = parseNumber(cell(colOD), true); err != nil {
			return nil, cellError(line, colOD, "is not a number", err)
		}
		if row.PH, err = parseNumber(cell(colPH), true); err != nil {
			return nil, cellError(line, colPH, "is not a number", err)
		}
		if row.TemperatureCelsius, err = parseNumber(cell(colTemperature), true); err != nil {
			return nil, cellError(line, colTemperature, "is not a number", err)
		}
		if row.ReplicateNumber, err = parseReplicate(cell(colReplicate)); err != nil {
			return nil, cellError(line, colReplicate, "is not a whole number", err)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// mapHeader resolves header cells to canonical columns.
// The first occurrence of a column wins.
func mapHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		canonical, ok := headerAliases[normalizeHeader(name)]
		if !ok {
			continue
		}
		if _, dup := columns[canonical]; !dup {
			columns[canonical] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil)
	}
	return columns, nil
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (unicode.IsLetter(r) && r < unicode.MaxASCII) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseNumber parses a decimal that may use a comma as the decimal separator.
// A single comma followed by exactly three digits after a non-zero integer
// part ("1,000") could be thousands grouping and is rejected. Blank cells are
// NaN when optional.
func parseNumber(s string, optional bool) (float64, error) {
	if s == "" {
		if optional {
			return math.NaN(), nil
		}
		return 0, errors.New("value is required")
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		whole, frac, _ := strings.Cut(s, ",")
		if len(frac) == 3 && allDigits(frac) && strings.TrimLeft(whole, "+-0") != "" {
			return 0, errAmbiguousSeparator
		}
		s = whole + "." + frac
	}
	return strconv.ParseFloat(s, 64)
}

var errAmbiguousSeparator = errors.New("ambiguous separator: comma may be a thousands separator, use a point for decimals")

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseReplicate accepts "2" and the "2.0" spreadsheets tend to produce
func parseReplicate(s string) (int, error) {
	if s == "" {
		return 0, errors.New("value is required")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%s is not an integer", s)
	}
	return int(f), nil
}

func cellError(line int, column, problem string, cause error) error {
	return apperrors.NewParsingError(fmt.Sprintf("line %d: %s %s", line, column, problem), cause).
		WithContext("line", line).
		WithContext("column", column)
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header
}
