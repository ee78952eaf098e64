package charts

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"labanalyzer/internal/analysis"
	apperrors "labanalyzer/internal/errors"
)

// Kind names a chart
type Kind string

const (
	KindGrowth      Kind = "growth"
	KindInhibition  Kind = "inhibition"
	KindTimeCourse  Kind = "timecourse"
	KindTemperature Kind = "temperature"
	KindPH          Kind = "ph"
)

// Default image size in pixels
const (
	DefaultWidth  = 1024
	DefaultHeight = 600
)

var (
	// ErrNoData is returned when the input has nothing to plot for the requested kind
	ErrNoData = fmt.Errorf("%w to plot", apperrors.ErrNoData)

	// ErrUnknownKind is returned by ParseKind for names outside Kinds()
	ErrUnknownKind = fmt.Errorf("chart kind %w", apperrors.ErrNotFound)
)

// Kinds lists every supported chart kind
func Kinds() []Kind {
	return []Kind{KindGrowth, KindInhibition, KindTimeCourse, KindTemperature, KindPH}
}

// ParseKind resolves a chart name, case-insensitively
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Input is the data a chart is drawn from
type Input struct {
	Dataset *analysis.Dataset
	Results []analysis.GrowthResult
	Matcher analysis.ControlMatcher

	// EndTime selects the rows plotted by the temperature and pH charts
	EndTime float64
}

// Options configures a Renderer
type Options struct {
	Width  int
	Height int
}

// Renderer draws charts as PNG
type Renderer struct {
	width  int
	height int
	logger *slog.Logger
}

// NewRenderer creates a renderer. Zero sizes fall back to the defaults.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return &Renderer{
		width:  opts.Width,
		height: opts.Height,
		logger: logger.With(slog.String("component", "chart_renderer")),
	}
}

// Render writes the PNG for kind to w
func (r *Renderer) Render(w io.Writer, kind Kind, in Input) error {
	var err error
	switch kind {
	case KindGrowth:
		err = r.renderGrowth(w, in)
	case KindInhibition:
		err = r.renderInhibition(w, in)
	case KindTimeCourse:
		err = r.renderTimeCourse(w, in)
	case KindTemperature:
		err = r.renderEndPoint(w, in, "Temperature (°C)", temperatureOf)
	case KindPH:
		err = r.renderEndPoint(w, in, "pH", phOf)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			r.logger.Error("chart render failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		}
		return err
	}

	r.logger.Debug("chart rendered", slog.String("kind", string(kind)))
	return nil
}

// paddedRange widens [min, max] by 5% on each side. A degenerate range is
// widened by one unit (or 10% of the value) so the axis has a non-zero span.
func paddedRange(min, max float64) *chart.ContinuousRange {
	if min > max {
		min, max = max, min
	}
	span := max - min
	if span == 0 {
		pad := math.Abs(min) * 0.1
		if pad == 0 {
			pad = 1
		}
		return &chart.ContinuousRange{Min: min - pad, Max: max + pad}
	}
	pad := span * 0.05
	return &chart.ContinuousRange{Min: min - pad, Max: max + pad}
}

// extent returns the smallest and largest finite value, or ok=false when there is none
func extent(values ...[]float64) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			min = math.Min(min, v)
			max = math.Max(max, v)
			ok = true
		}
	}
	return min, max, ok
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
