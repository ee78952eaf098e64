package charts

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/stat"

	"labanalyzer/pkg/contracts/domain"
)

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 2,
		StrokeColor: col,
		DotWidth:    4,
		DotColor:    col,
	}
}

func bandStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		FillColor:   col.WithAlpha(48),
	}
}

// meanPoint is the mean and sample standard deviation of the readings of one
// compound at one x value. Std is zero for a single reading.
type meanPoint struct {
	x, mean, std float64
}

// bandSeries shades mean ± std around a compound's mean line. It has no
// name, so the legend skips it.
type bandSeries struct {
	points []meanPoint
	style  chart.Style
}

func (b bandSeries) GetName() string { return "" }
func (b bandSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (b bandSeries) GetStyle() chart.Style { return b.style }
func (b bandSeries) Len() int { return len(b.points) }

func (b bandSeries) GetBoundedValues(i int) (x, y1, y2 float64) {
	p := b.points[i]
	return p.x, p.mean + p.std, p.mean - p.std
}

func (b bandSeries) Validate() error {
	if len(b.points) < 2 {
		return fmt.Errorf("band needs at least two points")
	}
	return nil
}

func (b bandSeries) Render(r chart.Renderer, canvasBox chart.Box, xrange, yrange chart.Range, defaults chart.Style) {
	chart.Draw.BoundedSeries(r, canvasBox, xrange, yrange, b.style.InheritFrom(defaults), b)
}

// groupMeans aggregates the optical density of the kept rows per compound and
// x value. Compounds keep dataset order; points are sorted by x.
func groupMeans(in Input, keep func(domain.Measurement) bool, xOf func(domain.Measurement) float64) ([]string, map[string][]meanPoint) {
	var order []string
	readings := make(map[string]map[float64][]float64)

	in.Dataset.Each(func(_ int, m domain.Measurement) {
		if !keep(m) {
			return
		}
		x := xOf(m)
		if !finite(x) || !finite(m.OpticalDensity) {
			return
		}
		byX, ok := readings[m.CompoundName]
		if !ok {
			byX = make(map[float64][]float64)
			readings[m.CompoundName] = byX
			order = append(order, m.CompoundName)
		}
		byX[x] = append(byX[x], m.OpticalDensity)
	})

	groups := make(map[string][]meanPoint, len(order))
	for _, name := range order {
		byX := readings[name]
		points := make([]meanPoint, 0, len(byX))
		for x, values := range byX {
			mean, std := stat.MeanStdDev(values, nil)
			if len(values) < 2 || !finite(std) {
				std = 0
			}
			points = append(points, meanPoint{x: x, mean: mean, std: std})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].x < points[j].x })
		groups[name] = points
	}
	return order, groups
}

// meanSeries builds a mean line per compound, preceded by its std band when
// the band has any width, and returns the plotted x and y extents.
func meanSeries(order []string, groups map[string][]meanPoint) (series []chart.Series, xs, ys []float64) {
	var lines []chart.Series
	for i, name := range order {
		points := groups[name]
		col := chart.GetDefaultColor(i)

		px := make([]float64, len(points))
		py := make([]float64, len(points))
		spread := false
		for j, p := range points {
			px[j], py[j] = p.x, p.mean
			xs = append(xs, p.x)
			ys = append(ys, p.mean-p.std, p.mean+p.std)
			if p.std > 0 {
				spread = true
			}
		}
		if spread && len(points) > 1 {
			series = append(series, bandSeries{points: points, style: bandStyle(col)})
		}

		style := lineStyle(col)
		if len(points) == 1 {
			style.StrokeWidth = chart.Disabled
			style.DotWidth = 5
		}
		lines = append(lines, chart.ContinuousSeries{
			Name:    name,
			XValues: px,
			YValues: py,
			Style:   style,
		})
	}
	// Bands go first so every line stays on top of the shading.
	return append(series, lines...), xs, ys
}

// renderTimeCourse plots mean optical density over time with a ± std band,
// one line per compound
func (r *Renderer) renderTimeCourse(w io.Writer, in Input) error {
	order, groups := groupMeans(in,
		func(domain.Measurement) bool { return true },
		func(m domain.Measurement) float64 { return m.TimeHours })
	if len(order) == 0 {
		return ErrNoData
	}

	series, xs, ys := meanSeries(order, groups)
	return r.renderXY(w, "Optical density time course", "Time (h)", "OD600", series, xs, ys)
}

// renderEndPoint plots the mean optical density at the end of the growth
// window against another measured column, with a ± std band per compound.
func (r *Renderer) renderEndPoint(w io.Writer, in Input, xName string, xOf func(domain.Measurement) float64) error {
	order, groups := groupMeans(in,
		func(m domain.Measurement) bool { return m.TimeHours == in.EndTime },
		xOf)
	if len(order) == 0 {
		return ErrNoData
	}

	series, xs, ys := meanSeries(order, groups)
	title := "Optical density vs " + xName + " at " + formatHours(in.EndTime)
	return r.renderXY(w, title, xName, "OD600", series, xs, ys)
}

func (r *Renderer) renderXY(w io.Writer, title, xName, yName string, series []chart.Series, xs, ys []float64) error {
	xMin, xMax, ok := extent(xs)
	if !ok {
		return ErrNoData
	}
	yMin, yMax, _ := extent(ys)

	graph := chart.Chart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16},
		},
		XAxis:  chart.XAxis{Name: xName, Range: paddedRange(xMin, xMax)},
		YAxis:  chart.YAxis{Name: yName, Range: paddedRange(yMin, yMax)},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

func temperatureOf(m domain.Measurement) float64 { return m.TemperatureCelsius }

func phOf(m domain.Measurement) float64 { return m.PH }

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'g', -1, 64) + " h"
}
