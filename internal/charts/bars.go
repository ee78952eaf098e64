package charts

import (
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"labanalyzer/internal/analysis"
)

const (
	barWidth   = 60
	barSpacing = 40
)

func (r *Renderer) renderGrowth(w io.Writer, in Input) error {
	names, means := analysis.MeanGrowthByCompound(in.Results)
	return r.renderBars(w, "Mean growth rate by compound", "Growth rate (1/h)", names, means)
}

func (r *Renderer) renderInhibition(w io.Writer, in Input) error {
	summaries := analysis.SummarizeCompounds(in.Results, in.Matcher)
	names := make([]string, 0, len(summaries))
	means := make([]float64, 0, len(summaries))
	for _, s := range summaries {
		names = append(names, s.CompoundName)
		means = append(means, s.MeanInhibition)
	}
	return r.renderBars(w, "Mean inhibition by compound", "Inhibition (%)", names, means)
}

// renderBars draws one bar per label on an axis that always includes zero
func (r *Renderer) renderBars(w io.Writer, title, yName string, labels []string, values []float64) error {
	bars := make([]chart.Value, 0, len(values))
	for i, v := range values {
		if !finite(v) {
			continue
		}
		bars = append(bars, chart.Value{Label: labels[i], Value: v})
	}
	if len(bars) == 0 {
		return ErrNoData
	}

	min, max, _ := extent(values, []float64{0})

	width := r.width
	if need := len(bars)*(barWidth+barSpacing) + 2*barSpacing; need > width {
		width = need
	}

	graph := chart.BarChart{
		Title:  title,
		Width:  width,
		Height: r.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16},
		},
		BarWidth:     barWidth,
		BarSpacing:   barSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Name:  yName,
			Range: paddedRange(min, max),
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}
