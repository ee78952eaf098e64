package analysis

import (
	"encoding/json"
	"math"
)

// Default growth window in hours
const (
	DefaultStartTime = 0.0
	DefaultEndTime   = 24.0
)

// GrowthResult is the growth rate of one (compound, replicate) pair.
// InhibitionPercent stays nil until an inhibition pass fills it in.
type GrowthResult struct {
	CompoundName      string   `json:"compound_name"`
	ReplicateNumber   int      `json:"replicate_number"`
	InitialOD         float64  `json:"initial_od"`
	FinalOD           float64  `json:"final_od"`
	GrowthRate        float64  `json:"growth_rate"`
	InhibitionPercent *float64 `json:"inhibition_percent"`
}

// MarshalJSON writes non-finite readings as null
func (r GrowthResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CompoundName      string   `json:"compound_name"`
		ReplicateNumber   int      `json:"replicate_number"`
		InitialOD         *float64 `json:"initial_od"`
		FinalOD           *float64 `json:"final_od"`
		GrowthRate        *float64 `json:"growth_rate"`
		InhibitionPercent *float64 `json:"inhibition_percent"`
	}{
		CompoundName:      r.CompoundName,
		ReplicateNumber:   r.ReplicateNumber,
		InitialOD:         finiteOrNil(r.InitialOD),
		FinalOD:           finiteOrNil(r.FinalOD),
		GrowthRate:        finiteOrNil(r.GrowthRate),
		InhibitionPercent: finiteOrNil(r.Inhibition()),
	})
}

// HasGrowthRate reports whether the growth rate is a finite number
func (r GrowthResult) HasGrowthRate() bool {
	return !math.IsNaN(r.GrowthRate) && !math.IsInf(r.GrowthRate, 0)
}

// HasInhibition reports whether inhibition has been computed for this row
func (r GrowthResult) HasInhibition() bool {
	return r.InhibitionPercent != nil
}

// Inhibition returns the inhibition percent, or NaN when absent
func (r GrowthResult) Inhibition() float64 {
	if r.InhibitionPercent == nil {
		return math.NaN()
	}
	return *r.InhibitionPercent
}

// cloneResults deep-copies a result table including inhibition pointers
func cloneResults(in []GrowthResult) []GrowthResult {
	if in == nil {
		return nil
	}
	out := make([]GrowthResult, len(in))
	for i, r := range in {
		out[i] = r
		if r.InhibitionPercent != nil {
			v := *r.InhibitionPercent
			out[i].InhibitionPercent = &v
		}
	}
	return out
}

// OverallStats is the "Overall" section of a StatsReport
type OverallStats struct {
	Count        int     `json:"count"`
	Compounds    int     `json:"compounds"`
	Replicates   int     `json:"replicates"`
	MinTimeHours float64 `json:"min_time_hours"`
	MaxTimeHours float64 `json:"max_time_hours"`
	TimeRange    string  `json:"time_range"`
}

// ColumnSummary is the seven-number summary of one numeric column plus its count.
// Fields that are undefined for the column (empty column, std of one value) are NaN.
type ColumnSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// MarshalJSON writes NaN and infinite values as null
func (c ColumnSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count  int      `json:"count"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Min    *float64 `json:"min"`
		Q25    *float64 `json:"25%"`
		Median *float64 `json:"50%"`
		Q75    *float64 `json:"75%"`
		Max    *float64 `json:"max"`
	}{
		Count:  c.Count,
		Mean:   finiteOrNil(c.Mean),
		Std:    finiteOrNil(c.Std),
		Min:    finiteOrNil(c.Min),
		Q25:    finiteOrNil(c.Q25),
		Median: finiteOrNil(c.Median),
		Q75:    finiteOrNil(c.Q75),
		Max:    finiteOrNil(c.Max),
	})
}

// Column names used in a StatsReport
const (
	ColumnOpticalDensity = "optical_density"
	ColumnPH             = "ph"
	ColumnTemperature    = "temperature_celsius"
)

// StatsReport groups the overall dataset figures and one summary per measured column
type StatsReport struct {
	Overall            OverallStats  `json:"overall"`
	OpticalDensity     ColumnSummary `json:"optical_density"`
	PH                 ColumnSummary `json:"ph"`
	TemperatureCelsius ColumnSummary `json:"temperature_celsius"`
}

// Columns returns the column summaries keyed by column name, in report order
func (r *StatsReport) Columns() []NamedColumnSummary {
	return []NamedColumnSummary{
		{Name: ColumnOpticalDensity, Summary: r.OpticalDensity},
		{Name: ColumnPH, Summary: r.PH},
		{Name: ColumnTemperature, Summary: r.TemperatureCelsius},
	}
}

// NamedColumnSummary pairs a column name with its summary
type NamedColumnSummary struct {
	Name    string
	Summary ColumnSummary
}

// CompoundSummary aggregates inhibition across the replicates of one treatment compound
type CompoundSummary struct {
	CompoundName   string  `json:"compound_name"`
	MeanInhibition float64 `json:"mean_inhibition"`
	StdInhibition  float64 `json:"std_inhibition"`
	N              int     `json:"n"`
}

func (c CompoundSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CompoundName   string   `json:"compound_name"`
		MeanInhibition *float64 `json:"mean_inhibition"`
		StdInhibition  *float64 `json:"std_inhibition"`
		N              int      `json:"n"`
	}{
		CompoundName:   c.CompoundName,
		MeanInhibition: finiteOrNil(c.MeanInhibition),
		StdInhibition:  finiteOrNil(c.StdInhibition),
		N:              c.N,
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
