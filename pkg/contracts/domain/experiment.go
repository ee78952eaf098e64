package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Experiment identifies a stored experiment
type Experiment struct {
	ID   int64  `json:"id" db:"id_experiment"`
	Name string `json:"name" db:"experiment_name" validate:"required"`
}

// ExperimentInfo carries the descriptive fields of an experiment and its researcher
type ExperimentInfo struct {
	ID          int64     `json:"id" db:"id_experiment"`
	Name        string    `json:"name" db:"experiment_name"`
	Description string    `json:"description,omitempty" db:"description"`
	Researcher  string    `json:"researcher" db:"full_name"`
	StartedAt   time.Time `json:"started_at,omitempty" db:"started_at"`
}

// Measurement is one sampled observation of an experiment.
// Rows are grouped by (CompoundName, ReplicateNumber) during analysis.
type Measurement struct {
	ExperimentName     string  `json:"experiment_name" csv:"experiment_name"`
	Researcher         string  `json:"researcher" csv:"researcher"`
	CompoundName       string  `json:"compound_name" csv:"compound_name" validate:"required"`
	TimeHours          float64 `json:"time_hours" csv:"time_hours" validate:"min=0"`
	OpticalDensity     float64 `json:"optical_density" csv:"optical_density"`
	PH                 float64 `json:"ph" csv:"ph"`
	TemperatureCelsius float64 `json:"temperature_celsius" csv:"temperature_celsius"`
	ReplicateNumber    int     `json:"replicate_number" csv:"replicate_number"`
}

// MeasurementColumns is the canonical column order used for tabular import and export
var MeasurementColumns = []string{
	"experiment_name",
	"researcher",
	"compound_name",
	"time_hours",
	"optical_density",
	"ph",
	"temperature_celsius",
	"replicate_number",
}

// MarshalJSON writes missing (NaN) readings as null
func (m Measurement) MarshalJSON() ([]byte, error) {
	type plain Measurement
	return json.Marshal(struct {
		plain
		TimeHours          *float64 `json:"time_hours"`
		OpticalDensity     *float64 `json:"optical_density"`
		PH                 *float64 `json:"ph"`
		TemperatureCelsius *float64 `json:"temperature_celsius"`
	}{
		plain:              plain(m),
		TimeHours:          reading(m.TimeHours),
		OpticalDensity:     reading(m.OpticalDensity),
		PH:                 reading(m.PH),
		TemperatureCelsius: reading(m.TemperatureCelsius),
	})
}

func reading(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
