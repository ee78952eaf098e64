package testutil

import (
	"fmt"
	"math"
	"strings"

	"labanalyzer/pkg/contracts/domain"
)

// Fixture growth rates per hour. With a 0-24 h window the inhibition of
// Ampicillin is 50% and of Kanamycin 25% against the control mean.
const (
	ControlRate    = 0.20
	AmpicillinRate = 0.10
	KanamycinRate  = 0.15
	FixtureStartOD = 0.05
)

// MeasurementRows returns a small experiment: a control and two antibiotics,
// two replicates each, measured at 0, 12 and 24 hours. Rows are ordered by
// compound, time and replicate like a database load.
func MeasurementRows() []domain.Measurement {
	compounds := []struct {
		name string
		rate float64
	}{
		{"Ampicillin", AmpicillinRate},
		{"Control", ControlRate},
		{"Kanamycin", KanamycinRate},
	}

	var rows []domain.Measurement
	for _, c := range compounds {
		for _, t := range []float64{0, 12, 24} {
			for replicate := 1; replicate <= 2; replicate++ {
				rows = append(rows, domain.Measurement{
					ExperimentName:     "Antibiotic screen",
					Researcher:         "M. Ivanova",
					CompoundName:       c.name,
					TimeHours:          t,
					OpticalDensity:     FixtureStartOD * math.Exp(c.rate*t),
					PH:                 7.2 - 0.02*t,
					TemperatureCelsius: 37.0,
					ReplicateNumber:    replicate,
				})
			}
		}
	}
	return rows
}

// MeasurementCSV renders rows as a CSV document with the standard header
func MeasurementCSV(rows []domain.Measurement) string {
	var b strings.Builder
	b.WriteString(strings.Join(domain.MeasurementColumns, ","))
	b.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s,%s,%s,%g,%g,%g,%g,%d\n",
			r.ExperimentName, r.Researcher, r.CompoundName,
			r.TimeHours, r.OpticalDensity, r.PH, r.TemperatureCelsius, r.ReplicateNumber)
	}
	return b.String()
}
