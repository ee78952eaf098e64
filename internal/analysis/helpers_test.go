package analysis

import (
	"io"
	"log/slog"
	"math"

	"labanalyzer/pkg/contracts/domain"
)

const tolerance = 1e-9

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(compound string, replicate int, t, od float64) domain.Measurement {
	return domain.Measurement{
		ExperimentName:     "MIC screen",
		Researcher:         "A. Petrova",
		CompoundName:       compound,
		TimeHours:          t,
		OpticalDensity:     od,
		PH:                 7.0,
		TemperatureCelsius: 37.0,
		ReplicateNumber:    replicate,
	}
}

// pair returns the start and end rows of one replicate with the given growth rate over 0-24 h
func pair(compound string, replicate int, initialOD, rate float64) []domain.Measurement {
	return []domain.Measurement{
		row(compound, replicate, 0, initialOD),
		row(compound, replicate, 24, initialOD*math.Exp(rate*24)),
	}
}

func concat(groups ...[]domain.Measurement) []domain.Measurement {
	var out []domain.Measurement
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func ptr(v float64) *float64 {
	return &v
}
