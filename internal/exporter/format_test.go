package exporter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"integer", 24, "24"},
		{"fraction", 0.05, "0.05"},
		{"negative", -12.5, "-12.5"},
		{"small", 1e-7, "1e-07"},
		{"nan", math.NaN(), ""},
		{"positive infinity", math.Inf(1), ""},
		{"negative infinity", math.Inf(-1), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFloat(tt.input))
		})
	}
}

func TestFormatOptional(t *testing.T) {
	v := 50.0
	assert.Equal(t, "", formatOptional(nil))
	assert.Equal(t, "50", formatOptional(&v))
}

func TestCellValue(t *testing.T) {
	assert.Nil(t, cellValue(math.NaN()))
	assert.Nil(t, cellValue(math.Inf(1)))
	assert.Equal(t, 7.2, cellValue(7.2))
}
