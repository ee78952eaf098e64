package exporter

import (
	"math"
	"strconv"
)

// formatFloat writes the shortest representation that parses back to f.
// NaN and infinities become an empty cell.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatOptional formats a value that may be absent
func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// cellValue converts a float for a spreadsheet cell; missing values stay empty
func cellValue(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
