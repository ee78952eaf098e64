package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset is returned when no dataset has been loaded.
	// A loaded dataset with zero rows is not an error.
	ErrEmptyDataset = errors.New("no dataset loaded")

	// ErrNoControlGroup is returned when no growth result belongs to the control group
	ErrNoControlGroup = errors.New("no control group found")

	// ErrInvalidBaseline matches any *InvalidBaselineError via errors.Is
	ErrInvalidBaseline = errors.New("invalid control baseline")

	// ErrNoGrowthResults is returned by inhibition when the dataset is loaded
	// but not a single growth rate could be computed from it
	ErrNoGrowthResults = errors.New("no growth rates could be computed")

	// ErrInvalidTimeWindow is returned by input validation for a growth window
	// whose end does not lie after its start
	ErrInvalidTimeWindow = errors.New("invalid time window")

	// ErrInvalidControlMarker is returned for an empty control marker
	ErrInvalidControlMarker = errors.New("control marker must not be empty")
)

// InvalidBaselineError reports a control mean growth rate that cannot be
// used as a percent-inhibition denominator.
type InvalidBaselineError struct {
	ControlMean float64
	Replicates  int
}

// Error implements the error interface
func (e *InvalidBaselineError) Error() string {
	return fmt.Sprintf("invalid control baseline: mean growth rate %g over %d control replicates must be positive",
		e.ControlMean, e.Replicates)
}

// Is makes errors.Is(err, ErrInvalidBaseline) succeed
func (e *InvalidBaselineError) Is(target error) bool {
	return target == ErrInvalidBaseline
}

// ValidateTimeWindow checks a growth window supplied by a caller.
// The calculator itself tolerates any window and simply yields no results.
func ValidateTimeWindow(start, end float64) error {
	if start < 0 || end < 0 {
		return fmt.Errorf("%w: times must be non-negative (start=%g, end=%g)", ErrInvalidTimeWindow, start, end)
	}
	if end <= start {
		return fmt.Errorf("%w: end time %g must be after start time %g", ErrInvalidTimeWindow, end, start)
	}
	return nil
}
