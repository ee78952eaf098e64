package analysis

import (
	"strings"
)

// DefaultControlMarker is the token that identifies the untreated control group
const DefaultControlMarker = "Control"

// ControlMatcher decides whether a compound belongs to the control group.
// Any compound whose name contains the marker, ignoring case, is a control.
type ControlMatcher struct {
	marker string
	folded string
}

// NewControlMatcher creates a matcher for the given marker
func NewControlMatcher(marker string) (ControlMatcher, error) {
	if strings.TrimSpace(marker) == "" {
		return ControlMatcher{}, ErrInvalidControlMarker
	}
	return ControlMatcher{marker: marker, folded: strings.ToLower(marker)}, nil
}

// DefaultControlMatcher returns a matcher for DefaultControlMarker
func DefaultControlMatcher() ControlMatcher {
	m, _ := NewControlMatcher(DefaultControlMarker)
	return m
}

// Marker returns the configured marker token
func (m ControlMatcher) Marker() string {
	return m.marker
}

// IsControl reports whether compound is part of the control group
func (m ControlMatcher) IsControl(compound string) bool {
	if m.folded == "" {
		return false
	}
	return strings.Contains(strings.ToLower(compound), m.folded)
}
