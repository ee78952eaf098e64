// Package api contains the request and response bodies of the HTTP API.
// Version v1 represents the current stable API version.
package api

import (
	"labanalyzer/internal/analysis"
	"labanalyzer/pkg/contracts/domain"
)

// CreateSessionRequest loads an experiment into a new analysis session.
// ControlMarker overrides the configured control marker for this session.
type CreateSessionRequest struct {
	ExperimentID  int64   `json:"experiment_id" validate:"required,gt=0"`
	ControlMarker *string `json:"control_marker,omitempty" validate:"omitempty,notblank"`
}

// GrowthRequest selects the growth window in hours. Omitted bounds fall
// back to the configured window.
type GrowthRequest struct {
	StartTime *float64 `json:"start_time,omitempty" validate:"omitempty,gte=0"`
	EndTime   *float64 `json:"end_time,omitempty" validate:"omitempty,gte=0"`
}

// GrowthWindow is a growth request with both bounds resolved
type GrowthWindow struct {
	StartTime float64 `json:"start_time" validate:"gte=0"`
	EndTime   float64 `json:"end_time" validate:"gtfield=StartTime"`
}

// Resolve fills the missing bounds from the given defaults
func (r GrowthRequest) Resolve(start, end float64) GrowthWindow {
	w := GrowthWindow{StartTime: start, EndTime: end}
	if r.StartTime != nil {
		w.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		w.EndTime = *r.EndTime
	}
	return w
}

// DatasetSummary describes a loaded dataset without its rows
type DatasetSummary struct {
	Rows       int       `json:"rows"`
	Compounds  []string  `json:"compounds"`
	Replicates []int     `json:"replicates"`
	TimePoints []float64 `json:"time_points"`
}

// SessionResponse is returned when a session is created
type SessionResponse struct {
	SessionID     string                `json:"session_id"`
	Experiment    domain.ExperimentInfo `json:"experiment"`
	ControlMarker string                `json:"control_marker"`
	Dataset       DatasetSummary        `json:"dataset"`
}

// DatasetResponse carries the loaded measurement rows
type DatasetResponse struct {
	SessionID string               `json:"session_id"`
	Rows      []domain.Measurement `json:"rows"`
}

// ExperimentListResponse lists stored experiments
type ExperimentListResponse struct {
	Experiments []domain.Experiment `json:"experiments"`
	Count       int                 `json:"count"`
}

// ResultsResponse is the current growth table of a session
type ResultsResponse struct {
	SessionID     string                  `json:"session_id"`
	StartTime     float64                 `json:"start_time"`
	EndTime       float64                 `json:"end_time"`
	HasInhibition bool                    `json:"has_inhibition"`
	Results       []analysis.GrowthResult `json:"results"`
}

// InhibitionResponse carries inhibition results and the per-compound summary
type InhibitionResponse struct {
	SessionID string                     `json:"session_id"`
	Results   []analysis.GrowthResult    `json:"results"`
	Compounds []analysis.CompoundSummary `json:"compounds"`
}

// ClientLogRequest is a log line forwarded by the browser UI
type ClientLogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,notblank,max=2000"`
	Source  string                 `json:"source,omitempty" validate:"max=200"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
