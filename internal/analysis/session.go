package analysis

import (
	"log/slog"
)

// SessionConfig configures an analysis session
type SessionConfig struct {
	ControlMarker string
	StartTime     float64 // fallback growth window start
	EndTime       float64 // fallback growth window end
}

// DefaultSessionConfig returns the standard control marker and a 0-24 h window
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ControlMarker: DefaultControlMarker,
		StartTime:     DefaultStartTime,
		EndTime:       DefaultEndTime,
	}
}

// Session holds one loaded experiment and its latest growth/inhibition table.
// Every operation returns a fresh copy of its result; stored state is only
// ever replaced, never mutated in place.
//
// A Session is not safe for concurrent mutation.
type Session struct {
	cfg     SessionConfig
	matcher ControlMatcher

	growth     *GrowthCalculator
	inhibition *InhibitionCalculator
	summarizer *Summarizer
	logger     *slog.Logger

	dataset   *Dataset
	results   []GrowthResult
	start     float64
	end       float64
	inhibited bool
}

// NewSession creates an empty session
func NewSession(cfg SessionConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	matcher, err := NewControlMatcher(cfg.ControlMarker)
	if err != nil {
		return nil, err
	}
	logger = logger.With(slog.String("component", "analysis_session"))

	return &Session{
		cfg:        cfg,
		matcher:    matcher,
		growth:     NewGrowthCalculator(logger),
		inhibition: NewInhibitionCalculator(matcher, logger),
		summarizer: NewSummarizer(logger),
		logger:     logger,
	}, nil
}

// Matcher returns the control matcher used by the session
func (s *Session) Matcher() ControlMatcher {
	return s.matcher
}

// Load replaces the current dataset and discards any stored growth results
func (s *Session) Load(ds *Dataset) error {
	if ds == nil {
		return ErrEmptyDataset
	}
	s.dataset = ds
	s.results = nil
	s.inhibited = false

	if ds.IsEmpty() {
		s.logger.Warn("loaded dataset has no rows")
	} else {
		s.logger.Info("dataset loaded",
			slog.Int("rows", ds.Len()),
			slog.Any("compounds", ds.Compounds()),
			slog.Any("time_points", ds.TimePoints()))
	}
	return nil
}

// Dataset returns the loaded dataset, or nil when nothing is loaded
func (s *Session) Dataset() *Dataset {
	return s.dataset
}

// GrowthResults returns a copy of the stored result table, or nil when none was computed
func (s *Session) GrowthResults() []GrowthResult {
	return cloneResults(s.results)
}

// HasInhibition reports whether the stored table carries inhibition values
func (s *Session) HasInhibition() bool {
	return s.inhibited
}

// GrowthWindow returns the window of the stored growth results
func (s *Session) GrowthWindow() (start, end float64) {
	return s.start, s.end
}

// ComputeGrowth computes growth rates over [start, end] and makes them the
// session's current result table.
func (s *Session) ComputeGrowth(start, end float64) ([]GrowthResult, error) {
	if s.dataset == nil {
		return nil, ErrEmptyDataset
	}
	results, err := s.growth.Compute(s.dataset, start, end)
	if err != nil {
		return nil, err
	}
	s.results = results
	s.start, s.end = start, end
	s.inhibited = false
	return cloneResults(results), nil
}

// EnsureGrowth is the fallback step of the inhibition pass: when no growth
// results are stored it computes them over the configured default window,
// otherwise it returns the stored ones unchanged.
func (s *Session) EnsureGrowth() ([]GrowthResult, error) {
	if s.dataset == nil {
		return nil, ErrEmptyDataset
	}
	if len(s.results) > 0 {
		return cloneResults(s.results), nil
	}
	s.logger.Info("no growth results stored, computing with default window",
		slog.Float64("start_time", s.cfg.StartTime),
		slog.Float64("end_time", s.cfg.EndTime))
	return s.ComputeGrowth(s.cfg.StartTime, s.cfg.EndTime)
}

// ComputeInhibition runs EnsureGrowth and then the inhibition pass. The
// result replaces the session's current table.
func (s *Session) ComputeInhibition() ([]GrowthResult, error) {
	growth, err := s.EnsureGrowth()
	if err != nil {
		return nil, err
	}
	if len(growth) == 0 {
		return nil, ErrNoGrowthResults
	}

	results, err := s.inhibition.Compute(growth)
	if err != nil {
		return nil, err
	}
	s.results = results
	s.inhibited = true
	return cloneResults(results), nil
}

// CompoundSummaries aggregates the stored inhibition values per treatment compound
func (s *Session) CompoundSummaries() []CompoundSummary {
	if !s.inhibited {
		return nil
	}
	return SummarizeCompounds(s.results, s.matcher)
}

// Statistics summarizes the raw measurement columns of the loaded dataset
func (s *Session) Statistics() (*StatsReport, error) {
	return s.summarizer.Summarize(s.dataset)
}
