package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"labanalyzer/internal/analysis"
	"labanalyzer/internal/charts"
	"labanalyzer/internal/exporter"
	"labanalyzer/internal/infrastructure"
	"labanalyzer/pkg/contracts/domain"
	"labanalyzer/pkg/contracts/events"
)

// ExperimentStore is the read side of the experiment repository
type ExperimentStore interface {
	ListExperiments(ctx context.Context) ([]domain.Experiment, error)
	GetExperimentInfo(ctx context.Context, id int64) (*domain.ExperimentInfo, error)
	LoadMeasurements(ctx context.Context, id int64) ([]domain.Measurement, error)
	Ping(ctx context.Context) error
}

// EventPublisher receives status events for connected clients
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Options configures an AnalysisService
type Options struct {
	Session    analysis.SessionConfig
	SessionTTL time.Duration // zero disables expiry
	Charts     charts.Options

	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

// SessionInfo describes an open session
type SessionInfo struct {
	ID            string
	Experiment    domain.ExperimentInfo
	ControlMarker string
	Rows          int
	Compounds     []string
	Replicates    []int
	TimePoints    []float64
	CreatedAt     time.Time
}

// InhibitionReport is the outcome of an inhibition pass
type InhibitionReport struct {
	Results   []analysis.GrowthResult
	Compounds []analysis.CompoundSummary
}

// ResultsView is the current result table of a session
type ResultsView struct {
	Results       []analysis.GrowthResult
	HasInhibition bool
	StartTime     float64
	EndTime       float64
}

type sessionEntry struct {
	mu         sync.Mutex
	id         string
	session    *analysis.Session
	experiment domain.ExperimentInfo
	createdAt  time.Time
	lastUsed   atomic.Int64 // unix nanoseconds
}

type loadResult struct {
	info domain.ExperimentInfo
	rows []domain.Measurement
}

// AnalysisService keeps analysis sessions and runs the analysis operations
// on them. Calls against one session are serialized; different sessions
// proceed independently.
type AnalysisService struct {
	store     ExperimentStore
	publisher EventPublisher
	metrics   *infrastructure.AnalysisMetrics
	logger    *slog.Logger

	cfg   analysis.SessionConfig
	ttl   time.Duration
	clock func() time.Time

	csv      *exporter.CSVWriter
	workbook *exporter.WorkbookExporter
	charts   *charts.Renderer

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	loads    singleflight.Group
}

// NewAnalysisService creates the service. store, publisher and metrics may be
// nil; without a store only file-backed sessions can be opened.
func NewAnalysisService(store ExperimentStore, publisher EventPublisher, metrics *infrastructure.AnalysisMetrics,
	csv *exporter.CSVWriter, opts Options, logger *slog.Logger) (*AnalysisService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "analysis_service"))

	if _, err := analysis.NewControlMatcher(opts.Session.ControlMarker); err != nil {
		return nil, err
	}
	if err := analysis.ValidateTimeWindow(opts.Session.StartTime, opts.Session.EndTime); err != nil {
		return nil, fmt.Errorf("default growth window: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if csv == nil {
		csv = exporter.NewCSVWriter(nil, logger)
	}

	logger.Info("AnalysisService initialized",
		slog.String("control_marker", opts.Session.ControlMarker),
		slog.Float64("start_time", opts.Session.StartTime),
		slog.Float64("end_time", opts.Session.EndTime),
		slog.Duration("session_ttl", opts.SessionTTL))

	return &AnalysisService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		cfg:       opts.Session,
		ttl:       opts.SessionTTL,
		clock:     opts.Clock,
		csv:       csv,
		workbook:  exporter.NewWorkbookExporter(logger),
		charts:    charts.NewRenderer(opts.Charts, logger),
		sessions:  make(map[string]*sessionEntry),
	}, nil
}

// ListExperiments returns the stored experiments
func (s *AnalysisService) ListExperiments(ctx context.Context) ([]domain.Experiment, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListExperiments(ctx)
}

// GetExperiment returns the descriptive fields of one experiment
func (s *AnalysisService) GetExperiment(ctx context.Context, id int64) (*domain.ExperimentInfo, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetExperimentInfo(ctx, id)
}

// CreateSession loads an experiment from the store into a new session.
// Concurrent loads of the same experiment share one query.
func (s *AnalysisService) CreateSession(ctx context.Context, experimentID int64, controlMarker string) (info *SessionInfo, err error) {
	ctx, span := infrastructure.StartSpan(ctx, "AnalysisService.CreateSession",
		attribute.Int64("experiment.id", experimentID))
	defer span.End()
	defer s.observe(ctx, "load", s.clock(), &err)

	if s.store == nil {
		return nil, ErrNoStore
	}

	v, err, shared := s.loads.Do(strconv.FormatInt(experimentID, 10), func() (interface{}, error) {
		exp, err := s.store.GetExperimentInfo(ctx, experimentID)
		if err != nil {
			return nil, err
		}
		rows, err := s.store.LoadMeasurements(ctx, experimentID)
		if err != nil {
			return nil, err
		}
		return &loadResult{info: *exp, rows: rows}, nil
	})
	if err != nil {
		s.publish(ctx, events.New(events.MessageTypeAnalysisFailed, events.LevelError,
			fmt.Sprintf("Failed to load experiment %d: %v", experimentID, err)))
		return nil, err
	}
	loaded := v.(*loadResult)
	if shared {
		s.logger.DebugContext(ctx, "experiment load shared", slog.Int64("experiment_id", experimentID))
	}

	s.metrics.RecordDatasetLoaded(ctx, "database")
	return s.OpenSession(ctx, loaded.info, analysis.NewDataset(loaded.rows), controlMarker)
}

// OpenSession starts a session on an already loaded dataset. An empty
// controlMarker selects the configured one.
func (s *AnalysisService) OpenSession(ctx context.Context, exp domain.ExperimentInfo, ds *analysis.Dataset, controlMarker string) (*SessionInfo, error) {
	cfg := s.cfg
	if controlMarker != "" {
		cfg.ControlMarker = controlMarker
	}
	session, err := analysis.NewSession(cfg, s.logger)
	if err != nil {
		return nil, err
	}
	if err := session.Load(ds); err != nil {
		return nil, err
	}

	now := s.clock()
	entry := &sessionEntry{
		id:         uuid.New().String(),
		session:    session,
		experiment: exp,
		createdAt:  now,
	}
	entry.lastUsed.Store(now.UnixNano())

	s.mu.Lock()
	s.sessions[entry.id] = entry
	count := len(s.sessions)
	s.mu.Unlock()
	s.metrics.RecordSessionChange(ctx, 1)

	s.logger.InfoContext(ctx, "session opened",
		slog.String("session_id", entry.id),
		slog.Int64("experiment_id", exp.ID),
		slog.Int("rows", ds.Len()),
		slog.Int("open_sessions", count))

	level, msg := events.LevelSuccess, fmt.Sprintf("Loaded %d measurements of %q", ds.Len(), exp.Name)
	if ds.IsEmpty() {
		level, msg = events.LevelWarning, fmt.Sprintf("Experiment %q has no measurements", exp.Name)
	}
	s.publish(ctx, events.New(events.MessageTypeDatasetLoaded, level, msg).ForSession(entry.id))

	info := entry.info()
	return &info, nil
}

// Session returns the description of an open session
func (s *AnalysisService) Session(ctx context.Context, id string) (*SessionInfo, error) {
	var info SessionInfo
	err := s.withSession(id, func(e *sessionEntry) error {
		info = e.info()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Dataset returns the dataset loaded into a session
func (s *AnalysisService) Dataset(ctx context.Context, id string) (*analysis.Dataset, error) {
	var ds *analysis.Dataset
	err := s.withSession(id, func(e *sessionEntry) error {
		ds = e.session.Dataset()
		if ds == nil {
			return analysis.ErrEmptyDataset
		}
		return nil
	})
	return ds, err
}

// DefaultWindow returns the configured growth window in hours
func (s *AnalysisService) DefaultWindow() (start, end float64) {
	return s.cfg.StartTime, s.cfg.EndTime
}

// ComputeGrowth computes growth rates over [start, end] hours
func (s *AnalysisService) ComputeGrowth(ctx context.Context, id string, start, end float64) (results []analysis.GrowthResult, err error) {
	ctx, span := infrastructure.StartSpan(ctx, "AnalysisService.ComputeGrowth",
		attribute.String("session.id", id),
		attribute.Float64("growth.start", start),
		attribute.Float64("growth.end", end))
	defer span.End()
	defer s.observe(ctx, "growth", s.clock(), &err)

	if err := analysis.ValidateTimeWindow(start, end); err != nil {
		return nil, err
	}

	err = s.withSession(id, func(e *sessionEntry) error {
		var err error
		results, err = e.session.ComputeGrowth(start, end)
		return err
	})
	if err != nil {
		s.publishFailure(ctx, id, "Growth rate calculation failed", err)
		return nil, err
	}

	s.metrics.RecordGrowthResults(ctx, len(results))
	if len(results) == 0 {
		s.publish(ctx, events.New(events.MessageTypeGrowthComputed, events.LevelWarning,
			fmt.Sprintf("No replicate has measurements at both %g h and %g h", start, end)).ForSession(id))
	} else {
		s.publish(ctx, events.New(events.MessageTypeGrowthComputed, events.LevelSuccess,
			fmt.Sprintf("Growth rates calculated for %d replicates (%g-%g h)", len(results), start, end)).
			ForSession(id).WithData(map[string]interface{}{"count": len(results)}))
	}
	return results, nil
}

// ComputeInhibition runs the inhibition pass, computing growth over the
// default window first when the session has no growth results.
func (s *AnalysisService) ComputeInhibition(ctx context.Context, id string) (report *InhibitionReport, err error) {
	ctx, span := infrastructure.StartSpan(ctx, "AnalysisService.ComputeInhibition",
		attribute.String("session.id", id))
	defer span.End()
	defer s.observe(ctx, "inhibition", s.clock(), &err)

	err = s.withSession(id, func(e *sessionEntry) error {
		results, err := e.session.ComputeInhibition()
		if err != nil {
			return err
		}
		report = &InhibitionReport{Results: results, Compounds: e.session.CompoundSummaries()}
		return nil
	})
	if err != nil {
		s.publishFailure(ctx, id, "Inhibition calculation failed", err)
		return nil, err
	}

	s.publish(ctx, events.New(events.MessageTypeInhibitionComputed, events.LevelSuccess,
		fmt.Sprintf("Inhibition calculated for %d compounds", len(report.Compounds))).
		ForSession(id).WithData(report.Compounds))
	return report, nil
}

// Results returns the current growth/inhibition table of a session
func (s *AnalysisService) Results(ctx context.Context, id string) (*ResultsView, error) {
	var view ResultsView
	err := s.withSession(id, func(e *sessionEntry) error {
		if e.session.Dataset() == nil {
			return analysis.ErrEmptyDataset
		}
		view.Results = e.session.GrowthResults()
		view.HasInhibition = e.session.HasInhibition()
		view.StartTime, view.EndTime = e.session.GrowthWindow()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if view.Results == nil {
		view.Results = []analysis.GrowthResult{}
	}
	return &view, nil
}

// Statistics summarizes the raw measurement columns of a session
func (s *AnalysisService) Statistics(ctx context.Context, id string) (report *analysis.StatsReport, err error) {
	defer s.observe(ctx, "statistics", s.clock(), &err)

	err = s.withSession(id, func(e *sessionEntry) error {
		var err error
		report, err = e.session.Statistics()
		return err
	})
	return report, err
}

// WriteDatasetCSV streams the raw measurement table of a session
func (s *AnalysisService) WriteDatasetCSV(ctx context.Context, id string, w io.Writer) error {
	ds, err := s.Dataset(ctx, id)
	if err != nil {
		return err
	}
	return exporter.WriteDatasetCSV(w, ds)
}

// WriteWorkbook renders the session's data, results and statistics as .xlsx
func (s *AnalysisService) WriteWorkbook(ctx context.Context, id string, w io.Writer) (err error) {
	defer s.observe(ctx, "export_xlsx", s.clock(), &err)

	data, err := s.workbookData(id)
	if err != nil {
		return err
	}
	return s.workbook.Write(w, data)
}

// RenderChart draws one chart of the session as PNG
func (s *AnalysisService) RenderChart(ctx context.Context, id string, kind charts.Kind, w io.Writer) (err error) {
	defer s.observe(ctx, "chart_"+string(kind), s.clock(), &err)

	in, err := s.chartInput(id)
	if err != nil {
		return err
	}
	return s.charts.Render(w, kind, in)
}

// CloseSession discards a session
func (s *AnalysisService) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.metrics.RecordSessionChange(ctx, -1)
	s.logger.InfoContext(ctx, "session closed", slog.String("session_id", id))
	s.publish(ctx, events.New(events.MessageTypeSessionClosed, events.LevelInfo, "Session closed").ForSession(id))
	return nil
}

// SessionCount returns the number of open sessions
func (s *AnalysisService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictExpired closes sessions idle for longer than the TTL and returns how
// many were removed.
func (s *AnalysisService) EvictExpired(ctx context.Context) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.clock().Add(-s.ttl)

	s.mu.Lock()
	var expired []string
	for id, e := range s.sessions {
		if e.idleSince().Before(cutoff) {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.metrics.RecordSessionChange(ctx, -1)
		s.logger.InfoContext(ctx, "session expired", slog.String("session_id", id))
	}
	return len(expired)
}

// RunJanitor evicts expired sessions every interval until ctx is done
func (s *AnalysisService) RunJanitor(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictExpired(ctx); n > 0 {
				s.logger.InfoContext(ctx, "expired sessions evicted", slog.Int("count", n))
			}
		}
	}
}

// Ping checks the store
func (s *AnalysisService) Ping(ctx context.Context) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.Ping(ctx)
}

// withSession runs fn while holding the session's lock
func (s *AnalysisService) withSession(id string, fn func(e *sessionEntry) error) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.lastUsed.Store(s.clock().UnixNano())
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e)
}

func (s *AnalysisService) workbookData(id string) (exporter.WorkbookData, error) {
	var data exporter.WorkbookData
	err := s.withSession(id, func(e *sessionEntry) error {
		ds := e.session.Dataset()
		if ds == nil {
			return analysis.ErrEmptyDataset
		}
		stats, err := e.session.Statistics()
		if err != nil {
			return err
		}
		data = exporter.WorkbookData{
			Dataset:   ds,
			Results:   e.session.GrowthResults(),
			Stats:     stats,
			Compounds: e.session.CompoundSummaries(),
		}
		return nil
	})
	return data, err
}

func (s *AnalysisService) chartInput(id string) (charts.Input, error) {
	var in charts.Input
	err := s.withSession(id, func(e *sessionEntry) error {
		ds := e.session.Dataset()
		if ds == nil {
			return analysis.ErrEmptyDataset
		}
		results := e.session.GrowthResults()
		end := s.cfg.EndTime
		if results != nil {
			_, end = e.session.GrowthWindow()
		}
		in = charts.Input{
			Dataset: ds,
			Results: results,
			Matcher: e.session.Matcher(),
			EndTime: end,
		}
		return nil
	})
	return in, err
}

func (s *AnalysisService) observe(ctx context.Context, operation string, started time.Time, err *error) {
	s.metrics.RecordOperation(ctx, operation, s.clock().Sub(started), *err)
}

func (s *AnalysisService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	event.TraceID = infrastructure.GetTraceID(ctx)
	s.publisher.Publish(ctx, event)
}

func (s *AnalysisService) publishFailure(ctx context.Context, id, what string, err error) {
	s.logger.WarnContext(ctx, what, slog.String("session_id", id), slog.String("error", err.Error()))
	s.publish(ctx, events.New(events.MessageTypeAnalysisFailed, events.LevelError,
		fmt.Sprintf("%s: %v", what, err)).ForSession(id))
}

func (e *sessionEntry) info() SessionInfo {
	ds := e.session.Dataset()
	return SessionInfo{
		ID:            e.id,
		Experiment:    e.experiment,
		ControlMarker: e.session.Matcher().Marker(),
		Rows:          ds.Len(),
		Compounds:     ds.Compounds(),
		Replicates:    ds.Replicates(),
		TimePoints:    ds.TimePoints(),
		CreatedAt:     e.createdAt,
	}
}

func (e *sessionEntry) idleSince() time.Time {
	return time.Unix(0, e.lastUsed.Load())
}
