package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"labanalyzer/internal/analysis"
	"labanalyzer/internal/charts"
	apperrors "labanalyzer/internal/errors"
	"labanalyzer/internal/shared/testutil"
	"labanalyzer/pkg/contracts/domain"
	"labanalyzer/pkg/contracts/events"
)

var screenInfo = domain.ExperimentInfo{ID: 7, Name: "Antibiotic screen", Researcher: "M. Ivanova"}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, store ExperimentStore, opts Options) (*AnalysisService, *recordingPublisher) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	if opts.Session.ControlMarker == "" {
		opts.Session = analysis.DefaultSessionConfig()
	}
	publisher := &recordingPublisher{}
	service, err := NewAnalysisService(store, publisher, nil, nil, opts, logger)
	require.NoError(t, err)
	return service, publisher
}

func screenStore(rows []domain.Measurement) *MockExperimentStore {
	store := &MockExperimentStore{}
	info := screenInfo
	store.On("GetExperimentInfo", mock.Anything, int64(7)).Return(&info, nil)
	store.On("LoadMeasurements", mock.Anything, int64(7)).Return(rows, nil)
	return store
}

func openScreen(t *testing.T, service *AnalysisService) string {
	t.Helper()
	info, err := service.OpenSession(context.Background(), screenInfo,
		analysis.NewDataset(testutil.MeasurementRows()), "")
	require.NoError(t, err)
	return info.ID
}

func TestNewAnalysisService_RejectsBadDefaults(t *testing.T) {
	tests := []struct {
		name    string
		cfg     analysis.SessionConfig
		wantErr error
	}{
		{"blank marker", analysis.SessionConfig{ControlMarker: "", StartTime: 0, EndTime: 24}, analysis.ErrInvalidControlMarker},
		{"reversed window", analysis.SessionConfig{ControlMarker: "Control", StartTime: 24, EndTime: 0}, analysis.ErrInvalidTimeWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalysisService(nil, nil, nil, nil, Options{Session: tt.cfg}, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAnalysisService_CreateSession(t *testing.T) {
	store := screenStore(testutil.MeasurementRows())
	service, publisher := newTestService(t, store, Options{})

	info, err := service.CreateSession(context.Background(), 7, "")
	require.NoError(t, err)
	store.AssertExpectations(t)

	assert.NotEmpty(t, info.ID)
	assert.Equal(t, screenInfo, info.Experiment)
	assert.Equal(t, analysis.DefaultControlMarker, info.ControlMarker)
	assert.Equal(t, 18, info.Rows)
	assert.Equal(t, []string{"Ampicillin", "Control", "Kanamycin"}, info.Compounds)
	assert.Equal(t, []int{1, 2}, info.Replicates)
	assert.Equal(t, []float64{0, 12, 24}, info.TimePoints)
	assert.Equal(t, 1, service.SessionCount())

	ev := publisher.last()
	assert.Equal(t, events.MessageTypeDatasetLoaded, ev.Type)
	assert.Equal(t, events.LevelSuccess, ev.Level)
	assert.Equal(t, info.ID, ev.SessionID)

	got, err := service.Session(context.Background(), info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.ID, got.ID)
}

func TestAnalysisService_CreateSession_Errors(t *testing.T) {
	notFound := fmt.Errorf("experiment %w", apperrors.ErrNotFound)

	t.Run("unknown experiment", func(t *testing.T) {
		store := &MockExperimentStore{}
		store.On("GetExperimentInfo", mock.Anything, int64(99)).Return(nil, notFound)
		service, publisher := newTestService(t, store, Options{})

		_, err := service.CreateSession(context.Background(), 99, "")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Zero(t, service.SessionCount())
		assert.Equal(t, events.LevelError, publisher.last().Level)
		store.AssertNotCalled(t, "LoadMeasurements", mock.Anything, mock.Anything)
	})

	t.Run("no store", func(t *testing.T) {
		service, _ := newTestService(t, nil, Options{})
		_, err := service.CreateSession(context.Background(), 7, "")
		assert.ErrorIs(t, err, ErrNoStore)

		_, err = service.ListExperiments(context.Background())
		assert.ErrorIs(t, err, ErrNoStore)
		assert.ErrorIs(t, service.Ping(context.Background()), ErrNoStore)
	})

	t.Run("blank marker override is replaced by default", func(t *testing.T) {
		service, _ := newTestService(t, screenStore(testutil.MeasurementRows()), Options{})
		info, err := service.CreateSession(context.Background(), 7, "")
		require.NoError(t, err)
		assert.Equal(t, "Control", info.ControlMarker)
	})
}

// blockingStore holds LoadMeasurements until released so concurrent loads overlap
type blockingStore struct {
	MockExperimentStore
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) GetExperimentInfo(_ context.Context, _ int64) (*domain.ExperimentInfo, error) {
	info := screenInfo
	return &info, nil
}

func (s *blockingStore) LoadMeasurements(_ context.Context, _ int64) ([]domain.Measurement, error) {
	if s.calls.Add(1) == 1 {
		close(s.entered)
	}
	<-s.release
	return testutil.MeasurementRows(), nil
}

func TestAnalysisService_CreateSession_SharesConcurrentLoads(t *testing.T) {
	store := &blockingStore{entered: make(chan struct{}), release: make(chan struct{})}
	service, _ := newTestService(t, store, Options{})

	const n = 5
	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := service.CreateSession(context.Background(), 7, "")
			errs[i] = err
			if err == nil {
				ids[i] = info.ID
			}
		}(i)
	}

	<-store.entered
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), store.calls.Load())
	assert.Equal(t, n, service.SessionCount())

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "session ids must be distinct")
		seen[id] = true
	}
}

func TestAnalysisService_DefaultWindow(t *testing.T) {
	service, _ := newTestService(t, nil, Options{
		Session: analysis.SessionConfig{ControlMarker: "Control", StartTime: 6, EndTime: 30},
	})

	start, end := service.DefaultWindow()
	assert.Equal(t, 6.0, start)
	assert.Equal(t, 30.0, end)
}

func TestAnalysisService_ComputeGrowth(t *testing.T) {
	service, publisher := newTestService(t, nil, Options{})
	id := openScreen(t, service)
	ctx := context.Background()

	results, err := service.ComputeGrowth(ctx, id, 0, 24)
	require.NoError(t, err)
	require.Len(t, results, 6)
	assert.Equal(t, "Ampicillin", results[0].CompoundName)
	assert.InDelta(t, testutil.AmpicillinRate, results[0].GrowthRate, 1e-9)
	assert.Nil(t, results[0].InhibitionPercent)

	ev := publisher.last()
	assert.Equal(t, events.MessageTypeGrowthComputed, ev.Type)
	assert.Equal(t, events.LevelSuccess, ev.Level)

	view, err := service.Results(ctx, id)
	require.NoError(t, err)
	assert.Len(t, view.Results, 6)
	assert.False(t, view.HasInhibition)
	assert.Equal(t, 0.0, view.StartTime)
	assert.Equal(t, 24.0, view.EndTime)

	t.Run("window without measurements", func(t *testing.T) {
		results, err := service.ComputeGrowth(ctx, id, 0, 48)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, events.LevelWarning, publisher.last().Level)
	})

	t.Run("invalid window", func(t *testing.T) {
		_, err := service.ComputeGrowth(ctx, id, 24, 12)
		assert.ErrorIs(t, err, analysis.ErrInvalidTimeWindow)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := service.ComputeGrowth(ctx, "missing", 0, 24)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestAnalysisService_ComputeInhibition(t *testing.T) {
	service, publisher := newTestService(t, nil, Options{})
	id := openScreen(t, service)
	ctx := context.Background()

	// no growth computed yet: the default 0-24 h window is used
	report, err := service.ComputeInhibition(ctx, id)
	require.NoError(t, err)
	require.Len(t, report.Results, 6)

	byCompound := make(map[string]float64)
	for _, r := range report.Results {
		require.NotNil(t, r.InhibitionPercent, r.CompoundName)
		byCompound[r.CompoundName] = *r.InhibitionPercent
	}
	assert.InDelta(t, 50.0, byCompound["Ampicillin"], 1e-9)
	assert.InDelta(t, 0.0, byCompound["Control"], 1e-9)
	assert.InDelta(t, 25.0, byCompound["Kanamycin"], 1e-9)

	require.Len(t, report.Compounds, 2)
	assert.Equal(t, "Ampicillin", report.Compounds[0].CompoundName)
	assert.Equal(t, 2, report.Compounds[0].N)

	assert.Equal(t, []events.MessageType{
		events.MessageTypeDatasetLoaded,
		events.MessageTypeInhibitionComputed,
	}, publisher.types())

	view, err := service.Results(ctx, id)
	require.NoError(t, err)
	assert.True(t, view.HasInhibition)
}

func TestAnalysisService_ComputeInhibition_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		rows    []domain.Measurement
		wantErr error
	}{
		{
			name:    "empty experiment",
			rows:    nil,
			wantErr: analysis.ErrNoGrowthResults,
		},
		{
			name: "no control compound",
			rows: func() []domain.Measurement {
				var out []domain.Measurement
				for _, r := range testutil.MeasurementRows() {
					if !strings.Contains(r.CompoundName, "Control") {
						out = append(out, r)
					}
				}
				return out
			}(),
			wantErr: analysis.ErrNoControlGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, publisher := newTestService(t, nil, Options{})
			info, err := service.OpenSession(ctx, screenInfo, analysis.NewDataset(tt.rows), "")
			require.NoError(t, err)

			_, err = service.ComputeInhibition(ctx, info.ID)
			assert.ErrorIs(t, err, tt.wantErr)

			ev := publisher.last()
			assert.Equal(t, events.MessageTypeAnalysisFailed, ev.Type)
			assert.Equal(t, events.LevelError, ev.Level)
		})
	}
}

func TestAnalysisService_Statistics(t *testing.T) {
	service, _ := newTestService(t, nil, Options{})
	id := openScreen(t, service)

	report, err := service.Statistics(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 18, report.Overall.Count)
	assert.Equal(t, 3, report.Overall.Compounds)
	assert.Equal(t, 18, report.OpticalDensity.Count)
	assert.InDelta(t, 37.0, report.TemperatureCelsius.Mean, 1e-9)
}

func TestAnalysisService_Exports(t *testing.T) {
	service, _ := newTestService(t, nil, Options{})
	id := openScreen(t, service)
	ctx := context.Background()

	t.Run("dataset csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, service.WriteDatasetCSV(ctx, id, &buf))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, 19)
		assert.Equal(t, strings.Join(domain.MeasurementColumns, ","), lines[0])
	})

	t.Run("workbook", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, service.WriteWorkbook(ctx, id, &buf))
		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "Raw data")
	})

	t.Run("chart before growth has nothing to plot", func(t *testing.T) {
		var buf bytes.Buffer
		err := service.RenderChart(ctx, id, charts.KindGrowth, &buf)
		assert.ErrorIs(t, err, charts.ErrNoData)
		assert.ErrorIs(t, err, apperrors.ErrNoData)
	})

	t.Run("chart after growth", func(t *testing.T) {
		_, err := service.ComputeGrowth(ctx, id, 0, 24)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, service.RenderChart(ctx, id, charts.KindGrowth, &buf))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
	})
}

func TestAnalysisService_ExportBundle(t *testing.T) {
	ctx := context.Background()

	t.Run("after inhibition", func(t *testing.T) {
		service, publisher := newTestService(t, nil, Options{})
		id := openScreen(t, service)
		_, err := service.ComputeInhibition(ctx, id)
		require.NoError(t, err)

		dir := t.TempDir()
		paths, err := service.ExportBundle(ctx, id, dir, BundleOptions{Workbook: true, Charts: true})
		require.NoError(t, err)

		names := make([]string, len(paths))
		for i, p := range paths {
			assert.Equal(t, dir, filepath.Dir(p))
			names[i] = filepath.Base(p)
		}
		assert.Equal(t, []string{
			"analysis.xlsx",
			"growth.png",
			"growth_analysis.csv",
			"inhibition.png",
			"ph.png",
			"raw_data.csv",
			"temperature.png",
			"timecourse.png",
		}, names)
		assert.Equal(t, events.MessageTypeExportReady, publisher.last().Type)
	})

	t.Run("raw data only", func(t *testing.T) {
		service, _ := newTestService(t, nil, Options{})
		id := openScreen(t, service)

		paths, err := service.ExportBundle(ctx, id, t.TempDir(), BundleOptions{})
		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.Equal(t, "raw_data.csv", filepath.Base(paths[0]))
	})

	t.Run("unknown session", func(t *testing.T) {
		service, _ := newTestService(t, nil, Options{})
		_, err := service.ExportBundle(ctx, "missing", t.TempDir(), BundleOptions{})
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestAnalysisService_CloseSession(t *testing.T) {
	service, publisher := newTestService(t, nil, Options{})
	id := openScreen(t, service)
	ctx := context.Background()

	require.NoError(t, service.CloseSession(ctx, id))
	assert.Zero(t, service.SessionCount())
	assert.Equal(t, events.MessageTypeSessionClosed, publisher.last().Type)

	assert.ErrorIs(t, service.CloseSession(ctx, id), ErrSessionNotFound)
	_, err := service.Dataset(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAnalysisService_EvictExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	service, _ := newTestService(t, nil, Options{SessionTTL: time.Hour, Clock: clock.Now})
	ctx := context.Background()

	idle := openScreen(t, service)
	clock.Advance(45 * time.Minute)
	active := openScreen(t, service)

	clock.Advance(30 * time.Minute)
	_, err := service.Statistics(ctx, active)
	require.NoError(t, err)

	assert.Equal(t, 1, service.EvictExpired(ctx))
	assert.Equal(t, 1, service.SessionCount())

	_, err = service.Dataset(ctx, idle)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = service.Dataset(ctx, active)
	assert.NoError(t, err)
}

func TestAnalysisService_EvictExpired_Disabled(t *testing.T) {
	service, _ := newTestService(t, nil, Options{})
	openScreen(t, service)
	assert.Zero(t, service.EvictExpired(context.Background()))
}

func TestAnalysisService_RunJanitorStops(t *testing.T) {
	service, _ := newTestService(t, nil, Options{SessionTTL: time.Nanosecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		service.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestAnalysisService_ControlMarkerOverride(t *testing.T) {
	service, _ := newTestService(t, nil, Options{})
	rows := testutil.MeasurementRows()
	for i := range rows {
		if rows[i].CompoundName == "Control" {
			rows[i].CompoundName = "Untreated"
		}
	}

	info, err := service.OpenSession(context.Background(), screenInfo, analysis.NewDataset(rows), "untreated")
	require.NoError(t, err)
	assert.Equal(t, "untreated", info.ControlMarker)

	report, err := service.ComputeInhibition(context.Background(), info.ID)
	require.NoError(t, err)
	assert.Len(t, report.Compounds, 2)
}

func TestAnalysisService_ListExperiments(t *testing.T) {
	store := &MockExperimentStore{}
	store.On("ListExperiments", mock.Anything).Return([]domain.Experiment{{ID: 1, Name: "A"}}, nil)
	store.On("GetExperimentInfo", mock.Anything, int64(1)).Return(&domain.ExperimentInfo{ID: 1, Name: "A"}, nil)
	store.On("Ping", mock.Anything).Return(errors.New("closed"))
	service, _ := newTestService(t, store, Options{})

	list, err := service.ListExperiments(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	exp, err := service.GetExperiment(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A", exp.Name)

	assert.EqualError(t, service.Ping(context.Background()), "closed")
	store.AssertExpectations(t)
}
