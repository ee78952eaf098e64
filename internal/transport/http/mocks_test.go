package http

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"labanalyzer/internal/analysis"
	"labanalyzer/internal/charts"
	apierrors "labanalyzer/internal/errors"
	"labanalyzer/internal/services"
	"labanalyzer/pkg/contracts"
	"labanalyzer/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockAnalysisService is a mock implementation of AnalysisService
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) ListExperiments(ctx context.Context) ([]domain.Experiment, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Experiment), args.Error(1)
}

func (m *MockAnalysisService) GetExperiment(ctx context.Context, id int64) (*domain.ExperimentInfo, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExperimentInfo), args.Error(1)
}

func (m *MockAnalysisService) CreateSession(ctx context.Context, experimentID int64, controlMarker string) (*services.SessionInfo, error) {
	args := m.Called(experimentID, controlMarker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionInfo), args.Error(1)
}

func (m *MockAnalysisService) Session(ctx context.Context, id string) (*services.SessionInfo, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionInfo), args.Error(1)
}

func (m *MockAnalysisService) Dataset(ctx context.Context, id string) (*analysis.Dataset, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Dataset), args.Error(1)
}

func (m *MockAnalysisService) CloseSession(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockAnalysisService) DefaultWindow() (float64, float64) {
	args := m.Called()
	return args.Get(0).(float64), args.Get(1).(float64)
}

func (m *MockAnalysisService) ComputeGrowth(ctx context.Context, id string, start, end float64) ([]analysis.GrowthResult, error) {
	args := m.Called(id, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analysis.GrowthResult), args.Error(1)
}

func (m *MockAnalysisService) ComputeInhibition(ctx context.Context, id string) (*services.InhibitionReport, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InhibitionReport), args.Error(1)
}

func (m *MockAnalysisService) Results(ctx context.Context, id string) (*services.ResultsView, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ResultsView), args.Error(1)
}

func (m *MockAnalysisService) Statistics(ctx context.Context, id string) (*analysis.StatsReport, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.StatsReport), args.Error(1)
}

func (m *MockAnalysisService) WriteDatasetCSV(ctx context.Context, id string, w io.Writer) error {
	args := m.Called(id)
	if body, ok := args.Get(0).(string); ok {
		io.WriteString(w, body)
	}
	return args.Error(1)
}

func (m *MockAnalysisService) WriteWorkbook(ctx context.Context, id string, w io.Writer) error {
	args := m.Called(id)
	if body, ok := args.Get(0).(string); ok {
		io.WriteString(w, body)
	}
	return args.Error(1)
}

func (m *MockAnalysisService) RenderChart(ctx context.Context, id string, kind charts.Kind, w io.Writer) error {
	args := m.Called(id, kind)
	if body, ok := args.Get(0).(string); ok {
		io.WriteString(w, body)
	}
	return args.Error(1)
}

type stubHealth struct {
	status services.HealthStatus
}

func (s stubHealth) HealthCheck(ctx context.Context) services.HealthStatus { return s.status }
func (s stubHealth) Version() contracts.VersionInfo                      { return contracts.GetVersionInfo() }

var errNotFound = apierrors.ErrNotFound
