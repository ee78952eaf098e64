package http

import (
	"context"
	"io"

	"labanalyzer/internal/analysis"
	"labanalyzer/internal/charts"
	"labanalyzer/internal/services"
	"labanalyzer/pkg/contracts"
	"labanalyzer/pkg/contracts/domain"
)

// AnalysisService defines the analysis operations exposed over HTTP
type AnalysisService interface {
	ListExperiments(ctx context.Context) ([]domain.Experiment, error)
	GetExperiment(ctx context.Context, id int64) (*domain.ExperimentInfo, error)

	CreateSession(ctx context.Context, experimentID int64, controlMarker string) (*services.SessionInfo, error)
	Session(ctx context.Context, id string) (*services.SessionInfo, error)
	Dataset(ctx context.Context, id string) (*analysis.Dataset, error)
	CloseSession(ctx context.Context, id string) error

	DefaultWindow() (start, end float64)
	ComputeGrowth(ctx context.Context, id string, start, end float64) ([]analysis.GrowthResult, error)
	ComputeInhibition(ctx context.Context, id string) (*services.InhibitionReport, error)
	Results(ctx context.Context, id string) (*services.ResultsView, error)
	Statistics(ctx context.Context, id string) (*analysis.StatsReport, error)

	WriteDatasetCSV(ctx context.Context, id string, w io.Writer) error
	WriteWorkbook(ctx context.Context, id string, w io.Writer) error
	RenderChart(ctx context.Context, id string, kind charts.Kind, w io.Writer) error
}

// HealthChecker reports service health
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	Version() contracts.VersionInfo
}
