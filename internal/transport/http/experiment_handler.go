package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "labanalyzer/internal/errors"
	"labanalyzer/internal/middleware"
	api "labanalyzer/pkg/contracts/api/v1"
)

const maxExperimentPage = 1000

// ExperimentHandler serves the stored experiments
type ExperimentHandler struct {
	service      AnalysisService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExperimentHandler creates an experiment handler
func NewExperimentHandler(service AnalysisService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExperimentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExperimentHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "experiment_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the experiment routes
func (h *ExperimentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	return r
}

// List handles GET /api/experiments?limit=N
func (h *ExperimentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := middleware.QueryInt(r, "limit", 1, maxExperimentPage, maxExperimentPage)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	experiments, err := h.service.ListExperiments(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if len(experiments) > limit {
		experiments = experiments[:limit]
	}

	render.JSON(w, r, api.ExperimentListResponse{
		Experiments: experiments,
		Count:       len(experiments),
	})
}

// Get handles GET /api/experiments/{id}
func (h *ExperimentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := experimentID(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	info, err := h.service.GetExperiment(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

func experimentID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.InvalidParameterError("id", fmt.Errorf("experiment id must be a positive integer, got %q", raw))
	}
	return id, nil
}
