package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"labanalyzer/internal/charts"
	apierrors "labanalyzer/internal/errors"
	"labanalyzer/internal/middleware"
	"labanalyzer/internal/services"
	api "labanalyzer/pkg/contracts/api/v1"
)

// Content types of the session downloads
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePNG  = "image/png"
)

// SessionHandler serves analysis sessions
type SessionHandler struct {
	service      AnalysisService
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSessionHandler creates a session handler
func NewSessionHandler(service AnalysisService, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "session_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the session routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Close)
		r.Get("/dataset", h.Dataset)
		r.Post("/growth", h.Growth)
		r.Post("/inhibition", h.Inhibition)
		r.Get("/results", h.Results)
		r.Get("/statistics", h.Statistics)

		r.Get("/export.csv", h.ExportCSV)
		r.Get("/export.xlsx", h.ExportWorkbook)
		r.Get("/charts/{kind}.png", h.Chart)
	})
	return r
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	marker := ""
	if req.ControlMarker != nil {
		marker = *req.ControlMarker
	}

	info, err := h.service.CreateSession(r.Context(), req.ExperimentID, marker)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session created",
		slog.String("session_id", info.ID),
		slog.Int64("experiment_id", req.ExperimentID),
		slog.String("client", middleware.APIClient(r.Context())))

	w.Header().Set("Location", fmt.Sprintf("%s/%s", strings.TrimSuffix(r.URL.Path, "/"), info.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sessionResponse(info))
}

// Get handles GET /api/sessions/{sessionID}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Session(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, sessionResponse(info))
}

// Close handles DELETE /api/sessions/{sessionID}
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseSession(r.Context(), sessionID(r)); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dataset handles GET /api/sessions/{sessionID}/dataset
func (h *SessionHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	ds, err := h.service.Dataset(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.DatasetResponse{SessionID: id, Rows: ds.Rows()})
}

// Growth handles POST /api/sessions/{sessionID}/growth
func (h *SessionHandler) Growth(w http.ResponseWriter, r *http.Request) {
	var req api.GrowthRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	window := req.Resolve(h.service.DefaultWindow())
	if err := h.validator.ValidateStruct(window); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	id := sessionID(r)
	results, err := h.service.ComputeGrowth(r.Context(), id, window.StartTime, window.EndTime)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.ResultsResponse{
		SessionID: id,
		StartTime: window.StartTime,
		EndTime:   window.EndTime,
		Results:   results,
	})
}

// Inhibition handles POST /api/sessions/{sessionID}/inhibition
func (h *SessionHandler) Inhibition(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	report, err := h.service.ComputeInhibition(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.InhibitionResponse{
		SessionID: id,
		Results:   report.Results,
		Compounds: report.Compounds,
	})
}

// Results handles GET /api/sessions/{sessionID}/results
func (h *SessionHandler) Results(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	view, err := h.service.Results(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.ResultsResponse{
		SessionID:     id,
		StartTime:     view.StartTime,
		EndTime:       view.EndTime,
		HasInhibition: view.HasInhibition,
		Results:       view.Results,
	})
}

// Statistics handles GET /api/sessions/{sessionID}/statistics
func (h *SessionHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Statistics(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// ExportCSV handles GET /api/sessions/{sessionID}/export.csv
func (h *SessionHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	h.download(w, r, ContentTypeCSV, "raw_data_"+shortID(id)+".csv", func(ctx context.Context, out io.Writer) error {
		return h.service.WriteDatasetCSV(ctx, id, out)
	})
}

// ExportWorkbook handles GET /api/sessions/{sessionID}/export.xlsx
func (h *SessionHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	h.download(w, r, ContentTypeXLSX, "analysis_"+shortID(id)+".xlsx", func(ctx context.Context, out io.Writer) error {
		return h.service.WriteWorkbook(ctx, id, out)
	})
}

// Chart handles GET /api/sessions/{sessionID}/charts/{kind}.png
func (h *SessionHandler) Chart(w http.ResponseWriter, r *http.Request) {
	kind, err := charts.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	id := sessionID(r)
	var buf bytes.Buffer
	if err := h.service.RenderChart(r.Context(), id, kind, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", ContentTypePNG)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// download buffers the whole body so that a failure can still be reported
// as a problem response
func (h *SessionHandler) download(w http.ResponseWriter, r *http.Request, contentType, filename string, write func(context.Context, io.Writer) error) {
	var buf bytes.Buffer
	if err := write(r.Context(), &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "serving download",
		slog.String("filename", filename),
		slog.Int("size", buf.Len()))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sessionResponse(info *services.SessionInfo) api.SessionResponse {
	return api.SessionResponse{
		SessionID:     info.ID,
		Experiment:    info.Experiment,
		ControlMarker: info.ControlMarker,
		Dataset: api.DatasetSummary{
			Rows:       info.Rows,
			Compounds:  info.Compounds,
			Replicates: info.Replicates,
			TimePoints: info.TimePoints,
		},
	}
}
