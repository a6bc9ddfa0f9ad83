package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"screener/internal/screening/metrics"
	"screener/internal/screening/models"
	"screener/pkg/platform/httputil"
	"screener/pkg/requestcontext"
)

// Service defines the interface for screening operations.
type Service interface {
	Screen(ctx context.Context, in models.RequestInput) (*models.ScreeningReport, error)
	GetReport(ctx context.Context, token string) (*models.ScreeningReport, error)
	ExportReport(ctx context.Context, token string) (*models.ScreeningReport, error)
}

// Handler wires screening endpoints to the screening service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a screening handler with its dependencies.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts screening endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/screenings", h.HandleScreen)
	r.Get("/screenings/{token}", h.HandleGetReport)
	r.Get("/screenings/{token}/export", h.HandleExportReport)
}

// HandleScreen handles POST /screenings requests.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ScreenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.Screen(ctx, req.ToInput())
	if err != nil {
		h.logger.ErrorContext(ctx, "screening failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "screening created",
		"request_id", requestID,
		"report_id", report.ID.String(),
		"risk_level", string(report.RiskLevel),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromCreated(report))
}

// HandleGetReport handles GET /screenings/{token} requests.
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.service.GetReport(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logRetrievalError(ctx, "get", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReport(report))
}

// HandleExportReport handles GET /screenings/{token}/export requests. The
// body is the full report served as a downloadable JSON document.
func (h *Handler) HandleExportReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.service.ExportReport(ctx, chi.URLParam(r, "token"))
	if err != nil {
		h.logRetrievalError(ctx, "export", err)
		httputil.WriteError(w, err)
		return
	}

	body, err := json.MarshalIndent(FromReport(report), "", "  ")
	if err != nil {
		h.logger.ErrorContext(ctx, "export encode failed", "request_id", requestcontext.RequestID(ctx), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="screening-`+report.ID.String()+`.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) logRetrievalError(ctx context.Context, op string, err error) {
	h.logger.WarnContext(ctx, "report retrieval failed",
		"request_id", requestcontext.RequestID(ctx),
		"op", op,
		"error", err,
	)
}
