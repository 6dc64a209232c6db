package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"alertscope/internal/clients/elasticsearch"
	"alertscope/internal/clock"
	"alertscope/internal/config"
	"alertscope/internal/metrics"
	"alertscope/internal/models"
	"alertscope/internal/orchestrator"
)

// Response messages. Bodies never carry error details.
const (
	msgConnectFailed = "Failed to connect to Elasticsearch"
	msgProcessFailed = "Error processing alerts"
	msgNoAlerts      = "No alerts found"
)

// PartialHeader marks a CSV export cut short by a failed page fetch.
const PartialHeader = "X-Alerts-Partial"

// Handler holds the server dependencies
type Handler struct {
	cfg     *config.Config
	backend orchestrator.AlertSearchBackend
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a new handler
func NewHandler(cfg *config.Config, backend orchestrator.AlertSearchBackend, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:     cfg,
		backend: backend,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/alerts", h.HandleAlerts)
	r.Get("/alerts_csv", h.HandleAlertsCSV)
	r.Get("/responder_names", h.HandleResponderNames)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
}

// queryParams reads the alert filters, applying the request-level defaults.
func (h *Handler) queryParams(r *http.Request, now time.Time) elasticsearch.AlertsQueryParams {
	q := r.URL.Query()

	params := elasticsearch.AlertsQueryParams{
		ResponderName: q.Get("responder_name"),
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
		StartTime:     q.Get("start_time"),
		EndTime:       q.Get("end_time"),
	}
	if params.ResponderName == "" && h.cfg != nil {
		params.ResponderName = h.cfg.Alerts.DefaultResponder
	}
	if params.EndDate == "" {
		params.EndDate = clock.Today(now)
	}
	return params
}

// fetchAlerts runs the ping pre-check and the search shared by both alert
// endpoints. On failure it returns the status and message to send.
func (h *Handler) fetchAlerts(r *http.Request) (*models.AlertResult, int, string) {
	ctx := r.Context()
	logger := h.logger.With("request_id", middleware.GetReqID(ctx))

	if err := h.backend.Ping(ctx); err != nil {
		logger.Error("Elasticsearch ping failed", "error", err)
		return nil, http.StatusInternalServerError, msgConnectFailed
	}

	now := h.now()
	params := h.queryParams(r, now)

	result, err := h.backend.GetAlerts(ctx, params, now)
	if err != nil {
		logger.Error("Failed to fetch alerts", "responder", params.ResponderName, "error", err)
		return nil, http.StatusInternalServerError, msgProcessFailed
	}
	if result.Count() == 0 {
		return nil, http.StatusNotFound, msgNoAlerts
	}
	if !result.Complete {
		logger.Warn("Serving partial alert set", "responder", params.ResponderName, "count", result.Count())
	}
	return result, http.StatusOK, ""
}

// HandleAlerts returns the readable alerts for a responder and time window.
func (h *Handler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	result, status, msg := h.fetchAlerts(r)
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		writeJSON(w, status, map[string]string{"message": msg})
		return
	default:
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	body := map[string]any{
		"request_id": middleware.GetReqID(r.Context()),
		"took":       time.Since(started).Seconds(),
		"data":       result.Alerts,
		"count":      result.Count(),
	}
	if !result.Complete {
		body["partial"] = true
	}
	writeJSON(w, http.StatusOK, body)
}

// HandleAlertsCSV streams the same alerts as a CSV attachment.
func (h *Handler) HandleAlertsCSV(w http.ResponseWriter, r *http.Request) {
	result, status, msg := h.fetchAlerts(r)
	if status != http.StatusOK {
		http.Error(w, msg, status)
		return
	}

	data, err := encodeCSV(result.Alerts)
	if err != nil {
		h.logger.Error("Failed to encode alerts CSV", "request_id", middleware.GetReqID(r.Context()), "error", err)
		http.Error(w, msgProcessFailed, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=alerts.csv")
	if !result.Complete {
		w.Header().Set(PartialHeader, "true")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleResponderNames lists the distinct team responders. Only a failed
// ping is an error; a failed lookup serves an empty list.
func (h *Handler) HandleResponderNames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.backend.Ping(ctx); err != nil {
		h.logger.Error("Elasticsearch ping failed", "request_id", middleware.GetReqID(ctx), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgConnectFailed})
		return
	}

	names, err := h.backend.GetUniqueResponderNames(ctx)
	if err != nil {
		h.logger.Error("Failed to fetch responder names", "request_id", middleware.GetReqID(ctx), "error", err)
		names = nil
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"responder_names": names})
}

// HandleHealth returns health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady reports whether Elasticsearch answers a ping.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Ping(r.Context()); err != nil {
		h.logger.Warn("Readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
