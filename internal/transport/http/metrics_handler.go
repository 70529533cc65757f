package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gradecli/internal/services"
)

// MetricsHandler serves the Prometheus scrape endpoint and runtime stats
type MetricsHandler struct {
	prometheus http.Handler
	health     *services.HealthService
}

// NewMetricsHandler creates a new metrics handler. A nil prometheus handler
// means metric export is disabled.
func NewMetricsHandler(prometheus http.Handler, health *services.HealthService) *MetricsHandler {
	return &MetricsHandler{prometheus: prometheus, health: health}
}

// Routes sets up the metrics routes, mounted under /metrics
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMetrics)
	r.Get("/stats", h.GetStats)
	return r
}

// GetMetrics serves the Prometheus exposition format
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		http.Error(w, "metrics export disabled", http.StatusNotFound)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// GetStats returns runtime and session statistics as JSON
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.health.SystemStats(r.Context()),
	})
}
