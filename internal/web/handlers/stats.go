package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/recognition"
	"github.com/kozaktomas/face-attend/internal/store"
)

// StatsHandler serves health and statistics endpoints.
type StatsHandler struct {
	config   *config.Config
	registry store.Registry
	engine   *recognition.Engine
	metrics  *Metrics
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(cfg *config.Config, registry store.Registry, engine *recognition.Engine, metrics *Metrics) *StatsHandler {
	return &StatsHandler{config: cfg, registry: registry, engine: engine, metrics: metrics}
}

// Health handles GET /api/v1/health. The service reports healthy as long as
// the registry responds; model service trouble shows up per-request instead.
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.registry.Count(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  "registry unavailable",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"model":             h.config.Vision.Model,
		"students_enrolled": count,
		"uptime_seconds":    h.metrics.Snapshot().UptimeSeconds,
	})
}

// Get handles GET /api/v1/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	storeStats, err := h.registry.Stats(r.Context())
	if err != nil {
		log.Errorf("reading store stats failed: %v", err)
		respondError(w, http.StatusInternalServerError, "could not read store stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"service":         h.metrics.Snapshot(),
		"store":           storeStats,
		"match_threshold": h.engine.Threshold(),
	})
}
