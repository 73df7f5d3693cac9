package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-routine-api/internal/service"
	"github.com/noah-isme/sma-routine-api/pkg/response"
)

type unresolvedCounter interface {
	CountUnresolved(ctx context.Context) (int, error)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics   *service.MetricsService
	conflicts unresolvedCounter
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, conflicts unresolvedCounter) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, conflicts: conflicts}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Scheduling metrics snapshot
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	snapshot := h.metrics.Snapshot()
	meta := map[string]interface{}{}
	if h.conflicts != nil {
		unresolved, err := h.conflicts.CountUnresolved(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		meta["unresolved_conflicts"] = unresolved
	}
	response.JSON(c, http.StatusOK, snapshot, nil, meta)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
