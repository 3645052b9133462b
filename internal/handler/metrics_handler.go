package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/response"
)

type metricsSource interface {
	Handler() http.Handler
	Snapshot() models.SystemMetrics
}

type invariantAuditor interface {
	Audit(ctx context.Context) (*service.InvariantReport, error)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics metricsSource
	auditor invariantAuditor
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics metricsSource, auditor invariantAuditor) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, auditor: auditor}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Summary godoc
// @Summary Request, cache and lifecycle counters
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/metrics [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	response.OK(c, h.metrics.Snapshot())
}

// Audit godoc
// @Summary Re-check the single-active invariant over stored periods
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/invariants [get]
func (h *MetricsHandler) Audit(c *gin.Context) {
	report, err := h.auditor.Audit(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"healthy": report.Healthy()})
}
