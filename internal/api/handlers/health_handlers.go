package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fund-service/fund_service/pkg/health"
	"github.com/fund-service/fund_service/pkg/version"
)

// HealthHandler serves liveness, readiness and build information
type HealthHandler struct {
	checker *health.HealthChecker
	started time.Time
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker, started: time.Now()}
}

// Health runs every registered check. Degraded still answers 200.
// GET /health
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status, checks := h.checker.Check(c.Request.Context())

	code := http.StatusOK
	if status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   version.Version,
		"uptime":    time.Since(h.started).String(),
		"checks":    checks,
	})
}

// Live reports that the process is serving requests.
// GET /live
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Version returns build information.
// GET /version
// @Summary Build information
// @Tags health
// @Produce json
// @Success 200 {object} version.Info
// @Router /version [get]
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
