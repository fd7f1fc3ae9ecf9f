package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/merchandising/internal/interfaces/http/dto"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// SystemHandler serves liveness and readiness
type SystemHandler struct {
	BaseHandler
	service   string
	version   string
	startTime time.Time
	checks    map[string]HealthCheck
	timeout   time.Duration
}

// NewSystemHandler creates a new SystemHandler. checks are run by Ready.
func NewSystemHandler(service, version string, checks map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{
		service:   service,
		version:   version,
		startTime: time.Now(),
		checks:    checks,
		timeout:   2 * time.Second,
	}
}

// SystemInfoResponse is returned by Info
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Health handles GET /health. It never touches dependencies.
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, dto.HealthStatus{Status: "ok", Service: h.service, Version: h.version})
}

// Ready handles GET /ready and reports 503 when any dependency check fails
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := dto.HealthStatus{Status: "ok", Service: h.service, Version: h.version, Checks: map[string]string{}}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status.Status = "degraded"
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}

	if status.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: status})
		return
	}
	h.Success(c, status)
}

// Info handles GET /api/v1/system/info
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.service,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
