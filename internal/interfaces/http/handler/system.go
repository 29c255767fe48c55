package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionStatus reports whether a CRM session is currently cached
type SessionStatus interface {
	Connected() bool
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	sessions  SessionStatus
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, sessions SessionStatus) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		sessions:  sessions,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns version and uptime
// GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.OK(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	CRM    string `json:"crm"`
}

// Health reports liveness. The CRM session is established lazily, so an
// idle session is healthy; the check never triggers a handshake.
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	crmState := "idle"
	if h.sessions != nil && h.sessions.Connected() {
		crmState = "connected"
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().Format(time.RFC3339),
		CRM:    crmState,
	})
}
