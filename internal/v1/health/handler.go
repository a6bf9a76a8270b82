// Package health exposes Kubernetes-style liveness and readiness probes.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AvatarSource reports how many avatars are available for assignment.
// Satisfied by catalog.Catalog.
type AvatarSource interface {
	Len() int
}

// Handler manages health check endpoints
type Handler struct {
	catalog AvatarSource
}

// NewHandler creates a new health check handler
func NewHandler(catalog AvatarSource) *Handler {
	return &Handler{catalog: catalog}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// Returns 200 only if the server can actually admit users
// Returns 503 otherwise
func (h *Handler) Readiness(c *gin.Context) {
	checks := make(map[string]string)
	allHealthy := true

	// A server with no avatars to hand out cannot admit anyone.
	catalogStatus := h.checkCatalog()
	checks["catalog"] = catalogStatus
	if catalogStatus != "healthy" {
		allHealthy = false
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(statusCode, response)
}

// checkCatalog verifies the avatar catalog loaded and is non-empty
func (h *Handler) checkCatalog() string {
	if h.catalog == nil || h.catalog.Len() == 0 {
		return "unhealthy"
	}
	return "healthy"
}
