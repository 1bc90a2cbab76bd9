package handlers

import (
	"net/http"
	"time"

	"github.com/certia/certia-core/internal/jobs"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	startedAt time.Time
	worker    *jobs.Worker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(worker *jobs.Worker) *HealthHandler {
	return &HealthHandler{startedAt: time.Now(), worker: worker}
}

// Check returns service health status and background worker statistics
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
		"worker": h.worker.GetStats(),
	})
}
