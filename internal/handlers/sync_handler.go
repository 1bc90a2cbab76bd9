package handlers

import (
	"net/http"
	"strconv"

	"github.com/certia/certia-core/internal/middleware"
	"github.com/certia/certia-core/internal/syncer"
	"github.com/certia/certia-core/pkg/logger"
	"github.com/gin-gonic/gin"
)

// SyncHandler exposes the sync engine: manual triggers, status, connectivity
// hints and conflict resolution.
type SyncHandler struct {
	coordinator *syncer.Coordinator
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(coordinator *syncer.Coordinator) *SyncHandler {
	return &SyncHandler{coordinator: coordinator}
}

// Trigger starts a sync run immediately. A run already in flight is
// rejected, not queued.
func (h *SyncHandler) Trigger(c *gin.Context) {
	report, err := h.coordinator.Sync(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("sync run triggered manually", "user_id", middleware.GetUserID(c), "pushed", report.Pushed)
	respond(c, http.StatusOK, report)
}

// Status reports the coordinator state and queue depth
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.coordinator.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, status)
}

// SetConnectivity reports a connectivity change from the client side. Going
// online schedules a debounced sync run.
func (h *SyncHandler) SetConnectivity(c *gin.Context) {
	var body struct {
		Online bool `json:"online"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	h.coordinator.SetOnline(body.Online)
	respond(c, http.StatusOK, gin.H{"online": body.Online})
}

// Conflicts lists sync conflicts awaiting manual resolution
func (h *SyncHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.coordinator.PendingConflicts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, conflicts)
}

// ResolveConflict settles a pending conflict with "local" or "remote"
func (h *SyncHandler) ResolveConflict(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid conflict id")
		return
	}

	var body struct {
		Resolution string `json:"resolution"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	conflict, err := h.coordinator.ResolveConflict(c.Request.Context(), uint(id), body.Resolution)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("sync conflict resolved", "conflict_id", conflict.ID, "resolution", body.Resolution, "user_id", middleware.GetUserID(c))
	respond(c, http.StatusOK, conflict)
}
