package handlers

import (
	"errors"
	"net/http"

	"github.com/certia/certia-core/internal/services"
	"github.com/gin-gonic/gin"
)

// respond writes the success envelope shared by every endpoint
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError maps service sentinel errors to HTTP status codes and writes
// the failure envelope: error carries the category, message the detail.
// Unrecognized errors become 500s with the detail hidden from the client.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	category := "internal_error"
	message := "internal error"

	switch {
	case errors.Is(err, services.ErrValidation):
		status, category, message = http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, services.ErrNotFound):
		status, category, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, services.ErrDuplicate):
		status, category, message = http.StatusConflict, "duplicate", err.Error()
	case errors.Is(err, services.ErrConflict):
		status, category, message = http.StatusConflict, "conflict", err.Error()
	case errors.Is(err, services.ErrInvalidState):
		status, category, message = http.StatusUnprocessableEntity, "invalid_state", err.Error()
	case errors.Is(err, services.ErrIntegrity):
		status, category, message = http.StatusUnprocessableEntity, "integrity_error", err.Error()
	case errors.Is(err, services.ErrSyncInProgress):
		status, category, message = http.StatusConflict, "sync_in_progress", err.Error()
	case errors.Is(err, services.ErrSyncTransport):
		status, category, message = http.StatusBadGateway, "sync_transport_error", err.Error()
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{
		"success": false,
		"error":   category,
		"message": message,
	})
}

// respondBadRequest writes the failure envelope for malformed request bodies
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "validation_error",
		"message": message,
	})
}
