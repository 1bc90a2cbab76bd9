package handlers

import (
	"net/http"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/services"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment and distribution endpoints
type PaymentHandler struct {
	service *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Index lists payments, optionally filtered by company_id
func (h *PaymentHandler) Index(c *gin.Context) {
	payments, err := h.service.List(c.Request.Context(), c.Query("company_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	respond(c, http.StatusOK, responses)
}

// Show returns a payment with its distribution total
func (h *PaymentHandler) Show(c *gin.Context) {
	payment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, payment.ToResponse())
}

// Create registers a payment and runs the allocation engine. The response
// carries the allocation outcome so callers see what was applied and what
// was left over.
func (h *PaymentHandler) Create(c *gin.Context) {
	var input services.PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	outcome, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, outcome)
}

// Distributions lists the allocation lines of a payment
func (h *PaymentHandler) Distributions(c *gin.Context) {
	distributions, err := h.service.Distributions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, distributions)
}

// Destroy reverses a payment: distributions are deleted, certifications
// reopened and the payment cancelled. Reversing an already cancelled payment
// is a no-op.
func (h *PaymentHandler) Destroy(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"reversed": true})
}
