package handlers

import (
	"net/http"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/services"
	"github.com/gin-gonic/gin"
)

// CertificationHandler handles monthly certification endpoints
type CertificationHandler struct {
	service *services.CertificationService
}

// NewCertificationHandler creates a new certification handler
func NewCertificationHandler(service *services.CertificationService) *CertificationHandler {
	return &CertificationHandler{service: service}
}

// Index lists certifications for a contract
func (h *CertificationHandler) Index(c *gin.Context) {
	certs, err := h.service.List(c.Request.Context(), c.Query("contract_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.CertificationResponse, 0, len(certs))
	for i := range certs {
		responses = append(responses, certs[i].ToResponse())
	}
	respond(c, http.StatusOK, responses)
}

// Show returns a certification by id
func (h *CertificationHandler) Show(c *gin.Context) {
	cert, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cert.ToResponse())
}

// Create adds a certification for a contract period
func (h *CertificationHandler) Create(c *gin.Context) {
	var input services.CertificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	cert, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, cert.ToResponse())
}

// Update modifies an unpaid certification
func (h *CertificationHandler) Update(c *gin.Context) {
	var input services.CertificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	cert, err := h.service.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cert.ToResponse())
}

// Destroy removes an unpaid certification
func (h *CertificationHandler) Destroy(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}
