package handlers

import (
	"net/http"

	"github.com/certia/certia-core/internal/services"
	"github.com/gin-gonic/gin"
)

// CompanyHandler handles company endpoints
type CompanyHandler struct {
	service *services.CompanyService
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(service *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// Index lists all companies
func (h *CompanyHandler) Index(c *gin.Context) {
	companies, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, companies)
}

// Show returns a company by id
func (h *CompanyHandler) Show(c *gin.Context) {
	company, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, company)
}

// Create adds a new company
func (h *CompanyHandler) Create(c *gin.Context) {
	var input services.CompanyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	company, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, company)
}

// Update modifies an existing company
func (h *CompanyHandler) Update(c *gin.Context) {
	var input services.CompanyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	company, err := h.service.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, company)
}

// Destroy removes a company without contracts
func (h *CompanyHandler) Destroy(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}
