package handlers

import (
	"net/http"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/services"
	"github.com/gin-gonic/gin"
)

// ContractHandler handles contract endpoints
type ContractHandler struct {
	service *services.ContractService
}

// NewContractHandler creates a new contract handler
func NewContractHandler(service *services.ContractService) *ContractHandler {
	return &ContractHandler{service: service}
}

// Index lists contracts, optionally filtered by company_id
func (h *ContractHandler) Index(c *gin.Context) {
	contracts, err := h.service.List(c.Request.Context(), c.Query("company_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.ContractResponse, 0, len(contracts))
	for i := range contracts {
		responses = append(responses, contracts[i].ToResponse())
	}
	respond(c, http.StatusOK, responses)
}

// Show returns a contract by id with its pending commission
func (h *ContractHandler) Show(c *gin.Context) {
	contract, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, contract.ToResponse())
}

// Create adds a new contract
func (h *ContractHandler) Create(c *gin.Context) {
	var input services.ContractInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	contract, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, contract.ToResponse())
}

// Update modifies an existing contract
func (h *ContractHandler) Update(c *gin.Context) {
	var input services.ContractInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	contract, err := h.service.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, contract.ToResponse())
}

// Destroy removes a contract without certifications
func (h *ContractHandler) Destroy(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}

// PendingCommission returns the unpaid commission total for a contract
func (h *ContractHandler) PendingCommission(c *gin.Context) {
	total, err := h.service.PendingCommission(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"contract_id": c.Param("id"), "pending_commission": total})
}
