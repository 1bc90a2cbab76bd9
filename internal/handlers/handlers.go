package handlers

import (
	"github.com/certia/certia-core/internal/jobs"
	"github.com/certia/certia-core/internal/services"
	"github.com/certia/certia-core/internal/syncer"
)

// Handlers holds all handler instances
type Handlers struct {
	Health        *HealthHandler
	Company       *CompanyHandler
	Contract      *ContractHandler
	Certification *CertificationHandler
	Payment       *PaymentHandler
	Sync          *SyncHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, coordinator *syncer.Coordinator, worker *jobs.Worker) *Handlers {
	return &Handlers{
		Health:        NewHealthHandler(worker),
		Company:       NewCompanyHandler(svcs.Company),
		Contract:      NewContractHandler(svcs.Contract),
		Certification: NewCertificationHandler(svcs.Certification),
		Payment:       NewPaymentHandler(svcs.Payment),
		Sync:          NewSyncHandler(coordinator),
	}
}
