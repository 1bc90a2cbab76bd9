package services

import (
	"github.com/certia/certia-core/internal/repository"
)

// Services holds all service instances
type Services struct {
	Company       *CompanyService
	Contract      *ContractService
	Certification *CertificationService
	Payment       *PaymentService
	Allocation    *AllocationService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories) *Services {
	allocationSvc := NewAllocationService(repos.Certification, repos.Distribution, repos.Payment, repos.SyncQueue)

	return &Services{
		Company:       NewCompanyService(repos.Company, repos.Contract, repos.SyncQueue),
		Contract:      NewContractService(repos.Contract, repos.Company, repos.Certification, repos.SyncQueue),
		Certification: NewCertificationService(repos.Certification, repos.Contract, repos.SyncQueue),
		Payment:       NewPaymentService(repos.Payment, repos.Company, repos.Contract, repos.Distribution, allocationSvc, repos.SyncQueue),
		Allocation:    allocationSvc,
	}
}
