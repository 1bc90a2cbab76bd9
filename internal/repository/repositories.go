package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Company       CompanyRepository
	Contract      ContractRepository
	Certification CertificationRepository
	Payment       PaymentRepository
	Distribution  DistributionRepository
	SyncQueue     SyncQueueRepository
	Conflict      ConflictRepository
	IDMapping     IDMappingRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Company:       NewCompanyRepository(db),
		Contract:      NewContractRepository(db),
		Certification: NewCertificationRepository(db),
		Payment:       NewPaymentRepository(db),
		Distribution:  NewDistributionRepository(db),
		SyncQueue:     NewSyncQueueRepository(db),
		Conflict:      NewConflictRepository(db),
		IDMapping:     NewIDMappingRepository(db),
	}
}
