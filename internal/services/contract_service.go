package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContractService manages contracts
type ContractService struct {
	repo           repository.ContractRepository
	companies      repository.CompanyRepository
	certifications repository.CertificationRepository
	queue          repository.SyncQueueRepository
}

// NewContractService creates a new contract service
func NewContractService(repo repository.ContractRepository, companies repository.CompanyRepository, certifications repository.CertificationRepository, queue repository.SyncQueueRepository) *ContractService {
	return &ContractService{
		repo:           repo,
		companies:      companies,
		certifications: certifications,
		queue:          queue,
	}
}

// ContractInput is the payload for creating or updating a contract
type ContractInput struct {
	CompanyID         string     `json:"company_id"`
	Code              string     `json:"code"`
	Description       *string    `json:"description"`
	CommissionPercent float64    `json:"commission_percent"`
	StartDate         *time.Time `json:"start_date"`
}

func (s *ContractService) validate(input ContractInput) error {
	if strings.TrimSpace(input.Code) == "" {
		return fmt.Errorf("%w: contract code is required", ErrValidation)
	}
	if input.CommissionPercent < 0 || input.CommissionPercent > 100 {
		return fmt.Errorf("%w: commission percent must be between 0 and 100", ErrValidation)
	}
	return nil
}

// Create validates and persists a new contract and queues it for sync
func (s *ContractService) Create(ctx context.Context, input ContractInput) (*models.Contract, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	if _, err := s.companies.FindByID(ctx, input.CompanyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: company %s", ErrNotFound, input.CompanyID)
		}
		return nil, fmt.Errorf("failed to load company: %w", err)
	}

	contract := &models.Contract{
		ID:                uuid.NewString(),
		CompanyID:         input.CompanyID,
		Code:              strings.TrimSpace(input.Code),
		Description:       input.Description,
		CommissionPercent: input.CommissionPercent,
		Status:            models.ContractStatusActive,
		StartDate:         input.StartDate,
	}

	if err := s.repo.Create(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	if err := enqueueSync(ctx, s.queue, models.SyncActionInsert, TableContracts, contract.ID, contract); err != nil {
		return nil, err
	}

	return contract, nil
}

// Get returns one contract by id
func (s *ContractService) Get(ctx context.Context, id string) (*models.Contract, error) {
	contract, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}
	return contract, nil
}

// List returns contracts, optionally filtered by company
func (s *ContractService) List(ctx context.Context, companyID string) ([]models.Contract, error) {
	if companyID != "" {
		return s.repo.FindByCompany(ctx, companyID)
	}
	return s.repo.FindAll(ctx)
}

// Update applies the input to an existing contract and queues the change
func (s *ContractService) Update(ctx context.Context, id string, input ContractInput) (*models.Contract, error) {
	contract, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(input); err != nil {
		return nil, err
	}

	contract.Code = strings.TrimSpace(input.Code)
	contract.Description = input.Description
	contract.CommissionPercent = input.CommissionPercent
	contract.StartDate = input.StartDate

	if err := s.repo.Update(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}

	if err := enqueueSync(ctx, s.queue, models.SyncActionUpdate, TableContracts, contract.ID, contract); err != nil {
		return nil, err
	}

	return contract, nil
}

// Delete removes a contract. Contracts with certifications cannot be
// deleted.
func (s *ContractService) Delete(ctx context.Context, id string) error {
	contract, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.certifications.CountByContract(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count certifications: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: contract still has %d certification(s)", ErrValidation, count)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}

	return enqueueSync(ctx, s.queue, models.SyncActionDelete, TableContracts, contract.ID, nil)
}

// PendingCommission sums the owed commission of the contract's unpaid
// certifications.
func (s *ContractService) PendingCommission(ctx context.Context, contractID string) (float64, error) {
	if _, err := s.Get(ctx, contractID); err != nil {
		return 0, err
	}

	certs, err := s.certifications.FindPendingByContract(ctx, contractID)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending certifications: %w", err)
	}

	var total float64
	for _, cert := range certs {
		total += cert.OwedCommission()
	}
	return total, nil
}
