package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyService manages companies
type CompanyService struct {
	repo      repository.CompanyRepository
	contracts repository.ContractRepository
	queue     repository.SyncQueueRepository
}

// NewCompanyService creates a new company service
func NewCompanyService(repo repository.CompanyRepository, contracts repository.ContractRepository, queue repository.SyncQueueRepository) *CompanyService {
	return &CompanyService{repo: repo, contracts: contracts, queue: queue}
}

// CompanyInput is the payload for creating or updating a company
type CompanyInput struct {
	Name  string  `json:"name"`
	TaxID *string `json:"tax_id"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	Notes *string `json:"notes"`
}

// Create validates and persists a new company and queues it for sync
func (s *CompanyService) Create(ctx context.Context, input CompanyInput) (*models.Company, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrValidation)
	}

	company := &models.Company{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(input.Name),
		TaxID: input.TaxID,
		Email: input.Email,
		Phone: input.Phone,
		Notes: input.Notes,
	}

	if err := s.repo.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	if err := enqueueSync(ctx, s.queue, models.SyncActionInsert, TableCompanies, company.ID, company); err != nil {
		return nil, err
	}

	return company, nil
}

// Get returns one company by id
func (s *CompanyService) Get(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load company: %w", err)
	}
	return company, nil
}

// List returns every company
func (s *CompanyService) List(ctx context.Context) ([]models.Company, error) {
	return s.repo.FindAll(ctx)
}

// Update applies the input to an existing company and queues the change
func (s *CompanyService) Update(ctx context.Context, id string, input CompanyInput) (*models.Company, error) {
	company, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrValidation)
	}

	company.Name = strings.TrimSpace(input.Name)
	company.TaxID = input.TaxID
	company.Email = input.Email
	company.Phone = input.Phone
	company.Notes = input.Notes

	if err := s.repo.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	if err := enqueueSync(ctx, s.queue, models.SyncActionUpdate, TableCompanies, company.ID, company); err != nil {
		return nil, err
	}

	return company, nil
}

// Delete removes a company without contracts and queues the deletion
func (s *CompanyService) Delete(ctx context.Context, id string) error {
	company, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	contracts, err := s.contracts.FindByCompany(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check company contracts: %w", err)
	}
	if len(contracts) > 0 {
		return fmt.Errorf("%w: company still has %d contract(s)", ErrValidation, len(contracts))
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	return enqueueSync(ctx, s.queue, models.SyncActionDelete, TableCompanies, company.ID, nil)
}
