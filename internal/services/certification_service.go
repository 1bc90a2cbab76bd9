package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CertificationService manages monthly certifications. The paid flag and
// payment reference of a certification are owned by the allocation engine;
// this service never touches them.
type CertificationService struct {
	repo      repository.CertificationRepository
	contracts repository.ContractRepository
	queue     repository.SyncQueueRepository
}

// NewCertificationService creates a new certification service
func NewCertificationService(repo repository.CertificationRepository, contracts repository.ContractRepository, queue repository.SyncQueueRepository) *CertificationService {
	return &CertificationService{repo: repo, contracts: contracts, queue: queue}
}

// CertificationInput is the payload for creating or updating a certification
type CertificationInput struct {
	ContractID        string   `json:"contract_id"`
	Year              int      `json:"year"`
	Month             int      `json:"month"`
	CertifiedAmount   float64  `json:"certified_amount"`
	CommissionPercent *float64 `json:"commission_percent"`
	ManualCommission  *float64 `json:"manual_commission"`
}

func validateCertificationInput(input CertificationInput) error {
	if input.Year < 2000 || input.Year > 2200 {
		return fmt.Errorf("%w: year out of range", ErrValidation)
	}
	if input.Month < 1 || input.Month > 12 {
		return fmt.Errorf("%w: month must be 1-12", ErrValidation)
	}
	if input.CertifiedAmount < 0 {
		return fmt.Errorf("%w: certified amount cannot be negative", ErrValidation)
	}
	if input.CommissionPercent != nil && (*input.CommissionPercent < 0 || *input.CommissionPercent > 100) {
		return fmt.Errorf("%w: commission percent must be between 0 and 100", ErrValidation)
	}
	return nil
}

// Create validates and persists a new certification and queues it for sync.
// The commission percent defaults to the contract's when not given; the
// computed commission is always certified_amount * percent / 100.
func (s *CertificationService) Create(ctx context.Context, input CertificationInput) (*models.Certification, error) {
	if err := validateCertificationInput(input); err != nil {
		return nil, err
	}

	contract, err := s.contracts.FindByID(ctx, input.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, input.ContractID)
		}
		return nil, fmt.Errorf("failed to load contract: %w", err)
	}

	// At most one certification per (contract, period)
	if _, err := s.repo.FindByContractAndPeriod(ctx, input.ContractID, input.Year, input.Month); err == nil {
		return nil, fmt.Errorf("%w: certification for %04d-%02d already exists", ErrDuplicate, input.Year, input.Month)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check period uniqueness: %w", err)
	}

	percent := contract.CommissionPercent
	if input.CommissionPercent != nil {
		percent = *input.CommissionPercent
	}

	cert := &models.Certification{
		ID:                 uuid.NewString(),
		ContractID:         input.ContractID,
		Year:               input.Year,
		Month:              input.Month,
		CertifiedAmount:    input.CertifiedAmount,
		CommissionPercent:  percent,
		ComputedCommission: roundCents(input.CertifiedAmount * percent / 100),
		ManualCommission:   input.ManualCommission,
	}

	if err := s.repo.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to create certification: %w", err)
	}

	if err := enqueueSync(ctx, s.queue, models.SyncActionInsert, TableCertifications, cert.ID, cert); err != nil {
		return nil, err
	}

	return cert, nil
}

// Get returns one certification by id
func (s *CertificationService) Get(ctx context.Context, id string) (*models.Certification, error) {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load certification: %w", err)
	}
	return cert, nil
}

// List returns the certifications of one contract, oldest period first
func (s *CertificationService) List(ctx context.Context, contractID string) ([]models.Certification, error) {
	return s.repo.FindByContract(ctx, contractID)
}

// Update recomputes and persists an unpaid certification and queues the
// change. Paid certifications are frozen until their payment is reversed.
func (s *CertificationService) Update(ctx context.Context, id string, input CertificationInput) (*models.Certification, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cert.MayUpdate() {
		return nil, fmt.Errorf("%w: certification is paid", ErrInvalidState)
	}
	if err := validateCertificationInput(input); err != nil {
		return nil, err
	}

	// Moving the certification to another period must keep the
	// one-per-period invariant.
	if input.Year != cert.Year || input.Month != cert.Month {
		if existing, err := s.repo.FindByContractAndPeriod(ctx, cert.ContractID, input.Year, input.Month); err == nil && existing.ID != cert.ID {
			return nil, fmt.Errorf("%w: certification for %04d-%02d already exists", ErrDuplicate, input.Year, input.Month)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check period uniqueness: %w", err)
		}
	}

	percent := cert.CommissionPercent
	if input.CommissionPercent != nil {
		percent = *input.CommissionPercent
	}

	cert.Year = input.Year
	cert.Month = input.Month
	cert.CertifiedAmount = input.CertifiedAmount
	cert.CommissionPercent = percent
	cert.ComputedCommission = roundCents(input.CertifiedAmount * percent / 100)
	cert.ManualCommission = input.ManualCommission

	if err := s.repo.Update(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to update certification: %w", err)
	}

	if err := enqueueSync(ctx, s.queue, models.SyncActionUpdate, TableCertifications, cert.ID, cert); err != nil {
		return nil, err
	}

	return cert, nil
}

// Delete removes an unpaid certification and queues the deletion
func (s *CertificationService) Delete(ctx context.Context, id string) error {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if cert.Paid {
		return fmt.Errorf("%w: certification is paid", ErrInvalidState)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete certification: %w", err)
	}

	return enqueueSync(ctx, s.queue, models.SyncActionDelete, TableCertifications, cert.ID, nil)
}
