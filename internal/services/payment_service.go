package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/certia/certia-core/internal/statemachine"
	"github.com/certia/certia-core/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentService creates payments, runs their allocation synchronously and
// reverses them on deletion. Payment mutations are serialized by a single
// mutex so two allocations can never interleave over the same
// certifications.
type PaymentService struct {
	repo          repository.PaymentRepository
	companies     repository.CompanyRepository
	contracts     repository.ContractRepository
	distributions repository.DistributionRepository
	allocation    *AllocationService
	queue         repository.SyncQueueRepository

	mu sync.Mutex
}

// NewPaymentService creates a new payment service
func NewPaymentService(repo repository.PaymentRepository, companies repository.CompanyRepository, contracts repository.ContractRepository, distributions repository.DistributionRepository, allocation *AllocationService, queue repository.SyncQueueRepository) *PaymentService {
	return &PaymentService{
		repo:          repo,
		companies:     companies,
		contracts:     contracts,
		distributions: distributions,
		allocation:    allocation,
		queue:         queue,
	}
}

// PaymentInput is the payload for registering a payment
type PaymentInput struct {
	CompanyID  string     `json:"company_id"`
	ContractID *string    `json:"contract_id"`
	Scope      string     `json:"scope"`
	Amount     float64    `json:"amount"`
	Method     string     `json:"method"`
	Date       *time.Time `json:"date"`
}

// PaymentOutcome is what a payment creation returns: the stored payment and
// the allocation it produced.
type PaymentOutcome struct {
	Payment    models.Payment    `json:"payment"`
	Allocation *AllocationResult `json:"allocation"`
}

func (s *PaymentService) validate(ctx context.Context, input PaymentInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	switch input.Scope {
	case models.PaymentScopeSpecific:
		if input.ContractID == nil || *input.ContractID == "" {
			return fmt.Errorf("%w: specific payments require a contract", ErrValidation)
		}
	case models.PaymentScopeGlobal:
		if input.ContractID != nil {
			return fmt.Errorf("%w: global payments cannot target a contract", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: scope must be %q or %q", ErrValidation, models.PaymentScopeSpecific, models.PaymentScopeGlobal)
	}

	if _, err := s.companies.FindByID(ctx, input.CompanyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: company %s", ErrNotFound, input.CompanyID)
		}
		return fmt.Errorf("failed to load company: %w", err)
	}

	if input.ContractID != nil {
		if _, err := s.contracts.FindByID(ctx, *input.ContractID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contract %s", ErrNotFound, *input.ContractID)
			}
			return fmt.Errorf("failed to load contract: %w", err)
		}
	}

	return nil
}

// Create registers a payment and immediately allocates it against the
// outstanding certifications. The payment completes when it is fully
// applied: for global payments when the distributed total equals the amount
// within the epsilon, for specific payments when nothing was left over.
func (s *PaymentService) Create(ctx context.Context, input PaymentInput) (*PaymentOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	date := time.Now()
	if input.Date != nil {
		date = *input.Date
	}
	method := input.Method
	if method == "" {
		method = "transfer"
	}

	payment := &models.Payment{
		ID:          uuid.NewString(),
		CompanyID:   input.CompanyID,
		ContractID:  input.ContractID,
		Scope:       input.Scope,
		TotalAmount: roundCents(input.Amount),
		Method:      method,
		Date:        date,
		Status:      models.PaymentStatusPending,
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	if err := enqueueSync(ctx, s.queue, models.SyncActionInsert, TablePayments, payment.ID, payment); err != nil {
		return nil, err
	}

	var result *AllocationResult
	var err error
	if payment.IsSpecific() {
		result, err = s.allocation.AllocateSpecific(ctx, payment, *payment.ContractID, payment.TotalAmount)
	} else {
		result, err = s.allocation.AllocateGlobal(ctx, payment, payment.TotalAmount)
	}
	if err != nil {
		// Allocation refused before any write: remove the payment shell so
		// the failed operation leaves nothing behind.
		if revErr := s.allocation.Reverse(ctx, payment.ID); revErr != nil {
			logger.Error("failed to roll back payment after allocation error", "payment_id", payment.ID, "error", revErr)
		}
		return nil, err
	}

	completed := false
	if payment.IsSpecific() {
		completed = result.Leftover == 0 && len(result.Distributions) > 0
	} else {
		completed = math.Abs(result.Applied-payment.TotalAmount) <= models.AllocationEpsilon && len(result.Distributions) > 0
	}

	if completed {
		pfsm := statemachine.NewPaymentFSM(payment)
		if err := pfsm.Complete(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		if err := s.repo.Update(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to complete payment: %w", err)
		}
		if err := enqueueSync(ctx, s.queue, models.SyncActionUpdate, TablePayments, payment.ID, payment); err != nil {
			return nil, err
		}
	}

	if result.Leftover > 0 {
		logger.Warn("specific payment left an unapplied remainder",
			"payment_id", payment.ID, "leftover", result.Leftover)
	}

	return &PaymentOutcome{Payment: *payment, Allocation: result}, nil
}

// Get returns one payment with its distributions
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return payment, nil
}

// List returns payments, optionally filtered by company
func (s *PaymentService) List(ctx context.Context, companyID string) ([]models.Payment, error) {
	if companyID != "" {
		return s.repo.FindByCompany(ctx, companyID)
	}
	return s.repo.FindAll(ctx)
}

// Distributions returns the distribution lines of one payment
func (s *PaymentService) Distributions(ctx context.Context, paymentID string) ([]models.Distribution, error) {
	if _, err := s.Get(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.distributions.FindByPayment(ctx, paymentID)
}

// Delete reverses a payment's allocation and cancels it
func (s *PaymentService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allocation.Reverse(ctx, id)
}
