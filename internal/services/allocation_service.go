package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/certia/certia-core/internal/statemachine"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// roundCents rounds a currency amount to two decimals
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// AllocationResult reports what an allocation did. Leftover is the part of a
// specific payment that could not be applied because the next obligation was
// larger than what remained; it is reported, never silently dropped, and
// never partially applied.
type AllocationResult struct {
	Distributions []models.Distribution `json:"distributions"`
	Applied       float64               `json:"applied"`
	Leftover      float64               `json:"leftover"`
}

// AllocationService distributes payment amounts across outstanding
// commission obligations and reverses them without residue. All decisions
// are computed in memory first; writes only start once the whole allocation
// is known to be valid.
type AllocationService struct {
	certifications repository.CertificationRepository
	distributions  repository.DistributionRepository
	payments       repository.PaymentRepository
	queue          repository.SyncQueueRepository
}

// NewAllocationService creates a new allocation service
func NewAllocationService(certifications repository.CertificationRepository, distributions repository.DistributionRepository, payments repository.PaymentRepository, queue repository.SyncQueueRepository) *AllocationService {
	return &AllocationService{
		certifications: certifications,
		distributions:  distributions,
		payments:       payments,
		queue:          queue,
	}
}

// assignment is one planned allocation line before anything is written
type assignment struct {
	cert     models.Certification
	assigned float64
	percent  float64
	paid     bool
}

// AllocateSpecific settles the unpaid certifications of one contract oldest
// first, full amounts only. The first certification the remaining amount
// cannot fully cover stops the walk; what is left is returned as Leftover.
func (s *AllocationService) AllocateSpecific(ctx context.Context, payment *models.Payment, contractID string, amount float64) (*AllocationResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	certs, err := s.certifications.FindPendingByContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending certifications: %w", err)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: contract %s has no pending certifications", ErrNotFound, contractID)
	}

	remaining := roundCents(amount)
	var plan []assignment
	for _, cert := range certs {
		owed := roundCents(cert.OwedCommission())
		if owed <= 0 {
			continue
		}
		if remaining+models.AllocationEpsilon < owed {
			break
		}
		plan = append(plan, assignment{
			cert:     cert,
			assigned: owed,
			percent:  roundPercent(owed / amount * 100),
			paid:     true,
		})
		remaining = roundCents(remaining - owed)
	}

	result, err := s.commit(ctx, payment, plan)
	if err != nil {
		return nil, err
	}
	result.Leftover = remaining
	return result, nil
}

// AllocateGlobal distributes an amount proportionally over every unpaid
// certification. Each certification receives amount * owed/P rounded to
// cents; the rounding residual is folded into the last line so the
// distributed total matches the amount exactly. A certification is marked
// paid only when its line covers its owed commission within the epsilon.
func (s *AllocationService) AllocateGlobal(ctx context.Context, payment *models.Payment, amount float64) (*AllocationResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	certs, err := s.certifications.FindAllPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending certifications: %w", err)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no pending certifications", ErrNotFound)
	}

	var totalOwed float64
	for _, cert := range certs {
		totalOwed += roundCents(cert.OwedCommission())
	}
	totalOwed = roundCents(totalOwed)
	if totalOwed == 0 {
		return &AllocationResult{}, nil
	}

	remaining := roundCents(amount)
	var plan []assignment
	for i, cert := range certs {
		owed := roundCents(cert.OwedCommission())
		assigned := roundCents(amount * owed / totalOwed)
		if assigned > remaining {
			assigned = remaining
		}
		if i == len(certs)-1 {
			// Fold the rounding residual into the last line. Anything beyond
			// the epsilon is not rounding noise and aborts before any write.
			if math.Abs(remaining-assigned) > models.AllocationEpsilon {
				return nil, fmt.Errorf("%w: unassigned residual %.2f exceeds tolerance", ErrIntegrity, remaining-assigned)
			}
			assigned = remaining
		}
		if assigned <= 0 {
			continue
		}
		plan = append(plan, assignment{
			cert:     cert,
			assigned: assigned,
			percent:  roundPercent(assigned / amount * 100),
			paid:     assigned >= owed-models.AllocationEpsilon,
		})
		remaining = roundCents(remaining - assigned)
	}

	return s.commit(ctx, payment, plan)
}

// commit writes a planned allocation: one distribution per line, the
// certification state updates, and a sync queue item for each write. Each
// write is atomic for its own collection only; the plan is re-runnable if a
// crash interrupts it, because Reverse restores any partial state.
func (s *AllocationService) commit(ctx context.Context, payment *models.Payment, plan []assignment) (*AllocationResult, error) {
	result := &AllocationResult{}

	for _, line := range plan {
		dist := models.Distribution{
			ID:              uuid.NewString(),
			PaymentID:       payment.ID,
			ContractID:      line.cert.ContractID,
			CertificationID: line.cert.ID,
			AssignedAmount:  line.assigned,
			AssignedPercent: line.percent,
		}
		if err := s.distributions.Create(ctx, &dist); err != nil {
			return nil, fmt.Errorf("failed to create distribution: %w", err)
		}
		if err := enqueueSync(ctx, s.queue, models.SyncActionInsert, TableDistributions, dist.ID, dist); err != nil {
			return nil, err
		}

		if line.paid {
			cert := line.cert
			cert.Paid = true
			cert.PaymentID = &payment.ID
			if err := s.certifications.Update(ctx, &cert); err != nil {
				return nil, fmt.Errorf("failed to mark certification paid: %w", err)
			}
			if err := enqueueSync(ctx, s.queue, models.SyncActionUpdate, TableCertifications, cert.ID, cert); err != nil {
				return nil, err
			}
		}

		result.Distributions = append(result.Distributions, dist)
		result.Applied = roundCents(result.Applied + line.assigned)
	}

	return result, nil
}

// Reverse undoes everything a payment's allocation produced: every touched
// certification returns to unpaid, its distributions are removed, and the
// payment is cancelled. Reversing an already-cancelled payment is a no-op,
// which makes the operation safe to re-run after a partial crash.
func (s *AllocationService) Reverse(ctx context.Context, paymentID string) error {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
		}
		return fmt.Errorf("failed to load payment: %w", err)
	}

	if payment.Status == models.PaymentStatusCancelled {
		return nil
	}

	dists, err := s.distributions.FindByPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to load distributions: %w", err)
	}

	for _, dist := range dists {
		cert, err := s.certifications.FindByID(ctx, dist.CertificationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fmt.Errorf("failed to load certification: %w", err)
		}

		// Only reset a certification this payment settled; one another
		// payment touched in the interim is a conflict this engine does not
		// resolve.
		if cert.PaymentID == nil || *cert.PaymentID == paymentID {
			cert.Paid = false
			cert.PaymentID = nil
			if err := s.certifications.Update(ctx, cert); err != nil {
				return fmt.Errorf("failed to reset certification: %w", err)
			}
			if err := enqueueSync(ctx, s.queue, models.SyncActionUpdate, TableCertifications, cert.ID, cert); err != nil {
				return err
			}
		}

		if err := s.distributions.Delete(ctx, dist.ID); err != nil {
			return fmt.Errorf("failed to delete distribution: %w", err)
		}
		if err := enqueueSync(ctx, s.queue, models.SyncActionDelete, TableDistributions, dist.ID, nil); err != nil {
			return err
		}
	}

	pfsm := statemachine.NewPaymentFSM(payment)
	if err := pfsm.Cancel(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if err := s.payments.Update(ctx, payment); err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}

	return enqueueSync(ctx, s.queue, models.SyncActionUpdate, TablePayments, payment.ID, payment)
}

// roundPercent rounds a percentage to four decimals
func roundPercent(v float64) float64 {
	return math.Round(v*10000) / 10000
}
