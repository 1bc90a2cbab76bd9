package services

import (
	"context"
	"testing"

	"github.com/certia/certia-core/internal/models"
	"github.com/stretchr/testify/assert"
)

// paymentFixture wires a payment service with its allocation engine over
// fresh fakes, pre-seeded with one company and one contract.
type paymentFixture struct {
	*allocationFixture
	companies *mockCompanyRepository
	contracts *mockContractRepository
	service   *PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		allocationFixture: newAllocationFixture(),
		companies:         newMockCompanyRepository(),
		contracts:         newMockContractRepository(),
	}
	f.service = NewPaymentService(f.pays, f.companies, f.contracts, f.dists, f.allocationFixture.service, f.queue)

	_ = f.companies.Create(context.Background(), &models.Company{ID: "co-1", Name: "Acme Construcciones"})
	_ = f.contracts.Create(context.Background(), &models.Contract{
		ID:                "contract-1",
		CompanyID:         "co-1",
		Code:              "OBR-2026-001",
		CommissionPercent: 10,
		Status:            models.ContractStatusActive,
	})
	return f
}

func strPtr(s string) *string { return &s }

func TestCreateSpecificPaymentCompletesWhenFullyApplied(t *testing.T) {
	f := newPaymentFixture()
	f.addCert("cert-1", "contract-1", 2026, 1, 100)
	f.addCert("cert-2", "contract-1", 2026, 2, 150)

	outcome, err := f.service.Create(context.Background(), PaymentInput{
		CompanyID:  "co-1",
		ContractID: strPtr("contract-1"),
		Scope:      models.PaymentScopeSpecific,
		Amount:     250,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, outcome.Payment.Status)
	assert.Equal(t, 250.0, outcome.Allocation.Applied)
	assert.Equal(t, 0.0, outcome.Allocation.Leftover)

	stored, _ := f.pays.FindByID(context.Background(), outcome.Payment.ID)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
}

func TestCreateSpecificPaymentWithLeftoverStaysPending(t *testing.T) {
	f := newPaymentFixture()
	f.addCert("cert-1", "contract-1", 2026, 1, 80)
	f.addCert("cert-2", "contract-1", 2026, 2, 120)

	outcome, err := f.service.Create(context.Background(), PaymentInput{
		CompanyID:  "co-1",
		ContractID: strPtr("contract-1"),
		Scope:      models.PaymentScopeSpecific,
		Amount:     150,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, outcome.Payment.Status)
	assert.Equal(t, 70.0, outcome.Allocation.Leftover)
}

func TestCreateGlobalPaymentPartialStaysPendingButApplies(t *testing.T) {
	f := newPaymentFixture()
	f.addCert("cert-1", "contract-1", 2026, 1, 100)
	f.addCert("cert-2", "contract-1", 2026, 2, 300)

	outcome, err := f.service.Create(context.Background(), PaymentInput{
		CompanyID: "co-1",
		Scope:     models.PaymentScopeGlobal,
		Amount:    200,
	})

	assert.NoError(t, err)
	// A global payment always applies in full; it completes because the
	// distributed total equals the amount even though nothing is settled.
	assert.Equal(t, models.PaymentStatusCompleted, outcome.Payment.Status)
	assert.Equal(t, 200.0, outcome.Allocation.Applied)
	assert.Len(t, outcome.Allocation.Distributions, 2)
}

func TestCreatePaymentScopeValidation(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.service.Create(context.Background(), PaymentInput{
		CompanyID: "co-1",
		Scope:     models.PaymentScopeSpecific,
		Amount:    100,
	})
	assert.ErrorIs(t, err, ErrValidation, "specific without contract")

	_, err = f.service.Create(context.Background(), PaymentInput{
		CompanyID:  "co-1",
		ContractID: strPtr("contract-1"),
		Scope:      models.PaymentScopeGlobal,
		Amount:     100,
	})
	assert.ErrorIs(t, err, ErrValidation, "global with contract")

	_, err = f.service.Create(context.Background(), PaymentInput{
		CompanyID: "co-1",
		Scope:     "partial",
		Amount:    100,
	})
	assert.ErrorIs(t, err, ErrValidation, "unknown scope")

	_, err = f.service.Create(context.Background(), PaymentInput{
		CompanyID: "co-1",
		Scope:     models.PaymentScopeGlobal,
		Amount:    -5,
	})
	assert.ErrorIs(t, err, ErrValidation, "negative amount")
}

func TestCreatePaymentUnknownCompany(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.service.Create(context.Background(), PaymentInput{
		CompanyID: "ghost",
		Scope:     models.PaymentScopeGlobal,
		Amount:    100,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePaymentRollsBackShellWhenAllocationRefuses(t *testing.T) {
	f := newPaymentFixture()
	// No pending certifications anywhere

	_, err := f.service.Create(context.Background(), PaymentInput{
		CompanyID:  "co-1",
		ContractID: strPtr("contract-1"),
		Scope:      models.PaymentScopeSpecific,
		Amount:     100,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// The payment shell must not survive as a live pending payment
	for _, p := range f.pays.payments {
		assert.Equal(t, models.PaymentStatusCancelled, p.Status)
	}
}

func TestDeletePaymentReversesAllocation(t *testing.T) {
	f := newPaymentFixture()
	f.addCert("cert-1", "contract-1", 2026, 1, 100)

	outcome, err := f.service.Create(context.Background(), PaymentInput{
		CompanyID:  "co-1",
		ContractID: strPtr("contract-1"),
		Scope:      models.PaymentScopeSpecific,
		Amount:     100,
	})
	assert.NoError(t, err)

	assert.NoError(t, f.service.Delete(context.Background(), outcome.Payment.ID))

	cert, _ := f.certs.FindByID(context.Background(), "cert-1")
	assert.False(t, cert.Paid)

	stored, _ := f.pays.FindByID(context.Background(), outcome.Payment.ID)
	assert.Equal(t, models.PaymentStatusCancelled, stored.Status)
}

func TestPaymentMutationsReachTheSyncQueue(t *testing.T) {
	f := newPaymentFixture()
	f.addCert("cert-1", "contract-1", 2026, 1, 100)

	outcome, err := f.service.Create(context.Background(), PaymentInput{
		CompanyID:  "co-1",
		ContractID: strPtr("contract-1"),
		Scope:      models.PaymentScopeSpecific,
		Amount:     100,
	})
	assert.NoError(t, err)

	// payment insert, distribution insert, certification update, payment
	// completion update
	assert.Len(t, f.queue.items, 4)
	assert.Equal(t, TablePayments, f.queue.items[0].Table)
	assert.Equal(t, models.SyncActionInsert, f.queue.items[0].Action)
	assert.Equal(t, outcome.Payment.ID, f.queue.items[0].RecordID)
	assert.Equal(t, models.SyncActionUpdate, f.queue.items[3].Action)
	assert.Equal(t, TablePayments, f.queue.items[3].Table)
}
