package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/certia/certia-core/internal/models"
	"github.com/certia/certia-core/internal/repository"
	"github.com/certia/certia-core/pkg/logger"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Setup("development")
	os.Exit(m.Run())
}

// In-memory fakes backing the service tests. They keep insertion order so
// "oldest first" assertions stay deterministic without a real database.

type mockCompanyRepository struct {
	repository.CompanyRepository
	companies map[string]*models.Company
}

func newMockCompanyRepository() *mockCompanyRepository {
	return &mockCompanyRepository{companies: map[string]*models.Company{}}
}

func (m *mockCompanyRepository) FindByID(ctx context.Context, id string) (*models.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCompanyRepository) Create(ctx context.Context, company *models.Company) error {
	cp := *company
	m.companies[company.ID] = &cp
	return nil
}

func (m *mockCompanyRepository) Update(ctx context.Context, company *models.Company) error {
	cp := *company
	m.companies[company.ID] = &cp
	return nil
}

func (m *mockCompanyRepository) Delete(ctx context.Context, id string) error {
	delete(m.companies, id)
	return nil
}

type mockContractRepository struct {
	repository.ContractRepository
	contracts map[string]*models.Contract
}

func newMockContractRepository() *mockContractRepository {
	return &mockContractRepository{contracts: map[string]*models.Contract{}}
}

func (m *mockContractRepository) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	c, ok := m.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	cp := *contract
	m.contracts[contract.ID] = &cp
	return nil
}

type mockCertificationRepository struct {
	repository.CertificationRepository
	certs map[string]*models.Certification
	order []string
}

func newMockCertificationRepository() *mockCertificationRepository {
	return &mockCertificationRepository{certs: map[string]*models.Certification{}}
}

func (m *mockCertificationRepository) FindByID(ctx context.Context, id string) (*models.Certification, error) {
	c, ok := m.certs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCertificationRepository) FindByContract(ctx context.Context, contractID string) ([]models.Certification, error) {
	var out []models.Certification
	for _, id := range m.order {
		if c := m.certs[id]; c != nil && c.ContractID == contractID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCertificationRepository) FindByContractAndPeriod(ctx context.Context, contractID string, year, month int) (*models.Certification, error) {
	for _, id := range m.order {
		if c := m.certs[id]; c != nil && c.ContractID == contractID && c.Year == year && c.Month == month {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCertificationRepository) FindPendingByContract(ctx context.Context, contractID string) ([]models.Certification, error) {
	var out []models.Certification
	for _, id := range m.order {
		if c := m.certs[id]; c != nil && c.ContractID == contractID && !c.Paid {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCertificationRepository) FindAllPending(ctx context.Context) ([]models.Certification, error) {
	var out []models.Certification
	for _, id := range m.order {
		if c := m.certs[id]; c != nil && !c.Paid {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCertificationRepository) CountByContract(ctx context.Context, contractID string) (int64, error) {
	var count int64
	for _, id := range m.order {
		if c := m.certs[id]; c != nil && c.ContractID == contractID {
			count++
		}
	}
	return count, nil
}

func (m *mockCertificationRepository) Create(ctx context.Context, cert *models.Certification) error {
	cp := *cert
	m.certs[cert.ID] = &cp
	m.order = append(m.order, cert.ID)
	return nil
}

func (m *mockCertificationRepository) Update(ctx context.Context, cert *models.Certification) error {
	cp := *cert
	m.certs[cert.ID] = &cp
	return nil
}

func (m *mockCertificationRepository) Delete(ctx context.Context, id string) error {
	delete(m.certs, id)
	return nil
}

type mockPaymentRepository struct {
	repository.PaymentRepository
	payments map[string]*models.Payment
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{payments: map[string]*models.Payment{}}
}

func (m *mockPaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

func (m *mockPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	cp := *payment
	m.payments[payment.ID] = &cp
	return nil
}

type mockDistributionRepository struct {
	repository.DistributionRepository
	dists []models.Distribution
}

func newMockDistributionRepository() *mockDistributionRepository {
	return &mockDistributionRepository{}
}

func (m *mockDistributionRepository) FindByPayment(ctx context.Context, paymentID string) ([]models.Distribution, error) {
	var out []models.Distribution
	for _, d := range m.dists {
		if d.PaymentID == paymentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDistributionRepository) Create(ctx context.Context, dist *models.Distribution) error {
	m.dists = append(m.dists, *dist)
	return nil
}

func (m *mockDistributionRepository) Delete(ctx context.Context, id string) error {
	for i, d := range m.dists {
		if d.ID == id {
			m.dists = append(m.dists[:i], m.dists[i+1:]...)
			return nil
		}
	}
	return nil
}

type mockSyncQueueRepository struct {
	repository.SyncQueueRepository
	items  []models.SyncQueueItem
	nextID uint
}

func newMockSyncQueueRepository() *mockSyncQueueRepository {
	return &mockSyncQueueRepository{}
}

func (m *mockSyncQueueRepository) Enqueue(ctx context.Context, action, table, recordID, payload string) (*models.SyncQueueItem, error) {
	m.nextID++
	item := models.SyncQueueItem{
		ID:        m.nextID,
		Action:    action,
		Table:     table,
		RecordID:  recordID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	m.items = append(m.items, item)
	return &item, nil
}

func (m *mockSyncQueueRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	for _, item := range m.items {
		if !item.Processed {
			count++
		}
	}
	return count, nil
}

// allocationFixture wires an allocation service over fresh fakes
type allocationFixture struct {
	certs   *mockCertificationRepository
	dists   *mockDistributionRepository
	pays    *mockPaymentRepository
	queue   *mockSyncQueueRepository
	service *AllocationService
}

func newAllocationFixture() *allocationFixture {
	f := &allocationFixture{
		certs: newMockCertificationRepository(),
		dists: newMockDistributionRepository(),
		pays:  newMockPaymentRepository(),
		queue: newMockSyncQueueRepository(),
	}
	f.service = NewAllocationService(f.certs, f.dists, f.pays, f.queue)
	return f
}

func (f *allocationFixture) addCert(id, contractID string, year, month int, commission float64) {
	_ = f.certs.Create(context.Background(), &models.Certification{
		ID:                 id,
		ContractID:         contractID,
		Year:               year,
		Month:              month,
		CertifiedAmount:    commission * 10,
		CommissionPercent:  10,
		ComputedCommission: commission,
	})
}
