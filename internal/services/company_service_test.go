package services

import (
	"context"
	"testing"

	"github.com/certia/certia-core/internal/models"
	"github.com/stretchr/testify/assert"
)

type mockContractRepoWithCompany struct {
	*mockContractRepository
}

func (m *mockContractRepoWithCompany) FindByCompany(ctx context.Context, companyID string) ([]models.Contract, error) {
	var out []models.Contract
	for _, c := range m.contracts {
		if c.CompanyID == companyID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func newCompanyFixture() (*CompanyService, *mockCompanyRepository, *mockContractRepoWithCompany, *mockSyncQueueRepository) {
	companies := newMockCompanyRepository()
	contracts := &mockContractRepoWithCompany{mockContractRepository: newMockContractRepository()}
	queue := newMockSyncQueueRepository()
	return NewCompanyService(companies, contracts, queue), companies, contracts, queue
}

func TestCreateCompanyQueuesInsert(t *testing.T) {
	svc, _, _, queue := newCompanyFixture()

	company, err := svc.Create(context.Background(), CompanyInput{Name: "  Acme Construcciones  "})

	assert.NoError(t, err)
	assert.NotEmpty(t, company.ID)
	assert.Equal(t, "Acme Construcciones", company.Name)

	assert.Len(t, queue.items, 1)
	assert.Equal(t, models.SyncActionInsert, queue.items[0].Action)
	assert.Equal(t, TableCompanies, queue.items[0].Table)
	assert.Equal(t, company.ID, queue.items[0].RecordID)
}

func TestCreateCompanyRequiresName(t *testing.T) {
	svc, _, _, _ := newCompanyFixture()

	_, err := svc.Create(context.Background(), CompanyInput{Name: "   "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteCompanyWithContractsIsRefused(t *testing.T) {
	svc, _, contracts, _ := newCompanyFixture()

	company, err := svc.Create(context.Background(), CompanyInput{Name: "Acme"})
	assert.NoError(t, err)

	_ = contracts.Create(context.Background(), &models.Contract{
		ID: "ct-1", CompanyID: company.ID, Code: "OBR-1",
	})

	err = svc.Delete(context.Background(), company.ID)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteCompanyQueuesDeletion(t *testing.T) {
	svc, _, _, queue := newCompanyFixture()

	company, err := svc.Create(context.Background(), CompanyInput{Name: "Acme"})
	assert.NoError(t, err)

	assert.NoError(t, svc.Delete(context.Background(), company.ID))

	last := queue.items[len(queue.items)-1]
	assert.Equal(t, models.SyncActionDelete, last.Action)
	assert.Equal(t, company.ID, last.RecordID)
	assert.Empty(t, last.Payload)
}

func TestGetCompanyNotFound(t *testing.T) {
	svc, _, _, _ := newCompanyFixture()

	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
