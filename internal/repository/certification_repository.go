package repository

import (
	"context"

	"github.com/certia/certia-core/internal/models"
	"gorm.io/gorm"
)

// CertificationRepository defines the interface for certification data access
type CertificationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Certification, error)
	FindByContract(ctx context.Context, contractID string) ([]models.Certification, error)
	FindByContractAndPeriod(ctx context.Context, contractID string, year, month int) (*models.Certification, error)
	FindPendingByContract(ctx context.Context, contractID string) ([]models.Certification, error)
	FindAllPending(ctx context.Context) ([]models.Certification, error)
	CountByContract(ctx context.Context, contractID string) (int64, error)
	Create(ctx context.Context, cert *models.Certification) error
	Update(ctx context.Context, cert *models.Certification) error
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, cert *models.Certification) error
}

type certificationRepository struct {
	db *gorm.DB
}

// NewCertificationRepository creates a new certification repository
func NewCertificationRepository(db *gorm.DB) CertificationRepository {
	return &certificationRepository{db: db}
}

func (r *certificationRepository) FindByID(ctx context.Context, id string) (*models.Certification, error) {
	var cert models.Certification
	err := r.db.WithContext(ctx).First(&cert, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *certificationRepository) FindByContract(ctx context.Context, contractID string) ([]models.Certification, error) {
	var certs []models.Certification
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("year ASC, month ASC").
		Find(&certs).Error
	return certs, err
}

func (r *certificationRepository) FindByContractAndPeriod(ctx context.Context, contractID string, year, month int) (*models.Certification, error) {
	var cert models.Certification
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND year = ? AND month = ?", contractID, year, month).
		First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindPendingByContract returns unpaid certifications of one contract,
// oldest period first. This is the walk order of specific allocation.
func (r *certificationRepository) FindPendingByContract(ctx context.Context, contractID string) ([]models.Certification, error) {
	var certs []models.Certification
	err := r.db.WithContext(ctx).
		Where("contract_id = ? AND paid = ?", contractID, false).
		Order("year ASC, month ASC, id ASC").
		Find(&certs).Error
	return certs, err
}

// FindAllPending returns every unpaid certification in a stable order
// (period ascending, id as tiebreak). Global allocation depends on this
// order being deterministic.
func (r *certificationRepository) FindAllPending(ctx context.Context) ([]models.Certification, error) {
	var certs []models.Certification
	err := r.db.WithContext(ctx).
		Where("paid = ?", false).
		Order("year ASC, month ASC, id ASC").
		Find(&certs).Error
	return certs, err
}

func (r *certificationRepository) CountByContract(ctx context.Context, contractID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Certification{}).
		Where("contract_id = ?", contractID).
		Count(&count).Error
	return count, err
}

func (r *certificationRepository) Create(ctx context.Context, cert *models.Certification) error {
	return r.db.WithContext(ctx).Create(cert).Error
}

func (r *certificationRepository) Update(ctx context.Context, cert *models.Certification) error {
	return r.db.WithContext(ctx).Save(cert).Error
}

func (r *certificationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Certification{}, "id = ?", id).Error
}

func (r *certificationRepository) Upsert(ctx context.Context, cert *models.Certification) error {
	return r.db.WithContext(ctx).Save(cert).Error
}
