package repository

import (
	"context"

	"github.com/certia/certia-core/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	FindByCompany(ctx context.Context, companyID string) ([]models.Payment, error)
	FindAll(ctx context.Context) ([]models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, payment *models.Payment) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Distributions").
		First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByCompany(ctx context.Context, companyID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Preload("Distributions").
		Order("date DESC, created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) FindAll(ctx context.Context) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Preload("Distributions").
		Order("date DESC, created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Payment{}, "id = ?", id).Error
}

func (r *paymentRepository) Upsert(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// DistributionRepository defines the interface for distribution data access
type DistributionRepository interface {
	FindByPayment(ctx context.Context, paymentID string) ([]models.Distribution, error)
	FindByContract(ctx context.Context, contractID string) ([]models.Distribution, error)
	Create(ctx context.Context, dist *models.Distribution) error
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, dist *models.Distribution) error
}

type distributionRepository struct {
	db *gorm.DB
}

// NewDistributionRepository creates a new distribution repository
func NewDistributionRepository(db *gorm.DB) DistributionRepository {
	return &distributionRepository{db: db}
}

func (r *distributionRepository) FindByPayment(ctx context.Context, paymentID string) ([]models.Distribution, error) {
	var dists []models.Distribution
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC, id ASC").
		Find(&dists).Error
	return dists, err
}

func (r *distributionRepository) FindByContract(ctx context.Context, contractID string) ([]models.Distribution, error) {
	var dists []models.Distribution
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC, id ASC").
		Find(&dists).Error
	return dists, err
}

func (r *distributionRepository) Create(ctx context.Context, dist *models.Distribution) error {
	return r.db.WithContext(ctx).Create(dist).Error
}

func (r *distributionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Distribution{}, "id = ?", id).Error
}

func (r *distributionRepository) Upsert(ctx context.Context, dist *models.Distribution) error {
	return r.db.WithContext(ctx).Save(dist).Error
}
