package repository

import (
	"context"
	"errors"
	"time"

	"github.com/certia/certia-core/internal/models"
	"gorm.io/gorm"
)

// SyncQueueRepository defines the interface for the append-only mutation log
type SyncQueueRepository interface {
	Enqueue(ctx context.Context, action, table, recordID, payload string) (*models.SyncQueueItem, error)
	DrainPending(ctx context.Context, limit int) ([]models.SyncQueueItem, error)
	MarkProcessed(ctx context.Context, id uint) error
	IncrementAttempts(ctx context.Context, id uint) error
	PurgeProcessedOlderThan(ctx context.Context, retention time.Duration) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

type syncQueueRepository struct {
	db *gorm.DB
}

// NewSyncQueueRepository creates a new sync queue repository
func NewSyncQueueRepository(db *gorm.DB) SyncQueueRepository {
	return &syncQueueRepository{db: db}
}

func (r *syncQueueRepository) Enqueue(ctx context.Context, action, table, recordID, payload string) (*models.SyncQueueItem, error) {
	item := &models.SyncQueueItem{
		Action:   action,
		Table:    table,
		RecordID: recordID,
		Payload:  payload,
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// DrainPending returns unprocessed items oldest first. The id tiebreak keeps
// the order stable when several items share a created_at timestamp.
func (r *syncQueueRepository) DrainPending(ctx context.Context, limit int) ([]models.SyncQueueItem, error) {
	var items []models.SyncQueueItem
	q := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&items).Error
	return items, err
}

func (r *syncQueueRepository) MarkProcessed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncQueueItem{}).
		Where("id = ?", id).
		Update("processed", true).Error
}

func (r *syncQueueRepository) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncQueueItem{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}

func (r *syncQueueRepository) PurgeProcessedOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := r.db.WithContext(ctx).
		Where("processed = ? AND created_at < ?", true, cutoff).
		Delete(&models.SyncQueueItem{})
	return res.RowsAffected, res.Error
}

func (r *syncQueueRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SyncQueueItem{}).
		Where("processed = ?", false).
		Count(&count).Error
	return count, err
}

// ConflictRepository defines the interface for pending-conflict data access
type ConflictRepository interface {
	FindByID(ctx context.Context, id uint) (*models.SyncConflict, error)
	FindPending(ctx context.Context) ([]models.SyncConflict, error)
	Create(ctx context.Context, conflict *models.SyncConflict) error
	Update(ctx context.Context, conflict *models.SyncConflict) error
	HasPendingFor(ctx context.Context, table, recordID string) (bool, error)
}

type conflictRepository struct {
	db *gorm.DB
}

// NewConflictRepository creates a new conflict repository
func NewConflictRepository(db *gorm.DB) ConflictRepository {
	return &conflictRepository{db: db}
}

func (r *conflictRepository) FindByID(ctx context.Context, id uint) (*models.SyncConflict, error) {
	var conflict models.SyncConflict
	err := r.db.WithContext(ctx).First(&conflict, id).Error
	if err != nil {
		return nil, err
	}
	return &conflict, nil
}

func (r *conflictRepository) FindPending(ctx context.Context) ([]models.SyncConflict, error) {
	var conflicts []models.SyncConflict
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ConflictStatusPending).
		Order("created_at ASC").
		Find(&conflicts).Error
	return conflicts, err
}

func (r *conflictRepository) Create(ctx context.Context, conflict *models.SyncConflict) error {
	return r.db.WithContext(ctx).Create(conflict).Error
}

func (r *conflictRepository) Update(ctx context.Context, conflict *models.SyncConflict) error {
	return r.db.WithContext(ctx).Save(conflict).Error
}

func (r *conflictRepository) HasPendingFor(ctx context.Context, table, recordID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SyncConflict{}).
		Where("\"table\" = ? AND record_id = ? AND status = ?", table, recordID, models.ConflictStatusPending).
		Count(&count).Error
	return count > 0, err
}

// IDMappingRepository defines the interface for local-to-remote id mappings
type IDMappingRepository interface {
	Record(ctx context.Context, table, localID, remoteID string) error
	RemoteID(ctx context.Context, table, localID string) (string, error)
	LocalID(ctx context.Context, table, remoteID string) (string, error)
}

type idMappingRepository struct {
	db *gorm.DB
}

// NewIDMappingRepository creates a new id mapping repository
func NewIDMappingRepository(db *gorm.DB) IDMappingRepository {
	return &idMappingRepository{db: db}
}

// Record stores a mapping once; re-recording the same pair is a no-op so
// that replayed pushes stay idempotent.
func (r *idMappingRepository) Record(ctx context.Context, table, localID, remoteID string) error {
	var existing models.IDMapping
	err := r.db.WithContext(ctx).
		Where("\"table\" = ? AND local_id = ?", table, localID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(&models.IDMapping{
		Table:    table,
		LocalID:  localID,
		RemoteID: remoteID,
	}).Error
}

func (r *idMappingRepository) RemoteID(ctx context.Context, table, localID string) (string, error) {
	var mapping models.IDMapping
	err := r.db.WithContext(ctx).
		Where("\"table\" = ? AND local_id = ?", table, localID).
		First(&mapping).Error
	if err != nil {
		return "", err
	}
	return mapping.RemoteID, nil
}

func (r *idMappingRepository) LocalID(ctx context.Context, table, remoteID string) (string, error) {
	var mapping models.IDMapping
	err := r.db.WithContext(ctx).
		Where("\"table\" = ? AND remote_id = ?", table, remoteID).
		First(&mapping).Error
	if err != nil {
		return "", err
	}
	return mapping.LocalID, nil
}
