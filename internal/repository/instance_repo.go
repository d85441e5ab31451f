package repository

import (
	"context"
	"time"

	"github.com/studiodans/dance-booking/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstanceRepository persists class instances. Capacity mutations are
// conditional writes keyed on the remaining capacity observed at read time;
// a false return means another writer won the race and the caller should
// re-read and retry.
type InstanceRepository interface {
	CreateIfAbsent(ctx context.Context, inst *models.ClassInstance) (bool, error)
	FindByID(ctx context.Context, id uint) (*models.ClassInstance, error)
	FindByTemplateFrom(ctx context.Context, templateID uint, from time.Time) ([]models.ClassInstance, error)
	AdjustCapacity(ctx context.Context, tx *gorm.DB, id uint, expected, delta int) (bool, error)
	MarkCancelled(ctx context.Context, tx *gorm.DB, id uint, reason string) error
}

type instanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) InstanceRepository {
	return &instanceRepository{db: db}
}

// CreateIfAbsent inserts the instance unless one already exists for the same
// (template, start time), making schedule regeneration idempotent. Returns
// whether a row was actually inserted.
func (r *instanceRepository) CreateIfAbsent(ctx context.Context, inst *models.ClassInstance) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_id"}, {Name: "starts_at"}},
		DoNothing: true,
	}).Create(inst)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *instanceRepository) FindByID(ctx context.Context, id uint) (*models.ClassInstance, error) {
	var inst models.ClassInstance
	if err := r.db.WithContext(ctx).First(&inst, id).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

// FindByTemplateFrom returns the template's non-cancelled instances starting
// at or after from, ordered by start time.
func (r *instanceRepository) FindByTemplateFrom(ctx context.Context, templateID uint, from time.Time) ([]models.ClassInstance, error) {
	var insts []models.ClassInstance
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND starts_at >= ? AND cancelled = false", templateID, from).
		Order("starts_at ASC").
		Find(&insts).Error
	if err != nil {
		return nil, err
	}
	return insts, nil
}

// AdjustCapacity applies delta to remaining capacity only if the row still
// holds the expected value and the result stays within [0, capacity].
func (r *instanceRepository) AdjustCapacity(ctx context.Context, tx *gorm.DB, id uint, expected, delta int) (bool, error) {
	next := expected + delta
	result := tx.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id = ? AND remaining_capacity = ? AND cancelled = false", id, expected).
		Where("? >= 0 AND ? <= capacity", next, next).
		Update("remaining_capacity", next)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *instanceRepository) MarkCancelled(ctx context.Context, tx *gorm.DB, id uint, reason string) error {
	return tx.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id = ?", id).
		Updates(map[string]any{"cancelled": true, "cancellation_reason": reason}).Error
}
