package repository

import (
	"context"

	"github.com/studiodans/dance-booking/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntitlementRepository persists pass entitlements. Clip mutations follow the
// same conditional-write discipline as instance capacity.
type EntitlementRepository interface {
	CreateIfAbsent(ctx context.Context, e *models.Entitlement) (bool, error)
	FindByID(ctx context.Context, id uint) (*models.Entitlement, error)
	FindByPurchaseRef(ctx context.Context, ref string) (*models.Entitlement, error)
	FindByUser(ctx context.Context, userID string) ([]models.Entitlement, error)
	SetClips(ctx context.Context, tx *gorm.DB, id uint, expected, next int, status models.EntitlementStatus) (bool, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.EntitlementStatus) error
}

type entitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) EntitlementRepository {
	return &entitlementRepository{db: db}
}

// CreateIfAbsent inserts the entitlement unless its purchase ref was already
// recorded. A false return means a retried payment delivery hit an existing
// row; read it back with FindByPurchaseRef.
func (r *entitlementRepository) CreateIfAbsent(ctx context.Context, e *models.Entitlement) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "purchase_ref"}},
		DoNothing: true,
	}).Create(e)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *entitlementRepository) FindByID(ctx context.Context, id uint) (*models.Entitlement, error) {
	var e models.Entitlement
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entitlementRepository) FindByPurchaseRef(ctx context.Context, ref string) (*models.Entitlement, error) {
	var e models.Entitlement
	if err := r.db.WithContext(ctx).Where("purchase_ref = ?", ref).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entitlementRepository) FindByUser(ctx context.Context, userID string) ([]models.Entitlement, error) {
	var es []models.Entitlement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&es).Error
	if err != nil {
		return nil, err
	}
	return es, nil
}

// SetClips moves remaining clips from expected to next, recomputing status in
// the same write, only if the row still holds the expected count.
func (r *entitlementRepository) SetClips(ctx context.Context, tx *gorm.DB, id uint, expected, next int, status models.EntitlementStatus) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&models.Entitlement{}).
		Where("id = ? AND remaining_clips = ?", id, expected).
		Updates(map[string]any{"remaining_clips": next, "status": status})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *entitlementRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.EntitlementStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Entitlement{}).
		Where("id = ?", id).
		Update("status", status).Error
}
