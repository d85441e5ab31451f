package repository

import (
	"context"

	"github.com/studiodans/dance-booking/internal/models"
	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindActiveByUserAndInstance(ctx context.Context, userID string, instanceID uint) (*models.Booking, error)
	FindActiveByInstance(ctx context.Context, instanceID uint) ([]models.Booking, error)
	CountActiveByInstance(ctx context.Context, instanceID uint) (int64, error)
	MarkCancelled(ctx context.Context, tx *gorm.DB, id uint) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindActiveByUserAndInstance(ctx context.Context, userID string, instanceID uint) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND instance_id = ? AND status <> ?", userID, instanceID, models.StatusCancelled).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindActiveByInstance(ctx context.Context, instanceID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND status <> ?", instanceID, models.StatusCancelled).
		Order("id ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) CountActiveByInstance(ctx context.Context, instanceID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("instance_id = ? AND status <> ?", instanceID, models.StatusCancelled).
		Count(&count).Error
	return count, err
}

func (r *bookingRepository) MarkCancelled(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("status", models.StatusCancelled).Error
}
