package repository

import (
	"context"

	"github.com/studiodans/dance-booking/internal/models"
	"gorm.io/gorm"
)

type PassRepository interface {
	Create(ctx context.Context, pass *models.Pass) error
	FindByID(ctx context.Context, id uint) (*models.Pass, error)
	FindAll(ctx context.Context) ([]models.Pass, error)
}

type passRepository struct {
	db *gorm.DB
}

func NewPassRepository(db *gorm.DB) PassRepository {
	return &passRepository{db: db}
}

func (r *passRepository) Create(ctx context.Context, pass *models.Pass) error {
	return r.db.WithContext(ctx).Create(pass).Error
}

func (r *passRepository) FindByID(ctx context.Context, id uint) (*models.Pass, error) {
	var pass models.Pass
	if err := r.db.WithContext(ctx).First(&pass, id).Error; err != nil {
		return nil, err
	}
	return &pass, nil
}

func (r *passRepository) FindAll(ctx context.Context) ([]models.Pass, error) {
	var passes []models.Pass
	if err := r.db.WithContext(ctx).Order("price ASC").Find(&passes).Error; err != nil {
		return nil, err
	}
	return passes, nil
}
