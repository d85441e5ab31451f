package repository

import (
	"context"

	"github.com/studiodans/dance-booking/internal/models"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, tpl *models.ClassTemplate) error
	FindByID(ctx context.Context, id uint) (*models.ClassTemplate, error)
	FindAll(ctx context.Context) ([]models.ClassTemplate, error)
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, tpl *models.ClassTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

func (r *templateRepository) FindByID(ctx context.Context, id uint) (*models.ClassTemplate, error) {
	var tpl models.ClassTemplate
	if err := r.db.WithContext(ctx).Preload("Slots").First(&tpl, id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) FindAll(ctx context.Context) ([]models.ClassTemplate, error) {
	var tpls []models.ClassTemplate
	if err := r.db.WithContext(ctx).Preload("Slots").Order("id ASC").Find(&tpls).Error; err != nil {
		return nil, err
	}
	return tpls, nil
}
