package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studiodans/dance-booking/internal/models"
	"github.com/studiodans/dance-booking/internal/repository"
	"github.com/studiodans/dance-booking/internal/schedule"
	"gorm.io/gorm"
)

// ScheduleService drives the pure expander and persists the resulting
// instances. Expansion is idempotent: an occurrence whose instance already
// exists is skipped, so a failed run can simply be re-invoked.
type ScheduleService interface {
	CreateTemplate(ctx context.Context, tpl *models.ClassTemplate) error
	GetTemplate(ctx context.Context, id uint) (*models.ClassTemplate, error)
	ListTemplates(ctx context.Context) ([]models.ClassTemplate, error)
	ExpandTemplate(ctx context.Context, templateID uint) ([]models.ClassInstance, error)
	GetInstance(ctx context.Context, id uint) (*models.ClassInstance, error)
	ListInstances(ctx context.Context, templateID uint, from time.Time) ([]models.ClassInstance, error)
}

type scheduleService struct {
	templates repository.TemplateRepository
	instances repository.InstanceRepository
}

func NewScheduleService(templates repository.TemplateRepository, instances repository.InstanceRepository) ScheduleService {
	return &scheduleService{templates: templates, instances: instances}
}

func (s *scheduleService) CreateTemplate(ctx context.Context, tpl *models.ClassTemplate) error {
	// Dry-run expansion validates the window and slots before anything is
	// stored.
	if _, err := schedule.Expand(tpl); err != nil {
		return err
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (s *scheduleService) GetTemplate(ctx context.Context, id uint) (*models.ClassTemplate, error) {
	tpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

func (s *scheduleService) ListTemplates(ctx context.Context) ([]models.ClassTemplate, error) {
	return s.templates.FindAll(ctx)
}

// ExpandTemplate materializes the template's occurrences as bookable
// instances and returns only the newly created ones.
func (s *scheduleService) ExpandTemplate(ctx context.Context, templateID uint) ([]models.ClassInstance, error) {
	tpl, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	occurrences, err := schedule.Expand(tpl)
	if err != nil {
		return nil, err
	}

	created := make([]models.ClassInstance, 0, len(occurrences))
	for _, occ := range occurrences {
		inst := models.ClassInstance{
			TemplateID:        tpl.ID,
			StartsAt:          occ.StartsAt,
			EndsAt:            occ.EndsAt,
			Capacity:          tpl.Capacity,
			RemainingCapacity: tpl.Capacity,
		}
		inserted, err := s.instances.CreateIfAbsent(ctx, &inst)
		if err != nil {
			// Instances written so far stay; re-running the expansion picks
			// up where this one stopped.
			return created, fmt.Errorf("create instance at %s: %w", occ.StartsAt, err)
		}
		if inserted {
			created = append(created, inst)
		}
	}
	return created, nil
}

func (s *scheduleService) GetInstance(ctx context.Context, id uint) (*models.ClassInstance, error) {
	inst, err := s.instances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	return inst, nil
}

func (s *scheduleService) ListInstances(ctx context.Context, templateID uint, from time.Time) ([]models.ClassInstance, error) {
	return s.instances.FindByTemplateFrom(ctx, templateID, from)
}
