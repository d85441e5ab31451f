package dto

import (
	"time"

	"github.com/studiodans/dance-booking/internal/models"
)

type WeeklySlotRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required,len=5"`
	EndTime   string `json:"end_time" validate:"required,len=5"`
}

type CreateTemplateRequest struct {
	Name      string              `json:"name" validate:"required"`
	Capacity  int                 `json:"capacity" validate:"required,gt=0"`
	Recurring bool                `json:"recurring"`
	StartDate time.Time           `json:"start_date" validate:"required_if=Recurring true"`
	EndDate   time.Time           `json:"end_date" validate:"required_if=Recurring true"`
	StartsAt  *time.Time          `json:"starts_at,omitempty"`
	Slots     []WeeklySlotRequest `json:"slots" validate:"dive"`
}

func (r *CreateTemplateRequest) ToModel() *models.ClassTemplate {
	tpl := &models.ClassTemplate{
		Name:      r.Name,
		Capacity:  r.Capacity,
		Recurring: r.Recurring,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		StartsAt:  r.StartsAt,
	}
	for _, s := range r.Slots {
		tpl.Slots = append(tpl.Slots, models.WeeklySlot{
			DayOfWeek: time.Weekday(s.DayOfWeek),
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
		})
	}
	return tpl
}

type CreateBookingRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type CancelInstanceRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type CancelSeriesRequest struct {
	From   time.Time `json:"from" validate:"required"`
	Reason string    `json:"reason" validate:"required"`
}

type CreatePassRequest struct {
	Name         string     `json:"name" validate:"required"`
	Kind         string     `json:"kind" validate:"required,oneof=single clipcard unlimited"`
	ClassesLimit *int       `json:"classes_limit,omitempty" validate:"omitempty,gt=0"`
	Price        float64    `json:"price" validate:"gte=0"`
	ValidityDays *int       `json:"validity_days,omitempty" validate:"omitempty,gt=0"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type SellPassRequest struct {
	PassID uint `json:"pass_id" validate:"required"`
}

type UpgradeRequest struct {
	TargetPassID uint `json:"target_pass_id" validate:"required"`
}
