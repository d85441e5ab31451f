package models

import "time"

// ClassInstance is one concrete, dated, bookable occurrence of a template.
// Invariant: 0 <= RemainingCapacity <= Capacity, and RemainingCapacity equals
// Capacity minus the number of non-cancelled bookings on the instance.
type ClassInstance struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	TemplateID uint `gorm:"not null;index;uniqueIndex:idx_instance_template_start" json:"template_id"`

	StartsAt time.Time `gorm:"not null;uniqueIndex:idx_instance_template_start" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`

	Capacity          int `gorm:"not null" json:"capacity"`
	RemainingCapacity int `gorm:"not null" json:"remaining_capacity"`

	Cancelled          bool   `gorm:"not null;default:false" json:"cancelled"`
	CancellationReason string `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Template *ClassTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}
