package models

import "time"

// ClassTemplate is the recurring (or single) class definition from which
// bookable instances are generated.
type ClassTemplate struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Capacity  int    `gorm:"not null" json:"capacity"`
	Recurring bool   `gorm:"not null" json:"recurring"`

	// Recurring templates expand over [StartDate, EndDate].
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// Non-recurring templates produce exactly one instance at StartsAt.
	StartsAt *time.Time `json:"starts_at,omitempty"`

	Slots []WeeklySlot `gorm:"foreignKey:TemplateID" json:"slots,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WeeklySlot is one weekday/time pair of a recurring template.
// Times are wall-clock "HH:MM" strings in the school's local zone.
type WeeklySlot struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	TemplateID uint         `gorm:"not null;index" json:"template_id"`
	DayOfWeek  time.Weekday `gorm:"not null" json:"day_of_week"`
	StartTime  string       `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime    string       `gorm:"type:varchar(5);not null" json:"end_time"`
}
