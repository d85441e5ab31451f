package models

import "time"

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is a confirmed seat on a class instance, paid for with one clip (or
// an unlimited pass). At most one non-cancelled booking may exist per
// (user, instance); a partial unique index enforces this at the store.
type Booking struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	UserID        string        `gorm:"not null" json:"user_id"`
	InstanceID    uint          `gorm:"not null;index" json:"instance_id"`
	EntitlementID uint          `gorm:"not null" json:"entitlement_id"`
	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Instance *ClassInstance `gorm:"foreignKey:InstanceID" json:"instance,omitempty"`
}
