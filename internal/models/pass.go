package models

import "time"

type PassKind string

const (
	KindSingle    PassKind = "single"
	KindClipcard  PassKind = "clipcard"
	KindUnlimited PassKind = "unlimited"
)

// Limited reports whether the kind carries a finite clip count.
func (k PassKind) Limited() bool { return k != KindUnlimited }

// Pass is a purchasable product in the catalog: single admission, clipcard
// (multi-credit) or unlimited within a validity window.
type Pass struct {
	ID   uint     `gorm:"primaryKey" json:"id"`
	Name string   `gorm:"not null" json:"name"`
	Kind PassKind `gorm:"type:varchar(20);not null" json:"kind"`

	// ClassesLimit is nil for unlimited passes; 1 for single admission.
	ClassesLimit *int    `json:"classes_limit,omitempty"`
	Price        float64 `gorm:"not null" json:"price"`

	// Validity is either a rolling window from purchase (ValidityDays) or a
	// fixed calendar cutoff (ExpiresAt). Exactly one is set.
	ValidityDays *int       `json:"validity_days,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
