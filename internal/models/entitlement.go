package models

import "time"

type EntitlementStatus string

const (
	EntitlementActive    EntitlementStatus = "active"
	EntitlementExhausted EntitlementStatus = "exhausted"
	EntitlementExpired   EntitlementStatus = "expired"
	EntitlementInactive  EntitlementStatus = "inactive"
)

// Entitlement is one purchased pass held by a user. It is never deleted, only
// deactivated, so the credit history stays auditable.
type Entitlement struct {
	ID     uint     `gorm:"primaryKey" json:"id"`
	UserID string   `gorm:"not null;index" json:"user_id"`
	PassID uint     `gorm:"not null" json:"pass_id"`
	Kind   PassKind `gorm:"type:varchar(20);not null" json:"kind"`

	// RemainingClips is nil iff Kind is unlimited.
	RemainingClips *int `json:"remaining_clips,omitempty"`

	ValidFrom  time.Time `gorm:"not null" json:"valid_from"`
	ValidUntil time.Time `gorm:"not null" json:"valid_until"`

	PurchasePrice float64 `gorm:"not null" json:"purchase_price"`

	// PurchaseRef is the payment transaction's idempotency key; the unique
	// index absorbs webhook redelivery.
	PurchaseRef string `gorm:"not null;uniqueIndex" json:"purchase_ref"`

	// SourceEntitlementID links an entitlement created by upgrade back to the
	// pass it replaced.
	SourceEntitlementID *uint `json:"source_entitlement_id,omitempty"`

	Status EntitlementStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Pass *Pass `gorm:"foreignKey:PassID" json:"pass,omitempty"`
}

// UsableAt reports whether the entitlement can admit a booking at t: active,
// inside its validity window, with a clip left when the kind is limited.
func (e *Entitlement) UsableAt(t time.Time) bool {
	if e.Status != EntitlementActive {
		return false
	}
	if t.Before(e.ValidFrom) || t.After(e.ValidUntil) {
		return false
	}
	if e.Kind.Limited() && (e.RemainingClips == nil || *e.RemainingClips <= 0) {
		return false
	}
	return true
}
