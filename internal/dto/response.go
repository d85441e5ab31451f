package dto

import (
	"time"

	"github.com/studiodans/dance-booking/internal/models"
)

type BookingResponse struct {
	ID            uint                 `json:"id"`
	UserID        string               `json:"user_id"`
	InstanceID    uint                 `json:"instance_id"`
	EntitlementID uint                 `json:"entitlement_id"`
	Status        models.BookingStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		UserID:        b.UserID,
		InstanceID:    b.InstanceID,
		EntitlementID: b.EntitlementID,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
	}
}

type InstanceResponse struct {
	ID                 uint      `json:"id"`
	TemplateID         uint      `json:"template_id"`
	StartsAt           time.Time `json:"starts_at"`
	EndsAt             time.Time `json:"ends_at"`
	Capacity           int       `json:"capacity"`
	RemainingCapacity  int       `json:"remaining_capacity"`
	Cancelled          bool      `json:"cancelled"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
}

func ToInstanceResponse(i *models.ClassInstance) InstanceResponse {
	return InstanceResponse{
		ID:                 i.ID,
		TemplateID:         i.TemplateID,
		StartsAt:           i.StartsAt,
		EndsAt:             i.EndsAt,
		Capacity:           i.Capacity,
		RemainingCapacity:  i.RemainingCapacity,
		Cancelled:          i.Cancelled,
		CancellationReason: i.CancellationReason,
	}
}

func ToInstanceResponses(insts []models.ClassInstance) []InstanceResponse {
	out := make([]InstanceResponse, len(insts))
	for i := range insts {
		out[i] = ToInstanceResponse(&insts[i])
	}
	return out
}

type EntitlementResponse struct {
	ID             uint                     `json:"id"`
	UserID         string                   `json:"user_id"`
	PassID         uint                     `json:"pass_id"`
	Kind           models.PassKind          `json:"kind"`
	RemainingClips *int                     `json:"remaining_clips,omitempty"`
	ValidFrom      time.Time                `json:"valid_from"`
	ValidUntil     time.Time                `json:"valid_until"`
	PurchasePrice  float64                  `json:"purchase_price"`
	Status         models.EntitlementStatus `json:"status"`
}

func ToEntitlementResponse(e *models.Entitlement) EntitlementResponse {
	return EntitlementResponse{
		ID:             e.ID,
		UserID:         e.UserID,
		PassID:         e.PassID,
		Kind:           e.Kind,
		RemainingClips: e.RemainingClips,
		ValidFrom:      e.ValidFrom,
		ValidUntil:     e.ValidUntil,
		PurchasePrice:  e.PurchasePrice,
		Status:         e.Status,
	}
}

type UpgradeResponse struct {
	SourceID     uint                 `json:"source_id"`
	TargetPassID uint                 `json:"target_pass_id"`
	UpgradeCost  float64              `json:"upgrade_cost"`
	Granted      *EntitlementResponse `json:"granted,omitempty"`
}

type CancelSeriesResponse struct {
	TemplateID uint `json:"template_id"`
	Cancelled  int  `json:"cancelled_instances"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
