package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/studiodans/dance-booking/internal/models"
	"github.com/studiodans/dance-booking/internal/repository"
	"gorm.io/gorm"
)

// PurchaseInput describes one confirmed pass sale. Ref is the payment
// transaction's idempotency key: replaying the same Ref returns the
// entitlement created the first time instead of minting another.
type PurchaseInput struct {
	UserID              string
	PassID              uint
	Price               float64
	Ref                 string
	SourceEntitlementID *uint
}

// UpgradeResult is the outcome of an upgrade request. Granted is non-nil only
// for zero-cost upgrades, which complete without waiting for a payment event.
type UpgradeResult struct {
	SourceID     uint
	TargetPassID uint
	UpgradeCost  float64
	Granted      *models.Entitlement
}

// EntitlementService is the ledger of purchasable credits: purchase,
// consumption, refund and upgrade of pass entitlements.
type EntitlementService interface {
	Purchase(ctx context.Context, in PurchaseInput) (*models.Entitlement, error)
	Upgrade(ctx context.Context, entitlementID, targetPassID uint) (*UpgradeResult, error)
	ListByUser(ctx context.Context, userID string) ([]models.Entitlement, error)
	GetEntitlement(ctx context.Context, id uint) (*models.Entitlement, error)

	// Consume and Refund run inside a caller-owned transaction; a false return
	// means the conditional clip write lost a race and the caller should
	// re-read and retry.
	Consume(ctx context.Context, tx *gorm.DB, e *models.Entitlement) (bool, error)
	Refund(ctx context.Context, tx *gorm.DB, e *models.Entitlement) (bool, error)
}

type entitlementService struct {
	passes       repository.PassRepository
	entitlements repository.EntitlementRepository
	txm          repository.TxManager
}

func NewEntitlementService(passes repository.PassRepository, entitlements repository.EntitlementRepository, txm repository.TxManager) EntitlementService {
	return &entitlementService{passes: passes, entitlements: entitlements, txm: txm}
}

func (s *entitlementService) Purchase(ctx context.Context, in PurchaseInput) (*models.Entitlement, error) {
	pass, err := s.passes.FindByID(ctx, in.PassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPassNotFound
		}
		return nil, err
	}

	now := time.Now()
	e := &models.Entitlement{
		UserID:              in.UserID,
		PassID:              pass.ID,
		Kind:                pass.Kind,
		ValidFrom:           now,
		PurchasePrice:       in.Price,
		PurchaseRef:         in.Ref,
		SourceEntitlementID: in.SourceEntitlementID,
		Status:              models.EntitlementActive,
	}
	if pass.Kind.Limited() && pass.ClassesLimit != nil {
		clips := *pass.ClassesLimit
		e.RemainingClips = &clips
	}
	switch {
	case pass.ValidityDays != nil:
		e.ValidUntil = now.AddDate(0, 0, *pass.ValidityDays)
	case pass.ExpiresAt != nil:
		e.ValidUntil = *pass.ExpiresAt
	default:
		return nil, fmt.Errorf("pass %d has no validity rule", pass.ID)
	}

	created, err := s.entitlements.CreateIfAbsent(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create entitlement: %w", err)
	}
	if !created {
		// Retried delivery of an already-confirmed transaction.
		return s.entitlements.FindByPurchaseRef(ctx, in.Ref)
	}
	return e, nil
}

// UpgradeCost prorates an upgrade: the original purchase price is credited
// against the target pass, never below zero.
func UpgradeCost(purchasePrice, targetPrice float64) float64 {
	if cost := targetPrice - purchasePrice; cost > 0 {
		return cost
	}
	return 0
}

func (s *entitlementService) Upgrade(ctx context.Context, entitlementID, targetPassID uint) (*UpgradeResult, error) {
	e, err := s.entitlements.FindByID(ctx, entitlementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntitlementNotFound
		}
		return nil, err
	}
	target, err := s.passes.FindByID(ctx, targetPassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPassNotFound
		}
		return nil, err
	}

	if e.Status != models.EntitlementActive {
		return nil, fmt.Errorf("%w: entitlement is %s", ErrUpgradeNotAvailable, e.Status)
	}
	if target.Kind == models.KindSingle {
		return nil, fmt.Errorf("%w: single-admission passes are not upgrade targets", ErrUpgradeNotAvailable)
	}
	if target.Price < e.PurchasePrice {
		return nil, fmt.Errorf("%w: target pass is cheaper than the current one", ErrUpgradeNotAvailable)
	}

	cost := UpgradeCost(e.PurchasePrice, target.Price)

	err = s.txm.InTx(ctx, func(tx *gorm.DB) error {
		return s.entitlements.UpdateStatus(ctx, tx, e.ID, models.EntitlementInactive)
	})
	if err != nil {
		return nil, fmt.Errorf("deactivate source entitlement: %w", err)
	}

	result := &UpgradeResult{SourceID: e.ID, TargetPassID: target.ID, UpgradeCost: cost}
	if cost > 0 {
		// The replacement entitlement is granted when the payment collaborator
		// confirms the upgrade transaction.
		return result, nil
	}

	sourceID := e.ID
	granted, err := s.Purchase(ctx, PurchaseInput{
		UserID:              e.UserID,
		PassID:              target.ID,
		Price:               target.Price,
		Ref:                 "upgrade-" + uuid.NewString(),
		SourceEntitlementID: &sourceID,
	})
	if err != nil {
		return nil, err
	}
	result.Granted = granted
	return result, nil
}

func (s *entitlementService) ListByUser(ctx context.Context, userID string) ([]models.Entitlement, error) {
	return s.entitlements.FindByUser(ctx, userID)
}

func (s *entitlementService) GetEntitlement(ctx context.Context, id uint) (*models.Entitlement, error) {
	e, err := s.entitlements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntitlementNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *entitlementService) Consume(ctx context.Context, tx *gorm.DB, e *models.Entitlement) (bool, error) {
	if !e.UsableAt(time.Now()) {
		return false, ErrNoValidEntitlement
	}
	if !e.Kind.Limited() {
		return true, nil
	}

	clips := *e.RemainingClips
	status := models.EntitlementActive
	if clips-1 == 0 {
		status = models.EntitlementExhausted
	}
	return s.entitlements.SetClips(ctx, tx, e.ID, clips, clips-1, status)
}

func (s *entitlementService) Refund(ctx context.Context, tx *gorm.DB, e *models.Entitlement) (bool, error) {
	if !e.Kind.Limited() {
		return true, nil
	}

	// The clip comes back even when the entitlement can no longer be used:
	// credit accounting stays correct, only the status reflects expiry.
	now := time.Now()
	status := models.EntitlementActive
	switch {
	case e.Status == models.EntitlementInactive:
		status = models.EntitlementInactive
	case now.After(e.ValidUntil):
		status = models.EntitlementExpired
	}

	clips := *e.RemainingClips
	return s.entitlements.SetClips(ctx, tx, e.ID, clips, clips+1, status)
}

// SelectEntitlement picks which usable entitlement a booking should consume:
// soonest expiry first, then credit-limited before unlimited (spend the
// scarcer resource), then lowest id. The ordering is deterministic so
// admission outcomes are reproducible.
func SelectEntitlement(entitlements []models.Entitlement, now time.Time) *models.Entitlement {
	usable := make([]models.Entitlement, 0, len(entitlements))
	for _, e := range entitlements {
		if e.UsableAt(now) {
			usable = append(usable, e)
		}
	}
	if len(usable) == 0 {
		return nil
	}

	sort.Slice(usable, func(i, j int) bool {
		a, b := usable[i], usable[j]
		if !a.ValidUntil.Equal(b.ValidUntil) {
			return a.ValidUntil.Before(b.ValidUntil)
		}
		if a.Kind.Limited() != b.Kind.Limited() {
			return a.Kind.Limited()
		}
		return a.ID < b.ID
	})
	return &usable[0]
}
