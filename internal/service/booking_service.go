package service

import (
	"context"
	"errors"
	"time"

	"github.com/studiodans/dance-booking/internal/models"
	"github.com/studiodans/dance-booking/internal/repository"
	"github.com/studiodans/dance-booking/pkg/rabbitmq"
	"gorm.io/gorm"
)

const (
	maxBookingAttempts = 3
	conflictBackoff    = 25 * time.Millisecond
)

// errRetryAdmission aborts the admission transaction when a conditional write
// lost a race; the whole read-validate-write sequence then runs again.
var errRetryAdmission = errors.New("admission write conflict")

// BookingService is the admission controller: it decides admit/deny for a
// seat request and performs the capacity + clip + booking transition as one
// atomic unit.
type BookingService interface {
	Book(ctx context.Context, userID string, instanceID uint) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListByInstance(ctx context.Context, instanceID uint) ([]models.Booking, error)
}

type bookingService struct {
	txm          repository.TxManager
	instances    repository.InstanceRepository
	entitlements repository.EntitlementRepository
	bookings     repository.BookingRepository
	ledger       EntitlementService
	publisher    *rabbitmq.Publisher
}

func NewBookingService(
	txm repository.TxManager,
	instances repository.InstanceRepository,
	entitlements repository.EntitlementRepository,
	bookings repository.BookingRepository,
	ledger EntitlementService,
	publisher *rabbitmq.Publisher,
) BookingService {
	return &bookingService{
		txm:          txm,
		instances:    instances,
		entitlements: entitlements,
		bookings:     bookings,
		ledger:       ledger,
		publisher:    publisher,
	}
}

// Book admits userID onto the instance or returns a typed denial. Capacity
// decrement, clip consumption and booking insert happen in one transaction
// guarded by conditional writes; on a write conflict the sequence retries up
// to maxBookingAttempts before surfacing ErrConflict.
func (s *bookingService) Book(ctx context.Context, userID string, instanceID uint) (*models.Booking, error) {
	for attempt := 1; attempt <= maxBookingAttempts; attempt++ {
		booking, err := s.tryBook(ctx, userID, instanceID)
		if errors.Is(err, errRetryAdmission) {
			time.Sleep(time.Duration(attempt) * conflictBackoff)
			continue
		}
		if err != nil {
			return nil, err
		}

		if s.publisher != nil {
			_ = s.publisher.Publish("booking.created", booking)
		}
		return booking, nil
	}
	return nil, ErrConflict
}

func (s *bookingService) tryBook(ctx context.Context, userID string, instanceID uint) (*models.Booking, error) {
	inst, err := s.instances.FindByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	if inst.Cancelled {
		return nil, ErrAlreadyCancelled
	}
	if inst.RemainingCapacity <= 0 {
		return nil, ErrCapacityExceeded
	}

	if _, err := s.bookings.FindActiveByUserAndInstance(ctx, userID, instanceID); err == nil {
		return nil, ErrDuplicateBooking
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	held, err := s.entitlements.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	chosen := SelectEntitlement(held, time.Now())
	if chosen == nil {
		return nil, ErrNoValidEntitlement
	}

	booking := &models.Booking{
		UserID:        userID,
		InstanceID:    inst.ID,
		EntitlementID: chosen.ID,
		Status:        models.StatusConfirmed,
	}

	err = s.txm.InTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.instances.AdjustCapacity(ctx, tx, inst.ID, inst.RemainingCapacity, -1)
		if err != nil {
			return err
		}
		if !ok {
			return errRetryAdmission
		}

		ok, err = s.ledger.Consume(ctx, tx, chosen)
		if err != nil {
			return err
		}
		if !ok {
			return errRetryAdmission
		}

		if err := s.bookings.Create(ctx, tx, booking); err != nil {
			// The partial unique index backstops concurrent duplicates.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateBooking
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListByInstance(ctx context.Context, instanceID uint) ([]models.Booking, error) {
	return s.bookings.FindActiveByInstance(ctx, instanceID)
}
