package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/studiodans/dance-booking/internal/models"
	"github.com/studiodans/dance-booking/internal/repository"
	"github.com/studiodans/dance-booking/pkg/rabbitmq"
	"gorm.io/gorm"
)

// CancellationService reverses bookings: one seat, a whole instance, or every
// future instance of a template. Each booking reversal restores the seat and
// refunds the consumed clip.
type CancellationService interface {
	CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error)
	CancelInstance(ctx context.Context, instanceID uint, reason string) (*models.ClassInstance, error)
	CancelSeries(ctx context.Context, templateID uint, from time.Time, reason string) (int, error)
}

type cancellationService struct {
	txm          repository.TxManager
	instances    repository.InstanceRepository
	entitlements repository.EntitlementRepository
	bookings     repository.BookingRepository
	ledger       EntitlementService
	publisher    *rabbitmq.Publisher
}

func NewCancellationService(
	txm repository.TxManager,
	instances repository.InstanceRepository,
	entitlements repository.EntitlementRepository,
	bookings repository.BookingRepository,
	ledger EntitlementService,
	publisher *rabbitmq.Publisher,
) CancellationService {
	return &cancellationService{
		txm:          txm,
		instances:    instances,
		entitlements: entitlements,
		bookings:     bookings,
		ledger:       ledger,
		publisher:    publisher,
	}
}

func (s *cancellationService) CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.Status == models.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	if err := s.reverseBooking(ctx, booking); err != nil {
		return nil, err
	}

	booking.Status = models.StatusCancelled
	if s.publisher != nil {
		_ = s.publisher.Publish("booking.cancelled", booking)
	}
	return booking, nil
}

// reverseBooking cancels one booking, gives the seat back (unless the
// instance itself is cancelled, where capacity is moot) and refunds the clip.
// Conditional writes are retried with the same budget as admission.
func (s *cancellationService) reverseBooking(ctx context.Context, booking *models.Booking) error {
	for attempt := 1; attempt <= maxBookingAttempts; attempt++ {
		inst, err := s.instances.FindByID(ctx, booking.InstanceID)
		if err != nil {
			return err
		}
		e, err := s.entitlements.FindByID(ctx, booking.EntitlementID)
		if err != nil {
			return err
		}

		err = s.txm.InTx(ctx, func(tx *gorm.DB) error {
			if err := s.bookings.MarkCancelled(ctx, tx, booking.ID); err != nil {
				return err
			}
			if !inst.Cancelled {
				ok, err := s.instances.AdjustCapacity(ctx, tx, inst.ID, inst.RemainingCapacity, +1)
				if err != nil {
					return err
				}
				if !ok {
					return errRetryAdmission
				}
			}
			ok, err := s.ledger.Refund(ctx, tx, e)
			if err != nil {
				return err
			}
			if !ok {
				return errRetryAdmission
			}
			return nil
		})
		if errors.Is(err, errRetryAdmission) {
			time.Sleep(time.Duration(attempt) * conflictBackoff)
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *cancellationService) CancelInstance(ctx context.Context, instanceID uint, reason string) (*models.ClassInstance, error) {
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

	// Flag first: once cancelled, no new admission can race the refunds and
	// capacity bookkeeping below is moot.
	err = s.txm.InTx(ctx, func(tx *gorm.DB) error {
		return s.instances.MarkCancelled(ctx, tx, inst.ID, reason)
	})
	if err != nil {
		return nil, err
	}
	inst.Cancelled = true
	inst.CancellationReason = reason

	active, err := s.bookings.FindActiveByInstance(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if err := s.reverseBooking(ctx, &active[i]); err != nil {
			return nil, fmt.Errorf("refund booking %d: %w", active[i].ID, err)
		}
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("class.cancelled", inst)
	}
	return inst, nil
}

// CancelSeries cancels every non-cancelled instance of the template from the
// given date onward and returns how many it cancelled. Re-invoking is a no-op
// because already-cancelled instances are not selected again; batch progress
// is not atomic, a failed instance leaves earlier cancellations in place.
func (s *cancellationService) CancelSeries(ctx context.Context, templateID uint, from time.Time, reason string) (int, error) {
	insts, err := s.instances.FindByTemplateFrom(ctx, templateID, from)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for i := range insts {
		if _, err := s.CancelInstance(ctx, insts[i].ID, reason); err != nil {
			if errors.Is(err, ErrAlreadyCancelled) {
				continue
			}
			log.Printf("[Cancellation] series %d: instance %d failed: %v", templateID, insts[i].ID, err)
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}
