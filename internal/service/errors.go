package service

import "errors"

var (
	ErrTemplateNotFound    = errors.New("class template not found")
	ErrInstanceNotFound    = errors.New("class instance not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrPassNotFound        = errors.New("pass not found")
	ErrEntitlementNotFound = errors.New("entitlement not found")

	// ErrCapacityExceeded: the instance has no remaining seats.
	ErrCapacityExceeded = errors.New("class is fully booked")
	// ErrNoValidEntitlement: the user holds no active, in-validity entitlement
	// with a clip to spend.
	ErrNoValidEntitlement = errors.New("no valid entitlement for this booking")
	// ErrAlreadyCancelled: the target instance or booking is cancelled.
	ErrAlreadyCancelled = errors.New("already cancelled")
	// ErrDuplicateBooking: the user already holds an active booking on the instance.
	ErrDuplicateBooking = errors.New("user already booked this class")
	// ErrConflict: concurrent writers exhausted the retry budget; the request
	// may be retried by the caller.
	ErrConflict = errors.New("concurrent update conflict, retry")
	// ErrUpgradeNotAvailable: the target pass cannot serve as an upgrade.
	ErrUpgradeNotAvailable = errors.New("upgrade not available for this pass")
)
