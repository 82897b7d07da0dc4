package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for validation, lookup and ownership failures. Handlers
// map these onto HTTP statuses so a client can always tell a business
// rejection from a server fault.
var (
	ErrEmptySeatList            = errors.New("at least one seat must be requested")
	ErrTripNotFound             = errors.New("trip not found")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrPaymentNotFound          = errors.New("payment not found")
	ErrNotBookingOwner          = errors.New("booking belongs to another user")
	ErrBookingNotCancellable    = errors.New("booking is not in a cancellable state")
	ErrBookingAlreadyPaid       = errors.New("booking is already paid")
	ErrBookingCancelled         = errors.New("booking has been cancelled")
	ErrCancellationWindowClosed = errors.New("cancellation window has closed")
)

// TripUnavailableError is returned when the requested trip exists but
// cannot accept bookings (wrong status or already departed)
type TripUnavailableError struct {
	TripID string
	Reason string
}

func (e *TripUnavailableError) Error() string {
	return fmt.Sprintf("trip %s is not available for booking: %s", e.TripID, e.Reason)
}

// SeatNotFoundError is returned when requested seat labels do not exist
// on the trip
type SeatNotFoundError struct {
	TripID string
	Labels []string
}

func (e *SeatNotFoundError) Error() string {
	return fmt.Sprintf("seats not found on trip %s: %s", e.TripID, strings.Join(e.Labels, ", "))
}

// SeatConflictError is returned when one or more requested seats are
// already booked or held by an active reservation. Labels lets the
// client show exactly which seats to re-pick.
type SeatConflictError struct {
	TripID string
	Labels []string
	Reason string // "booked" or "reserved"
}

func (e *SeatConflictError) Error() string {
	return fmt.Sprintf("seats %s on trip %s: %s", e.Reason, e.TripID, strings.Join(e.Labels, ", "))
}

// IsConflict reports whether err is a seat conflict
func IsConflict(err error) bool {
	var conflict *SeatConflictError
	return errors.As(err, &conflict)
}

// IsValidation reports whether err is a client-side validation failure
func IsValidation(err error) bool {
	var notFound *SeatNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var unavailable *TripUnavailableError
	if errors.As(err, &unavailable) {
		return true
	}
	return errors.Is(err, ErrEmptySeatList)
}
