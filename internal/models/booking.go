package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietbus/ticketing-backend/pkg/validator"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Booking represents a confirmed purchase of one or more seats on a trip
type Booking struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	BookingCode        string        `json:"booking_code" db:"booking_code"`
	UserID             uuid.UUID     `json:"user_id" db:"user_id"`
	TripID             string        `json:"trip_id" db:"trip_id"`
	ContactName        string        `json:"contact_name" db:"contact_name"`
	ContactPhone       string        `json:"contact_phone" db:"contact_phone"`
	ContactEmail       string        `json:"contact_email" db:"contact_email"`
	TotalAmount        float64       `json:"total_amount" db:"total_amount"`
	Status             BookingStatus `json:"status" db:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status" db:"payment_status"`
	QRData             string        `json:"qr_data" db:"qr_data"`
	DeviceType         string        `json:"device_type,omitempty" db:"device_type"`
	DevicePlatform     string        `json:"device_platform,omitempty" db:"device_platform"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`

	// Items is populated by the repository on reads; not a column.
	Items []*BookingItem `json:"items,omitempty" db:"-"`
}

// BookingItem is one booked seat within a booking. Seat label and price
// are snapshotted at booking time so later fare changes never alter an
// issued ticket.
type BookingItem struct {
	ID            int64     `json:"id" db:"id"`
	BookingID     uuid.UUID `json:"booking_id" db:"booking_id"`
	SeatID        int64     `json:"seat_id" db:"seat_id"`
	SeatLabel     string    `json:"seat_label" db:"seat_label"`
	PassengerName string    `json:"passenger_name" db:"passenger_name"`
	Price         float64   `json:"price" db:"price"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PassengerInfo carries the per-seat passenger details of a booking request
type PassengerInfo struct {
	SeatLabel     string `json:"seat_label" binding:"required"`
	PassengerName string `json:"passenger_name" binding:"required"`
}

// CreateBookingRequest represents a booking creation request
type CreateBookingRequest struct {
	TripID       string          `json:"trip_id" binding:"required"`
	ContactName  string          `json:"contact_name" binding:"required"`
	ContactPhone string          `json:"contact_phone" binding:"required"`
	ContactEmail string          `json:"contact_email"`
	Passengers   []PassengerInfo `json:"passengers" binding:"required"`
}

// SeatLabels returns the requested seat labels in request order
func (r *CreateBookingRequest) SeatLabels() []string {
	labels := make([]string, 0, len(r.Passengers))
	for _, p := range r.Passengers {
		labels = append(labels, p.SeatLabel)
	}
	return labels
}

// Validate performs business validation beyond binding tags and
// normalizes the contact phone to its national form
func (r *CreateBookingRequest) Validate() error {
	if len(r.Passengers) == 0 {
		return fmt.Errorf("at least one passenger is required")
	}

	phone, err := validator.NewPhoneValidator().Validate(r.ContactPhone)
	if err != nil {
		return fmt.Errorf("invalid contact phone: %w", err)
	}
	r.ContactPhone = phone

	seen := make(map[string]bool, len(r.Passengers))
	for _, p := range r.Passengers {
		if p.SeatLabel == "" {
			return fmt.Errorf("seat_label must not be empty")
		}
		if p.PassengerName == "" {
			return fmt.Errorf("passenger_name is required for seat %s", p.SeatLabel)
		}
		if seen[p.SeatLabel] {
			return fmt.Errorf("duplicate seat label: %s", p.SeatLabel)
		}
		seen[p.SeatLabel] = true
	}

	return nil
}

// HoldSeatsRequest asks for a soft hold on seats ahead of checkout
type HoldSeatsRequest struct {
	TripID     string   `json:"trip_id" binding:"required"`
	SeatLabels []string `json:"seat_labels" binding:"required"`
}

// Validate performs business validation beyond binding tags
func (r *HoldSeatsRequest) Validate() error {
	if len(r.SeatLabels) == 0 {
		return fmt.Errorf("at least one seat label is required")
	}

	seen := make(map[string]bool, len(r.SeatLabels))
	for _, label := range r.SeatLabels {
		if label == "" {
			return fmt.Errorf("seat_label must not be empty")
		}
		if seen[label] {
			return fmt.Errorf("duplicate seat label: %s", label)
		}
		seen[label] = true
	}

	return nil
}

// SeatHold describes an active soft hold placed on seats
type SeatHold struct {
	TripID        string    `json:"trip_id"`
	SeatLabels    []string  `json:"seat_labels"`
	ReservedUntil time.Time `json:"reserved_until"`
}

// CancelBookingRequest represents a booking cancellation request
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// BookingListFilter holds pagination for booking history queries
type BookingListFilter struct {
	Limit  int
	Offset int
}
