package models

import "time"

// SeatStatus represents the availability state of a seat
type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusReserved  SeatStatus = "reserved"
	SeatStatusBooked    SeatStatus = "booked"
)

// Seat represents one physical seat on one trip. The pair
// (trip_id, seat_label) is unique; Status is the per-seat source of truth
// while the trip's available_seats counter is the aggregate.
type Seat struct {
	ID            int64      `json:"id" db:"id"`
	TripID        string     `json:"trip_id" db:"trip_id"`
	SeatLabel     string     `json:"seat_label" db:"seat_label"`
	Price         float64    `json:"price" db:"price"`
	Status        SeatStatus `json:"status" db:"status"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty" db:"reserved_until"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTaken reports whether the seat cannot be booked at the given instant.
// A reserved seat whose hold has expired counts as available again.
func (s *Seat) IsTaken(now time.Time) bool {
	switch s.Status {
	case SeatStatusBooked:
		return true
	case SeatStatusReserved:
		return s.ReservedUntil != nil && s.ReservedUntil.After(now)
	default:
		return false
	}
}
