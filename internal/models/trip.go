package models

import (
	"fmt"
	"time"
)

// TripStatus represents the lifecycle state of a trip
type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusDeparted  TripStatus = "departed"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Trip represents a scheduled bus journey on a route
type Trip struct {
	ID             string     `json:"id" db:"id"`
	RouteName      string     `json:"route_name" db:"route_name"`
	Origin         string     `json:"origin" db:"origin"`
	Destination    string     `json:"destination" db:"destination"`
	BusPlateNumber string     `json:"bus_plate_number" db:"bus_plate_number"`
	BusType        string     `json:"bus_type" db:"bus_type"`
	DepartureTime  time.Time  `json:"departure_time" db:"departure_time"`
	ArrivalTime    time.Time  `json:"arrival_time" db:"arrival_time"`
	BasePrice      float64    `json:"base_price" db:"base_price"`
	TotalSeats     int        `json:"total_seats" db:"total_seats"`
	AvailableSeats int        `json:"available_seats" db:"available_seats"`
	Status         TripStatus `json:"status" db:"status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsBookable reports whether the trip can still accept bookings at the
// given instant. Only scheduled trips whose departure is in the future
// are bookable.
func (t *Trip) IsBookable(now time.Time) bool {
	return t.Status == TripStatusScheduled && t.DepartureTime.After(now)
}

// SeatLayoutEntry describes one seat of a bus layout used when a trip is
// scheduled. Price overrides the trip base price when set.
type SeatLayoutEntry struct {
	Label string   `json:"label" binding:"required"`
	Price *float64 `json:"price,omitempty"`
}

// CreateTripRequest represents a trip scheduling request
type CreateTripRequest struct {
	RouteName      string            `json:"route_name" binding:"required"`
	Origin         string            `json:"origin" binding:"required"`
	Destination    string            `json:"destination" binding:"required"`
	BusPlateNumber string            `json:"bus_plate_number" binding:"required"`
	BusType        string            `json:"bus_type"`
	DepartureTime  time.Time         `json:"departure_time" binding:"required"`
	ArrivalTime    time.Time         `json:"arrival_time" binding:"required"`
	BasePrice      float64           `json:"base_price" binding:"required"`
	SeatLayout     []SeatLayoutEntry `json:"seat_layout" binding:"required"`
}

// Validate performs business validation beyond binding tags
func (r *CreateTripRequest) Validate() error {
	if r.BasePrice <= 0 {
		return fmt.Errorf("base_price must be positive")
	}

	if !r.ArrivalTime.After(r.DepartureTime) {
		return fmt.Errorf("arrival_time must be after departure_time")
	}

	if len(r.SeatLayout) == 0 {
		return fmt.Errorf("seat_layout must not be empty")
	}

	seen := make(map[string]bool, len(r.SeatLayout))
	for _, entry := range r.SeatLayout {
		if entry.Label == "" {
			return fmt.Errorf("seat label must not be empty")
		}
		if seen[entry.Label] {
			return fmt.Errorf("duplicate seat label: %s", entry.Label)
		}
		seen[entry.Label] = true
		if entry.Price != nil && *entry.Price <= 0 {
			return fmt.Errorf("seat price for %s must be positive", entry.Label)
		}
	}

	return nil
}

// TripSearchFilter holds the supported trip search parameters
type TripSearchFilter struct {
	Origin        string
	Destination   string
	DepartureDate *time.Time
	Limit         int
	Offset        int
}

// TripWithSeats bundles a trip with its seat map for the seat map endpoint
type TripWithSeats struct {
	Trip  *Trip   `json:"trip"`
	Seats []*Seat `json:"seats"`
}
