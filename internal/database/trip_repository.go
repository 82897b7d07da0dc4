package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vietbus/ticketing-backend/internal/models"
)

// TripRepository handles database operations for the trips table
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// CreateTx inserts a new trip inside an existing transaction. Seat rows
// for the trip are inserted by the seat repository in the same transaction.
func (r *TripRepository) CreateTx(tx *sqlx.Tx, trip *models.Trip) error {
	query := `
		INSERT INTO trips (
			id, route_name, origin, destination, bus_plate_number, bus_type,
			departure_time, arrival_time, base_price, total_seats,
			available_seats, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowx(
		query,
		trip.ID, trip.RouteName, trip.Origin, trip.Destination,
		trip.BusPlateNumber, trip.BusType, trip.DepartureTime, trip.ArrivalTime,
		trip.BasePrice, trip.TotalSeats, trip.AvailableSeats, trip.Status,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	return nil
}

// GetByID retrieves a trip by ID. Returns nil when not found.
func (r *TripRepository) GetByID(tripID string) (*models.Trip, error) {
	query := `
		SELECT id, route_name, origin, destination, bus_plate_number, bus_type,
			   departure_time, arrival_time, base_price, total_seats,
			   available_seats, status, created_at, updated_at
		FROM trips
		WHERE id = $1
	`

	var trip models.Trip
	err := r.db.Get(&trip, query, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return &trip, nil
}

// GetByIDTx retrieves a trip inside an existing transaction. Returns nil
// when not found. The trip row itself is not locked so that bookings for
// disjoint seats on the same trip can proceed concurrently.
func (r *TripRepository) GetByIDTx(tx *sqlx.Tx, tripID string) (*models.Trip, error) {
	query := `
		SELECT id, route_name, origin, destination, bus_plate_number, bus_type,
			   departure_time, arrival_time, base_price, total_seats,
			   available_seats, status, created_at, updated_at
		FROM trips
		WHERE id = $1
	`

	var trip models.Trip
	err := tx.Get(&trip, query, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return &trip, nil
}

// Search retrieves scheduled trips matching the filter, soonest departure
// first
func (r *TripRepository) Search(filter models.TripSearchFilter) ([]*models.Trip, error) {
	query := `
		SELECT id, route_name, origin, destination, bus_plate_number, bus_type,
			   departure_time, arrival_time, base_price, total_seats,
			   available_seats, status, created_at, updated_at
		FROM trips
		WHERE status = $1
	`
	args := []interface{}{models.TripStatusScheduled}
	argPos := 2

	if filter.Origin != "" {
		query += fmt.Sprintf(" AND origin ILIKE $%d", argPos)
		args = append(args, filter.Origin)
		argPos++
	}

	if filter.Destination != "" {
		query += fmt.Sprintf(" AND destination ILIKE $%d", argPos)
		args = append(args, filter.Destination)
		argPos++
	}

	if filter.DepartureDate != nil {
		query += fmt.Sprintf(" AND departure_time >= $%d AND departure_time < $%d + INTERVAL '1 day'", argPos, argPos)
		args = append(args, *filter.DepartureDate)
		argPos++
	}

	query += " ORDER BY departure_time ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	trips := []*models.Trip{}
	if err := r.db.Select(&trips, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}

	return trips, nil
}

// AdjustAvailableSeats moves the available seat counter by delta inside an
// existing transaction. The guard keeps the counter between zero and
// total_seats; a guard miss means the counter and the seat rows disagree,
// which only a bug can cause, so it surfaces as an error.
func (r *TripRepository) AdjustAvailableSeats(tx *sqlx.Tx, tripID string, delta int) error {
	query := `
		UPDATE trips
		SET available_seats = available_seats + $1, updated_at = NOW()
		WHERE id = $2
		  AND available_seats + $1 >= 0
		  AND available_seats + $1 <= total_seats
	`

	result, err := tx.Exec(query, delta, tripID)
	if err != nil {
		return fmt.Errorf("failed to adjust available seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rows != 1 {
		return fmt.Errorf("seat counter adjustment rejected for trip %s (delta %d)", tripID, delta)
	}

	return nil
}
