package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vietbus/ticketing-backend/internal/models"
)

// SeatRepository handles database operations for the seats table. Seat
// rows are the per-seat source of truth; all status transitions happen
// inside a transaction alongside the trip counter adjustment.
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository creates a new SeatRepository
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// BulkInsertTx inserts the seat rows for a newly scheduled trip inside an
// existing transaction
func (r *SeatRepository) BulkInsertTx(tx *sqlx.Tx, seats []*models.Seat) error {
	query := `
		INSERT INTO seats (trip_id, seat_label, price, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	for _, seat := range seats {
		err := tx.QueryRowx(query, seat.TripID, seat.SeatLabel, seat.Price, seat.Status).
			Scan(&seat.ID, &seat.CreatedAt, &seat.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert seat %s: %w", seat.SeatLabel, err)
		}
	}

	return nil
}

// GetByTripID retrieves all seats of a trip ordered by label, for the
// seat map endpoint
func (r *SeatRepository) GetByTripID(tripID string) ([]*models.Seat, error) {
	query := `
		SELECT id, trip_id, seat_label, price, status, reserved_until,
			   created_at, updated_at
		FROM seats
		WHERE trip_id = $1
		ORDER BY seat_label ASC
	`

	seats := []*models.Seat{}
	if err := r.db.Select(&seats, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to get seats for trip: %w", err)
	}

	return seats, nil
}

// GetForUpdate locks and loads the named seats of a trip inside an
// existing transaction. Only the requested rows are locked, so bookings
// for disjoint seats never contend. Callers must compare the returned
// row count against the requested labels; a missing label means the seat
// does not exist on this trip.
func (r *SeatRepository) GetForUpdate(tx *sqlx.Tx, tripID string, labels []string) ([]*models.Seat, error) {
	query, args, err := sqlx.In(`
		SELECT id, trip_id, seat_label, price, status, reserved_until,
			   created_at, updated_at
		FROM seats
		WHERE trip_id = ? AND seat_label IN (?)
		ORDER BY seat_label ASC
		FOR UPDATE
	`, tripID, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to build seat lock query: %w", err)
	}

	query = tx.Rebind(query)

	seats := []*models.Seat{}
	if err := tx.Select(&seats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to lock seats: %w", err)
	}

	return seats, nil
}

// MarkBooked transitions the given seats to booked inside an existing
// transaction, clearing any reservation hold
func (r *SeatRepository) MarkBooked(tx *sqlx.Tx, tripID string, seatIDs []int64) error {
	return r.setStatus(tx, tripID, seatIDs, models.SeatStatusBooked)
}

// MarkAvailable releases the given seats inside an existing transaction
func (r *SeatRepository) MarkAvailable(tx *sqlx.Tx, tripID string, seatIDs []int64) error {
	return r.setStatus(tx, tripID, seatIDs, models.SeatStatusAvailable)
}

// MarkReserved places a soft hold on the given seats until the stated
// instant, inside an existing transaction
func (r *SeatRepository) MarkReserved(tx *sqlx.Tx, tripID string, seatIDs []int64, until time.Time) error {
	if len(seatIDs) == 0 {
		return fmt.Errorf("no seat IDs provided")
	}

	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = ?, reserved_until = ?, updated_at = NOW()
		WHERE trip_id = ? AND id IN (?)
	`, models.SeatStatusReserved, until, tripID, seatIDs)
	if err != nil {
		return fmt.Errorf("failed to build seat hold query: %w", err)
	}

	query = tx.Rebind(query)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to reserve seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rows != int64(len(seatIDs)) {
		return fmt.Errorf("seat hold incomplete, expected %d rows, updated %d", len(seatIDs), rows)
	}

	return nil
}

// ReleaseExpiredReservations flips reserved seats whose hold has lapsed
// back to available. The UPDATE takes its own row locks, so a booking
// committing concurrently simply wins; its rows no longer match the
// WHERE clause. Returns the number of seats released.
func (r *SeatRepository) ReleaseExpiredReservations(now time.Time) (int64, error) {
	query := `
		UPDATE seats
		SET status = $1, reserved_until = NULL, updated_at = NOW()
		WHERE status = $2 AND reserved_until <= $3
	`

	result, err := r.db.Exec(query, models.SeatStatusAvailable, models.SeatStatusReserved, now)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired reservations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}

	return rows, nil
}

func (r *SeatRepository) setStatus(tx *sqlx.Tx, tripID string, seatIDs []int64, status models.SeatStatus) error {
	if len(seatIDs) == 0 {
		return fmt.Errorf("no seat IDs provided")
	}

	query, args, err := sqlx.In(`
		UPDATE seats
		SET status = ?, reserved_until = NULL, updated_at = NOW()
		WHERE trip_id = ? AND id IN (?)
	`, status, tripID, seatIDs)
	if err != nil {
		return fmt.Errorf("failed to build seat update query: %w", err)
	}

	query = tx.Rebind(query)

	result, err := tx.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update seat status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rows != int64(len(seatIDs)) {
		return fmt.Errorf("seat status update incomplete, expected %d rows, updated %d", len(seatIDs), rows)
	}

	return nil
}
