package database

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vietbus/ticketing-backend/internal/models"
)

// BookingRepository handles database operations for the bookings and
// booking_items tables
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GenerateBookingCode generates a unique human-readable booking code in
// the format BK-YYYYMMDD-XXXXXX
func (r *BookingRepository) GenerateBookingCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const codeLength = 6
	const maxAttempts = 10

	datePart := time.Now().Format("20060102")

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := make([]byte, codeLength)
		for i := range code {
			num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
			if err != nil {
				return "", fmt.Errorf("failed to generate random number: %w", err)
			}
			code[i] = charset[num.Int64()]
		}

		bookingCode := fmt.Sprintf("BK-%s-%s", datePart, string(code))

		// Check uniqueness
		var exists bool
		query := `SELECT EXISTS(SELECT 1 FROM bookings WHERE booking_code = $1)`
		if err := r.db.Get(&exists, query, bookingCode); err != nil {
			return "", fmt.Errorf("failed to check booking code uniqueness: %w", err)
		}

		if !exists {
			return bookingCode, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique booking code after %d attempts", maxAttempts)
}

// CreateTx inserts a booking and its items inside an existing
// transaction. Seat status transitions and the trip counter move in the
// same transaction, handled by their own repositories.
func (r *BookingRepository) CreateTx(tx *sqlx.Tx, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (
			id, booking_code, user_id, trip_id, contact_name, contact_phone,
			contact_email, total_amount, status, payment_status, qr_data,
			device_type, device_platform
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING created_at, updated_at
	`

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	err := tx.QueryRowx(
		query,
		booking.ID, booking.BookingCode, booking.UserID, booking.TripID,
		booking.ContactName, booking.ContactPhone, booking.ContactEmail,
		booking.TotalAmount, booking.Status, booking.PaymentStatus,
		booking.QRData, booking.DeviceType, booking.DevicePlatform,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	itemQuery := `
		INSERT INTO booking_items (booking_id, seat_id, seat_label, passenger_name, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	for _, item := range booking.Items {
		item.BookingID = booking.ID
		err := tx.QueryRowx(
			itemQuery,
			item.BookingID, item.SeatID, item.SeatLabel, item.PassengerName, item.Price,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create booking item for seat %s: %w", item.SeatLabel, err)
		}
	}

	return nil
}

// GetByID retrieves a booking with its items. Returns nil when not found.
func (r *BookingRepository) GetByID(bookingID uuid.UUID) (*models.Booking, error) {
	query := `
		SELECT id, booking_code, user_id, trip_id, contact_name, contact_phone,
			   contact_email, total_amount, status, payment_status, qr_data,
			   device_type, device_platform, cancellation_reason, cancelled_at,
			   created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking models.Booking
	err := r.db.Get(&booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	items, err := r.getItems(bookingID)
	if err != nil {
		return nil, err
	}
	booking.Items = items

	return &booking, nil
}

// GetForUpdateTx locks and loads a booking with its items inside an
// existing transaction. Returns nil when not found.
func (r *BookingRepository) GetForUpdateTx(tx *sqlx.Tx, bookingID uuid.UUID) (*models.Booking, error) {
	query := `
		SELECT id, booking_code, user_id, trip_id, contact_name, contact_phone,
			   contact_email, total_amount, status, payment_status, qr_data,
			   device_type, device_platform, cancellation_reason, cancelled_at,
			   created_at, updated_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`

	var booking models.Booking
	err := tx.Get(&booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}

	itemQuery := `
		SELECT id, booking_id, seat_id, seat_label, passenger_name, price, created_at
		FROM booking_items
		WHERE booking_id = $1
		ORDER BY seat_label ASC
	`

	items := []*models.BookingItem{}
	if err := tx.Select(&items, itemQuery, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get booking items: %w", err)
	}
	booking.Items = items

	return &booking, nil
}

// ListByUser retrieves a user's bookings, newest first
func (r *BookingRepository) ListByUser(userID uuid.UUID, filter models.BookingListFilter) ([]*models.Booking, error) {
	query := `
		SELECT id, booking_code, user_id, trip_id, contact_name, contact_phone,
			   contact_email, total_amount, status, payment_status, qr_data,
			   device_type, device_platform, cancellation_reason, cancelled_at,
			   created_at, updated_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	bookings := []*models.Booking{}
	if err := r.db.Select(&bookings, query, userID, limit, filter.Offset); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, nil
}

// MarkCancelledTx transitions a booking to cancelled inside an existing
// transaction
func (r *BookingRepository) MarkCancelledTx(tx *sqlx.Tx, bookingID uuid.UUID, reason string) error {
	query := `
		UPDATE bookings
		SET status = $1, cancellation_reason = $2, cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := tx.Exec(query, models.BookingStatusCancelled, reason, bookingID, models.BookingStatusConfirmed)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rows != 1 {
		return fmt.Errorf("booking %s is not in a cancellable state", bookingID)
	}

	return nil
}

// UpdatePaymentStatusTx updates the booking payment status inside an
// existing transaction. Seat rows are never touched here; a failed
// payment leaves the seats booked.
func (r *BookingRepository) UpdatePaymentStatusTx(tx *sqlx.Tx, bookingID uuid.UUID, status models.PaymentStatus) error {
	query := `
		UPDATE bookings
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := tx.Exec(query, status, bookingID)
	if err != nil {
		return fmt.Errorf("failed to update booking payment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}

	if rows != 1 {
		return fmt.Errorf("booking %s not found for payment status update", bookingID)
	}

	return nil
}

func (r *BookingRepository) getItems(bookingID uuid.UUID) ([]*models.BookingItem, error) {
	query := `
		SELECT id, booking_id, seat_id, seat_label, passenger_name, price, created_at
		FROM booking_items
		WHERE booking_id = $1
		ORDER BY seat_label ASC
	`

	items := []*models.BookingItem{}
	if err := r.db.Select(&items, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get booking items: %w", err)
	}

	return items, nil
}
