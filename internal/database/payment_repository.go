package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vietbus/ticketing-backend/internal/models"
)

// PaymentRepository handles database operations for the payments ledger.
// Ledger rows are append-mostly: a pending row is settled exactly once
// into success or failed, refunds get their own rows.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new pending payment row
func (r *PaymentRepository) Create(payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, booking_id, user_id, amount, currency, method, type, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at, updated_at
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	err := r.db.QueryRowx(
		query,
		payment.ID, payment.BookingID, payment.UserID, payment.Amount,
		payment.Currency, payment.Method, payment.Type, payment.Status,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// CreateTx inserts a payment row inside an existing transaction, used for
// refund ledger rows written alongside a cancellation
func (r *PaymentRepository) CreateTx(tx *sqlx.Tx, payment *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, booking_id, user_id, amount, currency, method, type, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at, updated_at
	`

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	err := tx.QueryRowx(
		query,
		payment.ID, payment.BookingID, payment.UserID, payment.Amount,
		payment.Currency, payment.Method, payment.Type, payment.Status,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment row. Returns nil when not found.
func (r *PaymentRepository) GetByID(paymentID uuid.UUID) (*models.Payment, error) {
	query := `
		SELECT id, booking_id, user_id, amount, currency, method, type, status,
			   gateway_txn_no, gateway_resp_code, paid_at, created_at, updated_at
		FROM payments
		WHERE id = $1
	`

	var payment models.Payment
	err := r.db.Get(&payment, query, paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

// GetForUpdateTx locks and loads a payment row inside an existing
// transaction. Reconciliation locks the row so concurrent gateway
// callbacks for the same payment serialize. Returns nil when not found.
func (r *PaymentRepository) GetForUpdateTx(tx *sqlx.Tx, paymentID uuid.UUID) (*models.Payment, error) {
	query := `
		SELECT id, booking_id, user_id, amount, currency, method, type, status,
			   gateway_txn_no, gateway_resp_code, paid_at, created_at, updated_at
		FROM payments
		WHERE id = $1
		FOR UPDATE
	`

	var payment models.Payment
	err := tx.Get(&payment, query, paymentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}

	return &payment, nil
}

// MarkSuccessTx settles a payment row as successful inside an existing
// transaction. The status guard makes the settle idempotent at the row
// level even if a duplicate callback slips past the service check.
func (r *PaymentRepository) MarkSuccessTx(tx *sqlx.Tx, paymentID uuid.UUID, gatewayTxnNo, respCode string, paidAt time.Time) error {
	query := `
		UPDATE payments
		SET status = $1, gateway_txn_no = $2, gateway_resp_code = $3,
			paid_at = $4, updated_at = NOW()
		WHERE id = $5 AND status <> $1
	`

	_, err := tx.Exec(query, models.PaymentTxStatusSuccess, gatewayTxnNo, respCode, paidAt, paymentID)
	if err != nil {
		return fmt.Errorf("failed to mark payment success: %w", err)
	}

	return nil
}

// MarkFailedTx settles a payment row as failed inside an existing
// transaction, recording the gateway response code
func (r *PaymentRepository) MarkFailedTx(tx *sqlx.Tx, paymentID uuid.UUID, respCode string) error {
	query := `
		UPDATE payments
		SET status = $1, gateway_resp_code = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	_, err := tx.Exec(query, models.PaymentTxStatusFailed, respCode, paymentID, models.PaymentTxStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	return nil
}

// MarkRefundedTx marks the original successful payment row of a booking
// as refunded inside an existing transaction
func (r *PaymentRepository) MarkRefundedTx(tx *sqlx.Tx, bookingID uuid.UUID) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE booking_id = $2 AND type = $3 AND status = $4
	`

	_, err := tx.Exec(query, models.PaymentTxStatusRefunded, bookingID, models.PaymentTypePayment, models.PaymentTxStatusSuccess)
	if err != nil {
		return fmt.Errorf("failed to mark payment refunded: %w", err)
	}

	return nil
}

// ListByUser retrieves a user's payment history joined with booking
// display fields, newest first
func (r *PaymentRepository) ListByUser(userID uuid.UUID, limit, offset int) ([]*models.PaymentWithBooking, error) {
	query := `
		SELECT p.id, p.booking_id, p.user_id, p.amount, p.currency, p.method,
			   p.type, p.status, p.gateway_txn_no, p.gateway_resp_code, p.paid_at,
			   p.created_at, p.updated_at, b.booking_code, b.trip_id
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`

	if limit <= 0 {
		limit = 20
	}

	payments := []*models.PaymentWithBooking{}
	if err := r.db.Select(&payments, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}

// HasPendingPayment reports whether a booking already has a pending
// payment row younger than the given age
func (r *PaymentRepository) HasPendingPayment(bookingID uuid.UUID, maxAge time.Duration) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE booking_id = $1 AND type = $2 AND status = $3
			  AND created_at > NOW() - $4::interval
		)
	`

	interval := fmt.Sprintf("%d seconds", int(maxAge.Seconds()))

	var exists bool
	err := r.db.Get(&exists, query, bookingID, models.PaymentTypePayment, models.PaymentTxStatusPending, interval)
	if err != nil {
		return false, fmt.Errorf("failed to check pending payments: %w", err)
	}

	return exists, nil
}
