package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentTxStatus represents the status of one payment ledger row
type PaymentTxStatus string

const (
	PaymentTxStatusPending  PaymentTxStatus = "pending"
	PaymentTxStatusSuccess  PaymentTxStatus = "success"
	PaymentTxStatusFailed   PaymentTxStatus = "failed"
	PaymentTxStatusRefunded PaymentTxStatus = "refunded"
)

// PaymentType distinguishes charges from refunds in the ledger
type PaymentType string

const (
	PaymentTypePayment PaymentType = "payment"
	PaymentTypeRefund  PaymentType = "refund"
)

// Payment is one ledger row of the payment history for a booking. A
// booking may accumulate several rows (failed attempts, the successful
// charge, a refund); rows are never rewritten into a different type.
type Payment struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	BookingID       uuid.UUID       `json:"booking_id" db:"booking_id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Amount          float64         `json:"amount" db:"amount"`
	Currency        string          `json:"currency" db:"currency"`
	Method          string          `json:"method" db:"method"`
	Type            PaymentType     `json:"type" db:"type"`
	Status          PaymentTxStatus `json:"status" db:"status"`
	GatewayTxnNo    *string         `json:"gateway_txn_no,omitempty" db:"gateway_txn_no"`
	GatewayRespCode *string         `json:"gateway_resp_code,omitempty" db:"gateway_resp_code"`
	PaidAt          *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// PaymentWithBooking joins a payment row with booking display fields for
// the payment history endpoint
type PaymentWithBooking struct {
	Payment
	BookingCode string `json:"booking_code" db:"booking_code"`
	TripID      string `json:"trip_id" db:"trip_id"`
}

// InitiatePaymentRequest represents a payment initiation request
type InitiatePaymentRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
}

// InitiatePaymentResponse carries the gateway redirect URL back to the client
type InitiatePaymentResponse struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	PaymentURL string    `json:"payment_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IPNResponse is the acknowledgement body the gateway expects from the
// server-to-server notification endpoint
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}
