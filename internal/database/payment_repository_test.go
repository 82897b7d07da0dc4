package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietbus/ticketing-backend/internal/models"
)

func TestPaymentRepositoryGetForUpdateTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	paymentID := uuid.New()
	bookingID := uuid.New()
	userID := uuid.New()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM payments WHERE id = (.+) FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "booking_id", "user_id", "amount", "currency", "method", "type",
				"status", "gateway_txn_no", "gateway_resp_code", "paid_at", "created_at", "updated_at",
			}).AddRow(
				paymentID, bookingID, userID, 450000.0, "VND", "vnpay", string(models.PaymentTypePayment),
				string(models.PaymentTxStatusPending), nil, nil, nil, now, now,
			))

		tx, err := db.Beginx()
		require.NoError(t, err)

		payment, err := repo.GetForUpdateTx(tx, paymentID)
		require.NoError(t, err)
		require.NotNil(t, payment)
		assert.Equal(t, models.PaymentTxStatusPending, payment.Status)
		assert.Nil(t, payment.PaidAt)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM payments WHERE id = (.+) FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnError(sql.ErrNoRows)

		tx, err := db.Beginx()
		require.NoError(t, err)

		payment, err := repo.GetForUpdateTx(tx, paymentID)
		require.NoError(t, err)
		assert.Nil(t, payment)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPaymentRepositoryMarkSuccessTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	paymentID := uuid.New()
	paidAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)UPDATE payments SET status = (.+) WHERE id = (.+) AND status <> (.+)`).
		WithArgs(string(models.PaymentTxStatusSuccess), "14880411", "00", paidAt, paymentID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Beginx()
	require.NoError(t, err)

	err = repo.MarkSuccessTx(tx, paymentID, "14880411", "00", paidAt)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
