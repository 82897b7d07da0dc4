package services

import (
	"crypto/hmac"
	"crypto/sha512"
	"database/sql"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietbus/ticketing-backend/internal/database"
	"github.com/vietbus/ticketing-backend/internal/models"
	"github.com/vietbus/ticketing-backend/pkg/vnpay"
)

const testHashSecret = "test-hash-secret"

func newPaymentService(t *testing.T) (*PaymentService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	gateway := vnpay.NewGateway("TESTTMN", testHashSecret, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html", "http://localhost:8080/api/v1/payments/vnpay-return")

	svc := NewPaymentService(
		db,
		database.NewBookingRepository(db),
		database.NewPaymentRepository(db),
		gateway,
		newTestLogger(),
	)

	return svc, mock
}

// signedCallback builds gateway callback params carrying a valid signature
func signedCallback(txnRef, respCode, txnNo string) url.Values {
	params := url.Values{}
	params.Set("vnp_TmnCode", "TESTTMN")
	params.Set("vnp_TxnRef", txnRef)
	params.Set("vnp_ResponseCode", respCode)
	params.Set("vnp_TransactionNo", txnNo)
	params.Set("vnp_Amount", "45000000")
	params.Set("vnp_PayDate", "20260831120000")

	mac := hmac.New(sha512.New, []byte(testHashSecret))
	mac.Write([]byte(params.Encode()))
	params.Set("vnp_SecureHash", hex.EncodeToString(mac.Sum(nil)))

	return params
}

func paymentRowFor(paymentID, bookingID, userID uuid.UUID, status models.PaymentTxStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "booking_id", "user_id", "amount", "currency", "method", "type",
		"status", "gateway_txn_no", "gateway_resp_code", "paid_at", "created_at", "updated_at",
	}).AddRow(
		paymentID, bookingID, userID, 450000.0, "VND", "vnpay", string(models.PaymentTypePayment),
		string(status), nil, nil, nil, now, now,
	)
}

func TestReconcile(t *testing.T) {
	paymentID := uuid.New()
	bookingID := uuid.New()
	userID := uuid.New()

	t.Run("Invalid Signature Changes Nothing", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		params := signedCallback(paymentID.String(), "00", "14880411")
		params.Set("vnp_SecureHash", strings.Repeat("0", 128))

		result := svc.Reconcile(params)
		assert.Equal(t, "97", result.RspCode)
		assert.False(t, result.Success)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Tampered Amount Fails Verification", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		params := signedCallback(paymentID.String(), "00", "14880411")
		params.Set("vnp_Amount", "100")

		result := svc.Reconcile(params)
		assert.Equal(t, "97", result.RspCode)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Reference Acks 01", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM payments WHERE id = (.+) FOR UPDATE`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		result := svc.Reconcile(signedCallback(paymentID.String(), "00", "14880411"))
		assert.Equal(t, "01", result.RspCode)
		assert.False(t, result.Success)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Malformed Reference Acks 01", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		result := svc.Reconcile(signedCallback("not-a-uuid", "00", "14880411"))
		assert.Equal(t, "01", result.RspCode)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success Settles Payment And Booking", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM payments WHERE id = (.+) FOR UPDATE`).
			WithArgs(paymentID).
			WillReturnRows(paymentRowFor(paymentID, bookingID, userID, models.PaymentTxStatusPending))
		mock.ExpectExec(`(?s)UPDATE payments SET status = (.+) AND status <> (.+)`).
			WithArgs(string(models.PaymentTxStatusSuccess), "14880411", "00", sqlmock.AnyArg(), paymentID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`(?s)UPDATE bookings SET payment_status = (.+)`).
			WithArgs(string(models.PaymentStatusPaid), bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result := svc.Reconcile(signedCallback(paymentID.String(), "00", "14880411"))
		assert.Equal(t, "00", result.RspCode)
		assert.True(t, result.Success)
		assert.Equal(t, bookingID, result.BookingID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate Success Callback Is A NoOp", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM payments WHERE id = (.+) FOR UPDATE`).
			WillReturnRows(paymentRowFor(paymentID, bookingID, userID, models.PaymentTxStatusSuccess))
		mock.ExpectCommit()

		result := svc.Reconcile(signedCallback(paymentID.String(), "00", "14880411"))
		assert.Equal(t, "00", result.RspCode)
		assert.True(t, result.Success)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Gateway Failure Marks Payment Failed", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM payments WHERE id = (.+) FOR UPDATE`).
			WillReturnRows(paymentRowFor(paymentID, bookingID, userID, models.PaymentTxStatusPending))
		mock.ExpectExec(`(?s)UPDATE payments SET status = (.+)`).
			WithArgs(string(models.PaymentTxStatusFailed), "24", paymentID, string(models.PaymentTxStatusPending)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`(?s)UPDATE bookings SET payment_status = (.+)`).
			WithArgs(string(models.PaymentStatusFailed), bookingID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result := svc.Reconcile(signedCallback(paymentID.String(), "24", ""))
		assert.Equal(t, "00", result.RspCode)
		assert.False(t, result.Success)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure After Success Never Downgrades", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT (.+) FROM payments WHERE id = (.+) FOR UPDATE`).
			WillReturnRows(paymentRowFor(paymentID, bookingID, userID, models.PaymentTxStatusSuccess))
		mock.ExpectCommit()

		result := svc.Reconcile(signedCallback(paymentID.String(), "24", ""))
		assert.Equal(t, "00", result.RspCode)
		assert.False(t, result.Success)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInitiatePayment(t *testing.T) {
	bookingID := uuid.New()
	userID := uuid.New()

	booking := &models.Booking{
		ID:            bookingID,
		BookingCode:   "BK-20260831-ABC123",
		UserID:        userID,
		TripID:        "trip-1",
		TotalAmount:   450000,
		Status:        models.BookingStatusConfirmed,
		PaymentStatus: models.PaymentStatusPending,
	}

	t.Run("Builds Signed Gateway URL", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		mock.ExpectQuery(`(?s)SELECT (.+) FROM bookings WHERE id = (.+)`).
			WithArgs(bookingID).
			WillReturnRows(bookingRow(booking))
		mock.ExpectQuery(`(?s)SELECT (.+) FROM booking_items`).
			WillReturnRows(itemRows(bookingID))
		mock.ExpectQuery(`(?s)INSERT INTO payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

		resp, err := svc.InitiatePayment(bookingID, userID, "203.0.113.7")
		require.NoError(t, err)
		assert.Contains(t, resp.PaymentURL, "vnp_SecureHash=")
		assert.Contains(t, resp.PaymentURL, "vnp_TxnRef="+resp.PaymentID.String())
		assert.Contains(t, resp.PaymentURL, "vnp_Amount=45000000")
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), resp.ExpiresAt, time.Minute)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects Already Paid Booking", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		paid := *booking
		paid.PaymentStatus = models.PaymentStatusPaid

		mock.ExpectQuery(`(?s)SELECT (.+) FROM bookings WHERE id = (.+)`).
			WillReturnRows(bookingRow(&paid))
		mock.ExpectQuery(`(?s)SELECT (.+) FROM booking_items`).
			WillReturnRows(itemRows(bookingID))

		_, err := svc.InitiatePayment(bookingID, userID, "203.0.113.7")
		assert.ErrorIs(t, err, ErrBookingAlreadyPaid)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects Foreign Booking", func(t *testing.T) {
		svc, mock := newPaymentService(t)

		mock.ExpectQuery(`(?s)SELECT (.+) FROM bookings WHERE id = (.+)`).
			WillReturnRows(bookingRow(booking))
		mock.ExpectQuery(`(?s)SELECT (.+) FROM booking_items`).
			WillReturnRows(itemRows(bookingID))

		_, err := svc.InitiatePayment(bookingID, uuid.New(), "203.0.113.7")
		assert.ErrorIs(t, err, ErrNotBookingOwner)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
