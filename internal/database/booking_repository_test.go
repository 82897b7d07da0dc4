package database

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietbus/ticketing-backend/internal/models"
)

func TestGenerateBookingCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	t.Run("Unique On First Attempt", func(t *testing.T) {
		mock.ExpectQuery(`(?s)SELECT EXISTS\(SELECT 1 FROM bookings WHERE booking_code = (.+)\)`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		code, err := repo.GenerateBookingCode()
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^BK-\d{8}-[A-Z0-9]{6}$`), code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Retries On Collision", func(t *testing.T) {
		mock.ExpectQuery(`(?s)SELECT EXISTS`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`(?s)SELECT EXISTS`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		code, err := repo.GenerateBookingCode()
		require.NoError(t, err)
		assert.NotEmpty(t, code)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepositoryCreateTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	now := time.Now()
	booking := &models.Booking{
		ID:            uuid.New(),
		BookingCode:   "BK-20260831-ABC123",
		UserID:        uuid.New(),
		TripID:        "trip-1",
		ContactName:   "Nguyen Van A",
		ContactPhone:  "+84901234567",
		ContactEmail:  "a@example.com",
		TotalAmount:   900000,
		Status:        models.BookingStatusConfirmed,
		PaymentStatus: models.PaymentStatusPending,
		QRData:        "VIETBUS|BK-20260831-ABC123|trip-1|2",
		Items: []*models.BookingItem{
			{SeatID: 1, SeatLabel: "A1", PassengerName: "Nguyen Van A", Price: 450000},
			{SeatID: 2, SeatLabel: "A2", PassengerName: "Nguyen Van B", Price: 450000},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(`(?s)INSERT INTO booking_items`).
		WithArgs(booking.ID, int64(1), "A1", "Nguyen Van A", 450000.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(10), now))
	mock.ExpectQuery(`(?s)INSERT INTO booking_items`).
		WithArgs(booking.ID, int64(2), "A2", "Nguyen Van B", 450000.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))

	tx, err := db.Beginx()
	require.NoError(t, err)

	err = repo.CreateTx(tx, booking)
	require.NoError(t, err)
	assert.Equal(t, int64(10), booking.Items[0].ID)
	assert.Equal(t, booking.ID, booking.Items[0].BookingID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryMarkCancelledTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	bookingID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`(?s)UPDATE bookings SET status = (.+) WHERE id = (.+) AND status = (.+)`).
			WithArgs(string(models.BookingStatusCancelled), "change of plans", bookingID, string(models.BookingStatusConfirmed)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.MarkCancelledTx(tx, bookingID, "change of plans")
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Cancelled", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`(?s)UPDATE bookings SET status = (.+)`).
			WithArgs(string(models.BookingStatusCancelled), "", bookingID, string(models.BookingStatusConfirmed)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		tx, err := db.Beginx()
		require.NoError(t, err)

		err = repo.MarkCancelledTx(tx, bookingID, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not in a cancellable state")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
