package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/config"
	"github.com/vietbus/ticketing-backend/internal/database"
	"github.com/vietbus/ticketing-backend/internal/models"
	"github.com/vietbus/ticketing-backend/internal/utils"
)

// Notifier delivers booking lifecycle notifications. Delivery is
// best-effort and never affects the outcome of the booking transaction.
type Notifier interface {
	SendBookingConfirmation(booking *models.Booking, trip *models.Trip)
	SendBookingCancellation(booking *models.Booking, trip *models.Trip)
}

// BookingService orchestrates seat booking and cancellation. All state
// transitions happen inside a single database transaction per operation,
// with row-level locks on the requested seats only.
type BookingService struct {
	db          *sqlx.DB
	tripRepo    *database.TripRepository
	seatRepo    *database.SeatRepository
	bookingRepo *database.BookingRepository
	paymentRepo *database.PaymentRepository
	notifier    Notifier
	cfg         config.BookingConfig
	logger      *logrus.Logger
	now         func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(
	db *sqlx.DB,
	tripRepo *database.TripRepository,
	seatRepo *database.SeatRepository,
	bookingRepo *database.BookingRepository,
	paymentRepo *database.PaymentRepository,
	notifier Notifier,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		db:          db,
		tripRepo:    tripRepo,
		seatRepo:    seatRepo,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateBooking books the requested seats for userID on one trip. Either
// every requested seat is booked and paid-state initialized, or nothing
// changes. Conflicting seats are reported by label so the client can
// offer a re-pick.
func (s *BookingService) CreateBooking(userID uuid.UUID, req *models.CreateBookingRequest, device utils.DeviceInfo) (*models.Booking, error) {
	if len(req.Passengers) == 0 {
		return nil, ErrEmptySeatList
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid booking request: %w", err)
	}

	bookingCode, err := s.bookingRepo.GenerateBookingCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking code: %w", err)
	}

	labels := req.SeatLabels()
	passengerByLabel := make(map[string]string, len(req.Passengers))
	for _, p := range req.Passengers {
		passengerByLabel[p.SeatLabel] = p.PassengerName
	}

	var booking *models.Booking
	var trip *models.Trip

	err = database.RunInTx(s.db, func(tx *sqlx.Tx) error {
		trip, err = s.tripRepo.GetByIDTx(tx, req.TripID)
		if err != nil {
			return err
		}
		if trip == nil {
			return ErrTripNotFound
		}

		now := s.now()
		if !trip.IsBookable(now) {
			reason := "trip is " + string(trip.Status)
			if trip.Status == models.TripStatusScheduled {
				reason = "trip has already departed"
			}
			return &TripUnavailableError{TripID: trip.ID, Reason: reason}
		}

		seats, err := s.seatRepo.GetForUpdate(tx, trip.ID, labels)
		if err != nil {
			return err
		}

		if err := checkRequestedSeats(trip.ID, labels, seats, now); err != nil {
			return err
		}

		// Prices are snapshotted onto the items at this instant; later
		// fare changes never alter an issued booking.
		var total float64
		seatIDs := make([]int64, 0, len(seats))
		items := make([]*models.BookingItem, 0, len(seats))
		for _, seat := range seats {
			total += seat.Price
			seatIDs = append(seatIDs, seat.ID)
			items = append(items, &models.BookingItem{
				SeatID:        seat.ID,
				SeatLabel:     seat.SeatLabel,
				PassengerName: passengerByLabel[seat.SeatLabel],
				Price:         seat.Price,
			})
		}

		if err := s.seatRepo.MarkBooked(tx, trip.ID, seatIDs); err != nil {
			return err
		}

		if err := s.tripRepo.AdjustAvailableSeats(tx, trip.ID, -len(seatIDs)); err != nil {
			return err
		}

		booking = &models.Booking{
			ID:             uuid.New(),
			BookingCode:    bookingCode,
			UserID:         userID,
			TripID:         trip.ID,
			ContactName:    req.ContactName,
			ContactPhone:   req.ContactPhone,
			ContactEmail:   req.ContactEmail,
			TotalAmount:    total,
			Status:         models.BookingStatusConfirmed,
			PaymentStatus:  models.PaymentStatusPending,
			QRData:         fmt.Sprintf("VIETBUS|%s|%s|%d", bookingCode, trip.ID, len(items)),
			DeviceType:     device.DeviceType,
			DevicePlatform: device.Platform,
			Items:          items,
		}

		return s.bookingRepo.CreateTx(tx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"trip_id":      booking.TripID,
		"user_id":      userID,
		"seats":        labels,
		"total_amount": booking.TotalAmount,
	}).Info("Booking created")

	if s.notifier != nil {
		go s.notifier.SendBookingConfirmation(booking, trip)
	}

	return booking, nil
}

// checkRequestedSeats validates locked seat rows against the requested
// labels. A label with no row is a validation error; a taken seat is a
// conflict. Booked conflicts are reported ahead of reservation holds,
// and an expired hold counts as available.
func checkRequestedSeats(tripID string, labels []string, seats []*models.Seat, now time.Time) error {
	if len(seats) != len(labels) {
		found := make(map[string]bool, len(seats))
		for _, seat := range seats {
			found[seat.SeatLabel] = true
		}
		missing := []string{}
		for _, label := range labels {
			if !found[label] {
				missing = append(missing, label)
			}
		}
		return &SeatNotFoundError{TripID: tripID, Labels: missing}
	}

	var bookedLabels, reservedLabels []string
	for _, seat := range seats {
		if !seat.IsTaken(now) {
			continue
		}
		if seat.Status == models.SeatStatusBooked {
			bookedLabels = append(bookedLabels, seat.SeatLabel)
		} else {
			reservedLabels = append(reservedLabels, seat.SeatLabel)
		}
	}
	if len(bookedLabels) > 0 {
		return &SeatConflictError{TripID: tripID, Labels: bookedLabels, Reason: "already booked"}
	}
	if len(reservedLabels) > 0 {
		return &SeatConflictError{TripID: tripID, Labels: reservedLabels, Reason: "reserved"}
	}

	return nil
}

// HoldSeats places a soft hold on the requested seats so a user can
// finish checkout without losing them. Holds expire after the configured
// TTL and never move the trip counter; only a completed booking does.
func (s *BookingService) HoldSeats(userID uuid.UUID, req *models.HoldSeatsRequest) (*models.SeatHold, error) {
	if len(req.SeatLabels) == 0 {
		return nil, ErrEmptySeatList
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hold request: %w", err)
	}

	var hold *models.SeatHold

	err := database.RunInTx(s.db, func(tx *sqlx.Tx) error {
		trip, err := s.tripRepo.GetByIDTx(tx, req.TripID)
		if err != nil {
			return err
		}
		if trip == nil {
			return ErrTripNotFound
		}

		now := s.now()
		if !trip.IsBookable(now) {
			reason := "trip is " + string(trip.Status)
			if trip.Status == models.TripStatusScheduled {
				reason = "trip has already departed"
			}
			return &TripUnavailableError{TripID: trip.ID, Reason: reason}
		}

		seats, err := s.seatRepo.GetForUpdate(tx, trip.ID, req.SeatLabels)
		if err != nil {
			return err
		}

		if err := checkRequestedSeats(trip.ID, req.SeatLabels, seats, now); err != nil {
			return err
		}

		until := now.Add(s.cfg.ReservationTTL)
		seatIDs := make([]int64, 0, len(seats))
		for _, seat := range seats {
			seatIDs = append(seatIDs, seat.ID)
		}

		if err := s.seatRepo.MarkReserved(tx, trip.ID, seatIDs, until); err != nil {
			return err
		}

		hold = &models.SeatHold{
			TripID:        trip.ID,
			SeatLabels:    req.SeatLabels,
			ReservedUntil: until,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":        hold.TripID,
		"user_id":        userID,
		"seats":          hold.SeatLabels,
		"reserved_until": hold.ReservedUntil,
	}).Info("Seats held")

	return hold, nil
}

// ReleaseExpiredHolds returns lapsed seat reservations to the available
// pool. Called periodically by the background scheduler; expiry is also
// honored lazily wherever seats are checked, so a missed run only delays
// the visible seat map.
func (s *BookingService) ReleaseExpiredHolds() (int64, error) {
	released, err := s.seatRepo.ReleaseExpiredReservations(s.now())
	if err != nil {
		return 0, err
	}

	if released > 0 {
		s.logger.WithField("seats_released", released).Info("Expired seat holds released")
	}

	return released, nil
}

// CancelBooking cancels a booking owned by userID, releasing its seats
// and restoring the trip counter. Paid bookings get a refund ledger row.
// Cancellation is rejected inside the configured cutoff before departure.
func (s *BookingService) CancelBooking(bookingID, userID uuid.UUID, reason string) (*models.Booking, error) {
	var booking *models.Booking
	var trip *models.Trip

	err := database.RunInTx(s.db, func(tx *sqlx.Tx) error {
		var err error
		booking, err = s.bookingRepo.GetForUpdateTx(tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return ErrBookingNotFound
		}

		if booking.UserID != userID {
			return ErrNotBookingOwner
		}

		if booking.Status != models.BookingStatusConfirmed {
			return ErrBookingNotCancellable
		}

		trip, err = s.tripRepo.GetByIDTx(tx, booking.TripID)
		if err != nil {
			return err
		}
		if trip == nil {
			return fmt.Errorf("trip %s missing for booking %s", booking.TripID, booking.ID)
		}

		if s.now().After(trip.DepartureTime.Add(-s.cfg.CancellationCutoff)) {
			return ErrCancellationWindowClosed
		}

		if err := s.bookingRepo.MarkCancelledTx(tx, booking.ID, reason); err != nil {
			return err
		}

		seatIDs := make([]int64, 0, len(booking.Items))
		for _, item := range booking.Items {
			seatIDs = append(seatIDs, item.SeatID)
		}

		if err := s.seatRepo.MarkAvailable(tx, booking.TripID, seatIDs); err != nil {
			return err
		}

		if err := s.tripRepo.AdjustAvailableSeats(tx, booking.TripID, len(seatIDs)); err != nil {
			return err
		}

		if booking.PaymentStatus == models.PaymentStatusPaid {
			if err := s.bookingRepo.UpdatePaymentStatusTx(tx, booking.ID, models.PaymentStatusRefunded); err != nil {
				return err
			}
			if err := s.paymentRepo.MarkRefundedTx(tx, booking.ID); err != nil {
				return err
			}
			refund := &models.Payment{
				BookingID: booking.ID,
				UserID:    booking.UserID,
				Amount:    booking.TotalAmount,
				Currency:  "VND",
				Method:    "vnpay",
				Type:      models.PaymentTypeRefund,
				Status:    models.PaymentTxStatusSuccess,
			}
			if err := s.paymentRepo.CreateTx(tx, refund); err != nil {
				return err
			}
			booking.PaymentStatus = models.PaymentStatusRefunded
		}

		booking.Status = models.BookingStatusCancelled
		booking.CancellationReason = &reason

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"trip_id":      booking.TripID,
		"user_id":      userID,
		"reason":       reason,
	}).Info("Booking cancelled")

	if s.notifier != nil {
		go s.notifier.SendBookingCancellation(booking, trip)
	}

	return booking, nil
}

// GetBooking retrieves a booking owned by userID
func (s *BookingService) GetBooking(bookingID, userID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, ErrNotBookingOwner
	}

	return booking, nil
}

// ListBookings retrieves a user's booking history, newest first
func (s *BookingService) ListBookings(userID uuid.UUID, filter models.BookingListFilter) ([]*models.Booking, error) {
	return s.bookingRepo.ListByUser(userID, filter)
}
