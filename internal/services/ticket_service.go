package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"
	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/models"
)

// TicketService renders PDF e-tickets for confirmed bookings
type TicketService struct {
	bookingService *BookingService
	tripService    *TripService
	logger         *logrus.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(bookingService *BookingService, tripService *TripService, logger *logrus.Logger) *TicketService {
	return &TicketService{
		bookingService: bookingService,
		tripService:    tripService,
		logger:         logger,
	}
}

// GenerateETicket renders the e-ticket PDF for a booking owned by
// userID. Cancelled bookings have no ticket.
func (s *TicketService) GenerateETicket(bookingID, userID uuid.UUID) ([]byte, string, error) {
	booking, err := s.bookingService.GetBooking(bookingID, userID)
	if err != nil {
		return nil, "", err
	}

	if booking.Status == models.BookingStatusCancelled {
		return nil, "", ErrBookingCancelled
	}

	trip, err := s.tripService.GetTrip(booking.TripID)
	if err != nil {
		return nil, "", err
	}

	pdfBytes, err := buildETicketPDF(booking, trip)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render e-ticket: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
	}).Info("E-ticket generated")

	filename := fmt.Sprintf("ETICKET_%s.pdf", booking.BookingCode)
	return pdfBytes, filename, nil
}

func buildETicketPDF(booking *models.Booking, trip *models.Trip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	seatLabels := make([]string, 0, len(booking.Items))
	for _, item := range booking.Items {
		seatLabels = append(seatLabels, item.SeatLabel)
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking code : %s", booking.BookingCode),
		fmt.Sprintf("Contact      : %s (%s)", booking.ContactName, booking.ContactPhone),
		fmt.Sprintf("Route        : %s -> %s", trip.Origin, trip.Destination),
		fmt.Sprintf("Bus          : %s (%s)", trip.BusPlateNumber, trip.BusType),
		fmt.Sprintf("Departure    : %s", trip.DepartureTime.Format("02 Jan 2006 15:04")),
		fmt.Sprintf("Seats        : %s", strings.Join(seatLabels, ", ")),
		fmt.Sprintf("Total        : %.0f VND", booking.TotalAmount),
		fmt.Sprintf("Payment      : %s", booking.PaymentStatus),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Passengers")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 11)
	for _, item := range booking.Items {
		pdf.Cell(0, 6, fmt.Sprintf("Seat %-4s  %s  (%.0f VND)", item.SeatLabel, item.PassengerName, item.Price))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this ticket together with a valid ID when boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
