package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/config"
	"github.com/vietbus/ticketing-backend/internal/models"
)

// NotificationService delivers booking lifecycle notifications. In dev
// mode it only logs; in production mode it posts to the configured
// webhook. Failures are logged and dropped, delivery never blocks or
// rolls back a booking.
type NotificationService struct {
	cfg    config.NotificationConfig
	client *http.Client
	logger *logrus.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(cfg config.NotificationConfig, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type notificationPayload struct {
	Event       string  `json:"event"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	ContactName string  `json:"contact_name"`
	BookingCode string  `json:"booking_code"`
	RouteName   string  `json:"route_name"`
	Departure   string  `json:"departure"`
	TotalAmount float64 `json:"total_amount"`
	Message     string  `json:"message"`
}

// SendBookingConfirmation sends a booking confirmation notification
func (s *NotificationService) SendBookingConfirmation(booking *models.Booking, trip *models.Trip) {
	payload := s.buildPayload("booking.confirmed", booking, trip)
	payload.Message = fmt.Sprintf(
		"Your booking %s for %s departing %s is confirmed. Total: %.0f VND.",
		booking.BookingCode, trip.RouteName,
		trip.DepartureTime.Format("02 Jan 2006 15:04"), booking.TotalAmount,
	)
	s.deliver(payload)
}

// SendBookingCancellation sends a booking cancellation notification
func (s *NotificationService) SendBookingCancellation(booking *models.Booking, trip *models.Trip) {
	payload := s.buildPayload("booking.cancelled", booking, trip)
	payload.Message = fmt.Sprintf(
		"Your booking %s for %s has been cancelled.",
		booking.BookingCode, trip.RouteName,
	)
	s.deliver(payload)
}

func (s *NotificationService) buildPayload(event string, booking *models.Booking, trip *models.Trip) notificationPayload {
	return notificationPayload{
		Event:       event,
		From:        s.cfg.FromEmail,
		To:          booking.ContactEmail,
		ContactName: booking.ContactName,
		BookingCode: booking.BookingCode,
		RouteName:   trip.RouteName,
		Departure:   trip.DepartureTime.Format(time.RFC3339),
		TotalAmount: booking.TotalAmount,
	}
}

func (s *NotificationService) deliver(payload notificationPayload) {
	if s.cfg.Mode != "production" {
		s.logger.WithFields(logrus.Fields{
			"event":        payload.Event,
			"to":           payload.To,
			"booking_code": payload.BookingCode,
			"message":      payload.Message,
		}).Info("Notification (dev mode, not delivered)")
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode notification payload")
		return
	}

	resp, err := s.client.Post(s.cfg.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"event":        payload.Event,
			"booking_code": payload.BookingCode,
			"error":        err.Error(),
		}).Error("Failed to deliver notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.WithFields(logrus.Fields{
			"event":        payload.Event,
			"booking_code": payload.BookingCode,
			"status":       resp.StatusCode,
		}).Error("Notification webhook rejected delivery")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"event":        payload.Event,
		"booking_code": payload.BookingCode,
	}).Info("Notification delivered")
}
