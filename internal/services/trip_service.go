package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/database"
	"github.com/vietbus/ticketing-backend/internal/models"
)

// TripService handles trip scheduling and the trip catalog read surface
type TripService struct {
	db       *sqlx.DB
	tripRepo *database.TripRepository
	seatRepo *database.SeatRepository
	logger   *logrus.Logger
}

// NewTripService creates a new TripService
func NewTripService(db *sqlx.DB, tripRepo *database.TripRepository, seatRepo *database.SeatRepository, logger *logrus.Logger) *TripService {
	return &TripService{
		db:       db,
		tripRepo: tripRepo,
		seatRepo: seatRepo,
		logger:   logger,
	}
}

// CreateTrip schedules a new trip and generates its seat rows from the
// bus layout in one transaction
func (s *TripService) CreateTrip(req *models.CreateTripRequest) (*models.Trip, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trip request: %w", err)
	}

	trip := &models.Trip{
		ID:             uuid.New().String(),
		RouteName:      req.RouteName,
		Origin:         req.Origin,
		Destination:    req.Destination,
		BusPlateNumber: req.BusPlateNumber,
		BusType:        req.BusType,
		DepartureTime:  req.DepartureTime,
		ArrivalTime:    req.ArrivalTime,
		BasePrice:      req.BasePrice,
		TotalSeats:     len(req.SeatLayout),
		AvailableSeats: len(req.SeatLayout),
		Status:         models.TripStatusScheduled,
	}

	seats := make([]*models.Seat, 0, len(req.SeatLayout))
	for _, entry := range req.SeatLayout {
		price := req.BasePrice
		if entry.Price != nil {
			price = *entry.Price
		}
		seats = append(seats, &models.Seat{
			TripID:    trip.ID,
			SeatLabel: entry.Label,
			Price:     price,
			Status:    models.SeatStatusAvailable,
		})
	}

	err := database.RunInTx(s.db, func(tx *sqlx.Tx) error {
		if err := s.tripRepo.CreateTx(tx, trip); err != nil {
			return err
		}
		return s.seatRepo.BulkInsertTx(tx, seats)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":     trip.ID,
		"route_name":  trip.RouteName,
		"departure":   trip.DepartureTime,
		"total_seats": trip.TotalSeats,
	}).Info("Trip scheduled")

	return trip, nil
}

// SearchTrips retrieves scheduled trips matching the filter
func (s *TripService) SearchTrips(filter models.TripSearchFilter) ([]*models.Trip, error) {
	return s.tripRepo.Search(filter)
}

// GetTrip retrieves one trip
func (s *TripService) GetTrip(tripID string) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrTripNotFound
	}

	return trip, nil
}

// GetSeatMap retrieves a trip with its per-seat availability. The seat
// rows are the per-seat truth; the trip counter stays the aggregate.
func (s *TripService) GetSeatMap(tripID string) (*models.TripWithSeats, error) {
	trip, err := s.GetTrip(tripID)
	if err != nil {
		return nil, err
	}

	seats, err := s.seatRepo.GetByTripID(tripID)
	if err != nil {
		return nil, err
	}

	return &models.TripWithSeats{Trip: trip, Seats: seats}, nil
}
