package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/models"
	"github.com/vietbus/ticketing-backend/internal/services"
)

// TripHandler handles trip catalog and scheduling operations
type TripHandler struct {
	tripService *services.TripService
	logger      *logrus.Logger
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(tripService *services.TripService, logger *logrus.Logger) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		logger:      logger,
	}
}

// CreateTrip schedules a new trip
// @Summary Schedule a trip
// @Description Schedule a trip and generate its seat map from the bus layout
// @Tags Trips
// @Accept json
// @Produce json
// @Param request body models.CreateTripRequest true "Trip request"
// @Success 201 {object} models.Trip "Trip scheduled"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Security BearerAuth
// @Router /api/v1/trips [post]
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req models.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	trip, err := h.tripService.CreateTrip(&req)
	if err != nil {
		if services.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, trip)
}

// SearchTrips searches scheduled trips
// @Summary Search trips
// @Tags Trips
// @Produce json
// @Param origin query string false "Origin city"
// @Param destination query string false "Destination city"
// @Param date query string false "Departure date (YYYY-MM-DD)"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/trips [get]
func (h *TripHandler) SearchTrips(c *gin.Context) {
	filter := models.TripSearchFilter{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	}

	if dateStr := c.Query("date"); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
			return
		}
		filter.DepartureDate = &date
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	trips, err := h.tripService.SearchTrips(filter)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trips":  trips,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetTrip retrieves one trip
// @Summary Get a trip
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} models.Trip
// @Failure 404 {object} map[string]interface{} "Trip not found"
// @Router /api/v1/trips/{id} [get]
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, trip)
}

// GetSeatMap retrieves the seat map of a trip
// @Summary Get trip seat map
// @Description Per-seat availability for seat selection. Seat state may change between viewing and booking.
// @Tags Trips
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} models.TripWithSeats
// @Failure 404 {object} map[string]interface{} "Trip not found"
// @Router /api/v1/trips/{id}/seats [get]
func (h *TripHandler) GetSeatMap(c *gin.Context) {
	seatMap, err := h.tripService.GetSeatMap(c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, seatMap)
}
