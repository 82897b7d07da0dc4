package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/services"
)

// uuidParam parses a UUID path parameter
func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// respondServiceError maps service-layer errors onto HTTP responses.
// Conflicts, validation failures and lookups all get distinct statuses
// so a client can always tell "seat taken" from "server error".
func respondServiceError(c *gin.Context, logger *logrus.Logger, err error) {
	var conflict *services.SeatConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error": conflict.Error(),
			"code":  "SEAT_CONFLICT",
			"seats": conflict.Labels,
		})
		return
	}

	var notFound *services.SeatNotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": notFound.Error(),
			"code":  "SEAT_NOT_FOUND",
			"seats": notFound.Labels,
		})
		return
	}

	var unavailable *services.TripUnavailableError
	if errors.As(err, &unavailable) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": unavailable.Error(),
			"code":  "TRIP_UNAVAILABLE",
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrEmptySeatList):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "EMPTY_SEAT_LIST"})
	case errors.Is(err, services.ErrTripNotFound),
		errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NOT_FOUND"})
	case errors.Is(err, services.ErrNotBookingOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "FORBIDDEN"})
	case errors.Is(err, services.ErrCancellationWindowClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "CANCELLATION_WINDOW_CLOSED"})
	case errors.Is(err, services.ErrBookingNotCancellable),
		errors.Is(err, services.ErrBookingAlreadyPaid),
		errors.Is(err, services.ErrBookingCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "INVALID_STATE"})
	default:
		logger.WithError(err).Error("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
