package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/middleware"
	"github.com/vietbus/ticketing-backend/internal/models"
	"github.com/vietbus/ticketing-backend/internal/services"
	"github.com/vietbus/ticketing-backend/internal/utils"
)

// PaymentHandler handles payment initiation and gateway callbacks
type PaymentHandler struct {
	paymentService *services.PaymentService
	clientURL      string
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *services.PaymentService, clientURL string, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		clientURL:      clientURL,
		logger:         logger,
	}
}

// InitiatePayment starts a payment for a booking
// @Summary Initiate a payment
// @Description Open a pending payment and return the gateway URL to redirect the user to
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.InitiatePaymentRequest true "Payment request"
// @Success 201 {object} models.InitiatePaymentResponse
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Booking already paid"
// @Security BearerAuth
// @Router /api/v1/payments [post]
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	resp, err := h.paymentService.InitiatePayment(req.BookingID, userCtx.UserID, utils.GetRealIP(c))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// VNPayReturn handles the user-redirect callback from the gateway. It
// reconciles the result and redirects the user to the client app.
// @Summary VNPay return URL
// @Tags Payments
// @Success 302 "Redirect to client app"
// @Router /api/v1/payments/vnpay-return [get]
func (h *PaymentHandler) VNPayReturn(c *gin.Context) {
	result := h.paymentService.Reconcile(c.Request.URL.Query())

	status := "failure"
	if result.Success {
		status = "success"
	}

	redirect := fmt.Sprintf("%s/payment/%s?booking_id=%s", h.clientURL, status, result.BookingID)
	c.Redirect(http.StatusFound, redirect)
}

// VNPayIPN handles the server-to-server notification from the gateway.
// The gateway retries until it receives a well-formed acknowledgement,
// so this endpoint always returns 200 with an RspCode body.
// @Summary VNPay IPN endpoint
// @Produce json
// @Tags Payments
// @Success 200 {object} models.IPNResponse
// @Router /api/v1/payments/vnpay-ipn [get]
func (h *PaymentHandler) VNPayIPN(c *gin.Context) {
	result := h.paymentService.Reconcile(c.Request.URL.Query())

	c.JSON(http.StatusOK, models.IPNResponse{
		RspCode: result.RspCode,
		Message: result.Message,
	})
}

// GetPayment retrieves one payment
// @Summary Get a payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} models.Payment
// @Failure 404 {object} map[string]interface{} "Payment not found"
// @Security BearerAuth
// @Router /api/v1/payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	paymentID, err := uuidParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	payment, err := h.paymentService.GetPayment(paymentID, userCtx.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// ListPayments retrieves the user's payment history
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := h.paymentService.ListPayments(userCtx.UserID, limit, offset)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"limit":    limit,
		"offset":   offset,
	})
}
