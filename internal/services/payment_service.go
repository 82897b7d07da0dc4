package services

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/database"
	"github.com/vietbus/ticketing-backend/internal/models"
	"github.com/vietbus/ticketing-backend/pkg/vnpay"
)

// IPN acknowledgement codes the gateway expects
const (
	ipnCodeSuccess          = "00"
	ipnCodePaymentNotFound  = "01"
	ipnCodeInvalidSignature = "97"
	ipnCodeInternalError    = "99"
)

// ReconcileResult is the outcome of processing one gateway callback. The
// same result feeds both the IPN acknowledgement body and the user
// redirect.
type ReconcileResult struct {
	RspCode   string
	Message   string
	Success   bool
	BookingID uuid.UUID
}

// PaymentService initiates payments against the VNPay gateway and
// reconciles its callbacks into the payment ledger and booking state
type PaymentService struct {
	db          *sqlx.DB
	bookingRepo *database.BookingRepository
	paymentRepo *database.PaymentRepository
	gateway     *vnpay.Gateway
	logger      *logrus.Logger
	now         func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	db *sqlx.DB,
	bookingRepo *database.BookingRepository,
	paymentRepo *database.PaymentRepository,
	gateway *vnpay.Gateway,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		db:          db,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		logger:      logger,
		now:         time.Now,
	}
}

// InitiatePayment opens a pending payment ledger row for a booking and
// returns the signed gateway URL the client should redirect to. The
// payment ID doubles as the gateway transaction reference.
func (s *PaymentService) InitiatePayment(bookingID, userID uuid.UUID, ipAddr string) (*models.InitiatePaymentResponse, error) {
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

	if booking.Status == models.BookingStatusCancelled {
		return nil, ErrBookingCancelled
	}

	if booking.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrBookingAlreadyPaid
	}

	payment := &models.Payment{
		ID:        uuid.New(),
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Amount:    booking.TotalAmount,
		Currency:  "VND",
		Method:    "vnpay",
		Type:      models.PaymentTypePayment,
		Status:    models.PaymentTxStatusPending,
	}

	if err := s.paymentRepo.Create(payment); err != nil {
		return nil, err
	}

	paymentURL, expiresAt, err := s.gateway.BuildPaymentURL(vnpay.PaymentRequest{
		TxnRef:    payment.ID.String(),
		Amount:    payment.Amount,
		OrderInfo: fmt.Sprintf("Thanh toan don hang %s", booking.BookingCode),
		IPAddr:    ipAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build payment URL: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":   payment.ID,
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"amount":       payment.Amount,
	}).Info("Payment initiated")

	return &models.InitiatePaymentResponse{
		PaymentID:  payment.ID,
		PaymentURL: paymentURL,
		ExpiresAt:  expiresAt,
	}, nil
}

// Reconcile processes one gateway callback, shared by the user-redirect
// return and the server-to-server IPN. It is idempotent: duplicate
// success callbacks acknowledge without reapplying, and a bad signature
// or unknown reference changes nothing.
func (s *PaymentService) Reconcile(params url.Values) *ReconcileResult {
	if !s.gateway.VerifySignature(params) {
		s.logger.WithFields(logrus.Fields{
			"txn_ref": params.Get("vnp_TxnRef"),
			"ip":      params.Get("vnp_IpAddr"),
		}).Warn("Payment callback with invalid signature rejected")
		return &ReconcileResult{RspCode: ipnCodeInvalidSignature, Message: "Invalid signature"}
	}

	paymentID, err := uuid.Parse(params.Get("vnp_TxnRef"))
	if err != nil {
		return &ReconcileResult{RspCode: ipnCodePaymentNotFound, Message: "Payment not found"}
	}

	respCode := params.Get("vnp_ResponseCode")
	gatewayTxnNo := params.Get("vnp_TransactionNo")

	result := &ReconcileResult{}

	err = database.RunInTx(s.db, func(tx *sqlx.Tx) error {
		payment, err := s.paymentRepo.GetForUpdateTx(tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}

		result.BookingID = payment.BookingID

		if respCode == vnpay.ResponseCodeSuccess {
			if payment.Status == models.PaymentTxStatusSuccess {
				// Duplicate callback, already applied.
				result.RspCode = ipnCodeSuccess
				result.Message = "Payment already confirmed"
				result.Success = true
				return nil
			}

			if err := s.paymentRepo.MarkSuccessTx(tx, payment.ID, gatewayTxnNo, respCode, s.now()); err != nil {
				return err
			}
			if err := s.bookingRepo.UpdatePaymentStatusTx(tx, payment.BookingID, models.PaymentStatusPaid); err != nil {
				return err
			}

			result.RspCode = ipnCodeSuccess
			result.Message = "Confirm success"
			result.Success = true
			return nil
		}

		// Gateway reported failure. Never downgrade an applied success;
		// seats stay booked either way.
		if payment.Status == models.PaymentTxStatusPending {
			if err := s.paymentRepo.MarkFailedTx(tx, payment.ID, respCode); err != nil {
				return err
			}
			if err := s.bookingRepo.UpdatePaymentStatusTx(tx, payment.BookingID, models.PaymentStatusFailed); err != nil {
				return err
			}
		}

		result.RspCode = ipnCodeSuccess
		result.Message = "Confirm success"
		result.Success = false
		return nil
	})
	if err != nil {
		if err == ErrPaymentNotFound {
			return &ReconcileResult{RspCode: ipnCodePaymentNotFound, Message: "Payment not found"}
		}
		s.logger.WithFields(logrus.Fields{
			"payment_id": paymentID,
			"error":      err.Error(),
		}).Error("Payment reconciliation failed")
		return &ReconcileResult{RspCode: ipnCodeInternalError, Message: "Internal error"}
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"booking_id": result.BookingID,
		"resp_code":  respCode,
		"success":    result.Success,
	}).Info("Payment callback reconciled")

	return result
}

// GetPayment retrieves a payment owned by userID
func (s *PaymentService) GetPayment(paymentID, userID uuid.UUID) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if payment.UserID != userID {
		return nil, ErrNotBookingOwner
	}

	return payment, nil
}

// ListPayments retrieves a user's payment history, newest first
func (s *PaymentService) ListPayments(userID uuid.UUID, limit, offset int) ([]*models.PaymentWithBooking, error) {
	return s.paymentRepo.ListByUser(userID, limit, offset)
}
