package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron           *cron.Cron
	bookingService *BookingService
	logger         *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(bookingService *BookingService, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:           cron.New(cron.WithSeconds()),
		bookingService: bookingService,
		logger:         logger,
	}
}

// Start registers and starts all scheduled jobs
func (s *CronService) Start() error {
	// Release lapsed seat holds every minute. Expiry is also checked
	// lazily at booking time, so the schedule only affects how quickly
	// the seat map reflects a lapsed hold.
	_, err := s.cron.AddFunc("0 * * * * *", s.releaseExpiredHoldsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule seat hold release job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Background scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Background scheduler stopped")
}

func (s *CronService) releaseExpiredHoldsJob() {
	start := time.Now()

	released, err := s.bookingService.ReleaseExpiredHolds()
	if err != nil {
		s.logger.WithError(err).Error("Seat hold release job failed")
		return
	}

	if released > 0 {
		s.logger.WithFields(logrus.Fields{
			"seats_released": released,
			"duration_ms":    time.Since(start).Milliseconds(),
		}).Info("Seat hold release job completed")
	}
}
