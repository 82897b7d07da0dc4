package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vietbus/ticketing-backend/internal/config"
	"github.com/vietbus/ticketing-backend/internal/database"
	"github.com/vietbus/ticketing-backend/internal/handlers"
	"github.com/vietbus/ticketing-backend/internal/middleware"
	"github.com/vietbus/ticketing-backend/internal/services"
	"github.com/vietbus/ticketing-backend/pkg/jwt"
	"github.com/vietbus/ticketing-backend/pkg/vnpay"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting VietBus Ticketing Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Redis (optional, used for idempotent booking retries)
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("Redis unavailable, idempotency middleware disabled: %v", err)
			redisClient = nil
		} else {
			logger.Info("Redis connection established")
		}
	}

	// Initialize New Relic (optional)
	var nrApp *newrelic.Application
	if cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
		)
		if err != nil {
			logger.Warnf("Failed to initialize New Relic: %v", err)
		} else {
			logger.Info("New Relic APM enabled")
		}
	}

	// Initialize repositories
	tripRepo := database.NewTripRepository(db)
	seatRepo := database.NewSeatRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	paymentRepo := database.NewPaymentRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	gateway := vnpay.NewGateway(cfg.Payment.TmnCode, cfg.Payment.HashSecret, cfg.Payment.PayURL, cfg.Payment.ReturnURL)
	notificationService := services.NewNotificationService(cfg.Notification, logger)
	tripService := services.NewTripService(db, tripRepo, seatRepo, logger)
	bookingService := services.NewBookingService(db, tripRepo, seatRepo, bookingRepo, paymentRepo, notificationService, cfg.Booking, logger)
	paymentService := services.NewPaymentService(db, bookingRepo, paymentRepo, gateway, logger)
	ticketService := services.NewTicketService(bookingService, tripService, logger)
	logger.Info("Services initialized")

	// Start background scheduler (releases lapsed seat holds)
	cronService := services.NewCronService(bookingService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start background scheduler: %v", err)
	}

	// Initialize handlers
	tripHandler := handlers.NewTripHandler(tripService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, ticketService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg.Server.ClientURL, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	if nrApp != nil {
		router.Use(nrgin.Middleware(nrApp))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Trip catalog (public)
		trips := v1.Group("/trips")
		{
			trips.GET("", tripHandler.SearchTrips)
			trips.GET("/:id", tripHandler.GetTrip)
			trips.GET("/:id/seats", tripHandler.GetSeatMap)

			// Trip scheduling (operators only)
			tripsProtected := trips.Group("")
			tripsProtected.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole("operator", "admin"))
			{
				tripsProtected.POST("", tripHandler.CreateTrip)
			}
		}

		// Booking routes (protected)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		if redisClient != nil {
			bookings.Use(middleware.Idempotency(redisClient))
		}
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.POST("/hold", bookingHandler.HoldSeats)
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.GET("/:id/qr", bookingHandler.GetBookingQR)
			bookings.GET("/:id/ticket", bookingHandler.GetETicket)
		}

		// Payment routes
		payments := v1.Group("/payments")
		{
			// Gateway callbacks (public, signature-verified)
			payments.GET("/vnpay-return", paymentHandler.VNPayReturn)
			payments.GET("/vnpay-ipn", paymentHandler.VNPayIPN)

			// User-facing payment routes (protected)
			paymentsProtected := payments.Group("")
			paymentsProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				paymentsProtected.POST("", paymentHandler.InitiatePayment)
				paymentsProtected.GET("", paymentHandler.ListPayments)
				paymentsProtected.GET("/:id", paymentHandler.GetPayment)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}
	if nrApp != nil {
		nrApp.Shutdown(10 * time.Second)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
