package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (idempotency cache)
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Booking rules configuration
	Booking BookingConfig

	// Notification dispatch configuration
	Notification NotificationConfig

	// New Relic APM configuration
	NewRelic NewRelicConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	ClientURL   string // frontend base URL for payment redirects
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; when Addr is
// empty the idempotency middleware is not installed.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// PaymentConfig holds VNPay gateway configuration
type PaymentConfig struct {
	TmnCode    string // VNPay terminal/merchant code
	HashSecret string // VNPay HMAC secret (never expose to client)
	PayURL     string // VNPay payment page endpoint
	ReturnURL  string // URL VNPay redirects the user back to
}

// BookingConfig holds booking business-rule configuration
type BookingConfig struct {
	CancellationCutoff time.Duration // minimum lead time before departure for cancellation
	ReservationTTL     time.Duration // soft-hold duration for reserved seats
}

// NotificationConfig holds notification dispatch configuration
type NotificationConfig struct {
	Mode       string // "dev" logs only, "production" delivers via webhook
	WebhookURL string
	FromEmail  string
}

// NewRelicConfig holds New Relic APM configuration. Empty license key
// disables the agent.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			ClientURL:   getEnv("CLIENT_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "Idempotency-Key"}),
		},
		Payment: PaymentConfig{
			TmnCode:    getEnv("VNP_TMNCODE", ""),
			HashSecret: getEnv("VNP_HASHSECRET", ""),
			PayURL:     getEnv("VNP_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:  getEnv("VNP_RETURN_URL", "http://localhost:8080/api/v1/payments/vnpay-return"),
		},
		Booking: BookingConfig{
			CancellationCutoff: time.Duration(getEnvAsInt("BOOKING_CANCELLATION_CUTOFF_MINUTES", 120)) * time.Minute,
			ReservationTTL:     time.Duration(getEnvAsInt("BOOKING_RESERVATION_TTL_MINUTES", 10)) * time.Minute,
		},
		Notification: NotificationConfig{
			Mode:       getEnv("NOTIFICATION_MODE", "dev"),
			WebhookURL: getEnv("NOTIFICATION_WEBHOOK_URL", ""),
			FromEmail:  getEnv("NOTIFICATION_FROM_EMAIL", "noreply@vietbus.vn"),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "vietbus-ticketing-backend"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Booking.CancellationCutoff < 0 {
		return fmt.Errorf("BOOKING_CANCELLATION_CUTOFF_MINUTES must not be negative")
	}

	// Validate notification configuration only in production mode
	if c.Notification.Mode == "production" && c.Notification.WebhookURL == "" {
		return fmt.Errorf("NOTIFICATION_WEBHOOK_URL is required in production mode")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range splitString(valueStr, ",") {
		trimmed := trimString(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// Helper to split strings
func splitString(s, sep string) []string {
	var result []string
	current := ""
	for _, char := range s {
		if string(char) == sep {
			result = append(result, current)
			current = ""
		} else {
			current += string(char)
		}
	}
	if current != "" {
		result = append(result, current)
	}
	return result
}

// Helper to trim strings
func trimString(s string) string {
	start := 0
	end := len(s)

	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}

	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\n' || s[end-1] == '\r') {
		end--
	}

	return s[start:end]
}
