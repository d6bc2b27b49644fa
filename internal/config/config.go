package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"supplier-catalog-service/internal/canonical"
	"supplier-catalog-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// NATS (empty disables event publishing)
	NATSURL string

	// Server
	Port        string
	Environment string

	// Storage backend: "postgres" or "memory"
	StorageBackend string

	// Business rules (explicit defaults threaded to call sites)
	DefaultMarginPercent float64
	DefaultShippingFee   float64

	// Compliance
	ComplianceThreshold float64
	LogRetentionDays    int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	margin, _ := strconv.ParseFloat(getEnv("DEFAULT_MARGIN_PERCENT", "30"), 64)
	shipping, _ := strconv.ParseFloat(getEnv("DEFAULT_SHIPPING_FEE", "15.00"), 64)
	threshold, _ := strconv.ParseFloat(getEnv("COMPLIANCE_THRESHOLD", "0.95"), 64)
	retentionDays, _ := strconv.Atoi(getEnv("LOG_RETENTION_DAYS", "365"))

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NATSURL:  os.Getenv("NATS_URL"),

		Port:        getEnv("PORT", "8088"),
		Environment: getEnv("ENVIRONMENT", "development"),

		StorageBackend: getEnv("STORAGE_BACKEND", "postgres"),

		DefaultMarginPercent: margin,
		DefaultShippingFee:   shipping,

		ComplianceThreshold: threshold,
		LogRetentionDays:    retentionDays,
	}
}

// Rules returns the configured business-rule defaults as an explicit value
// object threaded through pipeline calls, never read from global state.
func (c *Config) Rules() canonical.BusinessRules {
	rules := canonical.DefaultRules()
	rules.MarginPercent = c.DefaultMarginPercent
	rules.ShippingFee = c.DefaultShippingFee
	return rules
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate models to keep schema up to date
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.CanonicalProduct{},
		&models.LogEntry{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
