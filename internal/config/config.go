package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"pim-service/internal/models"
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

	// NATS (optional; events disabled when empty)
	NATSURL string

	// Server
	Port        string
	Environment string

	// Services
	ProductsServiceURL string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Template specific settings
	MaxSectionsPerTemplate   int
	MaxAttributesPerSection  int
	MaxPicklistOptions       int
	MaxCalculatedFieldLength int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	maxSections, _ := strconv.Atoi(getEnv("MAX_SECTIONS_PER_TEMPLATE", "50"))
	maxAttributes, _ := strconv.Atoi(getEnv("MAX_ATTRIBUTES_PER_SECTION", "100"))
	maxOptions, _ := strconv.Atoi(getEnv("MAX_PICKLIST_OPTIONS", "200"))
	maxFormulaLength, _ := strconv.Atoi(getEnv("MAX_CALCULATED_FIELD_LENGTH", "500"))

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "pim_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// NATS
		NATSURL: getEnv("NATS_URL", ""),

		// Server
		Port:        getEnv("PORT", "8093"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Services
		ProductsServiceURL: getEnv("PRODUCTS_SERVICE_URL", "http://localhost:8087"),

		// Pagination
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,

		// Template specific settings
		MaxSectionsPerTemplate:   maxSections,
		MaxAttributesPerSection:  maxAttributes,
		MaxPicklistOptions:       maxOptions,
		MaxCalculatedFieldLength: maxFormulaLength,
	}
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
	// This will add missing columns but won't delete existing columns
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.ViewTemplateRecord{},
		&models.FieldMappingTemplateRecord{},
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
