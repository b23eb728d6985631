package config

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ridwanfathin/invoice-records-service/internal/storage"
)

// Storage drivers accepted by STORAGE_DRIVER
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadSize   int64
	AllowedOrigins  []string

	// Logging
	LogFormat string
	LogLevel  string

	// Database configuration
	StorageDriver string
	PostgresURL   string
	DBMaxConns    int
	AutoMigrate   bool

	// Auth configuration
	JWTSecret string

	// Attachment archive configuration
	ArchiveEndpoint        string
	ArchiveRegion          string
	ArchiveBucket          string
	ArchiveAccessKeyID     string
	ArchiveSecretAccessKey string
	ArchivePrefix          string
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	// Get the executable directory
	execPath, err := os.Executable()
	if err != nil {
		log.Printf("Warning: Could not determine executable path: %v", err)
	}

	// Determine project root directory
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(execPath)))
	envPath := filepath.Join(projectRoot, ".env")

	// Load .env file if it exists
	if err := godotenv.Load(envPath); err != nil {
		// Try loading from current directory as fallback
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading .env file. Using environment variables.")
		} else {
			log.Println("Loaded environment variables from current directory .env file")
		}
	} else {
		log.Printf("Loaded environment variables from %s", envPath)
	}

	config := fromEnv()

	// Validate critical configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// fromEnv populates a Config from the process environment
func fromEnv() *Config {
	return &Config{
		// Server configuration
		Port:            getEnvInt("PORT", 8080),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		MaxUploadSize:   int64(getEnvInt("MAX_UPLOAD_SIZE", 10<<20)),
		AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		LogFormat: getEnvString("LOG_FORMAT", "json"),
		LogLevel:  getEnvString("LOG_LEVEL", "info"),

		// Database configuration
		StorageDriver: strings.ToLower(getEnvString("STORAGE_DRIVER", StorageDriverPostgres)),
		PostgresURL:   os.Getenv("POSTGRES_DB_URL"),
		DBMaxConns:    getEnvInt("DB_MAX_CONNS", 10),
		AutoMigrate:   getEnvBool("AUTO_MIGRATE", false),

		JWTSecret: os.Getenv("JWT_SECRET"),

		ArchiveEndpoint:        os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchiveRegion:          getEnvString("ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveBucket:          os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchiveAccessKeyID:     os.Getenv("ARCHIVE_S3_ACCESS_KEY_ID"),
		ArchiveSecretAccessKey: os.Getenv("ARCHIVE_S3_SECRET_ACCESS_KEY"),
		ArchivePrefix:          getEnvString("ARCHIVE_S3_PREFIX", "invoices"),
	}
}

// ArchiveConfig returns the S3 settings for the attachment archive
func (c *Config) ArchiveConfig() storage.Config {
	return storage.Config{
		Endpoint:        c.ArchiveEndpoint,
		AccessKeyID:     c.ArchiveAccessKeyID,
		AccessKeySecret: c.ArchiveSecretAccessKey,
		Bucket:          c.ArchiveBucket,
		Region:          c.ArchiveRegion,
		Prefix:          c.ArchivePrefix,
	}
}

// ErrMissingJWTSecret is returned when JWT_SECRET is not set
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// validateConfig rejects a config without a JWT secret and fixes or warns about the rest
func validateConfig(config *Config) error {
	if config.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	switch config.StorageDriver {
	case StorageDriverPostgres:
		if config.PostgresURL == "" {
			log.Println("Warning: No Postgres URL provided. The server will fail to start.")
		}
	case StorageDriverMemory:
		log.Println("Warning: Using in-memory storage. Invoices are lost on restart.")
	default:
		log.Printf("Warning: Unknown storage driver %q, falling back to %s", config.StorageDriver, StorageDriverPostgres)
		config.StorageDriver = StorageDriverPostgres
	}

	if config.MaxUploadSize <= 0 {
		log.Printf("Warning: Invalid MAX_UPLOAD_SIZE %d, using 10MB", config.MaxUploadSize)
		config.MaxUploadSize = 10 << 20
	}

	if config.ArchiveBucket == "" {
		log.Println("Attachment archive disabled: no ARCHIVE_S3_BUCKET provided.")
	}

	return nil
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvBool gets a boolean from an environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvStringSlice gets a string slice from a comma-separated environment variable
func getEnvStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
