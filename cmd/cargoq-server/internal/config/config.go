// Package config provides configuration management for the cargo-queue server.
// It loads settings from environment variables with sensible defaults, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// DriverMemory selects the in-process storage adapter. Nothing survives a restart.
const DriverMemory = "memory"

// Config holds all configuration for the cargo-queue server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Queue    QueueConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host      string
	Port      int
	RateLimit int // Requests per minute per client IP, 0 disables limiting
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver      string // sqlite3, mysql, postgres, memory
	Host        string
	Port        int
	User        string
	Password    string
	Database    string // Database name, or file path for sqlite3
	Prefix      string // Table prefix (default: "cargo_")
	AutoMigrate bool   // Apply embedded migrations on serve
}

// QueueConfig holds queue engine configuration.
type QueueConfig struct {
	SweepInterval       time.Duration
	SweepBatchSize      int
	ClaimVisibility     time.Duration // Default visibility window of GET ...?claim=true
	FanoutConcurrency   int           // 0 means one goroutine per target
	EnableNotifications bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Load loads configuration from environment variables.
//
// When envFile is set it must exist and is loaded first. Otherwise a .env file in
// the working directory is loaded if present. Variables already set in the
// environment always win over file values.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "sqlite3"))
	cfg := &Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "0.0.0.0"),
			Port:      getEnvInt("SERVER_PORT", 8080),
			RateLimit: getEnvInt("HTTP_RATE_LIMIT", 0),
		},
		Database: DatabaseConfig{
			Driver:      driver,
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", defaultPort(driver)),
			User:        getEnv("DB_USER", "cargo"),
			Password:    getEnv("DB_PASSWORD", ""),
			Database:    getEnv("DB_NAME", defaultDatabase(driver)),
			Prefix:      getEnv("DB_PREFIX", "cargo_"),
			AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Queue: QueueConfig{
			SweepInterval:       getEnvSeconds("QUEUE_SWEEP_INTERVAL", 30*time.Second),
			SweepBatchSize:      getEnvInt("QUEUE_SWEEP_BATCH_SIZE", 500),
			ClaimVisibility:     getEnvSeconds("QUEUE_CLAIM_VISIBILITY", 30*time.Second),
			FanoutConcurrency:   getEnvInt("TOPIC_FANOUT_CONCURRENCY", 0),
			EnableNotifications: getEnvBool("ENABLE_NOTIFICATIONS", true),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	db := c.Database
	needsServer := db.Driver == "mysql" || db.Driver == "postgres"

	if err := validation.ValidateStruct(&db,
		validation.Field(&db.Driver, validation.Required, validation.In("sqlite3", "mysql", "postgres", DriverMemory).
			Error("DB_DRIVER must be one of sqlite3, mysql, postgres, memory")),
		validation.Field(&db.Password, validation.When(needsServer, validation.Required.
			Error("DB_PASSWORD environment variable is required"))),
		validation.Field(&db.Database, validation.When(db.Driver != DriverMemory, validation.Required.
			Error("DB_NAME environment variable is required"))),
	); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}

	q := c.Queue
	if err := validation.ValidateStruct(&q,
		validation.Field(&q.SweepInterval, validation.Min(time.Second).Error("QUEUE_SWEEP_INTERVAL must be at least 1 second")),
		validation.Field(&q.SweepBatchSize, validation.Min(1).Error("QUEUE_SWEEP_BATCH_SIZE must be positive")),
		validation.Field(&q.ClaimVisibility, validation.Min(time.Second).Error("QUEUE_CLAIM_VISIBILITY must be at least 1 second")),
		validation.Field(&q.FanoutConcurrency, validation.Min(0).Error("TOPIC_FANOUT_CONCURRENCY must not be negative")),
	); err != nil {
		return fmt.Errorf("invalid queue config: %w", err)
	}

	l := c.Log
	if err := validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error").Error("LOG_LEVEL must be one of debug, info, warn, error")),
		validation.Field(&l.Format, validation.In("json", "console").Error("LOG_FORMAT must be json or console")),
	); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT must not be negative, got %d", c.Server.RateLimit)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

func defaultPort(driver string) int {
	switch driver {
	case "mysql":
		return 3306
	case "postgres":
		return 5432
	default:
		return 0
	}
}

func defaultDatabase(driver string) string {
	switch driver {
	case "sqlite3":
		return "cargo-queue.db"
	case DriverMemory:
		return ""
	default:
		return "cargo"
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves environment variable as boolean or returns default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvSeconds reads a whole number of seconds.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
