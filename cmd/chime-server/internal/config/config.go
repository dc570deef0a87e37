// Package config provides configuration management for the chime standalone server.
// It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the chime server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Vapid     VapidConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "chime_")
}

// SchedulerConfig holds scheduler loop configuration.
type SchedulerConfig struct {
	TickInterval    int    // Tick interval in seconds
	Workers         int    // Concurrent owners per tick
	DefaultTimezone string // Fallback IANA zone for owners without one
	RetentionDays   int    // Firing records kept before purge
}

// VapidConfig holds the server's Web Push signing identity.
type VapidConfig struct {
	PublicKey  string // Base64url uncompressed P-256 public key
	PrivateKey string // Base64url 32-byte private scalar
	Subject    string // mailto: or https: contact URI
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite3"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "chime"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "chime.db"),
			Prefix:   getEnv("DB_PREFIX", "chime_"),
		},
		Scheduler: SchedulerConfig{
			TickInterval:    getEnvInt("CHIME_TICK_INTERVAL", 30),
			Workers:         getEnvInt("CHIME_WORKERS", 8),
			DefaultTimezone: getEnv("CHIME_DEFAULT_TIMEZONE", "UTC"),
			RetentionDays:   getEnvInt("CHIME_RETENTION_DAYS", 7),
		},
		Vapid: VapidConfig{
			PublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			PrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			Subject:    getEnv("VAPID_SUBJECT", ""),
		},
	}

	// Validate required fields
	if cfg.Vapid.PublicKey == "" || cfg.Vapid.PrivateKey == "" {
		return nil, fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY environment variables are required")
	}
	if cfg.Vapid.Subject == "" {
		return nil, fmt.Errorf("VAPID_SUBJECT environment variable is required")
	}
	if cfg.Database.Driver != "sqlite3" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required for %s", cfg.Database.Driver)
	}

	return cfg, nil
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
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
