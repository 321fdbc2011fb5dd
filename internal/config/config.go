package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	LogLevel string
	// RateLimit is requests per minute per IP; 0 disables the limiter
	RateLimit int
	// WriteRateLimit is state changes per minute per actor
	WriteRateLimit int
	Database       DatabaseConfig
	JWT            JWTConfig
	Redis          RedisConfig
	Reconcile      ReconcileConfig
	Events         EventsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds the secret used to verify actor tokens
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// RedisConfig enables the cross-instance event relay when Addr is set
type RedisConfig struct {
	Addr    string
	Channel string
}

// Enabled reports whether the relay should be used
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// ReconcileConfig drives the unlinked-escalation sweep
type ReconcileConfig struct {
	Schedule      string
	MinAge        time.Duration
	RollbackAfter time.Duration
	// RetryTimeout bounds the retries of each legal-side escalation step
	RetryTimeout time.Duration
}

// EventsConfig tunes the SSE fan-out
type EventsConfig struct {
	BufferSize int
	Heartbeat  time.Duration
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	reconcile, err := loadReconcileConfig()
	if err != nil {
		return nil, err
	}
	events, err := loadEventsConfig()
	if err != nil {
		return nil, err
	}
	rateLimit, err := getInt("RATE_LIMIT", 100)
	if err != nil {
		return nil, err
	}
	writeRateLimit, err := getInt("WRITE_RATE_LIMIT", 30)
	if err != nil || writeRateLimit < 1 {
		return nil, fmt.Errorf("invalid WRITE_RATE_LIMIT: must be a positive integer")
	}

	return &Config{
		AppMode:        appMode,
		Port:           getEnv("PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", ""),
		RateLimit:      rateLimit,
		WriteRateLimit: writeRateLimit,
		Database:       loadDatabaseConfig(appMode),
		JWT:            loadJWTConfig(appMode),
		Redis:          loadRedisConfig(),
		Reconcile:      reconcile,
		Events:         events,
	}, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "casedesk"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "60"))

	return JWTConfig{
		Secret:          getEnv(modePrefix(mode)+"JWT_SECRET", "default_secret"),
		AccessTokenMins: accessMins,
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:    strings.TrimSpace(getEnv("REDIS_ADDR", "")),
		Channel: getEnv("REDIS_CHANNEL", "casedesk.events"),
	}
}

func loadReconcileConfig() (ReconcileConfig, error) {
	minAge, err := getDuration("RECONCILE_MIN_AGE", 2*time.Minute)
	if err != nil {
		return ReconcileConfig{}, err
	}
	rollbackAfter, err := getDuration("RECONCILE_ROLLBACK_AFTER", time.Hour)
	if err != nil {
		return ReconcileConfig{}, err
	}
	retryTimeout, err := getDuration("ESCALATION_RETRY_TIMEOUT", 5*time.Second)
	if err != nil {
		return ReconcileConfig{}, err
	}
	return ReconcileConfig{
		Schedule:      getEnv("RECONCILE_SCHEDULE", "@every 5m"),
		MinAge:        minAge,
		RollbackAfter: rollbackAfter,
		RetryTimeout:  retryTimeout,
	}, nil
}

func loadEventsConfig() (EventsConfig, error) {
	buffer, err := strconv.Atoi(getEnv("EVENT_BUFFER", "50"))
	if err != nil || buffer < 1 {
		return EventsConfig{}, fmt.Errorf("invalid EVENT_BUFFER: must be a positive integer")
	}
	heartbeat, err := getDuration("SSE_HEARTBEAT", 30*time.Second)
	if err != nil {
		return EventsConfig{}, err
	}
	return EventsConfig{BufferSize: buffer, Heartbeat: heartbeat}, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://casedesk.example.com"
	}
	return origins
}
