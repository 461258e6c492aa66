// Package config has the configuration of the scraper, read from the environment
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment environment the scraper runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment maps an ENV value, including long aliases, to an Environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", value)
}

// DefaultStorageEndpoint is the S3-compatible interoperability endpoint of Google Cloud Storage
const DefaultStorageEndpoint = "storage.googleapis.com"

// Config holds all application configuration
type Config struct {
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes

	Port       string
	Address    string
	TrustProxy bool // Honor X-Forwarded-For, only behind a reverse proxy that sets it

	OutputDir        string // Local output directory, used when BucketName is empty
	BucketName       string
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageRegion    string
	StorageUseSSL    bool

	FetchTimeout time.Duration
	FetchRate    float64 // Upstream requests per second

	ScheduleTimes string // gocron At() expression, e.g. "06:00;18:00"
	RunOnStart    bool
}

// LoadDotEnv loads a .env file from the working directory when there is one.
// A missing file is not an error, the process environment is used as-is.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", EnvDevelopment.String()))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Env:               env,
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default

		Port:       getEnvWithDefault("PORT", "8000"),
		Address:    getEnvWithDefault("ADDRESS", "127.0.0.1"),
		TrustProxy: getBoolEnvWithDefault("TRUST_PROXY", false),

		OutputDir:        getEnvWithDefault("OUTPUT_DIR", "output"),
		BucketName:       strings.TrimSpace(os.Getenv("GCS_BUCKET_NAME")),
		StorageEndpoint:  getEnvWithDefault("STORAGE_ENDPOINT", DefaultStorageEndpoint),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageRegion:    os.Getenv("STORAGE_REGION"),
		StorageUseSSL:    getBoolEnvWithDefault("STORAGE_USE_SSL", true),

		FetchTimeout: getDurationEnvWithDefault("FETCH_TIMEOUT", 30*time.Second),
		FetchRate:    getFloatEnvWithDefault("FETCH_RATE", 2),

		ScheduleTimes: getEnvWithDefault("SCHEDULE_TIMES", "06:00"),
		RunOnStart:    getBoolEnvWithDefault("RUN_ON_START", false),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// UseObjectStorage reports whether artifacts go to a bucket instead of the local filesystem
func (c *Config) UseObjectStorage() bool {
	return c.BucketName != ""
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if cfg.UseObjectStorage() {
		if err := validateObjectStorage(cfg); err != nil {
			return fmt.Errorf("invalid object storage settings: %w", err)
		}
	} else if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("invalid OUTPUT_DIR: cannot be empty when GCS_BUCKET_NAME is not set")
	}

	if cfg.FetchTimeout <= 0 || cfg.FetchTimeout > 10*time.Minute {
		return fmt.Errorf("invalid FETCH_TIMEOUT: must be between 0 and 10m, got: %s", cfg.FetchTimeout)
	}

	if cfg.FetchRate <= 0 {
		return fmt.Errorf("invalid FETCH_RATE: must be positive, got: %v", cfg.FetchRate)
	}

	if err := validateScheduleTimes(cfg.ScheduleTimes); err != nil {
		return fmt.Errorf("invalid SCHEDULE_TIMES: %w", err)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env Environment) error {
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction, EnvTest:
		return nil
	}
	return fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1024 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1024 and 65535, got: %d", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "localhost" {
		return nil
	}

	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	return nil
}

// validateObjectStorage checks the settings needed by the bucket backend
func validateObjectStorage(cfg *Config) error {
	if strings.Contains(cfg.StorageEndpoint, "/") {
		return fmt.Errorf("STORAGE_ENDPOINT must be a host[:port], got: %s", cfg.StorageEndpoint)
	}

	if cfg.StorageAccessKey == "" || cfg.StorageSecretKey == "" {
		return fmt.Errorf("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required when GCS_BUCKET_NAME is set")
	}

	return nil
}

// validateScheduleTimes checks a ";" separated list of HH:MM times
func validateScheduleTimes(times string) error {
	if strings.TrimSpace(times) == "" {
		return fmt.Errorf("SCHEDULE_TIMES cannot be empty")
	}

	for _, t := range strings.Split(times, ";") {
		if _, err := time.Parse("15:04", strings.TrimSpace(t)); err != nil {
			return fmt.Errorf("%q is not a HH:MM time", t)
		}
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts either a Go duration ("45s") or a number of seconds
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"PORT",
		"ADDRESS",
		"TRUST_PROXY",
		"OUTPUT_DIR",
		"GCS_BUCKET_NAME",
		"STORAGE_ENDPOINT",
		"STORAGE_ACCESS_KEY",
		"STORAGE_SECRET_KEY",
		"STORAGE_REGION",
		"STORAGE_USE_SSL",
		"FETCH_TIMEOUT",
		"FETCH_RATE",
		"SCHEDULE_TIMES",
		"RUN_ON_START",
	}
}
