package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadValidConfig(t *testing.T) {
	cleanupEnv()
	_ = os.Setenv("PORT", "8002")
	_ = os.Setenv("ADDRESS", "127.0.0.1")
	_ = os.Setenv("ENV", "prod")
	_ = os.Setenv("LOG_LEVEL", "WARN")
	_ = os.Setenv("OUTPUT_DIR", "/tmp/codes")
	_ = os.Setenv("FETCH_TIMEOUT", "45s")
	_ = os.Setenv("SCHEDULE_TIMES", "06:00;18:00")
	_ = os.Setenv("RUN_ON_START", "true")
	_ = os.Setenv("TRUST_PROXY", "true")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Expected env prod, got %s", cfg.Env)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level warn, got %s", cfg.LogLevel)
	}
	if cfg.OutputDir != "/tmp/codes" {
		t.Errorf("Expected output dir /tmp/codes, got %s", cfg.OutputDir)
	}
	if cfg.FetchTimeout != 45*time.Second {
		t.Errorf("Expected fetch timeout 45s, got %s", cfg.FetchTimeout)
	}
	if cfg.ScheduleTimes != "06:00;18:00" {
		t.Errorf("Expected schedule 06:00;18:00, got %s", cfg.ScheduleTimes)
	}
	if !cfg.RunOnStart {
		t.Error("Expected RunOnStart to be true")
	}
	if !cfg.TrustProxy {
		t.Error("Expected TrustProxy to be true")
	}
	if cfg.UseObjectStorage() {
		t.Error("Expected local storage when GCS_BUCKET_NAME is unset")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.OutputDir != "output" {
		t.Errorf("Expected default output dir, got %s", cfg.OutputDir)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("Expected default fetch timeout 30s, got %s", cfg.FetchTimeout)
	}
	if cfg.FetchRate != 2 {
		t.Errorf("Expected default fetch rate 2, got %v", cfg.FetchRate)
	}
	if cfg.TrustProxy {
		t.Error("Expected TrustProxy to default to false")
	}
	if cfg.StorageEndpoint != DefaultStorageEndpoint {
		t.Errorf("Expected default storage endpoint, got %s", cfg.StorageEndpoint)
	}
}

func TestFetchTimeoutAcceptsSeconds(t *testing.T) {
	cleanupEnv()
	_ = os.Setenv("FETCH_TIMEOUT", "12")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.FetchTimeout != 12*time.Second {
		t.Errorf("Expected 12s, got %s", cfg.FetchTimeout)
	}
}

func TestBlankBucketNameMeansLocalStorage(t *testing.T) {
	cleanupEnv()
	_ = os.Setenv("GCS_BUCKET_NAME", "   ")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.UseObjectStorage() {
		t.Error("Expected blank bucket name to select local storage")
	}
}

func TestInvalidConfig(t *testing.T) {
	testCases := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{"non numeric port", map[string]string{"PORT": "abc"}, "PORT must be a valid number"},
		{"privileged port", map[string]string{"PORT": "80"}, "PORT must be between 1024 and 65535"},
		{"invalid address", map[string]string{"ADDRESS": "invalid"}, "ADDRESS must be a valid IP address"},
		{"invalid env", map[string]string{"ENV": "invalid"}, "ENV must be one of"},
		{"invalid log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL must be one of"},
		{"retention too large", map[string]string{"LOG_RETENTION_WEEKS": "60"}, "LOG_RETENTION_WEEKS is too large"},
		{"log file too small", map[string]string{"MAX_LOG_FILE_SIZE": "10"}, "MAX_LOG_FILE_SIZE is too small"},
		{"negative fetch rate", map[string]string{"FETCH_RATE": "-1"}, "invalid FETCH_RATE"},
		{"bad schedule", map[string]string{"SCHEDULE_TIMES": "6am"}, "is not a HH:MM time"},
		{"bucket without credentials", map[string]string{"GCS_BUCKET_NAME": "codes"}, "STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required"},
		{
			"endpoint with scheme",
			map[string]string{
				"GCS_BUCKET_NAME":    "codes",
				"STORAGE_ENDPOINT":   "https://storage.googleapis.com",
				"STORAGE_ACCESS_KEY": "key",
				"STORAGE_SECRET_KEY": "secret",
			},
			"STORAGE_ENDPOINT must be a host[:port]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cleanupEnv()
			defer cleanupEnv()
			for k, v := range tc.env {
				_ = os.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tc.expected)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestObjectStorageConfig(t *testing.T) {
	cleanupEnv()
	_ = os.Setenv("GCS_BUCKET_NAME", "codes-bucket")
	_ = os.Setenv("STORAGE_ACCESS_KEY", "key")
	_ = os.Setenv("STORAGE_SECRET_KEY", "secret")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !cfg.UseObjectStorage() {
		t.Error("Expected object storage to be selected")
	}
	if cfg.BucketName != "codes-bucket" {
		t.Errorf("Expected bucket codes-bucket, got %s", cfg.BucketName)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	if err := LoadDotEnv(); err != nil {
		t.Errorf("Expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/.env", []byte("OUTPUT_DIR=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()
	cleanupEnv()
	defer cleanupEnv()

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := os.Getenv("OUTPUT_DIR"); got != "from-dotenv" {
		t.Errorf("Expected OUTPUT_DIR from .env, got %q", got)
	}
}

func cleanupEnv() {
	for _, key := range GetEnvVars() {
		_ = os.Unsetenv(key)
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{"TEST", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}
