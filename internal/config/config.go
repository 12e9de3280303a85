package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/QTest-hq/qscan/internal/analysis"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port int
	Env  string

	// Logging
	LogLevel string

	// Analysis
	Workers     int // 0 means one per CPU
	MinSeverity string

	// GitHub
	GitHubToken string
	CloneDir    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Workers:     getEnvInt("QSCAN_WORKERS", 0),
		MinSeverity: getEnv("QSCAN_MIN_SEVERITY", string(analysis.SeverityInfo)),
		GitHubToken: getEnv("GITHUB_TOKEN", ""),
		CloneDir:    getEnv("QSCAN_CLONE_DIR", filepath.Join(os.TempDir(), "qscan-repos")),
	}

	return cfg, nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	if c.Workers < 0 {
		return fmt.Errorf("QSCAN_WORKERS must not be negative, got %d", c.Workers)
	}

	if _, err := analysis.ParseSeverity(c.MinSeverity); err != nil {
		return fmt.Errorf("QSCAN_MIN_SEVERITY: %w", err)
	}

	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
