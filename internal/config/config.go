package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSessionSecret is used when SESSION_SECRET is unset. It is public and
// must be overridden in any real deployment.
const DefaultSessionSecret = "dev-secret-key"

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	DatabasePath   string
	UploadDir      string // Where item images are stored
	SessionSecret  string
	SessionTTL     time.Duration
	RememberTTL    time.Duration // Lifetime of a "remember me" session
	SecureCookies  bool
	CORSOrigins    []string
	LogLevel       string
	InsecureSecret bool // True when SessionSecret fell back to the default
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	ttlHours, err := getInt("SESSION_TTL_HOURS", 24)
	if err != nil {
		return nil, err
	}
	rememberDays, err := getInt("REMEMBER_DAYS", 30)
	if err != nil {
		return nil, err
	}
	if ttlHours <= 0 || rememberDays <= 0 {
		return nil, errors.New("SESSION_TTL_HOURS and REMEMBER_DAYS must be positive")
	}

	secret := getEnv("SESSION_SECRET", "")
	insecure := secret == ""
	if insecure {
		secret = DefaultSessionSecret
	}

	return &Config{
		ServerPort:     port,
		DatabasePath:   getEnv("DATABASE_PATH", "./inventory.db"),
		UploadDir:      getEnv("UPLOAD_DIR", "./static/uploads"),
		SessionSecret:  secret,
		SessionTTL:     time.Duration(ttlHours) * time.Hour,
		RememberTTL:    time.Duration(rememberDays) * 24 * time.Hour,
		SecureCookies:  getEnv("APP_ENV", "") == "production",
		CORSOrigins:    parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		InsecureSecret: insecure,
	}, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
