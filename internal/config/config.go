package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Session backends and verifiers accepted by the configuration.
var (
	SessionBackends  = []string{"memory", "sqlite", "redis"}
	SessionVerifiers = []string{"trust", "jwt-expiry"}
)

type Config struct {
	// HTTP Server
	Port           string
	TrustedProxies []string
	RateLimitRPS   float64
	RateLimitBurst int

	// Expense REST API
	APIBaseURL string
	APITimeout time.Duration

	// Sessions
	SessionBackend    string
	SessionTTL        time.Duration
	SessionCookieName string
	SessionVerifier   string
	CookieSecure      bool

	// SQLite session backend
	SQLiteDBPath string

	// Redis session backend
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// AMQP activity events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export and activity mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string
	ActivitySheetName   string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		APIBaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		APITimeout: getEnvDuration("API_TIMEOUT", 10*time.Second),

		SessionBackend:    getEnv("SESSION_BACKEND", "memory"),
		SessionTTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "expense_session"),
		SessionVerifier:   getEnv("SESSION_VERIFIER", "trust"),
		CookieSecure:      getEnvBool("COOKIE_SECURE", false),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/sessions.db"),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_activity"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		ActivitySheetName:   getEnv("ACTIVITY_SHEET_NAME", "Activity"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': must be an absolute URL", c.APIBaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}
	if c.APITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be positive", c.APITimeout))
	}

	if !slices.Contains(SessionBackends, c.SessionBackend) {
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, SessionBackends))
	}
	if !slices.Contains(SessionVerifiers, c.SessionVerifier) {
		errors = append(errors, fmt.Sprintf("invalid session verifier '%s': must be one of %v", c.SessionVerifier, SessionVerifiers))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionCookieName == "" {
		errors = append(errors, "session cookie name cannot be empty")
	}

	if c.SessionBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.SessionBackend == "redis" {
		if c.RedisAddress == "" {
			errors = append(errors, "Redis address cannot be empty when using redis backend")
		}
		if c.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("invalid Redis DB %d: must not be negative", c.RedisDB))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the activity worker needs on top of Validate's shared ones.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the activity worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the activity worker")
	}
	if c.ActivitySheetName == "" {
		errors = append(errors, "activity sheet name cannot be empty")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// EventsEnabled reports whether activity events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// ExportEnabled reports whether Sheets export is configured.
func (c *Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
