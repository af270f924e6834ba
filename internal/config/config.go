package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration
	IdentityHeader  string
	IdentityTTL     time.Duration

	// Rate limiting of write requests, per client
	RateLimitPerMinute int
	RateLimitBurst     int

	// Listing
	MaxPageSize int

	// Database
	SQLiteDBPath string

	// AMQP, events are disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Sheet sync worker: owner=spreadsheet pairs kept in sync from events
	SheetSyncTargets  string
	SheetSyncSheet    string
	SheetSyncInterval time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		IdentityHeader:  getEnv("IDENTITY_HEADER", "X-User-ID"),
		IdentityTTL:     getEnvDuration("IDENTITY_CACHE_TTL", time.Minute),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),

		MaxPageSize: getEnvInt("MAX_PAGE_SIZE", 500),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SheetSyncTargets:  getEnv("SHEET_SYNC_TARGETS", ""),
		SheetSyncSheet:    getEnv("SHEET_SYNC_SHEET", "Transactions"),
		SheetSyncInterval: getEnvDuration("SHEET_SYNC_INTERVAL", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
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

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if strings.TrimSpace(c.IdentityHeader) == "" {
		errors = append(errors, "identity header cannot be empty")
	}
	if c.IdentityTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid identity cache TTL %v: must not be negative", c.IdentityTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	if c.MaxPageSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid max page size %d: must be at least 1", c.MaxPageSize))
	} else if c.MaxPageSize > 5000 {
		errors = append(errors, fmt.Sprintf("invalid max page size %d: must be at most 5000", c.MaxPageSize))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
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

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if _, err := c.SheetTargets(); err != nil {
		errors = append(errors, err.Error())
	}
	if c.SheetSyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sheet sync interval %v: must be at least 1 second", c.SheetSyncInterval))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// EventsEnabled reports whether ledger events should be published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// SheetTargets parses SHEET_SYNC_TARGETS, a comma separated list of
// ownerID=spreadsheetID pairs.
func (c *Config) SheetTargets() (map[string]string, error) {
	targets := make(map[string]string)
	for _, pair := range strings.Split(c.SheetSyncTargets, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		owner, sheet, ok := strings.Cut(pair, "=")
		owner, sheet = strings.TrimSpace(owner), strings.TrimSpace(sheet)
		if !ok || owner == "" || sheet == "" {
			return nil, fmt.Errorf("invalid sheet sync target '%s': must be ownerID=spreadsheetID", pair)
		}
		if _, dup := targets[owner]; dup {
			return nil, fmt.Errorf("duplicate sheet sync target for owner '%s'", owner)
		}
		targets[owner] = sheet
	}
	return targets, nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
