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

// Backend names.
const (
	LedgerHTTP   = "http"
	LedgerMemory = "memory"
	LedgerSheets = "sheets"

	StoreSQLite = "sqlite"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var (
	ledgerBackends = []string{LedgerHTTP, LedgerMemory, LedgerSheets}
	storeBackends  = []string{StoreSQLite, StoreMemory, StoreRedis}
	logLevels      = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// Ledger
	LedgerBackend string
	LedgerBaseURL string

	// Local store
	StoreBackend string
	SQLiteDBPath string
	RedisAddr    string
	RedisPrefix  string

	// AMQP, optional: without a URL pending contributions wait for the poll loop
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets ledger
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Shared cache
	CacheTTL  time.Duration
	CacheSize int

	// Worker
	ReconcileInterval time.Duration

	// Local JSON API (pondo serve)
	Port               string
	RateLimitPerMinute int

	LogLevel string
}

func Load() *Config {
	return &Config{
		LedgerBackend: getEnv("LEDGER_BACKEND", LedgerHTTP),
		LedgerBaseURL: getEnv("LEDGER_BASE_URL", "http://localhost:5000/api"),

		StoreBackend: getEnv("STORE_BACKEND", StoreSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/pondo.db"),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisPrefix:  getEnv("REDIS_PREFIX", "pondo:"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "pondo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reconcile_contributions"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize: getEnvInt("CACHE_SIZE", 64),

		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 30*time.Second),

		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if !slices.Contains(ledgerBackends, c.LedgerBackend) {
		errs = append(errs, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, ledgerBackends))
	}
	if c.LedgerBackend == LedgerHTTP {
		if u, err := url.Parse(c.LedgerBaseURL); err != nil || c.LedgerBaseURL == "" {
			errs = append(errs, fmt.Sprintf("invalid ledger base URL '%s'", c.LedgerBaseURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("invalid ledger base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}

	if !slices.Contains(storeBackends, c.StoreBackend) {
		errs = append(errs, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.StoreBackend, storeBackends))
	}
	switch c.StoreBackend {
	case StoreSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite store")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, "REDIS_ADDR is required when using redis store")
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.LedgerBackend == LedgerSheets {
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets ledger")
		}
		if c.GoogleSheetName == "" {
			errs = append(errs, "Google Sheet name is required when using sheets ledger")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets ledger")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	} else if c.CacheSize > 100000 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be at most 100000", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if c.ReconcileInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
	} else if c.ReconcileInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
	}

	if c.Port != "" {
		if port, err := strconv.Atoi(c.Port); err != nil {
			errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
		} else if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
		}
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if !slices.Contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, logLevels))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
