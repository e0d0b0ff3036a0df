package backend

import (
	"fmt"

	"pondo/internal/config"
)

// Config holds what the factory needs, detached from env parsing.
type Config struct {
	Store        StoreType
	SQLiteDBPath string
	RedisAddr    string
	RedisPrefix  string

	Ledger                   LedgerType
	LedgerBaseURL            string
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg := Config{
		Store:        StoreType(c.StoreBackend),
		SQLiteDBPath: c.SQLiteDBPath,
		RedisAddr:    c.RedisAddr,
		RedisPrefix:  c.RedisPrefix,

		Ledger:                   LedgerType(c.LedgerBackend),
		LedgerBaseURL:            c.LedgerBaseURL,
		GoogleSpreadsheetID:      c.GoogleSpreadsheetID,
		GoogleSheetName:          c.GoogleSheetName,
		GoogleServiceAccountFile: c.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: c.GoogleServiceAccountJSON,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid store backend: %s", c.Store)
	}
	if !c.Ledger.IsValid() {
		return fmt.Errorf("invalid ledger backend: %s", c.Ledger)
	}
	switch c.Store {
	case SQLiteStore:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite store")
		}
	case RedisStore:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis address is required for redis store")
		}
	}
	switch c.Ledger {
	case HTTPLedger:
		if c.LedgerBaseURL == "" {
			return fmt.Errorf("base URL is required for http ledger")
		}
	case SheetsLedger:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets ledger")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("service account credentials are required for sheets ledger")
		}
	}
	return nil
}
