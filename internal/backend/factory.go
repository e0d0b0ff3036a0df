package backend

import (
	"context"
	"fmt"

	"pondo/internal/ledger"
	ledgermem "pondo/internal/ledger/memory"
	"pondo/internal/ledger/sheets"
	"pondo/internal/log"
	"pondo/internal/store"
	storemem "pondo/internal/store/memory"
	"pondo/internal/store/redis"
	"pondo/internal/store/sqlite"
)

type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	return &Factory{logger: log.OrDiscard(logger).WithComponent(log.ComponentBackend)}
}

// OpenStore opens the configured key-value backend and wraps it in a Store.
func (f *Factory) OpenStore(ctx context.Context, cfg Config) (*StoreResult, error) {
	var (
		backend store.Backend
		cleanup CleanupFunc
	)
	switch cfg.Store {
	case SQLiteStore:
		b, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		backend, cleanup = b, b.Close
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", cfg.SQLiteDBPath)
	case RedisStore:
		b, err := redis.Open(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		backend, cleanup = b, b.Close
		f.logger.InfoContext(ctx, "Initialized Redis store", "addr", cfg.RedisAddr)
	case MemoryStore:
		backend = storemem.New()
		f.logger.InfoContext(ctx, "Initialized memory store")
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store)
	}

	st, err := store.New(backend, f.logger)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}
	return &StoreResult{Store: st, Cleanup: cleanup}, nil
}

// OpenLedger opens the configured ledger. tokens authorizes the http ledger
// and is ignored by the others.
func (f *Factory) OpenLedger(ctx context.Context, cfg Config, tokens ledger.TokenSource) (*LedgerResult, error) {
	switch cfg.Ledger {
	case HTTPLedger:
		c, err := ledger.NewClient(cfg.LedgerBaseURL,
			ledger.WithTokenSource(tokens),
			ledger.WithLogger(f.logger))
		if err != nil {
			return nil, fmt.Errorf("create ledger client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized HTTP ledger", log.FieldURL, c.BaseURL())
		return &LedgerResult{Ledger: c, HTTP: c}, nil
	case SheetsLedger:
		c, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("create sheets ledger: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets ledger", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return &LedgerResult{Ledger: c}, nil
	case MemoryLedger:
		f.logger.InfoContext(ctx, "Initialized memory ledger")
		return &LedgerResult{Ledger: ledgermem.New()}, nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.Ledger)
	}
}
