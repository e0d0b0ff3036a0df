package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"pondo/internal/config"
	"pondo/internal/core"
	"pondo/internal/ledger"
)

func TestTypes(t *testing.T) {
	for _, st := range []StoreType{SQLiteStore, MemoryStore, RedisStore} {
		if !st.IsValid() {
			t.Fatalf("%s should be valid", st)
		}
	}
	if StoreType("etcd").IsValid() || LedgerType("ftp").IsValid() {
		t.Fatal("unknown types must be invalid")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	app := &config.Config{StoreBackend: "memory", LedgerBackend: "http", LedgerBaseURL: "http://x/api"}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Store != MemoryStore || cfg.Ledger != HTTPLedger || cfg.LedgerBaseURL != "http://x/api" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"sqlite without path", Config{Store: SQLiteStore, Ledger: MemoryLedger}, "SQLite database path"},
		{"redis without addr", Config{Store: RedisStore, Ledger: MemoryLedger}, "redis address"},
		{"http without url", Config{Store: MemoryStore, Ledger: HTTPLedger}, "base URL"},
		{"sheets without id", Config{Store: MemoryStore, Ledger: SheetsLedger}, "Spreadsheet ID"},
		{"sheets without credentials", Config{Store: MemoryStore, Ledger: SheetsLedger, GoogleSpreadsheetID: "x"}, "credentials"},
		{"bad store", Config{Store: "x", Ledger: MemoryLedger}, "invalid store backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestOpenSQLiteStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)
	cfg := Config{Store: SQLiteStore, SQLiteDBPath: filepath.Join(t.TempDir(), "pondo.db")}

	res, err := f.OpenStore(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	res.Store.SaveBudgets(ctx, []core.BudgetItem{{Category: "Food", Limit: 100}})
	if err := res.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	res, err = f.OpenStore(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer res.Close()
	if got := res.Store.Budgets(ctx); len(got) != 1 || got[0].Category != "Food" {
		t.Fatalf("budgets not persisted: %+v", got)
	}
}

func TestOpenMemoryBackends(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	st, err := f.OpenStore(ctx, Config{Store: MemoryStore})
	if err != nil || st.Cleanup != nil {
		t.Fatalf("memory store: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close without cleanup: %v", err)
	}

	l, err := f.OpenLedger(ctx, Config{Ledger: MemoryLedger}, nil)
	if err != nil {
		t.Fatalf("memory ledger: %v", err)
	}
	if l.HTTP != nil {
		t.Fatal("memory ledger has no http client")
	}
	res, err := l.Ledger.CreateTransaction(ctx, core.NewTransaction{Date: "2025-01-01", Description: "x", Category: "c", Amount: 1})
	if err != nil || res.Status != ledger.Created {
		t.Fatalf("create: %+v %v", res, err)
	}
}

func TestOpenHTTPLedger(t *testing.T) {
	f := NewFactory(nil)
	l, err := f.OpenLedger(context.Background(), Config{Ledger: HTTPLedger, LedgerBaseURL: "http://localhost:5000/api/"}, ledger.TokenFunc(func(context.Context) string { return "" }))
	if err != nil {
		t.Fatalf("OpenLedger: %v", err)
	}
	if l.HTTP == nil || l.HTTP.BaseURL() != "http://localhost:5000/api" {
		t.Fatalf("unexpected http ledger %+v", l)
	}
}

func TestOpenUnsupported(t *testing.T) {
	f := NewFactory(nil)
	if _, err := f.OpenStore(context.Background(), Config{Store: "etcd"}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := f.OpenLedger(context.Background(), Config{Ledger: "ftp"}, nil); err == nil {
		t.Fatal("expected error")
	}
}
