// Package backend opens the local store and the ledger selected by
// configuration and hands back their cleanup functions.
package backend

import (
	"pondo/internal/ledger"
	"pondo/internal/store"
)

type StoreType string

const (
	SQLiteStore StoreType = "sqlite"
	MemoryStore StoreType = "memory"
	RedisStore  StoreType = "redis"
)

func (t StoreType) String() string { return string(t) }

func (t StoreType) IsValid() bool {
	switch t {
	case SQLiteStore, MemoryStore, RedisStore:
		return true
	}
	return false
}

type LedgerType string

const (
	HTTPLedger   LedgerType = "http"
	MemoryLedger LedgerType = "memory"
	SheetsLedger LedgerType = "sheets"
)

func (t LedgerType) String() string { return string(t) }

func (t LedgerType) IsValid() bool {
	switch t {
	case HTTPLedger, MemoryLedger, SheetsLedger:
		return true
	}
	return false
}

// CleanupFunc releases whatever a backend holds open.
type CleanupFunc func() error

type StoreResult struct {
	Store   *store.Store
	Cleanup CleanupFunc
}

// LedgerResult carries the opened ledger. HTTP is set only for the http
// ledger; auth shares its cookie jar.
type LedgerResult struct {
	Ledger  ledger.Ledger
	HTTP    *ledger.Client
	Cleanup CleanupFunc
}

// Close runs the cleanup if there is one.
func (r *StoreResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

func (r *LedgerResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
