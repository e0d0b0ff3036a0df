// Package syncer keeps views consistent with the remote ledger. The Engine
// owns one shared cache per remote resource; Views read from it and Forms
// write through the ledger and fold confirmed records back into it.
package syncer

import (
	"context"
	"fmt"
	"time"

	"pondo/internal/cache"
	"pondo/internal/core"
	"pondo/internal/ledger"
	"pondo/internal/log"
)

// Cache keys.
const (
	KeyTransactions = "transactions"
	KeySummary      = "summary"
)

// Options tunes the shared caches. A zero TTL keeps values until replaced.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Logger    *log.Logger
}

type Engine struct {
	ledger  ledger.Ledger
	txs     *cache.Keyed[[]core.Transaction]
	summary *cache.Keyed[core.DashboardSummary]
	logger  *log.Logger
}

func NewEngine(l ledger.Ledger, opts Options) *Engine {
	size := opts.CacheSize
	if size <= 0 {
		size = 8
	}
	return &Engine{
		ledger:  l,
		txs:     cache.NewKeyed[[]core.Transaction](size, opts.CacheTTL),
		summary: cache.NewKeyed[core.DashboardSummary](size, opts.CacheTTL),
		logger:  log.OrDiscard(opts.Logger).WithComponent(log.ComponentSync),
	}
}

// Cleaners returns the caches for registration with a cache.Manager.
func (e *Engine) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{e.txs, e.summary}
}

// RefreshTransactions fetches the ledger and publishes it to every view.
func (e *Engine) RefreshTransactions(ctx context.Context) ([]core.Transaction, error) {
	return e.txs.Refresh(ctx, KeyTransactions, e.ledger.ListTransactions)
}

// RefreshSummary fetches the dashboard totals and publishes them.
func (e *Engine) RefreshSummary(ctx context.Context) (core.DashboardSummary, error) {
	return e.summary.Refresh(ctx, KeySummary, e.ledger.Summary)
}

// Transactions returns the last-known ledger without fetching.
func (e *Engine) Transactions() ([]core.Transaction, bool) {
	return e.txs.Peek(KeyTransactions)
}

// Summary returns the last-known totals without fetching.
func (e *Engine) Summary() (core.DashboardSummary, bool) {
	return e.summary.Peek(KeySummary)
}

// Create writes tx to the ledger. On confirmation the returned record is
// prepended to the shared list and the summary is refetched. A refusal is a
// *RejectedError; nothing local changes unless the ledger confirms.
func (e *Engine) Create(ctx context.Context, tx core.NewTransaction) (core.Transaction, error) {
	fields := log.NewFields().WithOperation(log.OpCreate).
		WithTransaction(tx.Description, tx.Category, tx.Amount)

	res, err := e.ledger.CreateTransaction(ctx, tx)
	if err != nil {
		e.logger.ErrorContext(ctx, "Ledger write failed", fields.WithError(err).Args()...)
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	if !res.OK() {
		e.logger.ErrorContext(ctx, "Ledger rejected transaction",
			append(fields.Args(), log.FieldStatusCode, res.StatusCode, "reason", res.Reason)...)
		return core.Transaction{}, &RejectedError{Reason: res.Reason, StatusCode: res.StatusCode}
	}

	created := res.Transaction
	e.prepend(created)
	if _, err := e.RefreshSummary(ctx); err != nil {
		e.logger.WarnContext(ctx, "Summary refresh after create failed",
			log.FieldOperation, log.OpSummary, log.FieldError, err)
	}
	e.logger.InfoContext(ctx, "Transaction created", fields.Args()...)
	return created, nil
}

// prepend adds tx at the front of the shared list. Nothing is inserted when
// the list was never loaded; the key is invalidated instead so a fetch that
// started before the create is repeated and includes it.
func (e *Engine) prepend(tx core.Transaction) {
	if _, ok := e.txs.Peek(KeyTransactions); !ok {
		e.txs.Invalidate(KeyTransactions)
		return
	}
	e.txs.Update(KeyTransactions, func(cur []core.Transaction, present bool) []core.Transaction {
		next := make([]core.Transaction, 0, len(cur)+1)
		next = append(next, tx)
		return append(next, cur...)
	})
}

// RejectedError is returned when the ledger answered but refused a write.
type RejectedError struct {
	Reason     string
	StatusCode int
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "ledger rejected transaction"
	}
	return "ledger rejected transaction: " + e.Reason
}
