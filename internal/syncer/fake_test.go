package syncer

import (
	"context"
	"sync/atomic"

	"pondo/internal/core"
	"pondo/internal/ledger"
	"pondo/internal/ledger/memory"
)

// gatedLedger wraps the memory ledger with call counters and optional hooks.
type gatedLedger struct {
	*memory.Ledger
	creates   atomic.Int32
	lists     atomic.Int32
	summaries atomic.Int32

	beforeCreate func()
	beforeList   func()
	afterList    func()
	createResult *ledger.CreateResult
	createErr    error
}

func newGated(seed ...core.Transaction) *gatedLedger {
	return &gatedLedger{Ledger: memory.New(seed...)}
}

func (g *gatedLedger) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	g.lists.Add(1)
	if g.beforeList != nil {
		g.beforeList()
	}
	txs, err := g.Ledger.ListTransactions(ctx)
	if g.afterList != nil {
		g.afterList()
	}
	return txs, err
}

func (g *gatedLedger) Summary(ctx context.Context) (core.DashboardSummary, error) {
	g.summaries.Add(1)
	return g.Ledger.Summary(ctx)
}

func (g *gatedLedger) CreateTransaction(ctx context.Context, tx core.NewTransaction) (ledger.CreateResult, error) {
	g.creates.Add(1)
	if g.beforeCreate != nil {
		g.beforeCreate()
	}
	if g.createErr != nil {
		return ledger.CreateResult{}, g.createErr
	}
	if g.createResult != nil {
		return *g.createResult, nil
	}
	return g.Ledger.CreateTransaction(ctx, tx)
}

func seedLedger() []core.Transaction {
	return []core.Transaction{
		{Date: "2025-01-01", Description: "Pay", Category: "Salary", Amount: 1000},
		{Date: "2025-01-02", Description: "Lunch", Category: "Food", Amount: -500},
		{Date: "2025-01-03", Description: "Dinner", Category: "Food", Amount: -300},
	}
}
