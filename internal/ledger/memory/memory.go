// Package memory is an in-process ledger used for tests, demos and offline
// runs. It computes the dashboard summary from its own records.
package memory

import (
	"context"
	"strings"
	"sync"

	"pondo/internal/core"
	"pondo/internal/ledger"
)

type Ledger struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Transaction

	// RejectCategory, when set, makes creates in that category fail.
	RejectCategory string
	// Err, when set, is returned by every call.
	Err error
}

var _ ledger.Ledger = (*Ledger)(nil)

func New(seed ...core.Transaction) *Ledger {
	l := &Ledger{nextID: 1}
	for _, tx := range seed {
		l.insert(tx)
	}
	return l
}

func (l *Ledger) insert(tx core.Transaction) core.Transaction {
	id := l.nextID
	l.nextID++
	tx.ID = &id
	l.items = append(l.items, tx)
	return tx
}

// ListTransactions returns newest first, the order the ledger API uses.
func (l *Ledger) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return nil, l.Err
	}
	out := make([]core.Transaction, 0, len(l.items))
	for i := len(l.items) - 1; i >= 0; i-- {
		out = append(out, l.items[i])
	}
	return out, nil
}

func (l *Ledger) Summary(_ context.Context) (core.DashboardSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return core.DashboardSummary{}, l.Err
	}
	return Summarize(l.items), nil
}

func (l *Ledger) CreateTransaction(_ context.Context, tx core.NewTransaction) (ledger.CreateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return ledger.CreateResult{}, l.Err
	}
	if l.RejectCategory != "" && strings.EqualFold(tx.Category, l.RejectCategory) {
		return ledger.CreateResult{Status: ledger.Rejected, Reason: "category not allowed"}, nil
	}
	created := l.insert(core.Transaction{
		Date:        tx.Date,
		Description: tx.Description,
		Category:    tx.Category,
		Amount:      tx.Amount,
	})
	return ledger.CreateResult{Status: ledger.Created, Transaction: created}, nil
}

// SetErr makes every later call fail with err; nil restores normal behaviour.
func (l *Ledger) SetErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Err = err
}

// Len returns the number of stored transactions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Summarize computes dashboard totals the way the ledger API does: income is
// the sum of positive amounts, expenses the magnitude of negative ones.
func Summarize(txs []core.Transaction) core.DashboardSummary {
	var s core.DashboardSummary
	for _, tx := range txs {
		if tx.Amount > 0 {
			s.TotalIncome += tx.Amount
		} else {
			s.TotalExpenses += -tx.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpenses
	return s
}
