package syncer

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"pondo/internal/core"
	"pondo/internal/log"
)

// Filter selects which ledger records a view shows.
type Filter int

const (
	All Filter = iota
	IncomeOnly
	ExpensesOnly
)

func (f Filter) Keep(tx core.Transaction) bool {
	switch f {
	case IncomeOnly:
		return tx.Amount > 0
	case ExpensesOnly:
		return tx.Amount < 0
	default:
		return true
	}
}

func (f Filter) String() string {
	switch f {
	case IncomeOnly:
		return "income"
	case ExpensesOnly:
		return "expenses"
	default:
		return "all"
	}
}

type ViewOptions struct {
	Name        string
	Filter      Filter
	WithSummary bool
	// Limit truncates the filtered list; zero or negative means no limit.
	Limit int
}

// View is one activation of a screen. It mirrors the shared caches and
// remembers its own copy, so a failed fetch leaves whatever it last showed.
type View struct {
	engine *Engine
	opts   ViewOptions
	logger *log.Logger

	mu         sync.Mutex
	txs        []core.Transaction
	summary    core.DashboardSummary
	hasSummary bool
	loading    bool
	closed     bool
	unsub      []func()
}

// NewView subscribes to the shared caches and seeds from their current
// values. The view reports Loading until Activate completes.
func (e *Engine) NewView(opts ViewOptions) *View {
	v := &View{
		engine:  e,
		opts:    opts,
		logger:  e.logger.With(log.FieldView, opts.Name),
		loading: true,
	}
	if txs, ok := e.txs.Peek(KeyTransactions); ok {
		v.txs = txs
	}
	v.unsub = append(v.unsub, e.txs.Subscribe(KeyTransactions, v.setTransactions))
	if opts.WithSummary {
		if s, ok := e.summary.Peek(KeySummary); ok {
			v.summary, v.hasSummary = s, true
		}
		v.unsub = append(v.unsub, e.summary.Subscribe(KeySummary, v.setSummary))
	}
	return v
}

func (v *View) setTransactions(txs []core.Transaction) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.txs = txs
}

func (v *View) setSummary(s core.DashboardSummary) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.summary, v.hasSummary = s, true
}

// Activate fetches the transactions and, if requested, the summary
// concurrently and waits for both. Failures are logged and leave the view's
// previous state in place.
func (v *View) Activate(ctx context.Context) {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		if _, err := v.engine.RefreshTransactions(ctx); err != nil {
			v.logger.WarnContext(ctx, "Transactions fetch failed",
				log.FieldOperation, log.OpList, log.FieldError, err)
		}
		return nil
	})
	if v.opts.WithSummary {
		g.Go(func() error {
			if _, err := v.engine.RefreshSummary(ctx); err != nil {
				v.logger.WarnContext(ctx, "Summary fetch failed",
					log.FieldOperation, log.OpSummary, log.FieldError, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	v.mu.Lock()
	v.loading = false
	v.mu.Unlock()
}

func (v *View) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Transactions returns the filtered, limited list in ledger order.
func (v *View) Transactions() []core.Transaction {
	v.mu.Lock()
	all := v.txs
	v.mu.Unlock()

	out := make([]core.Transaction, 0, len(all))
	for _, tx := range all {
		if !v.opts.Filter.Keep(tx) {
			continue
		}
		out = append(out, tx)
		if v.opts.Limit > 0 && len(out) == v.opts.Limit {
			break
		}
	}
	return out
}

// AllTransactions returns the unfiltered list.
func (v *View) AllTransactions() []core.Transaction {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.Transaction(nil), v.txs...)
}

// Summary returns the last-known totals and whether any were received.
func (v *View) Summary() (core.DashboardSummary, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.summary, v.hasSummary
}

// Close detaches the view. Fetches still in flight complete into the shared
// cache and are ignored here.
func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	unsub := v.unsub
	v.unsub = nil
	v.mu.Unlock()
	for _, fn := range unsub {
		fn()
	}
}
