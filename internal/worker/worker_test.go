package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pondo/internal/amqp"
	"pondo/internal/core"
	"pondo/internal/services"
	"pondo/internal/store"
	"pondo/internal/store/memory"
)

type fakeReconciler struct {
	oneErr     error
	pendingN   int
	pendingErr error
	calls      atomic.Int64
	ids        []string
	mu         sync.Mutex
}

func (f *fakeReconciler) ReconcileOne(_ context.Context, id string) error {
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()
	return f.oneErr
}

func (f *fakeReconciler) ReconcilePending(context.Context) (int, error) {
	f.calls.Add(1)
	return f.pendingN, f.pendingErr
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	msg := amqp.NewReconcileMessage("c-1")

	cases := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"success", nil, false},
		{"contribution gone is acked", services.ErrContributionNotFound, false},
		{"wrapped not found is acked", errors.Join(errors.New("x"), services.ErrContributionNotFound), false},
		{"ledger failure requeues", errors.New("ledger down"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeReconciler{oneErr: tc.err}
			err := NewReconcileWorker(f, nil).HandleMessage(ctx, msg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("got %v, wantErr %v", err, tc.wantErr)
			}
			if len(f.ids) != 1 || f.ids[0] != "c-1" {
				t.Fatalf("unexpected calls %v", f.ids)
			}
		})
	}
}

func TestProcessPendingWrapsError(t *testing.T) {
	f := &fakeReconciler{pendingN: 1, pendingErr: errors.New("boom")}
	err := NewReconcileWorker(f, nil).ProcessPending(context.Background())
	if err == nil || !errors.Is(err, f.pendingErr) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

type flakyLedger struct {
	fail atomic.Bool
	txs  []core.NewTransaction
	mu   sync.Mutex
}

func (l *flakyLedger) Create(_ context.Context, tx core.NewTransaction) (core.Transaction, error) {
	if l.fail.Load() {
		return core.Transaction{}, errors.New("ledger unavailable")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs = append(l.txs, tx)
	return core.Transaction{Date: tx.Date, Description: tx.Description, Category: tx.Category, Amount: tx.Amount}, nil
}

func TestReconcileWorkerWithGoalService(t *testing.T) {
	ctx := context.Background()
	st, err := store.New(memory.New(), nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ledger := &flakyLedger{}
	ledger.fail.Store(true)
	goals := services.NewGoalService(st, ledger, nil, nil)
	if _, err := goals.Replace(ctx, "Trip", 10000, "2026-12-01"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	c, err := goals.AddContribution(ctx, "2026-01-02", "", 500)
	if !errors.Is(err, services.ErrContributionPending) {
		t.Fatalf("expected pending contribution, got %v", err)
	}

	w := NewReconcileWorker(goals, nil)
	if err := w.HandleMessage(ctx, amqp.NewReconcileMessage(c.ID)); err == nil {
		t.Fatalf("expected requeue while the ledger is down")
	}

	ledger.fail.Store(false)
	if err := w.HandleMessage(ctx, amqp.NewReconcileMessage(c.ID)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(goals.Current(ctx).PendingContributions()) != 0 {
		t.Fatalf("contribution still pending")
	}
	if len(ledger.txs) != 1 || ledger.txs[0].Amount != -500 || ledger.txs[0].Category != core.SavingsCategory {
		t.Fatalf("unexpected ledger writes %+v", ledger.txs)
	}

	// A redelivered message must not write twice.
	if err := w.HandleMessage(ctx, amqp.NewReconcileMessage(c.ID)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(ledger.txs) != 1 {
		t.Fatalf("duplicate ledger write: %+v", ledger.txs)
	}

	if err := w.HandleMessage(ctx, amqp.NewReconcileMessage("missing")); err != nil {
		t.Fatalf("unknown id should be dropped, got %v", err)
	}
}

type countingSweeper struct{ n atomic.Int64 }

func (s *countingSweeper) Sweep() int {
	s.n.Add(1)
	return 0
}

func TestProcessorLifecycle(t *testing.T) {
	f := &fakeReconciler{}
	sw := &countingSweeper{}
	p := NewProcessor(NewReconcileWorker(f, nil), sw, ProcessorConfig{
		PollInterval:  10 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	}, nil)

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("expected error when starting twice")
	}

	deadline := time.Now().Add(2 * time.Second)
	for (f.calls.Load() < 2 || sw.n.Load() < 1) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.calls.Load() < 2 {
		t.Fatalf("expected repeated polls, got %d", f.calls.Load())
	}
	if sw.n.Load() < 1 {
		t.Fatal("expected at least one sweep")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("processor should be stopped")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stopping twice should be a no-op, got %v", err)
	}
}

func TestDefaultProcessorConfig(t *testing.T) {
	p := NewProcessor(NewReconcileWorker(&fakeReconciler{}, nil), nil, ProcessorConfig{}, nil)
	if p.config != DefaultProcessorConfig() {
		t.Fatalf("zero config should take defaults, got %+v", p.config)
	}
}
