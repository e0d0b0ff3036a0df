package views

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pondo/internal/core"
	ledgermem "pondo/internal/ledger/memory"
	"pondo/internal/services"
	"pondo/internal/store"
	storemem "pondo/internal/store/memory"
	"pondo/internal/syncer"
)

func newApp(t *testing.T, seed ...core.Transaction) (*App, *ledgermem.Ledger) {
	t.Helper()
	st, err := store.New(storemem.New(), nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	l := ledgermem.New(seed...)
	engine := syncer.NewEngine(l, syncer.Options{})
	app := New(engine,
		services.NewBudgetService(st, nil),
		services.NewGoalService(st, engine, nil, nil),
		services.NewSettingsService(st, nil),
		nil)
	return app, l
}

func seed() []core.Transaction {
	return []core.Transaction{
		{Date: "2025-01-01", Description: "Pay", Category: "Salary", Amount: 1000},
		{Date: "2025-01-02", Description: "Lunch", Category: "Food", Amount: -500},
		{Date: "2025-01-03", Description: "Dinner", Category: "Food", Amount: -300},
		{Date: "2025-01-04", Description: "Bus", Category: "Transportation", Amount: -50},
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, seed()...)
	if _, err := app.Budgets().Upsert(ctx, "Food", 500); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	m := app.Dashboard(ctx)
	if !m.HasSummary || m.Summary.TotalIncome != 1000 || m.Summary.TotalExpenses != 850 || m.Summary.Balance != 150 {
		t.Fatalf("unexpected summary %+v", m.Summary)
	}
	if len(m.Recent) != 4 {
		t.Fatalf("dashboard lists every transaction, got %d", len(m.Recent))
	}
	if m.Goal.Set {
		t.Fatalf("no goal has been set")
	}
	if len(m.Budgets.Items) != 1 || !m.Budgets.Items[0].Overspent || m.Budgets.OverspentCount != 1 || m.Budgets.TotalRemaining != -300 {
		t.Fatalf("unexpected budgets %+v", m.Budgets)
	}
	if m.Settings.CurrencyCode != core.DefaultCurrencyCode {
		t.Fatalf("unexpected settings %+v", m.Settings)
	}
}

func TestDashboardGoalCard(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t)
	if _, err := app.Goals().Replace(ctx, "Trip", 1000, ""); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := app.Goals().AddContribution(ctx, "2025-02-01", "", 250); err != nil {
		t.Fatalf("contribute: %v", err)
	}
	card := app.Dashboard(ctx).Goal
	if !card.Set || card.Title != "Trip" || card.Saved != 250 || card.Percent != 25 || card.Reached {
		t.Fatalf("unexpected card %+v", card)
	}
}

func TestBudgetPage(t *testing.T) {
	ctx := context.Background()
	txs := seed()
	for i := 0; i < 6; i++ {
		txs = append(txs, core.Transaction{Date: "2025-01-05", Description: "x", Category: fmt.Sprintf("C%d", i), Amount: -int64(10 + i)})
	}
	app, _ := newApp(t, txs...)

	m := app.Budget(ctx)
	if m.TotalSpent != 850+10+11+12+13+14+15 {
		t.Fatalf("unexpected total spent %d", m.TotalSpent)
	}
	if len(m.TopCategories) != TopCategoryCount {
		t.Fatalf("expected %d top categories, got %d", TopCategoryCount, len(m.TopCategories))
	}
	if m.TopCategories[0].Category != "Food" || m.TopCategories[0].Total != 800 {
		t.Fatalf("largest category first, got %+v", m.TopCategories[0])
	}
	if len(m.Breakdown) != 8 {
		t.Fatalf("breakdown keeps every category, got %d", len(m.Breakdown))
	}
	for i := 1; i < len(m.Breakdown); i++ {
		if m.Breakdown[i].Total > m.Breakdown[i-1].Total {
			t.Fatalf("breakdown not sorted: %+v", m.Breakdown)
		}
	}
}

func TestIncomeAndExpensePages(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, seed()...)

	in := app.Income(ctx)
	if len(in.Transactions) != 1 || in.Total != 1000 {
		t.Fatalf("unexpected income page %+v", in)
	}
	out := app.Expenses(ctx)
	if len(out.Transactions) != 3 || out.Total != 850 {
		t.Fatalf("unexpected expense page %+v", out)
	}
	for _, tx := range out.Transactions {
		if tx.Amount >= 0 {
			t.Fatalf("income leaked into expenses: %+v", tx)
		}
	}
}

func TestExpenseFormRefreshesPages(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, seed()...)
	_ = app.Expenses(ctx)

	f := app.ExpenseForm()
	f.SetFields(syncer.Fields{Date: "2025-02-01", Description: "Taxi", Category: "Transportation", Amount: "120"})
	tx, err := f.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if tx.Amount != -120 {
		t.Fatalf("expense must be stored negative, got %d", tx.Amount)
	}
	if got := f.Fields().Category; got != syncer.DefaultExpenseCategory {
		t.Fatalf("form should reset to %q, got %q", syncer.DefaultExpenseCategory, got)
	}

	m := app.Summary(ctx)
	if m.Summary.TotalExpenses != 970 || m.Recent[0].Description != "Taxi" {
		t.Fatalf("summary not refreshed: %+v / %+v", m.Summary, m.Recent[0])
	}
}

func TestSummaryLimitsRecent(t *testing.T) {
	ctx := context.Background()
	var txs []core.Transaction
	for i := 0; i < 15; i++ {
		txs = append(txs, core.Transaction{Date: "2025-01-01", Description: fmt.Sprintf("t%d", i), Category: "Food", Amount: -1})
	}
	app, _ := newApp(t, txs...)

	m := app.Summary(ctx)
	if len(m.Recent) != RecentSummaryCount {
		t.Fatalf("expected %d recent, got %d", RecentSummaryCount, len(m.Recent))
	}
	if m.Recent[0].Description != "t14" {
		t.Fatalf("newest first, got %s", m.Recent[0].Description)
	}
}

func TestSummaryKeepsLastKnownOnFailure(t *testing.T) {
	ctx := context.Background()
	app, l := newApp(t, seed()...)
	first := app.Summary(ctx)

	l.SetErr(errors.New("offline"))
	second := app.Summary(ctx)
	if !second.HasSummary || second.Summary != first.Summary || len(second.Recent) != len(first.Recent) {
		t.Fatalf("failed fetch must keep the last known state: %+v", second)
	}
}

func TestSummaryWithoutLedger(t *testing.T) {
	ctx := context.Background()
	app, l := newApp(t)
	l.SetErr(errors.New("offline"))
	m := app.Summary(ctx)
	if m.HasSummary || len(m.Recent) != 0 {
		t.Fatalf("expected empty defaults, got %+v", m)
	}
}

func TestSavingsAndSettingsPages(t *testing.T) {
	ctx := context.Background()
	app, l := newApp(t)

	if m := app.Savings(ctx); m.Set || m.Progress.Progress != 0 {
		t.Fatalf("unexpected empty savings page %+v", m)
	}
	if _, err := app.Goals().Replace(ctx, "Car", 200, "2027-01-01"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	l.SetErr(errors.New("offline"))
	if _, err := app.Goals().AddContribution(ctx, "", "", 200); !errors.Is(err, services.ErrContributionPending) {
		t.Fatalf("expected pending, got %v", err)
	}
	m := app.Savings(ctx)
	if !m.Set || !m.Progress.Reached || m.Pending != 1 {
		t.Fatalf("unexpected savings page %+v", m)
	}

	app.Settings().SetCurrency(ctx, "EUR")
	s := app.SettingsPage(ctx)
	if s.Settings.CurrencySymbol != "€" || len(s.Available) == 0 {
		t.Fatalf("unexpected settings page %+v", s)
	}
}
