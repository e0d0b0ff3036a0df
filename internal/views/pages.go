package views

import (
	"context"

	"pondo/internal/aggregate"
	"pondo/internal/core"
	"pondo/internal/syncer"
)

type DashboardModel struct {
	Settings   core.AppSettings         `json:"settings"`
	Summary    core.DashboardSummary    `json:"summary"`
	HasSummary bool                     `json:"has_summary"`
	Goal       GoalCard                 `json:"goal"`
	Budgets    aggregate.BudgetOverview `json:"budgets"`
	Recent     []core.Transaction       `json:"recent"`
}

// Dashboard shows the remote totals, the goal, budget status and every
// transaction.
func (a *App) Dashboard(ctx context.Context) DashboardModel {
	v := a.load(ctx, syncer.ViewOptions{Name: "dashboard", WithSummary: true})
	summary, ok := v.Summary()
	txs := v.Transactions()
	return DashboardModel{
		Settings:   a.settings.Current(ctx),
		Summary:    summary,
		HasSummary: ok,
		Goal:       goalCard(a.goals.Current(ctx)),
		Budgets:    a.budgets.Overview(ctx, txs),
		Recent:     txs,
	}
}

type BudgetModel struct {
	Settings      core.AppSettings          `json:"settings"`
	Overview      aggregate.BudgetOverview  `json:"overview"`
	TotalSpent    int64                     `json:"total_spent"`
	TopCategories []aggregate.CategoryTotal `json:"top_categories"`
	Breakdown     []aggregate.CategoryTotal `json:"breakdown"`
}

// Budget lists every budget with its status, the five biggest spending
// categories and the full breakdown, largest first.
func (a *App) Budget(ctx context.Context) BudgetModel {
	v := a.load(ctx, syncer.ViewOptions{Name: "budget"})
	txs := v.Transactions()
	spend := aggregate.SpendByCategory(txs)
	return BudgetModel{
		Settings:      a.settings.Current(ctx),
		Overview:      a.budgets.Overview(ctx, txs),
		TotalSpent:    spend.Total(),
		TopCategories: aggregate.TopCategories(spend, TopCategoryCount),
		Breakdown:     aggregate.TopCategories(spend, -1),
	}
}

// LedgerModel backs the income and expense screens. Total is a magnitude.
type LedgerModel struct {
	Settings     core.AppSettings   `json:"settings"`
	Transactions []core.Transaction `json:"transactions"`
	Total        int64              `json:"total"`
}

func (a *App) Income(ctx context.Context) LedgerModel {
	v := a.load(ctx, syncer.ViewOptions{Name: "income", Filter: syncer.IncomeOnly})
	txs := v.Transactions()
	return LedgerModel{Settings: a.settings.Current(ctx), Transactions: txs, Total: aggregate.IncomeTotal(txs)}
}

func (a *App) Expenses(ctx context.Context) LedgerModel {
	v := a.load(ctx, syncer.ViewOptions{Name: "expenses", Filter: syncer.ExpensesOnly})
	txs := v.Transactions()
	return LedgerModel{Settings: a.settings.Current(ctx), Transactions: txs, Total: aggregate.ExpenseTotal(txs)}
}

type SavingsModel struct {
	Settings core.AppSettings       `json:"settings"`
	Goal     core.SavingGoal        `json:"goal"`
	Set      bool                   `json:"set"`
	Progress aggregate.GoalProgress `json:"progress"`
	Pending  int                    `json:"pending"`
}

// Savings is local only; it never touches the ledger.
func (a *App) Savings(ctx context.Context) SavingsModel {
	g := a.goals.Current(ctx)
	return SavingsModel{
		Settings: a.settings.Current(ctx),
		Goal:     g,
		Set:      !g.IsUnset(),
		Progress: aggregate.ProgressOf(g),
		Pending:  len(g.PendingContributions()),
	}
}

type SummaryModel struct {
	Settings   core.AppSettings      `json:"settings"`
	Summary    core.DashboardSummary `json:"summary"`
	HasSummary bool                  `json:"has_summary"`
	Recent     []core.Transaction    `json:"recent"`
}

// Summary shows the remote totals and the most recent transactions.
func (a *App) Summary(ctx context.Context) SummaryModel {
	v := a.load(ctx, syncer.ViewOptions{Name: "summary", WithSummary: true, Limit: RecentSummaryCount})
	s, ok := v.Summary()
	return SummaryModel{
		Settings:   a.settings.Current(ctx),
		Summary:    s,
		HasSummary: ok,
		Recent:     v.Transactions(),
	}
}

type SettingsModel struct {
	Settings  core.AppSettings `json:"settings"`
	Available []string         `json:"available"`
}

func (a *App) SettingsPage(ctx context.Context) SettingsModel {
	return SettingsModel{Settings: a.settings.Current(ctx), Available: core.SupportedCurrencies()}
}

// Forms. Each call returns a fresh form bound to the shared engine.

func (a *App) DashboardForm() *syncer.Form { return a.engine.NewForm(syncer.Signed, "") }
func (a *App) IncomeForm() *syncer.Form    { return a.engine.NewIncomeForm() }
func (a *App) ExpenseForm() *syncer.Form   { return a.engine.NewExpenseForm() }
