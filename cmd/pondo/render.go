package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pondo/internal/aggregate"
	"pondo/internal/core"
	"pondo/internal/views"
)

var title = cases.Title(language.English)

type printer struct {
	w      io.Writer
	symbol string
}

func newPrinter(w io.Writer, s core.AppSettings) *printer {
	return &printer{w: w, symbol: s.CurrencySymbol}
}

func (p *printer) money(amount int64) string { return core.Format(amount, p.symbol) }

func (p *printer) heading(s string) {
	fmt.Fprintf(p.w, "\n== %s ==\n", title.String(s))
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) table(header string, rows func(tw *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	tw.Flush()
}

func (p *printer) transactions(txs []core.Transaction) {
	if len(txs) == 0 {
		p.line("No transactions yet.")
		return
	}
	p.table("DATE\tDESCRIPTION\tCATEGORY\tAMOUNT", func(tw *tabwriter.Writer) {
		for _, tx := range txs {
			label := p.money(tx.Amount)
			if tx.Amount > 0 {
				label = "+ " + label
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tx.Date, tx.Description, tx.Category, label)
		}
	})
}

func (p *printer) totals(s core.DashboardSummary, ok bool) {
	if !ok {
		p.line("Totals unavailable.")
		return
	}
	p.line("Total Income:     %s", p.money(s.TotalIncome))
	p.line("Total Expenses:   %s", p.money(s.TotalExpenses))
	p.line("Current Balance:  %s", p.money(s.Balance))
}

func (p *printer) budgets(ov aggregate.BudgetOverview) {
	if len(ov.Items) == 0 {
		p.line("No budgets set yet.")
		return
	}
	p.line("Remaining: %s of %s", p.money(ov.TotalRemaining), p.money(ov.TotalBudget))
	if ov.OverspentCount > 0 {
		p.line("%d budget(s) over limit", ov.OverspentCount)
	}
	p.table("CATEGORY\tLIMIT\tSPENT\tREMAINING\tUSED", func(tw *tabwriter.Writer) {
		for _, st := range ov.Items {
			flag := ""
			if st.Overspent {
				flag = " !"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%%s\n",
				st.Budget.Category, p.money(st.Budget.Limit), p.money(st.Spent), p.money(st.Remaining), st.PercentUsed, flag)
		}
	})
}

func (p *printer) categories(totals []aggregate.CategoryTotal) {
	if len(totals) == 0 {
		p.line("No expenses yet.")
		return
	}
	p.table("CATEGORY\tSPENT", func(tw *tabwriter.Writer) {
		for _, c := range totals {
			fmt.Fprintf(tw, "%s\t%s\n", c.Category, p.money(c.Total))
		}
	})
}

func renderDashboard(w io.Writer, m views.DashboardModel) {
	p := newPrinter(w, m.Settings)
	p.heading("dashboard")
	p.totals(m.Summary, m.HasSummary)

	p.heading("saving goal")
	if !m.Goal.Set {
		p.line("No goal set yet.")
	} else {
		target := "-"
		if m.Goal.Target > 0 {
			target = p.money(m.Goal.Target)
		}
		p.line("%s", m.Goal.Title)
		p.line("Saved: %s  Target: %s  %d%% complete", p.money(m.Goal.Saved), target, m.Goal.Percent)
	}

	p.heading("budget status")
	p.budgets(m.Budgets)

	p.heading("recent transactions")
	p.transactions(m.Recent)
}

func renderBudget(w io.Writer, m views.BudgetModel) {
	p := newPrinter(w, m.Settings)
	p.heading("budget planner")
	p.line("Total Spent: %s", p.money(m.TotalSpent))

	p.heading("top categories")
	p.categories(m.TopCategories)

	p.heading("category budgets")
	p.budgets(m.Overview)

	p.heading("expense breakdown")
	p.categories(m.Breakdown)
}

func renderLedger(w io.Writer, name, totalLabel string, m views.LedgerModel) {
	p := newPrinter(w, m.Settings)
	p.heading(name)
	p.line("%s: %s", totalLabel, p.money(m.Total))
	p.transactions(m.Transactions)
}

func renderSavings(w io.Writer, m views.SavingsModel) {
	p := newPrinter(w, m.Settings)
	p.heading("savings")
	if !m.Set {
		p.line("No goal set yet.")
		return
	}
	date := m.Goal.TargetDate
	if date == "" {
		date = "No Date"
	}
	p.line("Current Goal: %s (target date %s)", m.Goal.DisplayTitle(), date)
	p.line("Amount Saved: %s  Goal Target: %s  Progress: %d%%",
		p.money(m.Progress.Saved), p.money(m.Goal.TargetAmount), m.Progress.Percent())
	if m.Progress.Reached {
		p.line("Goal reached!")
	}
	if m.Pending > 0 {
		p.line("%d contribution(s) waiting to sync with the ledger", m.Pending)
	}

	p.heading("contribution history")
	if len(m.Goal.Contributions) == 0 {
		p.line("No contributions yet.")
		return
	}
	p.table("DATE\tDESCRIPTION\tAMOUNT\t", func(tw *tabwriter.Writer) {
		for _, c := range m.Goal.Contributions {
			state := ""
			if c.PendingSync {
				state = "pending"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Date, c.Description, p.money(c.Amount), state)
		}
	})
}

func renderSummary(w io.Writer, m views.SummaryModel) {
	p := newPrinter(w, m.Settings)
	p.heading("summary")
	p.totals(m.Summary, m.HasSummary)
	p.heading("recent transactions")
	p.transactions(m.Recent)
}

func renderSettings(w io.Writer, m views.SettingsModel) {
	p := newPrinter(w, m.Settings)
	p.heading("preferences")
	p.line("Currency: %s (%s)", m.Settings.CurrencyCode, m.Settings.CurrencySymbol)
	p.line("Available: %v", m.Available)
}
