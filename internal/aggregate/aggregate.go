// Package aggregate derives summaries from ledger transactions and locally
// owned budgets and goals. Every function is pure: inputs are never mutated and
// no I/O is performed.
package aggregate

import (
	"math"
	"sort"

	"pondo/internal/core"
)

// CategoryTotal is an amount attributed to one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// CategorySpend maps categories to expense magnitude, keeping the order in
// which categories were first seen.
type CategorySpend struct {
	totals map[string]int64
	order  []string
}

// BudgetStatus is the state of one budget against current spend.
type BudgetStatus struct {
	Budget      core.BudgetItem `json:"budget"`
	Spent       int64           `json:"spent"`
	Remaining   int64           `json:"remaining"` // negative when overspent
	PercentUsed int64           `json:"percent_used"`
	Overspent   bool            `json:"overspent"`
}

// BudgetOverview aggregates every budget.
type BudgetOverview struct {
	Items          []BudgetStatus `json:"items"`
	TotalBudget    int64          `json:"total_budget"`
	TotalSpent     int64          `json:"total_spent"`
	TotalRemaining int64          `json:"total_remaining"`
	OverspentCount int            `json:"overspent_count"`
}

// GoalProgress is the saved amount and clamped progress of a goal.
type GoalProgress struct {
	Saved    int64   `json:"saved"`
	Progress float64 `json:"progress"` // always within [0,1]
	Reached  bool    `json:"reached"`
}

// SpendByCategory sums |amount| over expense transactions per category.
// Income transactions contribute nothing.
func SpendByCategory(txs []core.Transaction) CategorySpend {
	s := CategorySpend{totals: make(map[string]int64)}
	for _, tx := range txs {
		if tx.Amount >= 0 {
			continue
		}
		if _, seen := s.totals[tx.Category]; !seen {
			s.order = append(s.order, tx.Category)
		}
		s.totals[tx.Category] += -tx.Amount
	}
	return s
}

// SpendFrom builds a CategorySpend from precomputed totals, in the given order.
func SpendFrom(totals []CategoryTotal) CategorySpend {
	s := CategorySpend{totals: make(map[string]int64, len(totals))}
	for _, t := range totals {
		if _, seen := s.totals[t.Category]; !seen {
			s.order = append(s.order, t.Category)
		}
		s.totals[t.Category] += t.Total
	}
	return s
}

// Of returns the spend recorded for category, or 0. The lookup is exact:
// category casing must match the ledger.
func (s CategorySpend) Of(category string) int64 {
	return s.totals[category]
}

// Len is the number of categories with spend.
func (s CategorySpend) Len() int { return len(s.order) }

// Total is the spend across all categories.
func (s CategorySpend) Total() int64 {
	var sum int64
	for _, v := range s.totals {
		sum += v
	}
	return sum
}

// Totals lists categories in first-seen order.
func (s CategorySpend) Totals() []CategoryTotal {
	out := make([]CategoryTotal, 0, len(s.order))
	for _, c := range s.order {
		out = append(out, CategoryTotal{Category: c, Total: s.totals[c]})
	}
	return out
}

// Map returns a copy of the category totals.
func (s CategorySpend) Map() map[string]int64 {
	out := make(map[string]int64, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out
}

// TopCategories sorts by descending total, ties keeping first-seen order, and
// truncates to n. A negative n keeps everything.
func TopCategories(s CategorySpend, n int) []CategoryTotal {
	out := s.Totals()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// StatusOf computes spent, remaining and percent used for one budget.
func StatusOf(b core.BudgetItem, spend CategorySpend) BudgetStatus {
	spent := spend.Of(b.Category)
	st := BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: b.Limit - spent,
		Overspent: spent > b.Limit,
	}
	if b.Limit > 0 {
		st.PercentUsed = int64(math.Round(float64(spent) / float64(b.Limit) * 100))
	}
	return st
}

// Overview computes the status of each budget and the aggregate totals.
func Overview(budgets []core.BudgetItem, spend CategorySpend) BudgetOverview {
	ov := BudgetOverview{Items: make([]BudgetStatus, 0, len(budgets))}
	for _, b := range budgets {
		st := StatusOf(b, spend)
		ov.Items = append(ov.Items, st)
		ov.TotalBudget += b.Limit
		ov.TotalSpent += st.Spent
		if st.Overspent {
			ov.OverspentCount++
		}
	}
	ov.TotalRemaining = ov.TotalBudget - ov.TotalSpent
	return ov
}

// ProgressOf sums contributions and clamps progress to [0,1]. Goals without a
// positive target report zero progress.
func ProgressOf(g core.SavingGoal) GoalProgress {
	var saved int64
	for _, c := range g.Contributions {
		saved += c.Amount
	}
	p := GoalProgress{Saved: saved}
	if g.TargetAmount > 0 {
		p.Progress = math.Max(0, math.Min(1, float64(saved)/float64(g.TargetAmount)))
		p.Reached = saved >= g.TargetAmount
	}
	return p
}

// Percent is the rounded display percentage.
func (p GoalProgress) Percent() int {
	return int(math.Round(p.Progress * 100))
}

// IncomeTotal sums positive amounts.
func IncomeTotal(txs []core.Transaction) int64 {
	var sum int64
	for _, tx := range txs {
		if tx.Amount > 0 {
			sum += tx.Amount
		}
	}
	return sum
}

// ExpenseTotal sums the magnitude of negative amounts.
func ExpenseTotal(txs []core.Transaction) int64 {
	var sum int64
	for _, tx := range txs {
		if tx.Amount < 0 {
			sum += -tx.Amount
		}
	}
	return sum
}
