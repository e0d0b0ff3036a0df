package services

import (
	"context"
	"strings"
	"sync"

	"pondo/internal/aggregate"
	"pondo/internal/core"
	"pondo/internal/log"
	"pondo/internal/store"
)

// BudgetService manages the locally stored budget list.
type BudgetService struct {
	store  *store.Store
	logger *log.Logger
	mu     sync.Mutex
}

func NewBudgetService(s *store.Store, logger *log.Logger) *BudgetService {
	return &BudgetService{
		store:  s,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentBudget),
	}
}

func (s *BudgetService) List(ctx context.Context) []core.BudgetItem {
	return s.store.Budgets(ctx)
}

// Upsert sets the limit for category. An existing budget matching the
// category case-insensitively keeps its original spelling and gets the new
// limit; otherwise a new budget is appended.
func (s *BudgetService) Upsert(ctx context.Context, category string, limit int64) ([]core.BudgetItem, error) {
	item := core.BudgetItem{Category: strings.TrimSpace(category), Limit: limit}
	if err := item.Validate(); err != nil {
		return nil, &InputError{Message: MsgBudgetInput, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	budgets := s.store.Budgets(ctx)
	updated := false
	for i := range budgets {
		if budgets[i].SameCategory(item.Category) {
			budgets[i].Limit = item.Limit
			updated = true
			break
		}
	}
	if !updated {
		budgets = append(budgets, item)
	}
	s.store.SaveBudgets(ctx, budgets)

	s.logger.InfoContext(ctx, "Budget saved",
		log.FieldCategory, item.Category, log.FieldAmount, item.Limit, "updated", updated)
	return budgets, nil
}

// Remove deletes the budget matching category case-insensitively and reports
// whether one was found.
func (s *BudgetService) Remove(ctx context.Context, category string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	budgets := s.store.Budgets(ctx)
	out := budgets[:0]
	removed := false
	for _, b := range budgets {
		if !removed && b.SameCategory(strings.TrimSpace(category)) {
			removed = true
			continue
		}
		out = append(out, b)
	}
	if removed {
		s.store.SaveBudgets(ctx, out)
	}
	return removed
}

// Overview combines the stored budgets with spend derived from txs.
func (s *BudgetService) Overview(ctx context.Context, txs []core.Transaction) aggregate.BudgetOverview {
	return aggregate.Overview(s.List(ctx), aggregate.SpendByCategory(txs))
}
