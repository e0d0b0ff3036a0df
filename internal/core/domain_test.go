package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{Date: "2025-01-01", Description: "Lunch", Category: "Food", Amount: -250}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewTransaction{
		{Date: "", Description: "a", Category: "c", Amount: 1},
		{Date: "2025-01-01", Description: "  ", Category: "c", Amount: 1},
		{Date: "2025-01-01", Description: "a", Category: "", Amount: 1},
		{Date: "2025-01-01", Description: "a", Category: "c", Amount: 0},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetItemValidate(t *testing.T) {
	if err := (BudgetItem{Category: "Food", Limit: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (BudgetItem{Category: "Food", Limit: 0}).Validate(); err != ErrNonPositiveLimit {
		t.Fatalf("expected ErrNonPositiveLimit, got %v", err)
	}
	if err := (BudgetItem{Category: " ", Limit: 10}).Validate(); err != ErrEmptyCategory {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if !(BudgetItem{Category: "Food"}).SameCategory("fOOD") {
		t.Fatalf("expected case-insensitive match")
	}
}

func TestValidateBudgets(t *testing.T) {
	tests := []struct {
		name  string
		items []BudgetItem
		want  error
	}{
		{name: "empty", items: nil},
		{name: "distinct", items: []BudgetItem{{Category: "Food", Limit: 1}, {Category: "Rent", Limit: 2}}},
		{name: "zero limit", items: []BudgetItem{{Category: "Food"}}, want: ErrNonPositiveLimit},
		{name: "case duplicate", items: []BudgetItem{{Category: "Food", Limit: 1}, {Category: "fOOD", Limit: 2}}, want: ErrDuplicateCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBudgets(tt.items)
			if tt.want == nil && err != nil {
				t.Fatalf("ValidateBudgets() error = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("ValidateBudgets() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAppSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	if err := (AppSettings{CurrencySymbol: "$"}).Validate(); err != ErrEmptyCurrency {
		t.Fatalf("expected ErrEmptyCurrency, got %v", err)
	}
}

func TestSavingGoalIsUnset(t *testing.T) {
	if !(SavingGoal{}).IsUnset() {
		t.Fatalf("zero goal should be unset")
	}
	if (SavingGoal{Title: "Trip"}).IsUnset() {
		t.Fatalf("titled goal should be set")
	}
	if (SavingGoal{Contributions: []Contribution{{Amount: 1}}}).IsUnset() {
		t.Fatalf("goal with contributions should be set")
	}
}

func TestTransactionJSONOmitsMissingID(t *testing.T) {
	raw, err := json.Marshal(Transaction{Date: "2025-01-01", Description: "x", Category: "c", Amount: 5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"date":"2025-01-01","description":"x","category":"c","amount":5}` {
		t.Fatalf("unexpected json: %s", raw)
	}

	var tx Transaction
	if err := json.Unmarshal([]byte(`{"id":7,"date":"d","description":"x","category":"c","amount":-5}`), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.ID == nil || *tx.ID != 7 || !tx.IsExpense() {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestContributionDecodesWithoutSagaFields(t *testing.T) {
	var g SavingGoal
	raw := `{"title":"Trip","target_amount":10000,"target_date":"2026-01-01","contributions":[{"date":"d","description":"x","amount":300}]}`
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(g.Contributions) != 1 || g.Contributions[0].PendingSync || g.Contributions[0].ID != "" {
		t.Fatalf("unexpected goal: %+v", g)
	}
	if len(g.PendingContributions()) != 0 {
		t.Fatalf("expected no pending contributions")
	}
}
