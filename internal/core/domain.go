package core

import (
	"errors"
	"fmt"
	"strings"
)

// Storage keys for locally-owned entities.
const (
	KeySettings    = "settings"
	KeyBudgets     = "budgets"
	KeySavingGoal  = "saving_goal"
	KeyAccessToken = "access_token"
)

// SavingsCategory is the ledger category used for goal contributions.
const SavingsCategory = "Savings"

type (
	// Transaction is a signed monetary event owned by the remote ledger.
	// Positive amounts are income, negative amounts are expenses.
	Transaction struct {
		ID          *int64 `json:"id,omitempty"` // assigned by the ledger
		Date        string `json:"date"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Amount      int64  `json:"amount"`
	}

	// NewTransaction is the body sent to the ledger on create.
	NewTransaction struct {
		Date        string `json:"date"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Amount      int64  `json:"amount"`
	}

	// DashboardSummary is pre-aggregated by the ledger and trusted as-is.
	DashboardSummary struct {
		TotalIncome   int64 `json:"total_income"`
		TotalExpenses int64 `json:"total_expenses"`
		Balance       int64 `json:"balance"`
	}

	BudgetItem struct {
		Category string `json:"category"`
		Limit    int64  `json:"limit"`
	}

	Contribution struct {
		ID          string `json:"id,omitempty"`
		Date        string `json:"date"`
		Description string `json:"description"`
		Amount      int64  `json:"amount"`
		// PendingSync is set when the companion ledger write has not succeeded yet.
		PendingSync bool `json:"pending_sync,omitempty"`
	}

	SavingGoal struct {
		Title         string         `json:"title"`
		TargetAmount  int64          `json:"target_amount"`
		TargetDate    string         `json:"target_date"`
		Contributions []Contribution `json:"contributions"`
	}

	AppSettings struct {
		CurrencyCode   string `json:"currency_code"`
		CurrencySymbol string `json:"currency_symbol"`
	}
)

var (
	ErrEmptyField        = errors.New("empty required field")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyDate         = errors.New("empty date")
	ErrZeroAmount        = errors.New("amount must be non-zero")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrNonPositiveLimit  = errors.New("limit must be positive")
	ErrNegativeTarget    = errors.New("target amount must not be negative")
	ErrEmptyTitle        = errors.New("empty goal title")
	ErrEmptyCurrency     = errors.New("empty currency code")
	ErrDuplicateCategory = errors.New("duplicate budget category")
)

// IsIncome reports whether the transaction adds to the balance.
func (t Transaction) IsIncome() bool { return t.Amount > 0 }

// IsExpense reports whether the transaction is a spend.
func (t Transaction) IsExpense() bool { return t.Amount < 0 }

// Validate checks the fields the engine requires before posting to the ledger.
// The ledger itself may accept anything.
func (t NewTransaction) Validate() error {
	if strings.TrimSpace(t.Date) == "" {
		return ErrEmptyDate
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Amount == 0 {
		return ErrZeroAmount
	}
	return nil
}

func (b BudgetItem) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Limit <= 0 {
		return ErrNonPositiveLimit
	}
	return nil
}

// ValidateBudgets checks every item and rejects categories that repeat when
// compared case-insensitively.
func ValidateBudgets(items []BudgetItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, b := range items {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("budget %q: %w", b.Category, err)
		}
		key := strings.ToLower(b.Category)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("budget %q: %w", b.Category, ErrDuplicateCategory)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// SameCategory compares budget categories case-insensitively.
func (b BudgetItem) SameCategory(category string) bool {
	return strings.EqualFold(b.Category, category)
}

func (c Contribution) Validate() error {
	if c.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}

// IsUnset reports whether the goal is the zero goal. A cleared goal and a goal
// that was never created encode identically, so both report true.
func (g SavingGoal) IsUnset() bool {
	return g.TargetAmount == 0 && len(g.Contributions) == 0 && strings.TrimSpace(g.Title) == ""
}

// DisplayTitle falls back to a generic label for untitled goals.
func (g SavingGoal) DisplayTitle() string {
	if strings.TrimSpace(g.Title) == "" {
		return "Saving Goal"
	}
	return g.Title
}

// PendingContributions returns contributions whose ledger write is outstanding.
func (g SavingGoal) PendingContributions() []Contribution {
	var out []Contribution
	for _, c := range g.Contributions {
		if c.PendingSync {
			out = append(out, c)
		}
	}
	return out
}

// DefaultSettings is used when nothing valid is persisted.
func DefaultSettings() AppSettings {
	return AppSettings{CurrencyCode: DefaultCurrencyCode, CurrencySymbol: SymbolFor(DefaultCurrencyCode)}
}

// Validate rejects settings without a currency code. The symbol is not
// checked; it is always re-derived from the code.
func (s AppSettings) Validate() error {
	if strings.TrimSpace(s.CurrencyCode) == "" {
		return ErrEmptyCurrency
	}
	return nil
}

// NewSettings derives the symbol from the code.
func NewSettings(code string) AppSettings {
	code = strings.ToUpper(strings.TrimSpace(code))
	return AppSettings{CurrencyCode: code, CurrencySymbol: SymbolFor(code)}
}
