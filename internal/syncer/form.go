package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"pondo/internal/core"
	"pondo/internal/ledger"
)

// User-facing messages.
const (
	MsgIncomplete     = "Please complete all fields."
	MsgNonZeroAmount  = "Amount must be a non-zero number."
	MsgPositiveAmount = "Amount must be a positive number."
	MsgSaveFailed     = "Could not save the transaction."
	MsgUnreadable     = "Could not read the saved transaction."
	MsgSaved          = "Transaction saved."
)

// Kind decides how the typed amount is validated and signed.
type Kind int

const (
	// Signed accepts any non-zero amount and sends it as typed.
	Signed Kind = iota
	// Income requires a positive amount and sends it as is.
	Income
	// Expense requires a positive amount and sends it negated.
	Expense
)

// Default categories per form kind.
const (
	DefaultIncomeCategory  = "Salary"
	DefaultExpenseCategory = "Transportation"
)

// Field names used in FieldError.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldAmount      = "amount"
)

// ErrSaveInFlight is returned when Submit is called while an earlier submit
// of the same form has not finished.
var ErrSaveInFlight = errors.New("save already in progress")

// FieldError is a validation failure. No request was sent.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// FormError is a failed write with a message fit for display.
type FormError struct {
	Message string
	Err     error
}

func (e *FormError) Error() string { return e.Message }
func (e *FormError) Unwrap() error { return e.Err }

// Fields are the raw form inputs.
type Fields struct {
	Date        string
	Description string
	Category    string
	Amount      string
}

// Form is the create-transaction form of one screen. At most one save per
// form is in flight.
type Form struct {
	engine          *Engine
	kind            Kind
	defaultCategory string

	mu      sync.Mutex
	fields  Fields
	saving  bool
	errMsg  string
	success string
}

// NewForm returns an empty form. The category field starts at, and resets
// to, defaultCategory.
func (e *Engine) NewForm(kind Kind, defaultCategory string) *Form {
	return &Form{
		engine:          e,
		kind:            kind,
		defaultCategory: defaultCategory,
		fields:          Fields{Category: defaultCategory},
	}
}

// NewIncomeForm and NewExpenseForm use the standard default categories.
func (e *Engine) NewIncomeForm() *Form  { return e.NewForm(Income, DefaultIncomeCategory) }
func (e *Engine) NewExpenseForm() *Form { return e.NewForm(Expense, DefaultExpenseCategory) }

func (f *Form) Kind() Kind { return f.kind }

func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

func (f *Form) SetFields(v Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = v
}

// Clear empties the inputs and messages.
func (f *Form) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = Fields{Category: f.defaultCategory}
	f.errMsg, f.success = "", ""
}

func (f *Form) Saving() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saving
}

// Error and Success return the message the screen should show.
func (f *Form) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

func (f *Form) Success() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.success
}

// Validate checks the current inputs and returns the transaction that would
// be sent.
func (f *Form) Validate() (core.NewTransaction, error) {
	return buildTransaction(f.kind, f.Fields())
}

func buildTransaction(kind Kind, in Fields) (core.NewTransaction, error) {
	v := Fields{
		Date:        strings.TrimSpace(in.Date),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Amount:      strings.TrimSpace(in.Amount),
	}
	switch {
	case v.Date == "":
		return core.NewTransaction{}, &FieldError{Field: FieldDate, Message: MsgIncomplete}
	case v.Description == "":
		return core.NewTransaction{}, &FieldError{Field: FieldDescription, Message: MsgIncomplete}
	case v.Category == "":
		return core.NewTransaction{}, &FieldError{Field: FieldCategory, Message: MsgIncomplete}
	case v.Amount == "":
		return core.NewTransaction{}, &FieldError{Field: FieldAmount, Message: MsgIncomplete}
	}

	// Unparseable input counts as zero.
	amount, err := strconv.ParseInt(v.Amount, 10, 64)
	if err != nil {
		amount = 0
	}
	switch kind {
	case Signed:
		if amount == 0 {
			return core.NewTransaction{}, &FieldError{Field: FieldAmount, Message: MsgNonZeroAmount}
		}
	case Income, Expense:
		if amount <= 0 {
			return core.NewTransaction{}, &FieldError{Field: FieldAmount, Message: MsgPositiveAmount}
		}
		if kind == Expense {
			amount = -amount
		}
	}

	return core.NewTransaction{
		Date:        v.Date,
		Description: v.Description,
		Category:    v.Category,
		Amount:      amount,
	}, nil
}

// Submit validates and posts the form. On success the inputs are cleared and
// the created record is returned. A *FieldError means nothing was sent; a
// *FormError carries the message to display.
func (f *Form) Submit(ctx context.Context) (core.Transaction, error) {
	return f.submit(ctx, nil)
}

// SubmitFields replaces the inputs and submits them in one step, so callers
// sharing a form cannot interleave their inputs. An empty category takes the
// form's default. While a save is in flight the inputs are left untouched and
// ErrSaveInFlight is returned.
func (f *Form) SubmitFields(ctx context.Context, v Fields) (core.Transaction, error) {
	if v.Category == "" {
		v.Category = f.defaultCategory
	}
	return f.submit(ctx, &v)
}

func (f *Form) submit(ctx context.Context, in *Fields) (core.Transaction, error) {
	f.mu.Lock()
	if f.saving {
		f.mu.Unlock()
		return core.Transaction{}, ErrSaveInFlight
	}
	if in != nil {
		f.fields = *in
	}
	tx, err := buildTransaction(f.kind, f.fields)
	if err != nil {
		f.errMsg, f.success = err.Error(), ""
		f.mu.Unlock()
		return core.Transaction{}, err
	}
	f.saving = true
	f.errMsg, f.success = "", ""
	f.mu.Unlock()

	created, err := f.engine.Create(ctx, tx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saving = false
	if err != nil {
		msg := MsgSaveFailed
		if errors.Is(err, ledger.ErrUnreadableResponse) {
			msg = MsgUnreadable
		}
		f.errMsg = msg
		return core.Transaction{}, &FormError{Message: msg, Err: fmt.Errorf("submit: %w", err)}
	}
	f.fields = Fields{Category: f.defaultCategory}
	f.success = MsgSaved
	return created, nil
}
