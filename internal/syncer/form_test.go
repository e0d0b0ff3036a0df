package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pondo/internal/ledger"
)

func TestFormValidation(t *testing.T) {
	full := Fields{Date: "2025-01-01", Description: "Lunch", Category: "Food", Amount: "50"}
	cases := []struct {
		name  string
		kind  Kind
		edit  func(*Fields)
		field string
		msg   string
	}{
		{"missing date", Signed, func(f *Fields) { f.Date = " " }, FieldDate, MsgIncomplete},
		{"missing description", Income, func(f *Fields) { f.Description = "" }, FieldDescription, MsgIncomplete},
		{"missing category", Expense, func(f *Fields) { f.Category = "" }, FieldCategory, MsgIncomplete},
		{"missing amount", Signed, func(f *Fields) { f.Amount = "" }, FieldAmount, MsgIncomplete},
		{"signed zero", Signed, func(f *Fields) { f.Amount = "0" }, FieldAmount, MsgNonZeroAmount},
		{"signed garbage", Signed, func(f *Fields) { f.Amount = "12.5" }, FieldAmount, MsgNonZeroAmount},
		{"income negative", Income, func(f *Fields) { f.Amount = "-5" }, FieldAmount, MsgPositiveAmount},
		{"expense zero", Expense, func(f *Fields) { f.Amount = "0" }, FieldAmount, MsgPositiveAmount},
		{"expense text", Expense, func(f *Fields) { f.Amount = "abc" }, FieldAmount, MsgPositiveAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newGated()
			e := NewEngine(l, Options{})
			f := e.NewForm(tc.kind, "")
			in := full
			tc.edit(&in)
			f.SetFields(in)

			_, err := f.Submit(context.Background())
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fe.Field != tc.field || fe.Message != tc.msg {
				t.Fatalf("got %+v, want field %s msg %q", fe, tc.field, tc.msg)
			}
			if l.creates.Load() != 0 {
				t.Fatalf("validation failure must not reach the ledger")
			}
			if f.Error() != tc.msg {
				t.Fatalf("form message %q", f.Error())
			}
		})
	}
}

func TestFormSigns(t *testing.T) {
	in := Fields{Date: "2025-01-01", Description: "x", Category: "c", Amount: " 40 "}
	cases := map[Kind]int64{Signed: 40, Income: 40, Expense: -40}
	for kind, want := range cases {
		tx, err := buildTransaction(kind, in)
		if err != nil || tx.Amount != want {
			t.Fatalf("kind %d: got %+v err=%v", kind, tx, err)
		}
	}
	tx, _ := buildTransaction(Signed, Fields{Date: "d", Description: "x", Category: "c", Amount: "-7"})
	if tx.Amount != -7 {
		t.Fatalf("signed form must send negative as typed, got %d", tx.Amount)
	}
}

func TestFormSubmitSuccess(t *testing.T) {
	l := newGated(seedLedger()...)
	e := NewEngine(l, Options{})
	ctx := context.Background()

	dash := e.NewView(ViewOptions{WithSummary: true})
	expenses := e.NewView(ViewOptions{Filter: ExpensesOnly})
	defer dash.Close()
	defer expenses.Close()
	dash.Activate(ctx)
	summariesBefore := l.summaries.Load()

	f := e.NewExpenseForm()
	if f.Fields().Category != DefaultExpenseCategory {
		t.Fatalf("expected default category, got %q", f.Fields().Category)
	}
	f.SetFields(Fields{Date: "2025-01-04", Description: "Taxi", Category: "Transportation", Amount: "120"})
	created, err := f.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if created.ID == nil || created.Amount != -120 {
		t.Fatalf("unexpected created %+v", created)
	}

	// Prepended into the shared list, visible to every view.
	if got := dash.Transactions(); len(got) != 4 || got[0].Description != "Taxi" {
		t.Fatalf("dashboard did not see the new record: %+v", got)
	}
	if got := expenses.Transactions(); len(got) != 3 || got[0].Description != "Taxi" {
		t.Fatalf("expenses view did not see the new record: %+v", got)
	}
	if l.summaries.Load() != summariesBefore+1 {
		t.Fatalf("expected one summary refetch")
	}
	if s, _ := dash.Summary(); s.TotalExpenses != 920 {
		t.Fatalf("summary not refreshed: %+v", s)
	}
	if got := f.Fields(); got != (Fields{Category: DefaultExpenseCategory}) {
		t.Fatalf("fields not cleared: %+v", got)
	}
	if f.Success() != MsgSaved || f.Error() != "" || f.Saving() {
		t.Fatalf("unexpected form state success=%q err=%q", f.Success(), f.Error())
	}
}

func TestFormSubmitRejected(t *testing.T) {
	l := newGated(seedLedger()...)
	l.createResult = &ledger.CreateResult{Status: ledger.Rejected, Reason: "no", StatusCode: 400}
	e := NewEngine(l, Options{})
	ctx := context.Background()
	v := e.NewView(ViewOptions{})
	defer v.Close()
	v.Activate(ctx)

	f := e.NewForm(Signed, "")
	in := Fields{Date: "2025-01-04", Description: "x", Category: "Food", Amount: "-5"}
	f.SetFields(in)
	_, err := f.Submit(ctx)
	var fe *FormError
	if !errors.As(err, &fe) || fe.Message != MsgSaveFailed {
		t.Fatalf("expected save failure, got %v", err)
	}
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.StatusCode != 400 {
		t.Fatalf("expected wrapped RejectedError, got %v", err)
	}
	if len(v.Transactions()) != 3 {
		t.Fatalf("rejected write must not touch lists")
	}
	if f.Fields() != in || f.Saving() {
		t.Fatalf("inputs must be kept and the gate released")
	}
}

func TestFormSubmitUnreadable(t *testing.T) {
	l := newGated()
	l.createErr = ledger.ErrUnreadableResponse
	e := NewEngine(l, Options{})
	f := e.NewIncomeForm()
	f.SetFields(Fields{Date: "d", Description: "x", Category: "Salary", Amount: "5"})
	_, err := f.Submit(context.Background())
	var fe *FormError
	if !errors.As(err, &fe) || fe.Message != MsgUnreadable {
		t.Fatalf("expected unreadable message, got %v", err)
	}
}

func TestFormSingleFlight(t *testing.T) {
	l := newGated()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	l.beforeCreate = func() {
		once.Do(func() { close(entered) })
		<-release
	}
	e := NewEngine(l, Options{})
	f := e.NewForm(Signed, "")
	f.SetFields(Fields{Date: "d", Description: "x", Category: "c", Amount: "5"})

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-entered
	if !f.Saving() {
		t.Fatalf("expected saving state")
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", err)
	}
	if _, err := f.SubmitFields(context.Background(), Fields{Date: "d", Description: "other", Amount: "9"}); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", err)
	}
	if f.Fields().Description != "x" {
		t.Fatalf("refused submit must not replace inputs: %+v", f.Fields())
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if l.creates.Load() != 1 {
		t.Fatalf("expected exactly one ledger write, got %d", l.creates.Load())
	}
}

func TestFormSubmitFieldsUsesDefaultCategory(t *testing.T) {
	l := newGated()
	e := NewEngine(l, Options{})
	f := e.NewExpenseForm()
	tx, err := f.SubmitFields(context.Background(), Fields{Date: "2025-01-05", Description: "Bus", Amount: "40"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if tx.Category != DefaultExpenseCategory || tx.Amount != -40 {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if f.Fields() != (Fields{Category: DefaultExpenseCategory}) {
		t.Fatalf("inputs should reset after success: %+v", f.Fields())
	}
}

func TestFormClear(t *testing.T) {
	e := NewEngine(newGated(), Options{})
	f := e.NewIncomeForm()
	f.SetFields(Fields{Date: "d", Description: "x", Category: "Bonus", Amount: "0"})
	_, _ = f.Submit(context.Background())
	f.Clear()
	if f.Fields() != (Fields{Category: DefaultIncomeCategory}) || f.Error() != "" {
		t.Fatalf("unexpected state after clear: %+v %q", f.Fields(), f.Error())
	}
}
