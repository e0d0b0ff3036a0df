// Package export writes ledger transactions and local planning data to CSV
// or Excel workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pondo/internal/aggregate"
	"pondo/internal/core"
)

type Format int

const (
	CSV Format = iota
	XLSX
)

func (f Format) String() string {
	if f == XLSX {
		return "xlsx"
	}
	return "csv"
}

// Ext is the file extension including the dot.
func (f Format) Ext() string { return "." + f.String() }

// ParseFormat accepts "csv" or "xlsx", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	}
	return CSV, fmt.Errorf("unknown export format %q", s)
}

// Sheet names in the workbook.
const (
	SheetTransactions = "Transactions"
	SheetBudgets      = "Budgets"
	SheetGoal         = "Saving Goal"
)

var transactionHeader = []string{"Date", "Description", "Category", "Type", "Amount", "Formatted"}

// Report is everything a workbook export carries. CSV only writes the
// transactions.
type Report struct {
	Settings     core.AppSettings
	Transactions []core.Transaction
	Budgets      aggregate.BudgetOverview
	Goal         core.SavingGoal
}

func Write(w io.Writer, f Format, r Report) error {
	if f == XLSX {
		return WriteXLSX(w, r)
	}
	return WriteCSV(w, r.Settings, r.Transactions)
}

func kind(tx core.Transaction) string {
	if tx.Amount > 0 {
		return "Income"
	}
	return "Expense"
}

func transactionRow(s core.AppSettings, tx core.Transaction) []string {
	return []string{
		tx.Date,
		tx.Description,
		tx.Category,
		kind(tx),
		strconv.FormatInt(tx.Amount, 10),
		core.Format(tx.Amount, s.CurrencySymbol),
	}
}

// WriteCSV writes a header row and one row per transaction, in the given
// order. The output starts with a UTF-8 byte order mark so spreadsheet
// programs pick the right encoding for currency symbols.
func WriteCSV(w io.Writer, s core.AppSettings, txs []core.Transaction) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		if err := cw.Write(transactionRow(s, tx)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with one sheet for transactions, one for
// budget status and one for the saving goal. Amounts are stored as numbers.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTransactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeTransactions(f, r); err != nil {
		return err
	}
	if err := writeBudgets(f, r.Budgets); err != nil {
		return err
	}
	if err := writeGoal(f, r.Goal); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func header(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}

func writeTransactions(f *excelize.File, r Report) error {
	if err := setRow(f, SheetTransactions, 1, header(transactionHeader)); err != nil {
		return err
	}
	for i, tx := range r.Transactions {
		row := []any{tx.Date, tx.Description, tx.Category, kind(tx), tx.Amount, core.Format(tx.Amount, r.Settings.CurrencySymbol)}
		if err := setRow(f, SheetTransactions, i+2, row); err != nil {
			return err
		}
	}
	f.SetColWidth(SheetTransactions, "A", "A", 12)
	f.SetColWidth(SheetTransactions, "B", "B", 30)
	f.SetColWidth(SheetTransactions, "C", "C", 18)
	f.SetColWidth(SheetTransactions, "F", "F", 18)
	return nil
}

func writeBudgets(f *excelize.File, ov aggregate.BudgetOverview) error {
	if _, err := f.NewSheet(SheetBudgets); err != nil {
		return fmt.Errorf("create budgets sheet: %w", err)
	}
	if err := setRow(f, SheetBudgets, 1, header([]string{"Category", "Limit", "Spent", "Remaining", "Percent Used", "Overspent"})); err != nil {
		return err
	}
	for i, st := range ov.Items {
		row := []any{st.Budget.Category, st.Budget.Limit, st.Spent, st.Remaining, st.PercentUsed, st.Overspent}
		if err := setRow(f, SheetBudgets, i+2, row); err != nil {
			return err
		}
	}
	total := []any{"Total", ov.TotalBudget, ov.TotalSpent, ov.TotalRemaining, nil, ov.OverspentCount}
	return setRow(f, SheetBudgets, len(ov.Items)+2, total)
}

func writeGoal(f *excelize.File, g core.SavingGoal) error {
	if _, err := f.NewSheet(SheetGoal); err != nil {
		return fmt.Errorf("create goal sheet: %w", err)
	}
	p := aggregate.ProgressOf(g)
	rows := [][]any{
		{"Title", g.DisplayTitle()},
		{"Target", g.TargetAmount},
		{"Target Date", g.TargetDate},
		{"Saved", p.Saved},
		{"Percent", p.Percent()},
		{},
		{"Date", "Description", "Amount", "Pending Sync"},
	}
	for i, row := range rows {
		if err := setRow(f, SheetGoal, i+1, row); err != nil {
			return err
		}
	}
	for i, c := range g.Contributions {
		row := []any{c.Date, c.Description, c.Amount, c.PendingSync}
		if err := setRow(f, SheetGoal, len(rows)+i+1, row); err != nil {
			return err
		}
	}
	return nil
}
