// Package sheets keeps the ledger in a Google Sheets tab with the columns
// ID, Date, Description, Category, Amount. Row 1 is a header.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pondo/internal/core"
	"pondo/internal/ledger"
	"pondo/internal/ledger/memory"
	"pondo/internal/log"
)

// DefaultSheetName is used when no tab name is configured.
const DefaultSheetName = "Transactions"

var header = []any{"ID", "Date", "Description", "Category", "Amount"}

// Config selects the spreadsheet and credentials. CredentialsJSON wins over
// CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger

	// appends are serialised so two creates never pick the same row
	writeMu sync.Mutex
}

var _ ledger.Ledger = (*Client)(nil)

// New creates a Sheets-backed ledger using service account credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheetName
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        log.OrDiscard(logger).WithComponent(log.ComponentSheets),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:E", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ListTransactions returns every parseable row, newest (bottom) first.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	txs, skipped := parseRows(rows)
	if skipped > 0 {
		c.logger.DebugContext(ctx, "Skipped unparseable ledger rows", log.FieldCount, skipped)
	}
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	return txs, nil
}

// Summary is computed from the rows; the sheet holds no totals.
func (c *Client) Summary(ctx context.Context) (core.DashboardSummary, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	txs, _ := parseRows(rows)
	return memory.Summarize(txs), nil
}

// CreateTransaction appends a row with the next free ID.
func (c *Client) CreateTransaction(ctx context.Context, tx core.NewTransaction) (ledger.CreateResult, error) {
	if err := tx.Validate(); err != nil {
		return ledger.CreateResult{Status: ledger.Rejected, Reason: err.Error()}, nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	rows, err := c.readAll(ctx)
	if err != nil {
		return ledger.CreateResult{}, err
	}

	nextRow := len(rows) + 1
	if len(rows) == 0 {
		if err := c.update(ctx, 1, header); err != nil {
			return ledger.CreateResult{}, err
		}
		nextRow = 2
	}

	txs, _ := parseRows(rows)
	id := nextID(txs)
	if err := c.update(ctx, nextRow, []any{id, tx.Date, tx.Description, tx.Category, tx.Amount}); err != nil {
		return ledger.CreateResult{}, err
	}

	c.logger.InfoContext(ctx, "Transaction appended to sheet",
		log.NewFields().WithTransaction(tx.Description, tx.Category, tx.Amount).Args()...)

	return ledger.CreateResult{
		Status: ledger.Created,
		Transaction: core.Transaction{
			ID:          &id,
			Date:        tx.Date,
			Description: tx.Description,
			Category:    tx.Category,
			Amount:      tx.Amount,
		},
	}, nil
}

func (c *Client) update(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:E%d", c.sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func nextID(txs []core.Transaction) int64 {
	var max int64
	for _, tx := range txs {
		if tx.ID != nil && *tx.ID > max {
			max = *tx.ID
		}
	}
	return max + 1
}

// parseRows converts a values matrix into transactions, skipping the header
// and any row without a usable amount.
func parseRows(rows [][]any) ([]core.Transaction, int) {
	out := make([]core.Transaction, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		cols := toStrings(row)
		if i == 0 && len(cols) > 0 && strings.EqualFold(cols[0], "ID") {
			continue
		}
		tx, ok := parseRow(cols)
		if !ok {
			skipped++
			continue
		}
		out = append(out, tx)
	}
	return out, skipped
}

func parseRow(cols []string) (core.Transaction, bool) {
	if len(cols) < 5 {
		return core.Transaction{}, false
	}
	amount, ok := parseAmount(cols[4])
	if !ok {
		return core.Transaction{}, false
	}
	tx := core.Transaction{
		Date:        cols[1],
		Description: cols[2],
		Category:    cols[3],
		Amount:      amount,
	}
	if id, err := strconv.ParseInt(cols[0], 10, 64); err == nil {
		tx.ID = &id
	}
	return tx, true
}

// parseAmount accepts whole numbers with optional thousands separators and a
// trailing ".00", as Sheets renders them under number formats.
func parseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if f < 0 {
		return int64(f - 0.5), true
	}
	return int64(f + 0.5), true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
