package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"

	"pondo/internal/core"
	"pondo/internal/log"
)

// DefaultBaseURL is the ledger API root used when none is configured.
const DefaultBaseURL = "http://localhost:5000/api"

const (
	pathTransactions = "/transactions"
	pathSummary      = "/dashboard/summary"
	maxErrorBody     = 4 << 10
)

// TokenSource supplies the bearer token for each request. An empty token
// sends no Authorization header.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// Client is the HTTP ledger adapter.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger
}

var _ Ledger = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Jar is used for the
// session cookie; a nil Jar disables cookies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds each request. The default is no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient builds a client rooted at baseURL (e.g. "http://host:5000/api").
// Cookies set by the ledger are kept in a jar and replayed on later calls.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.OrDiscard(c.logger).WithComponent(log.ComponentLedger)
	return c, nil
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient exposes the shared client so collaborators such as the auth
// client reuse the same cookie jar.
func (c *Client) HTTPClient() *http.Client { return c.http }

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(ctx); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	fields := log.NewFields().
		WithRequestID(req.Header.Get("X-Request-ID")).
		WithOperation(req.Method)
	if err != nil {
		c.logger.DebugContext(req.Context(), "Ledger request failed",
			fields.WithError(err).WithHTTP(req.URL.Path, 0, time.Since(start).Milliseconds()).Args()...)
		return nil, err
	}
	c.logger.DebugContext(req.Context(), "Ledger request",
		fields.WithHTTP(req.URL.Path, resp.StatusCode, time.Since(start).Milliseconds()).Args()...)
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: readSnippet(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ListTransactions fetches the full ledger, in server order.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := c.getJSON(ctx, pathTransactions, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// Summary fetches the server-computed dashboard totals.
func (c *Client) Summary(ctx context.Context) (core.DashboardSummary, error) {
	var s core.DashboardSummary
	if err := c.getJSON(ctx, pathSummary, &s); err != nil {
		return core.DashboardSummary{}, err
	}
	return s, nil
}

// CreateTransaction posts tx. A 2xx reply is Created with the decoded record;
// any other status is Rejected with the response body as reason.
func (c *Client) CreateTransaction(ctx context.Context, tx core.NewTransaction) (CreateResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, pathTransactions, tx)
	if err != nil {
		return CreateResult{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return CreateResult{}, fmt.Errorf("POST %s: %w", pathTransactions, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CreateResult{
			Status:     Rejected,
			Reason:     readSnippet(resp.Body),
			StatusCode: resp.StatusCode,
		}, nil
	}

	var created core.Transaction
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return CreateResult{StatusCode: resp.StatusCode}, fmt.Errorf("%w: %v", ErrUnreadableResponse, err)
	}
	return CreateResult{Status: Created, Transaction: created, StatusCode: resp.StatusCode}, nil
}

// StatusError reports a non-2xx reply to a read.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ledger returned %d", e.Code)
	}
	return fmt.Sprintf("ledger returned %d: %s", e.Code, e.Body)
}

// IsUnauthorized reports whether err is a 401 from the ledger.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

func readSnippet(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(raw))
}
