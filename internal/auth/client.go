package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Display messages.
const (
	MsgCredentialsRequired = "Email and password are required"
	MsgPasswordTooShort    = "Password must be at least 8 characters"
	MsgPasswordMismatch    = "Passwords do not match"
	MsgLoginFailed         = "Login failed"
	MsgNetworkError        = "Network error"
)

const MinPasswordLength = 8

// Credentials is the login/register body.
type Credentials struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate applies the client-side checks. Register additionally requires
// the confirmation to match.
func (c Credentials) Validate(register bool) error {
	if c.Email == "" || c.Password == "" {
		return &Error{Message: MsgCredentialsRequired}
	}
	if len(c.Password) < MinPasswordLength {
		return &Error{Message: MsgPasswordTooShort}
	}
	if register && c.Password != c.ConfirmPassword {
		return &Error{Message: MsgPasswordMismatch}
	}
	return nil
}

// Error carries a message fit for display.
type Error struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Client calls the ledger's auth endpoints. It shares the ledger's HTTP
// client so the refresh cookie lands in the same jar.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Login returns the access token, which may be empty if the server sent none.
func (c *Client) Login(ctx context.Context, cr Credentials) (string, error) {
	if err := cr.Validate(false); err != nil {
		return "", err
	}
	return c.postToken(ctx, "/auth/login", cr)
}

func (c *Client) Register(ctx context.Context, cr Credentials) (string, error) {
	if err := cr.Validate(true); err != nil {
		return "", err
	}
	return c.postToken(ctx, "/auth/register", cr)
}

// Refresh exchanges the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.postToken(ctx, "/auth/refresh", nil)
}

// Logout asks the server to drop the session. The outcome is informational;
// the caller clears local state regardless.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.post(ctx, "/auth/logout", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Message: MsgNetworkError, Err: err}
	}
	return resp, nil
}

func (c *Client) postToken(ctx context.Context, path string, body any) (string, error) {
	resp, err := c.post(ctx, path, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = MsgLoginFailed
		}
		return "", &Error{Message: msg, StatusCode: resp.StatusCode}
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", nil
	}
	return tr.AccessToken, nil
}

// IsAuthError reports whether err came from this package.
func IsAuthError(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}
