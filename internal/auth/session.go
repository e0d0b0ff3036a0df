package auth

import (
	"context"
	"time"

	"pondo/internal/log"
)

// TokenStore persists the access token.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, bool)
	SetAccessToken(ctx context.Context, token string)
	ClearAccessToken(ctx context.Context)
}

// Session ties the client, the machine and the token store together.
type Session struct {
	client  *Client
	machine *Machine
	tokens  TokenStore
	logger  *log.Logger
	now     func() time.Time
}

func NewSession(client *Client, tokens TokenStore, logger *log.Logger) *Session {
	return &Session{
		client:  client,
		machine: NewMachine(),
		tokens:  tokens,
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentAuth),
		now:     time.Now,
	}
}

func (s *Session) Machine() *Machine { return s.machine }
func (s *Session) State() State      { return s.machine.State() }

// Bootstrap resolves Checking. A successful refresh authenticates and stores
// any new token. Otherwise a stored, unexpired token keeps the session.
func (s *Session) Bootstrap(ctx context.Context) State {
	token, err := s.client.Refresh(ctx)
	if err == nil {
		if token != "" {
			s.tokens.SetAccessToken(ctx, token)
		}
		return s.fire(ctx, RefreshSucceeded)
	}
	s.logger.DebugContext(ctx, "Refresh failed", log.FieldError, err)

	if stored, ok := s.tokens.AccessToken(ctx); ok && !Expired(stored, s.now()) {
		return s.fire(ctx, TokenFallback)
	}
	return s.fire(ctx, RefreshFailed)
}

func (s *Session) Login(ctx context.Context, cr Credentials) error {
	return s.authenticate(ctx, cr, false)
}

func (s *Session) Register(ctx context.Context, cr Credentials) error {
	return s.authenticate(ctx, cr, true)
}

func (s *Session) authenticate(ctx context.Context, cr Credentials, register bool) error {
	var (
		token string
		err   error
	)
	if register {
		token, err = s.client.Register(ctx, cr)
	} else {
		token, err = s.client.Login(ctx, cr)
	}
	if err != nil {
		return err
	}
	if token != "" {
		s.tokens.SetAccessToken(ctx, token)
	}
	if _, err := s.machine.Fire(LoginSucceeded); err != nil {
		// Already authenticated: keep the new token, state is unchanged.
		s.logger.DebugContext(ctx, "Login in non-unauthenticated state", log.FieldError, err)
	}
	s.logger.InfoContext(ctx, "Authenticated", log.FieldAuthState, s.machine.State().String())
	return nil
}

// Logout notifies the server and always clears the local token.
func (s *Session) Logout(ctx context.Context) {
	if err := s.client.Logout(ctx); err != nil {
		s.logger.WarnContext(ctx, "Logout request failed", log.FieldError, err)
	}
	s.tokens.ClearAccessToken(ctx)
	if _, err := s.machine.Fire(LoggedOut); err != nil {
		s.logger.DebugContext(ctx, "Logout in non-authenticated state", log.FieldError, err)
	}
}

func (s *Session) fire(ctx context.Context, ev Event) State {
	st, err := s.machine.Fire(ev)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignored auth event", log.FieldError, err)
	}
	return st
}
