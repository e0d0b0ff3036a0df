// Package store persists the entities the client owns locally: display
// settings, budgets, the saving goal and the access token. Reads never fail;
// an absent key, a backend error or an undecodable document all yield the
// entity's default.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"pondo/internal/core"
	"pondo/internal/log"
)

// Backend is a string key/value store. Implementations must be safe for
// concurrent use; writes to the same key are last-writer-wins.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ErrNilBackend is returned by New when no backend is supplied.
var ErrNilBackend = errors.New("store: nil backend")

// Store exposes typed accessors over a Backend.
type Store struct {
	backend Backend
	logger  *log.Logger
}

// New wraps backend. A nil logger discards output.
func New(backend Backend, logger *log.Logger) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	return &Store{
		backend: backend,
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentStore),
	}, nil
}

// Load reads key and decodes it into a fresh T. It returns def when the key is
// absent, the backend fails, or the document does not decode as T. A T with a
// Validate method must also pass it; json accepts null and {} for any struct.
func Load[T any](ctx context.Context, s *Store, key string, def T) T {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "Local read failed, using default",
			log.FieldKey, key, log.FieldError, err)
		return def
	}
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.logger.DebugContext(ctx, "Local document did not decode, using default",
			log.FieldKey, key, log.FieldError, err)
		return def
	}
	if vd, ok := any(v).(interface{ Validate() error }); ok {
		if err := vd.Validate(); err != nil {
			s.logger.DebugContext(ctx, "Local document is invalid, using default",
				log.FieldKey, key, log.FieldError, err)
			return def
		}
	}
	return v
}

// Save encodes v and writes it under key. Failures are logged and swallowed.
func Save[T any](ctx context.Context, s *Store, key string, v T) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.WarnContext(ctx, "Local encode failed", log.FieldKey, key, log.FieldError, err)
		return
	}
	if err := s.backend.Set(ctx, key, string(raw)); err != nil {
		s.logger.WarnContext(ctx, "Local write failed", log.FieldKey, key, log.FieldError, err)
	}
}

// Settings returns the stored settings or PHP/₱. The symbol is derived from
// the stored code.
func (s *Store) Settings(ctx context.Context) core.AppSettings {
	v := Load(ctx, s, core.KeySettings, core.DefaultSettings())
	return core.NewSettings(v.CurrencyCode)
}

func (s *Store) SaveSettings(ctx context.Context, v core.AppSettings) {
	Save(ctx, s, core.KeySettings, v)
}

// Budgets returns the stored budgets, never nil.
func (s *Store) Budgets(ctx context.Context) []core.BudgetItem {
	b := Load(ctx, s, core.KeyBudgets, []core.BudgetItem{})
	if b == nil {
		return []core.BudgetItem{}
	}
	if err := core.ValidateBudgets(b); err != nil {
		s.logger.DebugContext(ctx, "Stored budgets are invalid, using default",
			log.FieldKey, core.KeyBudgets, log.FieldError, err)
		return []core.BudgetItem{}
	}
	return b
}

func (s *Store) SaveBudgets(ctx context.Context, v []core.BudgetItem) {
	Save(ctx, s, core.KeyBudgets, v)
}

// Goal returns the stored goal or the zero goal.
func (s *Store) Goal(ctx context.Context) core.SavingGoal {
	return Load(ctx, s, core.KeySavingGoal, core.SavingGoal{})
}

func (s *Store) SaveGoal(ctx context.Context, v core.SavingGoal) {
	Save(ctx, s, core.KeySavingGoal, v)
}

// AccessToken is stored as a raw string, not JSON.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	raw, ok, err := s.backend.Get(ctx, core.KeyAccessToken)
	if err != nil {
		s.logger.WarnContext(ctx, "Token read failed", log.FieldError, err)
		return "", false
	}
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

func (s *Store) SetAccessToken(ctx context.Context, token string) {
	if err := s.backend.Set(ctx, core.KeyAccessToken, token); err != nil {
		s.logger.WarnContext(ctx, "Token write failed", log.FieldError, err)
	}
}

func (s *Store) ClearAccessToken(ctx context.Context) {
	if err := s.backend.Delete(ctx, core.KeyAccessToken); err != nil {
		s.logger.WarnContext(ctx, "Token delete failed", log.FieldError, err)
	}
}

// Token satisfies ledger.TokenSource.
func (s *Store) Token(ctx context.Context) string {
	tok, _ := s.AccessToken(ctx)
	return tok
}
