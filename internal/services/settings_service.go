package services

import (
	"context"
	"strings"

	"pondo/internal/core"
	"pondo/internal/log"
	"pondo/internal/store"
)

// SettingsService manages display settings.
type SettingsService struct {
	store  *store.Store
	logger *log.Logger
}

func NewSettingsService(s *store.Store, logger *log.Logger) *SettingsService {
	return &SettingsService{
		store:  s,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentSettings),
	}
}

func (s *SettingsService) Current(ctx context.Context) core.AppSettings {
	return s.store.Settings(ctx)
}

// SetCurrency stores code with its derived symbol. Unknown codes are kept as
// typed and display with the default symbol. An empty code resets to the
// default currency.
func (s *SettingsService) SetCurrency(ctx context.Context, code string) core.AppSettings {
	next := core.DefaultSettings()
	if strings.TrimSpace(code) != "" {
		next = core.NewSettings(code)
	}
	s.store.SaveSettings(ctx, next)
	s.logger.InfoContext(ctx, "Currency changed", "currency_code", next.CurrencyCode)
	return next
}

// Format renders amount with the current currency symbol.
func (s *SettingsService) Format(ctx context.Context, amount int64) string {
	return core.Format(amount, s.Current(ctx).CurrencySymbol)
}
