// Package views composes the sync engine, the local services and the
// aggregator into one model per screen. Models hold raw amounts; formatting
// is left to whoever renders them.
package views

import (
	"context"

	"pondo/internal/aggregate"
	"pondo/internal/core"
	"pondo/internal/log"
	"pondo/internal/services"
	"pondo/internal/syncer"
)

// Screen sizes.
const (
	TopCategoryCount   = 5
	RecentSummaryCount = 10
)

// App holds the collaborators every screen needs.
type App struct {
	engine   *syncer.Engine
	budgets  *services.BudgetService
	goals    *services.GoalService
	settings *services.SettingsService
	logger   *log.Logger
}

func New(engine *syncer.Engine, budgets *services.BudgetService, goals *services.GoalService, settings *services.SettingsService, logger *log.Logger) *App {
	return &App{
		engine:   engine,
		budgets:  budgets,
		goals:    goals,
		settings: settings,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentApp),
	}
}

func (a *App) Engine() *syncer.Engine              { return a.engine }
func (a *App) Budgets() *services.BudgetService    { return a.budgets }
func (a *App) Goals() *services.GoalService        { return a.goals }
func (a *App) Settings() *services.SettingsService { return a.settings }

// load activates a throwaway view and detaches it once the fetch settles.
func (a *App) load(ctx context.Context, opts syncer.ViewOptions) *syncer.View {
	v := a.engine.NewView(opts)
	v.Activate(ctx)
	v.Close()
	a.logger.DebugContext(ctx, "View loaded", log.FieldView, opts.Name, log.FieldCount, len(v.AllTransactions()))
	return v
}

// GoalCard is the compact goal display shared by the dashboard.
type GoalCard struct {
	Set     bool   `json:"set"`
	Title   string `json:"title"`
	Saved   int64  `json:"saved"`
	Target  int64  `json:"target"`
	Percent int    `json:"percent"`
	Reached bool   `json:"reached"`
}

func goalCard(g core.SavingGoal) GoalCard {
	if g.IsUnset() {
		return GoalCard{}
	}
	p := aggregate.ProgressOf(g)
	return GoalCard{
		Set:     true,
		Title:   g.DisplayTitle(),
		Saved:   p.Saved,
		Target:  g.TargetAmount,
		Percent: p.Percent(),
		Reached: p.Reached,
	}
}
