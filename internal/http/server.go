// Package http serves the finance screens and forms as a local JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"pondo/internal/auth"
	"pondo/internal/log"
	"pondo/internal/middleware/ratelimit"
	"pondo/internal/middleware/security"
	"pondo/internal/middleware/trace"
	"pondo/internal/services"
	"pondo/internal/syncer"
	"pondo/internal/views"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators the handlers call. Session is nil when the
// ledger has no accounts; Limiter is optional.
type Deps struct {
	App     *views.App
	Goals   *services.GoalService
	Session *auth.Session
	Limiter *ratelimit.Limiter
	Logger  *log.Logger
}

type Server struct {
	http.Server
	app     *views.App
	goals   *services.GoalService
	session *auth.Session
	limiter *ratelimit.Limiter
	trace   *trace.Middleware
	logger  *log.Logger
	started time.Time

	// one form per screen; concurrent saves on a screen are refused
	forms struct {
		transaction *syncer.Form
		income      *syncer.Form
		expense     *syncer.Form
	}

	// serialises session bootstrap across concurrent first requests
	sessionMu sync.Mutex
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := log.OrDiscard(deps.Logger).WithComponent(log.ComponentAPI)
	s := &Server{
		app:     deps.App,
		goals:   deps.Goals,
		session: deps.Session,
		limiter: deps.Limiter,
		trace:   trace.NewMiddleware(logger, security.ClientIP),
		logger:  logger,
		started: time.Now(),
	}
	s.forms.transaction = deps.App.DashboardForm()
	s.forms.income = deps.App.IncomeForm()
	s.forms.expense = deps.App.ExpenseForm()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/budget", s.handleBudget)
	api.HandleFunc("GET /api/income", s.handleIncome)
	api.HandleFunc("GET /api/expenses", s.handleExpenses)
	api.HandleFunc("GET /api/savings", s.handleSavings)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/settings", s.handleSettings)
	api.HandleFunc("GET /api/export", s.handleExport)

	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("POST /api/income", s.handleCreateIncome)
	api.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	api.HandleFunc("PUT /api/budgets/{category}", s.handleUpsertBudget)
	api.HandleFunc("DELETE /api/budgets/{category}", s.handleDeleteBudget)
	api.HandleFunc("PUT /api/goal", s.handleReplaceGoal)
	api.HandleFunc("DELETE /api/goal", s.handleClearGoal)
	api.HandleFunc("POST /api/goal/contributions", s.handleAddContribution)
	api.HandleFunc("PUT /api/settings/currency", s.handleSetCurrency)
	api.HandleFunc("POST /api/reconcile", s.handleReconcile)

	var apiHandler http.Handler = s.requireSession(api)
	if s.limiter != nil {
		apiHandler = s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		})(apiHandler)
	}
	mux.Handle("/api/", apiHandler)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.trace.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// requireSession answers 401 until the session is authenticated. The first
// request resolves a Checking session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.session != nil && s.sessionState(r.Context()) != auth.Authenticated {
			writeError(w, http.StatusUnauthorized, "Not signed in. Run `pondo login` first.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sessionState(ctx context.Context) auth.State {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if s.session.State() == auth.Checking {
		return s.session.Bootstrap(ctx)
	}
	return s.session.State()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("HTTP server shutting down", log.FieldOperation, log.OpShutdown)
	return s.Shutdown(shutdownCtx)
}
