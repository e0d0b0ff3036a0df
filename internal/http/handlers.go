package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pondo/internal/auth"
	"pondo/internal/core"
	"pondo/internal/export"
	"pondo/internal/services"
	"pondo/internal/syncer"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports the session and the pending contribution backlog.
// Without an authenticated session the ledger is unusable, so the server is
// not ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"pending_contributions": len(s.goals.Current(r.Context()).PendingContributions()),
	}
	if s.session != nil {
		state := s.sessionState(r.Context())
		checks["session"] = state.String()
		if state != auth.Authenticated {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	if s.limiter != nil {
		checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes plain-text counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.trace.Metrics()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "pondo_http_requests_total %d\n", m.TotalRequests)
	fmt.Fprintf(w, "pondo_http_server_errors_total %d\n", m.ServerErrors)
	if s.limiter != nil {
		fmt.Fprintf(w, "pondo_rate_limit_rejections_total %d\n", s.limiter.Rejected())
		fmt.Fprintf(w, "pondo_rate_limit_active_clients %d\n", s.limiter.ActiveClients())
	}
	fmt.Fprintf(w, "pondo_pending_contributions %d\n", len(s.goals.Current(r.Context()).PendingContributions()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Dashboard(r.Context()))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Budget(r.Context()))
}

func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Income(r.Context()))
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Expenses(r.Context()))
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Savings(r.Context()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Summary(r.Context()))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.SettingsPage(r.Context()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dash := s.app.Dashboard(r.Context())
	var buf bytes.Buffer
	err = export.Write(&buf, format, export.Report{
		Settings:     dash.Settings,
		Transactions: dash.Recent,
		Budgets:      dash.Budgets,
		Goal:         s.goals.Current(r.Context()),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == export.XLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="pondo-%s%s"`, time.Now().Format(time.DateOnly), format.Ext()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type transactionRequest struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Amount      json.Number `json:"amount"`
}

type createdResponse struct {
	Transaction core.Transaction `json:"transaction"`
	Message     string           `json:"message"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.forms.transaction)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.forms.income)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.forms.expense)
}

// submit posts the body through the screen's form. A missing category keeps
// the form's default; a second request while one is saving gets a 409.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, form *syncer.Form) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := form.SubmitFields(r.Context(), syncer.Fields{
		Date:        req.Date,
		Description: req.Description,
		Category:    req.Category,
		Amount:      req.Amount.String(),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Transaction: tx, Message: syncer.MsgSaved})
}

type budgetRequest struct {
	Limit int64 `json:"limit"`
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	budgets, err := s.app.Budgets().Upsert(r.Context(), r.PathValue("category"), req.Limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if !s.app.Budgets().Remove(r.Context(), category) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No budget for %s.", category))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type goalRequest struct {
	Title        string `json:"title"`
	TargetAmount int64  `json:"target_amount"`
	TargetDate   string `json:"target_date"`
}

func (s *Server) handleReplaceGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	goal, err := s.goals.Replace(r.Context(), req.Title, req.TargetAmount, req.TargetDate)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleClearGoal(w http.ResponseWriter, r *http.Request) {
	s.goals.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type contributionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

type contributionResponse struct {
	Contribution core.Contribution `json:"contribution"`
	Pending      bool              `json:"pending"`
	Message      string            `json:"message,omitempty"`
}

// handleAddContribution answers 202 when the contribution was stored but the
// ledger write is still pending.
func (s *Server) handleAddContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.goals.AddContribution(r.Context(), req.Date, req.Description, req.Amount)
	switch {
	case errors.Is(err, services.ErrContributionPending):
		writeJSON(w, http.StatusAccepted, contributionResponse{
			Contribution: c,
			Pending:      true,
			Message:      "Contribution saved. The ledger entry will be retried.",
		})
	case err != nil:
		s.writeFailure(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, contributionResponse{Contribution: c})
	}
}

type currencyRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.app.Settings().SetCurrency(r.Context(), req.Code))
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	n, err := s.goals.ReconcilePending(r.Context())
	resp := map[string]any{"synced": n}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
