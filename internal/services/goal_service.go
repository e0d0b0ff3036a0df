package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pondo/internal/aggregate"
	"pondo/internal/core"
	"pondo/internal/log"
	"pondo/internal/store"
)

// Contribution descriptions used when none is given. The local record and
// the ledger transaction default differently.
const (
	DefaultContributionDescription = "Contribution"
	DefaultSavingsDescription      = "Savings"
)

// Creator writes a transaction to the ledger; *syncer.Engine implements it.
type Creator interface {
	Create(ctx context.Context, tx core.NewTransaction) (core.Transaction, error)
}

// Publisher announces a contribution whose ledger write must be retried.
type Publisher interface {
	PublishReconcile(ctx context.Context, contributionID string) error
}

// GoalService manages the saving goal. Adding a contribution stores it
// locally first and then records a matching Savings expense on the ledger.
// If the ledger write fails the contribution stays, flagged PendingSync, and
// a reconcile request is published.
type GoalService struct {
	store     *store.Store
	ledger    Creator
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewGoalService wires the goal saga. publisher may be nil, in which case
// pending contributions wait for ReconcilePending.
func NewGoalService(s *store.Store, ledger Creator, publisher Publisher, logger *log.Logger) *GoalService {
	return &GoalService{
		store:     s,
		ledger:    ledger,
		publisher: publisher,
		logger:    log.OrDiscard(logger).WithComponent(log.ComponentGoal),
		now:       time.Now,
		inflight:  make(map[string]struct{}),
	}
}

func (s *GoalService) Current(ctx context.Context) core.SavingGoal {
	return s.store.Goal(ctx)
}

func (s *GoalService) Progress(ctx context.Context) aggregate.GoalProgress {
	return aggregate.ProgressOf(s.Current(ctx))
}

// Replace starts a new goal, discarding previous contributions.
func (s *GoalService) Replace(ctx context.Context, title string, target int64, targetDate string) (core.SavingGoal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return core.SavingGoal{}, &InputError{Message: MsgGoalInput, Err: core.ErrEmptyTitle}
	}
	if target < 0 {
		return core.SavingGoal{}, &InputError{Message: MsgGoalInput, Err: core.ErrNegativeTarget}
	}

	goal := core.SavingGoal{
		Title:         title,
		TargetAmount:  target,
		TargetDate:    strings.TrimSpace(targetDate),
		Contributions: []core.Contribution{},
	}

	s.mu.Lock()
	s.store.SaveGoal(ctx, goal)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Goal replaced", "title", title, "target_amount", target)
	return goal, nil
}

// Clear resets the goal to the zero goal.
func (s *GoalService) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.SaveGoal(ctx, core.SavingGoal{})
	s.logger.InfoContext(ctx, "Goal cleared")
}

// AddContribution records a contribution. The returned error wraps
// ErrContributionPending when only the local half succeeded; the contribution
// is returned in that case too.
func (s *GoalService) AddContribution(ctx context.Context, date, description string, amount int64) (core.Contribution, error) {
	c := core.Contribution{
		ID:          uuid.NewString(),
		Date:        strings.TrimSpace(date),
		Description: strings.TrimSpace(description),
		Amount:      amount,
	}
	if err := c.Validate(); err != nil {
		return core.Contribution{}, &InputError{Message: MsgContribution, Err: err}
	}
	if c.Date == "" {
		c.Date = s.now().Format(time.DateOnly)
	}
	if c.Description == "" {
		c.Description = DefaultContributionDescription
	}

	s.mu.Lock()
	goal := s.store.Goal(ctx)
	goal.Contributions = append([]core.Contribution{c}, goal.Contributions...)
	s.store.SaveGoal(ctx, goal)
	s.inflight[c.ID] = struct{}{}
	s.mu.Unlock()

	err := s.pushToLedger(ctx, c)

	s.mu.Lock()
	delete(s.inflight, c.ID)
	if err != nil {
		c.PendingSync = true
		s.setPending(ctx, c.ID, true)
	}
	s.mu.Unlock()

	if err == nil {
		return c, nil
	}

	s.logger.WarnContext(ctx, "Contribution saved locally, ledger write pending",
		log.FieldContribID, c.ID, log.FieldError, err)
	if s.publisher != nil {
		if perr := s.publisher.PublishReconcile(ctx, c.ID); perr != nil {
			s.logger.ErrorContext(ctx, "Failed to publish reconcile message",
				log.FieldContribID, c.ID, log.FieldError, perr)
		}
	}
	return c, fmt.Errorf("%w: %w", ErrContributionPending, err)
}

// ReconcileOne retries the ledger write for one pending contribution. It is
// a no-op for contributions already synced or being synced.
func (s *GoalService) ReconcileOne(ctx context.Context, id string) error {
	s.mu.Lock()
	c, ok := findContribution(s.store.Goal(ctx), id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrContributionNotFound, id)
	}
	if _, busy := s.inflight[id]; busy || !c.PendingSync {
		s.mu.Unlock()
		return nil
	}
	s.inflight[id] = struct{}{}
	s.mu.Unlock()

	err := s.pushToLedger(ctx, c)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", id, err)
	}
	s.setPending(ctx, id, false)
	s.logger.InfoContext(ctx, "Contribution reconciled", log.FieldContribID, id)
	return nil
}

// ReconcilePending retries every pending contribution and returns how many
// were synced. Individual failures are joined into the error.
func (s *GoalService) ReconcilePending(ctx context.Context) (int, error) {
	pending := s.Current(ctx).PendingContributions()
	var errs []error
	done := 0
	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.ReconcileOne(ctx, c.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	if len(pending) > 0 {
		s.logger.InfoContext(ctx, "Pending contributions processed",
			log.FieldOperation, log.OpReconcile, log.FieldCount, len(pending), "synced", done)
	}
	return done, errors.Join(errs...)
}

func (s *GoalService) pushToLedger(ctx context.Context, c core.Contribution) error {
	_, err := s.ledger.Create(ctx, core.NewTransaction{
		Date:        c.Date,
		Description: ledgerDescription(c),
		Category:    core.SavingsCategory,
		Amount:      -c.Amount,
	})
	return err
}

// setPending updates the stored flag. Callers hold s.mu. A contribution
// removed in the meantime (goal cleared or replaced) is left alone.
func (s *GoalService) setPending(ctx context.Context, id string, pending bool) {
	goal := s.store.Goal(ctx)
	for i := range goal.Contributions {
		if goal.Contributions[i].ID == id {
			goal.Contributions[i].PendingSync = pending
			s.store.SaveGoal(ctx, goal)
			return
		}
	}
}

func findContribution(g core.SavingGoal, id string) (core.Contribution, bool) {
	for _, c := range g.Contributions {
		if c.ID == id {
			return c, true
		}
	}
	return core.Contribution{}, false
}

func ledgerDescription(c core.Contribution) string {
	if c.Description == "" || c.Description == DefaultContributionDescription {
		return DefaultSavingsDescription
	}
	return c.Description
}
