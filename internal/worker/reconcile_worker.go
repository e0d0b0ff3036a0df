// Package worker retries the ledger writes of saving goal contributions that
// could not be recorded when they were added.
package worker

import (
	"context"
	"errors"
	"fmt"

	"pondo/internal/amqp"
	"pondo/internal/log"
	"pondo/internal/services"
)

// Reconciler is the part of services.GoalService the worker drives.
type Reconciler interface {
	ReconcileOne(ctx context.Context, id string) error
	ReconcilePending(ctx context.Context) (int, error)
}

type ReconcileWorker struct {
	goals  Reconciler
	logger *log.Logger
}

func NewReconcileWorker(goals Reconciler, logger *log.Logger) *ReconcileWorker {
	return &ReconcileWorker{
		goals:  goals,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes one queued reconcile request. A contribution that
// no longer exists (goal replaced or cleared) is acknowledged and dropped;
// any other failure is returned so the message is requeued.
func (w *ReconcileWorker) HandleMessage(ctx context.Context, msg *amqp.ReconcileMessage) error {
	w.logger.InfoContext(ctx, "Processing reconcile message",
		log.FieldContribID, msg.ContributionID,
		"queued_at", msg.Timestamp)

	err := w.goals.ReconcileOne(ctx, msg.ContributionID)
	if errors.Is(err, services.ErrContributionNotFound) {
		w.logger.WarnContext(ctx, "Contribution gone, dropping message", log.FieldContribID, msg.ContributionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconcile contribution: %w", err)
	}
	return nil
}

// ProcessPending sweeps every pending contribution. It backs up the queue
// for lost messages and for runs without a broker.
func (w *ReconcileWorker) ProcessPending(ctx context.Context) error {
	n, err := w.goals.ReconcilePending(ctx)
	if n > 0 {
		w.logger.InfoContext(ctx, "Reconciled pending contributions", log.FieldCount, n)
	}
	if err != nil {
		return fmt.Errorf("process pending contributions: %w", err)
	}
	return nil
}

// StartupCheck runs one sweep before the worker starts consuming.
func (w *ReconcileWorker) StartupCheck(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Performing startup reconcile check")
	return w.ProcessPending(ctx)
}
