// Command pondo-worker retries ledger writes for goal contributions that were
// saved locally while the ledger was unreachable, and sweeps expired cache
// entries. Reconcile requests arrive over AMQP when a broker is configured;
// a poll loop covers anything the queue missed.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pondo/internal/auth"
	"pondo/internal/cli"
	"pondo/internal/log"
	"pondo/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = logger.WithComponent(log.ComponentWorker)

	logger.Info("Starting pondo-worker",
		"ledger", cfg.LedgerBackend,
		"store", cfg.StoreBackend,
		"interval", cfg.ReconcileInterval.String())

	rt, err := cli.NewRuntime(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize runtime", log.FieldError, err)
		os.Exit(1)
	}

	reconciler := worker.NewReconcileWorker(rt.Goals, logger)
	processor := worker.NewProcessor(reconciler, rt.Caches, worker.ProcessorConfig{
		PollInterval: cfg.ReconcileInterval,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Processor stop failed", log.FieldError, err)
		}
		if err := rt.Close(); err != nil {
			logger.Warn("Failed to close runtime", log.FieldError, err)
		}
	})

	if rt.Session != nil && rt.Session.Bootstrap(ctx) != auth.Authenticated {
		logger.Warn("No valid session; ledger writes will fail until `pondo login` is run")
	}

	logger.Info("Performing startup reconcile check...")
	if err := reconciler.StartupCheck(ctx); err != nil {
		logger.Error("Startup reconcile check failed", log.FieldError, err)
	}

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start processor", log.FieldError, err)
		os.Exit(1)
	}

	if rt.AMQP != nil {
		go func() {
			if err := rt.AMQP.ConsumeReconcile(ctx, reconciler.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled, relying on the poll loop")
	}

	cli.WaitForShutdown(ctx, done)
}
