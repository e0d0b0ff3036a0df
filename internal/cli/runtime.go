package cli

import (
	"context"
	"errors"
	"fmt"

	"pondo/internal/amqp"
	"pondo/internal/auth"
	"pondo/internal/backend"
	"pondo/internal/cache"
	"pondo/internal/config"
	"pondo/internal/log"
	"pondo/internal/services"
	"pondo/internal/store"
	"pondo/internal/syncer"
	"pondo/internal/views"
)

// Runtime is a fully wired client: store, ledger, sync engine, services and
// screens. Session is nil unless the ledger speaks HTTP.
type Runtime struct {
	Config  *config.Config
	Store   *store.Store
	Engine  *syncer.Engine
	App     *views.App
	Goals   *services.GoalService
	Session *auth.Session
	Caches  *cache.Manager
	AMQP    *amqp.Client
	Logger  *log.Logger

	cleanups []backend.CleanupFunc
}

// NewRuntime opens the configured backends and wires everything. The AMQP
// publisher is optional: a broker that cannot be reached is logged and
// contributions fall back to the poll loop.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Runtime, error) {
	logger = log.OrDiscard(logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger)
	rt := &Runtime{Config: cfg, Logger: logger}

	st, err := factory.OpenStore(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	rt.Store = st.Store
	rt.addCleanup(st.Cleanup)

	lr, err := factory.OpenLedger(ctx, bcfg, st.Store)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.addCleanup(lr.Cleanup)

	rt.Engine = syncer.NewEngine(lr.Ledger, syncer.Options{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Logger:    logger,
	})
	rt.Caches = cache.NewManager(logger)
	for _, c := range rt.Engine.Cleaners() {
		rt.Caches.Register(c)
	}

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without queue", log.FieldError, err)
		} else {
			rt.AMQP = client
			publisher = client
			rt.addCleanup(client.Close)
		}
	}

	rt.Goals = services.NewGoalService(st.Store, rt.Engine, publisher, logger)
	rt.App = views.New(rt.Engine,
		services.NewBudgetService(st.Store, logger),
		rt.Goals,
		services.NewSettingsService(st.Store, logger),
		logger)

	if lr.HTTP != nil {
		rt.Session = auth.NewSession(auth.NewClient(lr.HTTP.BaseURL(), lr.HTTP.HTTPClient()), st.Store, logger)
	}
	return rt, nil
}

func (r *Runtime) addCleanup(fn backend.CleanupFunc) {
	if fn != nil {
		r.cleanups = append(r.cleanups, fn)
	}
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		if err := r.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.cleanups = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close runtime: %w", err)
	}
	return nil
}
