package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pondo/internal/log"
)

// ProcessorConfig controls the poll loop.
type ProcessorConfig struct {
	// PollInterval is how often pending contributions are retried (default: 30s)
	PollInterval time.Duration

	// SweepInterval is how often expired cache entries are dropped (default: 5m)
	SweepInterval time.Duration
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:  30 * time.Second,
		SweepInterval: 5 * time.Minute,
	}
}

// Sweeper drops expired entries; cache.Manager implements it.
type Sweeper interface {
	Sweep() int
}

// Processor polls for pending contributions independently of the queue so a
// lost message or a missing broker only delays reconciliation.
type Processor struct {
	worker  *ReconcileWorker
	sweeper Sweeper
	config  ProcessorConfig
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewProcessor builds a processor. sweeper may be nil.
func NewProcessor(w *ReconcileWorker, sweeper Sweeper, config ProcessorConfig, logger *log.Logger) *Processor {
	def := DefaultProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = def.SweepInterval
	}
	return &Processor{
		worker:  w,
		sweeper: sweeper,
		config:  config,
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// Start begins the loop. Returns an error if already running.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Processor started",
		"poll_interval", p.config.PollInterval,
		"sweep_interval", p.config.SweepInterval)
	return nil
}

// Stop signals the loop and waits for it to exit or for ctx to end.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()
	sweepTicker := time.NewTicker(p.config.SweepInterval)
	defer sweepTicker.Stop()

	p.poll(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.poll(ctx)
		case <-sweepTicker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Processor) poll(ctx context.Context) {
	if err := p.worker.ProcessPending(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Periodic reconcile failed", log.FieldError, err)
	}
}

func (p *Processor) sweep(ctx context.Context) {
	if p.sweeper == nil {
		return
	}
	if n := p.sweeper.Sweep(); n > 0 {
		p.logger.DebugContext(ctx, "Swept expired cache entries", log.FieldCount, n)
	}
}
