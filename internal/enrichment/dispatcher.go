package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"accession/internal/config"
	"accession/internal/logging"
	"accession/internal/metrics"
)

// Dispatcher runs enrichment jobs off the request path. Enqueue never blocks;
// when the queue is full the job is dropped and logged.
type Dispatcher struct {
	handler Handler
	jobs    chan int64
	workers int
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Options sizes a Dispatcher.
type Options struct {
	QueueSize int
	Workers   int
	// Timeout bounds a single job. Zero means no limit.
	Timeout time.Duration
}

// NewDispatcher constructs a dispatcher around handler.
func NewDispatcher(handler Handler, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Dispatcher{
		handler: handler,
		jobs:    make(chan int64, opts.QueueSize),
		workers: opts.Workers,
		timeout: opts.Timeout,
		logger:  logging.NewComponentLogger(logger, "enrichment"),
	}
}

// NewFromConfig returns a webhook-backed dispatcher, or nil when enrichment
// is disabled.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Dispatcher {
	if cfg == nil || !cfg.Enrichment.Enabled || cfg.Enrichment.WebhookURL == "" {
		return nil
	}
	timeout := cfg.EnrichmentTimeout()
	handler := NewWebhookHandler(cfg.Enrichment.WebhookURL, &http.Client{Timeout: timeout}, cfg.Enrichment.RetryAttempts)
	return NewDispatcher(handler, Options{
		QueueSize: cfg.Enrichment.QueueSize,
		Workers:   cfg.Enrichment.Workers,
		Timeout:   timeout * time.Duration(max(cfg.Enrichment.RetryAttempts, 1)),
	}, logger)
}

// Enqueue schedules enrichment for bookID.
func (d *Dispatcher) Enqueue(bookID int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(bookID, "dispatcher closed")
		return
	}
	select {
	case d.jobs <- bookID:
	default:
		d.drop(bookID, "queue full")
	}
}

func (d *Dispatcher) drop(bookID int64, reason string) {
	metrics.RecordEnrichmentJob("dropped")
	logging.WarnWithContext(d.logger, "enrichment job dropped", "enrichment_dropped",
		logging.Int64(logging.FieldBookID, bookID),
		logging.String("reason", reason),
	)
}

// Pending reports how many jobs are queued.
func (d *Dispatcher) Pending() int {
	return len(d.jobs)
}

// Serve runs the worker pool until ctx is cancelled. Queued jobs that have
// not started when ctx ends stay in the queue for Drain.
func (d *Dispatcher) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case bookID := <-d.jobs:
					d.run(ctx, bookID)
				}
			}
		}()
	}
	wg.Wait()
	if pending := d.Pending(); pending > 0 {
		d.logger.Info("enrichment workers stopped with queued jobs", logging.Int("pending", pending))
	}
	return ctx.Err()
}

// String names the service for supervisor logs.
func (d *Dispatcher) String() string {
	return "enrichment-dispatcher"
}

// Drain stops accepting jobs and runs whatever is still queued on the calling
// goroutine. It returns early when ctx ends.
func (d *Dispatcher) Drain(ctx context.Context) {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return
		case bookID := <-d.jobs:
			d.run(ctx, bookID)
		default:
			return
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, bookID int64) {
	jobCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	logger := d.logger.With(logging.Int64(logging.FieldBookID, bookID))

	err := d.safeHandle(jobCtx, bookID)
	if err != nil {
		metrics.RecordEnrichmentJob("failed")
		logging.WarnWithContext(logger, "enrichment job failed", "enrichment_failed", logging.Error(err))
		return
	}
	metrics.RecordEnrichmentJob("delivered")
	logger.Debug("enrichment job delivered")
}

func (d *Dispatcher) safeHandle(ctx context.Context, bookID int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enrichment handler panic: %v", r)
		}
	}()
	return d.handler.Handle(ctx, bookID)
}
