package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"accession/internal/api"
	"accession/internal/config"
	"accession/internal/logging"
)

// Daemon runs the HTTP API and the enrichment dispatcher under one
// supervisor and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	runtime *api.Runtime
	logger  *slog.Logger
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	DatabasePath string
	LockFilePath string
	APIBind      string
	Enrichment   bool
}

// New constructs a daemon around an opened runtime.
func New(cfg *config.Config, rt *api.Runtime, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || rt == nil {
		return nil, errors.New("daemon requires config and runtime")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	server, err := newAPIServer(cfg, rt.Service, logger)
	if err != nil {
		return nil, err
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		runtime:  rt,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		api:      server,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Run acquires the instance lock and serves until ctx is cancelled. A
// cancelled context is a clean shutdown and returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another accession daemon instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	root := d.supervisor()
	d.logger.Info("accession daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api_bind", d.cfg.Paths.APIBind),
		logging.Bool("enrichment", d.runtime.Dispatcher != nil),
	)
	err = root.Serve(ctx)
	d.logger.Info("accession daemon stopped")
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

func (d *Daemon) supervisor() *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: d.logger}
	root := suture.New("accession", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	root.Add(d.api)
	if d.runtime.Dispatcher != nil {
		root.Add(d.runtime.Dispatcher)
	}
	return root
}

// APIAddr blocks until the API server is listening and returns its address.
func (d *Daemon) APIAddr(ctx context.Context) (string, error) {
	return d.api.Addr(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		DatabasePath: d.runtime.Store.Path(),
		LockFilePath: d.lockPath,
		APIBind:      d.cfg.Paths.APIBind,
		Enrichment:   d.runtime.Dispatcher != nil,
	}
}
