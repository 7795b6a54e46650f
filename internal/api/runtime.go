package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"accession/internal/catalogue"
	"accession/internal/config"
	"accession/internal/enrichment"
	"accession/internal/insertion"
	"accession/internal/logging"
	"accession/internal/metadata"
	"accession/internal/workflow"
)

// Runtime owns the store and collaborators behind a CatalogueService.
type Runtime struct {
	Config     *config.Config
	Store      *catalogue.Store
	Service    *CatalogueService
	Dispatcher *enrichment.Dispatcher

	metadata *metadata.Client
	logger   *slog.Logger
}

// OpenRuntime wires the catalogue store, metadata client, enrichment
// dispatcher, workflow manager and insertion engine from configuration.
// Dispatcher is nil when enrichment is disabled.
func OpenRuntime(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := catalogue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}
	rt := &Runtime{Config: cfg, Store: store, logger: logger}

	managerOpts := []workflow.ManagerOption{workflow.WithFetchTimeout(cfg.MetadataTimeout() * 4)}
	var fetcher metadata.Fetcher
	if cfg.Metadata.Enabled {
		client, err := metadata.NewFromConfig(cfg, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("metadata client: %w", err)
		}
		rt.metadata = client
		fetcher = client
		managerOpts = append(managerOpts, workflow.WithFetcher(client))
	}

	var engineOpts []insertion.Option
	if dispatcher := enrichment.NewFromConfig(cfg, logger); dispatcher != nil {
		rt.Dispatcher = dispatcher
		engineOpts = append(engineOpts, insertion.WithEnqueuer(dispatcher))
	}

	manager := workflow.NewManager(store, logger, managerOpts...)
	engine := insertion.NewEngine(store, logger, engineOpts...)
	rt.Service = NewCatalogueService(manager, engine, fetcher)
	return rt, nil
}

// Close drains queued enrichment jobs and releases the store and cache.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	if r.Dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.Config.EnrichmentTimeout()*2)
		r.Dispatcher.Drain(ctx)
		cancel()
	}
	var errs []error
	if r.metadata != nil {
		if err := r.metadata.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close metadata cache: %w", err))
		}
	}
	if err := r.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close catalogue: %w", err))
	}
	return errors.Join(errs...)
}
