package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"accession/internal/api"
	"accession/internal/config"
	"accession/internal/logging"
)

const shutdownTimeout = 5 * time.Second

type apiServer struct {
	bind      string
	token     string
	origins   []string
	rateLimit int
	logger    *slog.Logger
	svc       *api.CatalogueService

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

func newAPIServer(cfg *config.Config, svc *api.CatalogueService, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("api server requires config and catalogue service")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind is empty")
	}
	return &apiServer{
		bind:      bind,
		token:     cfg.API.Token,
		origins:   cfg.API.CORSOrigins,
		rateLimit: cfg.API.RateLimitPerMinute,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		svc:       svc,
		ready:     make(chan struct{}),
	}, nil
}

// routes builds the HTTP handler. Everything under /api/v1 shares the rate
// limit and the optional bearer token; /metrics is left open for scrapers.
func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if len(s.origins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: s.origins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
				ExposedHeaders: []string{"X-Request-ID"},
				MaxAge:         300,
			}))
		}
		if s.rateLimit > 0 {
			r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
		}
		r.Use(recordRequest)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.token))
			r.Get("/stats", s.handleStats)
			r.Post("/lookup", s.handleLookup)
			r.Route("/entries", func(r chi.Router) {
				r.Post("/", s.handleIntake)
				r.Get("/", s.handleList)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGet)
					r.Patch("/", s.handleEdit)
					r.Post("/confirm", s.handleConfirm)
					r.Post("/insert", s.handleInsert)
					r.Get("/audit", s.handleAudit)
				})
			})
		})
	})
	return r
}

// Serve implements suture.Service.
func (s *apiServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
	s.mu.Unlock()

	server := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String names the service for supervisor logs.
func (s *apiServer) String() string {
	return "api-server"
}

// Addr returns the bound address once the server is listening.
func (s *apiServer) Addr(ctx context.Context) (string, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr().String(), nil
}
