// Package api exposes the pipeline over HTTP: status and data reads, run
// triggering, and catalog management.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"callsense/internal/catalog"
	"callsense/internal/dataset"
	"callsense/internal/ledger"
	"callsense/internal/logging"
	"callsense/internal/pipeline"
)

// Engine is the subset of pipeline operations the API drives.
type Engine interface {
	Start(ctx context.Context, kind string, entities []string, force bool) (pipeline.Snapshot, error)
	Single(ctx context.Context, entity string, force bool) ([]dataset.Row, error)
	Running() bool
	Status() pipeline.Snapshot
}

// Catalog is the subset of catalog operations the API exposes.
type Catalog interface {
	All() []catalog.Entity
	Identifiers() []string
	Add(ctx context.Context, params catalog.AddParams, validate bool) (catalog.Entity, error)
	Remove(code string) error
	Statistics() catalog.Stats
}

// Ledger is the subset of ledger operations the API reads and resets.
type Ledger interface {
	Summary(ctx context.Context) (ledger.Summary, error)
	ClearAll(ctx context.Context) (int64, error)
}

// DatasetStore reads the durable dataset.
type DatasetStore interface {
	Load() ([]dataset.Row, error)
}

// Server wires the HTTP surface.
type Server struct {
	engine  Engine
	catalog Catalog
	ledger  Ledger
	dataset DatasetStore
	logger  *slog.Logger
}

// NewServer builds a server over the given collaborators.
func NewServer(engine Engine, cat Catalog, led Ledger, ds DatasetStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		engine:  engine,
		catalog: cat,
		ledger:  led,
		dataset: ds,
		logger:  logger.With(logging.String("component", "api")),
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/data", s.handleData)
		r.Get("/companies", s.handleCompanies)
		r.Post("/run", s.handleRun)
		r.Post("/company", s.handleAddCompany)
		r.Delete("/company/{code}", s.handleRemoveCompany)
		r.Post("/company/{code}/analyze", s.handleAnalyzeCompany)
	})
	return r
}

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, bind string) error {
	srv := &http.Server{
		Addr:              bind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("api listening", logging.String("bind", bind))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
