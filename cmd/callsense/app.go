package main

import (
	"context"
	"fmt"
	"log/slog"

	"callsense/internal/catalog"
	"callsense/internal/config"
	"callsense/internal/dataset"
	"callsense/internal/extract"
	"callsense/internal/ledger"
	"callsense/internal/locator"
	"callsense/internal/logging"
	"callsense/internal/pipeline"
	"callsense/internal/scoring"
)

// app bundles the wired pipeline collaborators behind one Close.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *catalog.Catalog
	ledger  *ledger.Store
	dataset *dataset.Store
	engine  *pipeline.Engine
}

// localDiscoverer lists the on-disk archive instead of the remote source.
type localDiscoverer struct {
	archive *extract.Local
}

func (d localDiscoverer) Discover(_ context.Context, symbol string) ([]locator.Reference, error) {
	return d.archive.List(symbol)
}

// buildApp wires the full pipeline. With local set, discovery and extraction
// read the documents directory instead of the remote source.
func buildApp(cfg *config.Config, local bool) (*app, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	loc := locator.New(cfg.Source)

	static, err := catalog.LoadStatic(cfg.Paths.CatalogCSV)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	cat, err := catalog.New(static, catalog.NewCustomStore(cfg.CustomCatalogPath()), loc)
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(cfg)
	if err != nil {
		return nil, err
	}

	var model scoring.ChunkModel
	if cfg.Scoring.Endpoint != "" {
		model = scoring.NewInferenceClient(cfg.Scoring)
	}
	analyzer := scoring.NewAnalyzer(cfg.Scoring, model, logger)

	deps := pipeline.Deps{
		Catalog:  cat,
		Locator:  loc,
		Analyzer: analyzer,
		Ledger:   led,
		Dataset:  dataset.NewStore(cfg.DatasetPath()),
	}
	if local {
		archive := extract.NewLocal(cfg.Paths.DocumentsDir, cfg.Source.MinWords)
		deps.Extractor = archive
		deps.Locator = localDiscoverer{archive: archive}
	} else {
		deps.Extractor = extract.NewRemote(cfg.Source)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		catalog: cat,
		ledger:  led,
		dataset: dataset.NewStore(cfg.DatasetPath()),
		engine:  pipeline.New(cfg, deps, logger),
	}, nil
}

func (a *app) Close() {
	if a == nil {
		return
	}
	if err := a.ledger.Close(); err != nil {
		a.logger.Warn("close ledger", logging.Error(err))
	}
}
