package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"venturelab/internal/catalog"
	"venturelab/internal/collector"
	"venturelab/internal/config"
	"venturelab/internal/enrich"
	"venturelab/internal/metrics"
	"venturelab/internal/repository/sqlite"
	"venturelab/internal/service"
)

// app holds the wired engine and the resources it owns
type app struct {
	engine  *service.Engine
	catalog *catalog.Catalog
	repo    *sqlite.Repository
	metrics *metrics.Metrics
}

// newApp opens the database, loads the catalog and restores prior state
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sim := collector.NewSimulated(cfg.Runner.SimulationSeed)
	sim.Delay = cfg.Runner.SimulationDelay.Duration()
	collectors := collector.NewRegistry(logger)
	if err := collectors.Register(sim, collector.Config{Enabled: true}); err != nil {
		repo.Close()
		return nil, err
	}

	var enricher service.Enricher
	if len(cfg.Enrichment.Markets)+len(cfg.Enrichment.Competitors) > 0 {
		enricher = enrich.NewStatic(cfg.Enrichment.Markets, cfg.Enrichment.Competitors)
	}

	m := metrics.New()
	engine, err := service.NewEngine(service.Options{
		Catalog:          cat,
		Collectors:       collectors,
		Store:            repo,
		Enricher:         enricher,
		Metrics:          m,
		Logger:           logger,
		RetentionPerType: cfg.Tracker.RetentionPerType,
		DefaultTimeout:   cfg.Runner.DefaultTimeout.Duration(),
	})
	if err != nil {
		repo.Close()
		return nil, err
	}
	if err := engine.Restore(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("restore state: %w", err)
	}

	return &app{engine: engine, catalog: cat, repo: repo, metrics: m}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}

// loadCatalog returns the built-in templates, or the configured pack instead
func loadCatalog(cc config.CatalogConfig) (*catalog.Catalog, error) {
	cat := catalog.Default()
	if cc.Path == "" {
		return cat, nil
	}
	if err := cat.LoadFile(cc.Path); err != nil {
		return nil, fmt.Errorf("load template pack: %w", err)
	}
	return cat, nil
}
