package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jonathan/listing-customizer/internal/cache"
	"github.com/jonathan/listing-customizer/internal/config"
	"github.com/jonathan/listing-customizer/internal/db"
	"github.com/jonathan/listing-customizer/internal/fetch"
	"github.com/jonathan/listing-customizer/internal/logger"
	"github.com/jonathan/listing-customizer/internal/overlay"
	"github.com/jonathan/listing-customizer/internal/ratelimit"
	"github.com/jonathan/listing-customizer/internal/service"
	"github.com/jonathan/listing-customizer/internal/sqlite"
	"github.com/jonathan/listing-customizer/internal/storage"
)

// app holds everything a command needs, built from one Config.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *fetch.Orchestrator
	cache        cache.Store
	overlays     overlay.Store
	files        *storage.Local
	svc          *service.Service

	closers []func() error
}

// loadConfig reads configuration and builds the logger, applying --log-level.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	log := logger.New(logger.Config{
		Writer:      os.Stderr,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
		Level:       logger.ParseLevel(level),
	})
	slog.SetDefault(log)
	return cfg, log, nil
}

// newOrchestrator builds the tier escalation and the transports behind it.
func newOrchestrator(cfg *config.Config, log *slog.Logger) *fetch.Orchestrator {
	var limiter *ratelimit.KeyedLimiter
	if cfg.Fetch.OutboundRPS > 0 {
		limiter = ratelimit.NewKeyed(cfg.Fetch.OutboundRPS, cfg.Fetch.OutboundBurst)
	}
	httpTransport := fetch.NewHTTPTransport(&http.Client{}, fetch.UnlockerConfig{
		Endpoint:    cfg.Unlocker.Endpoint,
		APIKey:      cfg.Unlocker.APIKey,
		CountryCode: cfg.Unlocker.CountryCode,
	}, limiter)

	router := fetch.Router{
		fetch.KindDirect:   httpTransport,
		fetch.KindUnlocker: httpTransport,
	}
	if cfg.Fetch.BrowserEnabled {
		router[fetch.KindBrowser] = &fetch.BrowserTransport{Logger: log}
	}

	tiers := fetch.DefaultTiers(cfg.Fetch.TierTimeout, cfg.Fetch.BrowserEnabled)
	if !cfg.Unlocker.Configured() {
		log.Warn("unlocker not configured; unlocker tiers will be skipped")
	}

	return fetch.NewOrchestrator(fetch.OrchestratorConfig{
		Tiers:         tiers,
		Probe:         fetch.TitleAnchorProbe,
		RequestBudget: cfg.Fetch.RequestBudget,
	}, router, log)
}

// newApp opens the configured backends and builds the service.
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log}

	if err := a.openBackends(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	files, err := storage.NewLocal(cfg.Uploads.Dir, cfg.Uploads.PublicPrefix)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.files = files
	a.orchestrator = newOrchestrator(cfg, log)

	a.svc = service.New(service.Config{
		BaseURL:       cfg.Fetch.BaseURL,
		DomainMarkers: cfg.Fetch.DomainMarkers,
		TTL:           cfg.Cache.TTL,
		FailureTTL:    cfg.Cache.FailureTTL,
	}, service.Deps{
		Fetcher:  a.orchestrator,
		Cache:    a.cache,
		Overlays: a.overlays,
		Files:    files,
	}, log)
	return a, nil
}

func (a *app) openBackends(ctx context.Context) error {
	var pg *db.DB
	if a.cfg.Cache.Backend == "postgres" || a.cfg.Overlay.Backend == "postgres" {
		conn, err := db.Connect(ctx, a.cfg.Database.URL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { conn.Close(); return nil })
		if err := conn.Migrate(ctx); err != nil {
			return err
		}
		pg = conn
	}

	switch a.cfg.Cache.Backend {
	case "badger":
		b, err := cache.OpenBadger(a.cfg.Cache.Path, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, b.Close)
		a.cache = b
	case "postgres":
		a.cache = db.NewListingCache(pg, a.logger)
	default:
		a.cache = cache.NewMemory(nil)
	}

	switch a.cfg.Overlay.Backend {
	case "sqlite":
		s, err := sqlite.Open(a.cfg.Overlay.Path, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, s.Close)
		a.overlays = s
	case "postgres":
		a.overlays = db.NewOverlayStore(pg)
	default:
		a.overlays = overlay.NewMemory()
	}

	a.logger.Debug("backends opened", "cache", a.cfg.Cache.Backend, "overlay", a.cfg.Overlay.Backend)
	return nil
}

// Close releases backends in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close backends: %w", err)
	}
	return nil
}
