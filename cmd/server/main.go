package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/api"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/config"
	"github.com/gitCarrot/OrchAI-sub000/internal/database"
	"github.com/gitCarrot/OrchAI-sub000/internal/logger"
	"github.com/gitCarrot/OrchAI-sub000/internal/metrics"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository/memory"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository/postgres"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
	"github.com/gitCarrot/OrchAI-sub000/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.Environment)
	l.Info("Starting refrigerator API...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, l)
	if err != nil {
		l.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	// Identity and access
	resolver := auth.NewResolver(
		auth.NewTokenVerifier(cfg.Auth),
		auth.NewInternalKey(cfg.Auth.InternalAPIKey),
		l,
	)
	evaluator := access.NewEvaluator(resolver, m, l)

	// The hub re-checks read access through the service it publishes for.
	var svc *service.Service
	hub := websocket.NewHub(func(ctx context.Context, ident auth.Identity, refrigeratorID int) error {
		_, err := svc.Authorize(ctx, ident, refrigeratorID, access.OpRead)
		return err
	}, m, l)
	svc = service.New(store, evaluator, resolver, hub, m, l, service.Options{
		AllowSystemDetach: cfg.Categories.AllowSystemDetach,
	})

	router := api.SetupRouter(api.Dependencies{
		Config:   cfg,
		Store:    store,
		Service:  svc,
		Resolver: resolver,
		Hub:      hub,
		Metrics:  m,
		Logger:   l,
	})

	apiServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		return serve(apiServer)
	})
	g.Go(func() error {
		l.Infof("Metrics server listening on :%s", cfg.MetricsPort)
		return serve(metricsServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(apiServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		l.WithError(err).Error("Server stopped with error")
		return
	}
	l.Info("Refrigerator API stopped")
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openStore returns the configured persistence gateway and its close func.
func openStore(ctx context.Context, cfg *config.Config, l *logrus.Logger) (repository.Store, func(), error) {
	if cfg.Store.Driver == "memory" {
		l.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.Database, l)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.MigrationsEnabled {
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return postgres.New(db.DB, l), func() { db.Close() }, nil
}
