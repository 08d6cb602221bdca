// Package main is the entry point for the slug service API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/summitupfitters/slugsvc/internal/cms"
	"github.com/summitupfitters/slugsvc/internal/config"
	"github.com/summitupfitters/slugsvc/internal/handler"
	"github.com/summitupfitters/slugsvc/internal/middleware"
	"github.com/summitupfitters/slugsvc/internal/repo"
	"github.com/summitupfitters/slugsvc/internal/service"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Content store ----------------------------------------------------
	store := cms.New(cfg.CMSBaseURL, cfg.CMSDataset, cfg.CMSToken)
	vehicles := repo.NewVehicleRepo(store)
	if cfg.CMSToken == "" {
		slog.Warn("no CMS token configured; slug history capture will be skipped")
	}

	// --- History outbox (optional) ----------------------------------------
	// Failed history writes are queued in Postgres and redelivered by a
	// background worker. Without a database the service still runs; those
	// writes are just logged and lost.
	var outbox repo.HistoryOutboxRepo
	if cfg.OutboxDatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.OutboxDatabaseURL)
		if err != nil {
			slog.Error("failed to create outbox database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		// Verify the DB is reachable before accepting traffic.
		if err := pool.Ping(context.Background()); err != nil {
			slog.Error("failed to connect to outbox database", "error", err)
			os.Exit(1)
		}
		slog.Info("outbox database connection established")
		outbox = repo.NewHistoryOutboxRepo(pool)
	} else {
		slog.Warn("OUTBOX_DATABASE_URL not set; failed history writes will not be retried")
	}

	// --- Services ---------------------------------------------------------
	resolver := service.NewResolverService(vehicles)
	renames := service.NewRenameService(vehicles, outbox, logger, cfg.CMSHistoryTimeout)
	aliases := service.NewAliasService(vehicles)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if outbox != nil {
		worker := service.NewOutboxWorker(outbox, renames, logger)
		go worker.Run(workerCtx)
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → MaxBodySize. Recoverer catches panics and returns HTTP 500
	// instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.WebhookMaxBodyBytes))

	handler.NewServer(resolver, renames, aliases).Routes(r)

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
