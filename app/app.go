package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	accessservice "github.com/aceclub-io/ace-engine/app/modules/access/application"
	entryservice "github.com/aceclub-io/ace-engine/app/modules/entry/application"
	entryqueue "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/queue"
	verificationservice "github.com/aceclub-io/ace-engine/app/modules/verification/application"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
	"github.com/aceclub-io/ace-engine/config"
	"github.com/aceclub-io/ace-engine/db/bundb"
)

// Staff-code redemption throttle. One attempt per second per code prefix,
// with a small burst for honest retries.
const (
	staffCodeRate  = rate.Limit(1)
	staffCodeBurst = 5
)

// App wires configuration, storage, messaging, the three domain services,
// the sweep queue and the HTTP listeners.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry

	DB        *bundb.DBService
	Publisher eventbus.Publisher

	EntryService        entryservice.Service
	VerificationService verificationservice.Service
	AccessService       accessservice.Service

	Queue *entryqueue.Service

	httpServer    *http.Server
	metricsServer *http.Server
}

// Initialize builds every component but starts nothing.
func (app *App) Initialize(ctx context.Context, cfg *config.Config) error {
	app.Config = cfg
	app.Logger = observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.Environment)

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewPrometheusMetrics(app.Registry)

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to initialize database service: %w", err)
	}
	app.DB = dbService

	if cfg.NATS.URL != "" {
		publisher, err := eventbus.NewNatsPublisher(cfg.NATS.URL, app.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		app.Publisher = publisher
	} else {
		app.Logger.Warn("no NATS URL configured, events will be dropped")
		app.Publisher = eventbus.NoopPublisher{}
	}

	clk := clock.RealClock{}

	app.EntryService = entryservice.NewEntryService(
		dbService.EntryDB,
		dbService.CompetitionDB,
		dbService.VerificationDB,
		app.Publisher,
		app.Logger,
		metrics,
		otel.Tracer("entry"),
		clk,
		entryservice.Config{
			Windows: entryservice.Windows{
				Instant:  cfg.Engine.InstantAttemptWindow,
				Deferred: cfg.Engine.DeferredAttemptWindow,
			},
			Cooldown:            cfg.Engine.EntryCooldown,
			VerificationTimeout: cfg.Engine.VerificationTimeout,
		},
	)

	app.VerificationService = verificationservice.NewVerificationService(
		dbService.VerificationDB,
		dbService.EntryDB,
		app.Publisher,
		app.Logger,
		metrics,
		otel.Tracer("verification"),
		clk,
		verificationservice.Config{
			VerificationTimeout: cfg.Engine.VerificationTimeout,
			WitnessTTL:          cfg.Engine.WitnessTTL,
		},
	)

	app.AccessService = accessservice.NewAccessService(
		dbService.AccessDB,
		dbService.CompetitionDB,
		app.Publisher,
		app.Logger,
		metrics,
		otel.Tracer("access"),
		clk,
		accessservice.Config{
			JWTSecret:      cfg.JWT.Secret,
			LinkBaseURL:    cfg.JWT.LinkBaseURL,
			MagicLinkTTL:   cfg.Engine.MagicLinkTTL,
			DeferredWindow: cfg.Engine.DeferredAttemptWindow,
			StaffCodeRate:  staffCodeRate,
			StaffCodeBurst: staffCodeBurst,
		},
	)

	queue, err := entryqueue.NewService(
		ctx,
		cfg.Postgres.DSN,
		cfg.Engine.SweepInterval,
		app.EntryService,
		app.VerificationService,
		app.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize sweep queue: %w", err)
	}
	app.Queue = queue

	app.httpServer = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.Observability.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
		app.metricsServer = &http.Server{
			Addr:              cfg.Observability.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return nil
}

// Run starts the sweep queue and HTTP listeners, then blocks until ctx is
// cancelled or a listener fails.
func (app *App) Run(ctx context.Context) error {
	if err := app.Queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweep queue: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		app.Logger.Info("http server listening", slog.String("addr", app.httpServer.Addr))
		if err := app.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if app.metricsServer != nil {
		go func() {
			app.Logger.Info("metrics server listening", slog.String("addr", app.metricsServer.Addr))
			if err := app.metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("listener failed: %w", err)
	}
}

// Close shuts down in reverse dependency order: listeners first so no new
// work arrives, then the queue, then messaging and storage.
func (app *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if app.httpServer != nil {
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("http server shutdown failed", attr.Error(err))
		}
	}
	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("metrics server shutdown failed", attr.Error(err))
		}
	}
	if app.Queue != nil {
		if err := app.Queue.Stop(shutdownCtx); err != nil {
			app.Logger.Error("sweep queue shutdown failed", attr.Error(err))
		}
	}
	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			app.Logger.Error("publisher close failed", attr.Error(err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("database close failed", attr.Error(err))
		}
	}
}
