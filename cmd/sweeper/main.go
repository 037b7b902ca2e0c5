// Command sweeper runs both expiry sweeps once and exits. It exists for
// cron-style deployments that do not keep the API process running; the API
// process already sweeps periodically through River.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	entryservice "github.com/aceclub-io/ace-engine/app/modules/entry/application"
	verificationservice "github.com/aceclub-io/ace-engine/app/modules/verification/application"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
	"github.com/aceclub-io/ace-engine/config"
	"github.com/aceclub-io/ace-engine/db/bundb"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall sweep deadline")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbService.Close()

	var publisher eventbus.Publisher = eventbus.NoopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := eventbus.NewNatsPublisher(cfg.NATS.URL, logger)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	clk := clock.RealClock{}
	metrics := observability.NoopMetrics{}
	tracer := noop.NewTracerProvider().Tracer("sweeper")

	entries := entryservice.NewEntryService(
		dbService.EntryDB,
		dbService.CompetitionDB,
		dbService.VerificationDB,
		publisher,
		logger,
		metrics,
		tracer,
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
	verifications := verificationservice.NewVerificationService(
		dbService.VerificationDB,
		dbService.EntryDB,
		publisher,
		logger,
		metrics,
		tracer,
		clk,
		verificationservice.Config{
			VerificationTimeout: cfg.Engine.VerificationTimeout,
			WitnessTTL:          cfg.Engine.WitnessTTL,
		},
	)

	entrySweep, err := entries.SweepOverdueEntries(ctx)
	if err != nil {
		log.Fatalf("entry sweep failed: %v", err)
	}
	verificationSweep, err := verifications.SweepExpiredVerifications(ctx)
	if err != nil {
		log.Fatalf("verification sweep failed: %v", err)
	}

	logger.Info("sweep complete",
		"entries_auto_missed", len(entrySweep.EntryIDs),
		"verifications_auto_missed", len(verificationSweep.Swept),
	)
}
